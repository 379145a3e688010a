package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/eventbatch/internal/config"
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	coresys "github.com/l1jgo/eventbatch/internal/core/system"
	"github.com/l1jgo/eventbatch/internal/data"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"github.com/l1jgo/eventbatch/internal/persist"
	"github.com/l1jgo/eventbatch/internal/render"
	"github.com/l1jgo/eventbatch/internal/scripting"
	"github.com/l1jgo/eventbatch/internal/system"
	"github.com/l1jgo/eventbatch/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Simulation ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/batchsim.toml"
	if p := os.Getenv("EVENTBATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load scenario
	printSection("scenario")
	sc, err := data.LoadScenario(cfg.Scenario.Path)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	ticks := sc.Ticks
	if cfg.Scenario.Ticks > 0 {
		ticks = cfg.Scenario.Ticks
	}
	printStat("waves", sc.Count())
	printStat("ticks", ticks)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Observers: the scene always, the journal and Lua scripts on request
	scene := render.NewScene(log.Named("scene"))
	observers := render.Fanout{scene}

	var journal *render.Journal
	if cfg.Journal.Enabled {
		printSection("journal")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Journal, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		applied, err := persist.RunMigrations(dbCtx, db.Pool, log)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("PostgreSQL connected")
		printStat("migrations applied", applied)
		journal = render.NewJournal(uuid.New(), persist.NewJournalRepo(db), cfg.Journal.MaxBuffered, log.Named("journal"))
		observers = append(observers, journal)
		log.Info("journal session", zap.String("session", journal.Session().String()))
		fmt.Println()
	}

	if cfg.Scripting.Enabled {
		printSection("scripting")
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer engine.Close()
		implemented := 0
		for i := range scripting.Names() {
			if engine.Implements(scripting.Callin(i)) {
				implemented++
			}
		}
		printStat("callins implemented", implemented)
		observers = append(observers, engine)
		fmt.Println()
	}

	// 5. World and event batches. Owned identities are released by the
	// renderer thread through the pool.
	ws := world.NewState()
	pool := ws.ECS.Pool()
	dealloc := eventbatch.DeallocatorFunc(func(c eventbatch.Category, id ecs.ObjectID) {
		if !pool.Free(id) {
			log.Warn("stale identity freed", zap.Stringer("category", c), zap.Uint64("object", uint64(id)))
		}
	})
	h, err := eventbatch.New(cfg.Batching, observers, dealloc, log.Named("batch"))
	if err != nil {
		return fmt.Errorf("event batches: %w", err)
	}
	producer := h.Producer()

	// 6. Systems
	runner := coresys.NewRunner()
	spawnSys := system.NewSpawnSystem(ws, sc, producer)
	cleanupSys := system.NewCleanupSystem(ws)
	runner.Register(spawnSys)
	runner.Register(system.NewMovementSystem(ws, producer))
	runner.Register(system.NewCloakSystem(ws, producer, sc.CloakEvery))
	runner.Register(system.NewExpireSystem(ws, producer, h.Owns, log.Named("expire")))
	runner.Register(cleanupSys)
	runner.Register(system.NewPublishSystem(producer))

	// 7. Run simulation and render loops until the scenario ends or a
	// signal arrives.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	loop := render.NewLoop(h.Consumer(), cfg.Render.FrameRate, log.Named("render"))
	g.Go(func() error { return loop.Run(gctx) })
	if journal != nil {
		g.Go(func() error { return journal.Run(gctx, cfg.Journal.FlushInterval) })
	}
	g.Go(func() error {
		defer cancelRun()
		ticker := time.NewTicker(cfg.Simulation.TickRate)
		defer ticker.Stop()
		for ticks == 0 || runner.Ticks() < uint64(ticks) {
			select {
			case <-ticker.C:
				runner.Tick(cfg.Simulation.TickRate)
			case <-gctx.Done():
				return nil
			}
		}
		log.Info("scenario finished", zap.Uint64("ticks", runner.Ticks()))
		return nil
	})

	log.Info("simulation started",
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
		zap.Duration("frame_rate", cfg.Render.FrameRate),
		zap.Bool("strict", cfg.Batching.Strict))

	runErr := g.Wait()
	if ctx.Err() != nil {
		log.Info("shutdown signal received")
	}

	// 8. Both loops have stopped. Retire what is left and deliver every
	// outstanding notification before the identities are checked.
	removed := system.DespawnAll(ws, producer, h.Owns)
	if err := h.Drain(); err != nil {
		return errors.Join(runErr, err)
	}
	ws.ECS.FlushDestroyQueue()

	if journal != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := journal.Flush(flushCtx)
		cancel()
		if err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	stats := scene.Stats()
	log.Info("simulation stopped",
		zap.Uint64("ticks", runner.Ticks()),
		zap.Uint64("frames", loop.Frames()),
		zap.Int("spawned", spawnSys.Spawned()),
		zap.Int("despawned_at_exit", removed),
		zap.Int("cleanup_freed", cleanupSys.Freed()),
		zap.Int("created", stats.Created),
		zap.Int("destroyed", stats.Destroyed),
		zap.Int("moved", stats.Moved),
		zap.Int("state_changes", stats.States),
		zap.Int("anomalies", stats.Anomalies),
		zap.Int("live_identities", pool.Live()))
	if n := pool.Live(); n != 0 {
		log.Warn("identities leaked", zap.Int("count", n))
	}
	return runErr
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
