package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"go.uber.org/zap"
)

// Record is one delivered notification.
type Record struct {
	Seq      int64
	Category eventbatch.Category
	Kind     string // "created", "destroyed", "moved", "cloak", "los"
	Object   ecs.ObjectID
	Data     int32
	At       time.Time
}

// JournalWriter persists a batch of records for a session.
type JournalWriter interface {
	WriteRecords(ctx context.Context, session uuid.UUID, recs []Record) error
}

// Journal is an observer that buffers every notification in memory and
// hands the buffer to a JournalWriter on Flush. Observer calls never do I/O,
// so the category lock is never held across a database round trip.
//
// At most limit records are buffered. While the writer keeps failing the
// oldest records are dropped and counted.
type Journal struct {
	session uuid.UUID
	w       JournalWriter
	limit   int
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	seq      int64
	buf      []Record
	dropped  uint64
	dropping bool // warned since the last successful flush
}

// NewJournal returns a journal buffering up to limit records. A limit of
// zero or less disables the cap.
func NewJournal(session uuid.UUID, w JournalWriter, limit int, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		session: session,
		w:       w,
		limit:   limit,
		log:     log,
		now:     time.Now,
		buf:     make([]Record, 0, 256),
	}
}

func (j *Journal) Session() uuid.UUID { return j.session }

func (j *Journal) append(c eventbatch.Category, kind string, id ecs.ObjectID, data int32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.buf = append(j.buf, Record{Seq: j.seq, Category: c, Kind: kind, Object: id, Data: data, At: j.now()})
	j.trimLocked()
}

// trimLocked drops the oldest records beyond the limit.
func (j *Journal) trimLocked() {
	if j.limit <= 0 || len(j.buf) <= j.limit {
		return
	}
	n := len(j.buf) - j.limit
	j.buf = j.buf[n:]
	j.dropped += uint64(n)
	if !j.dropping {
		j.dropping = true
		j.log.Warn("journal buffer full, dropping oldest records",
			zap.Int("limit", j.limit),
			zap.Uint64("dropped", j.dropped))
	}
}

func (j *Journal) Created(c eventbatch.Category, id ecs.ObjectID) {
	j.append(c, "created", id, 0)
}

func (j *Journal) Destroyed(c eventbatch.Category, id ecs.ObjectID) {
	j.append(c, "destroyed", id, 0)
}

func (j *Journal) Moved(c eventbatch.Category, id ecs.ObjectID) {
	j.append(c, "moved", id, 0)
}

func (j *Journal) StateChanged(c eventbatch.Category, kind eventbatch.StateKind, id ecs.ObjectID, data int32) {
	j.append(c, kind.String(), id, data)
}

// Buffered returns the number of records awaiting Flush.
func (j *Journal) Buffered() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.buf)
}

// Dropped returns how many records were discarded because the buffer was
// full.
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Flush writes buffered records. On error the records are put back in
// front of anything buffered since, so a later Flush retries them, and the
// buffer is trimmed back to its limit.
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	recs := j.buf
	j.buf = make([]Record, 0, cap(recs))
	j.mu.Unlock()

	if len(recs) == 0 {
		return nil
	}
	if err := j.w.WriteRecords(ctx, j.session, recs); err != nil {
		j.mu.Lock()
		j.buf = append(recs, j.buf...)
		j.trimLocked()
		j.mu.Unlock()
		return fmt.Errorf("journal flush: %w", err)
	}
	j.mu.Lock()
	j.dropping = false
	j.mu.Unlock()
	j.log.Debug("journal flushed", zap.Int("records", len(recs)))
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more with
// a fresh timeout.
func (j *Journal) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := j.Flush(ctx); err != nil {
				j.log.Warn("journal flush failed", zap.Error(err))
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return j.Flush(final)
		}
	}
}
