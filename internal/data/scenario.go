package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"gopkg.in/yaml.v3"
)

// Wave spawns Count objects of one category on a tick schedule.
type Wave struct {
	Category string  `yaml:"category"`
	Start    int     `yaml:"start"` // first tick, 1-based
	Every    int     `yaml:"every"` // repeat interval in ticks; 0 = once
	Until    int     `yaml:"until"` // last tick a repeat may fire; 0 = no limit
	Count    int     `yaml:"count"`
	TTL      int     `yaml:"ttl"` // lifetime in ticks; 0 = lives until shutdown
	VX       float64 `yaml:"vx"`
	VY       float64 `yaml:"vy"`
	Cloak    bool    `yaml:"cloak"` // units toggle cloak every CloakEvery ticks
}

type scenarioFile struct {
	Name       string `yaml:"name"`
	Ticks      int    `yaml:"ticks"`
	CloakEvery int    `yaml:"cloak_every"`
	Waves      []Wave `yaml:"waves"`
}

// Scenario is a validated spawn schedule.
type Scenario struct {
	Name       string
	Ticks      int
	CloakEvery int
	waves      []scheduledWave
}

type scheduledWave struct {
	Wave
	category eventbatch.Category
}

// Spawn is one resolved spawn order.
type Spawn struct {
	Category eventbatch.Category
	Count    int
	TTL      int
	VX, VY   float64
	Cloak    bool
}

// Count returns the number of waves.
func (s *Scenario) Count() int {
	return len(s.waves)
}

// At returns the spawns due on tick (1-based).
func (s *Scenario) At(tick int) []Spawn {
	var out []Spawn
	for _, w := range s.waves {
		if !w.due(tick) {
			continue
		}
		out = append(out, Spawn{
			Category: w.category,
			Count:    w.Count,
			TTL:      w.TTL,
			VX:       w.VX,
			VY:       w.VY,
			Cloak:    w.Cloak,
		})
	}
	return out
}

func (w scheduledWave) due(tick int) bool {
	if tick < w.Start {
		return false
	}
	if w.Every == 0 {
		return tick == w.Start
	}
	if w.Until > 0 && tick > w.Until {
		return false
	}
	return (tick-w.Start)%w.Every == 0
}

// LoadScenario loads a spawn schedule from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(raw)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates a YAML spawn schedule.
func ParseScenario(raw []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	s := &Scenario{
		Name:       f.Name,
		Ticks:      f.Ticks,
		CloakEvery: f.CloakEvery,
		waves:      make([]scheduledWave, 0, len(f.Waves)),
	}
	for i, w := range f.Waves {
		c, err := eventbatch.ParseCategory(w.Category)
		if err != nil {
			return nil, fmt.Errorf("wave %d: %w", i, err)
		}
		if w.Count <= 0 {
			return nil, fmt.Errorf("wave %d: count must be positive", i)
		}
		if w.Start <= 0 {
			w.Start = 1
		}
		if w.Every < 0 || w.TTL < 0 {
			return nil, fmt.Errorf("wave %d: every and ttl must not be negative", i)
		}
		s.waves = append(s.waves, scheduledWave{Wave: w, category: c})
	}
	return s, nil
}
