package eventbatch

import (
	"fmt"

	"github.com/l1jgo/eventbatch/internal/core/batch"
)

// Category is a class of simulation object with its own batches and lock.
type Category uint8

const (
	Unit Category = iota
	Feature
	SyncedProjectile
	UnsyncedProjectile
	numCategories
)

var categoryNames = [numCategories]string{
	Unit:               "unit",
	Feature:            "feature",
	SyncedProjectile:   "synced_projectile",
	UnsyncedProjectile: "unsynced_projectile",
}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

func (c Category) Valid() bool { return c < numCategories }

// ParseCategory maps a config or data-file name to a Category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Categories returns every category in dispatch order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// StateKind names a payload-carrying state batch.
type StateKind uint8

const (
	Cloak StateKind = iota
	LOS
	numStateKinds
)

func (k StateKind) String() string {
	switch k {
	case Cloak:
		return "cloak"
	case LOS:
		return "los"
	}
	return fmt.Sprintf("StateKind(%d)", uint8(k))
}

// layout describes which batches a category carries besides its lifecycle
// batch.
type layout struct {
	moved  bool
	states []StateKind
}

var layouts = [numCategories]layout{
	Unit:               {states: []StateKind{Cloak, LOS}},
	Feature:            {moved: true},
	SyncedProjectile:   {},
	UnsyncedProjectile: {},
}

// DefaultPolicy is the built-in policy of a category. Projectiles are owned
// by the batch and freed after notification; unsynced projectiles retire
// old instances before announcing new ones.
func DefaultPolicy(c Category) batch.Policy {
	switch c {
	case SyncedProjectile:
		return batch.Policy{Owning: true}
	case UnsyncedProjectile:
		return batch.Policy{Owning: true, Order: batch.OrderRemoveFirst}
	}
	return batch.Policy{}
}
