package scripting

import (
	"sync"

	"github.com/l1jgo/eventbatch/internal/eventbatch"
)

// Callin indexes a render notification a script may implement.
type Callin int

const (
	CallinUnitCreated Callin = iota
	CallinUnitDestroyed
	CallinUnitCloakChanged
	CallinUnitLOSChanged
	CallinFeatureCreated
	CallinFeatureDestroyed
	CallinFeatureMoved
	CallinProjectileCreated
	CallinProjectileDestroyed
	numCallins
)

// Callin indices never change, so the tables are built once and shared.
var (
	namesOnce   sync.Once
	callinNames [numCallins]string
	callinIndex map[string]Callin
)

func buildNames() {
	callinNames = [numCallins]string{
		CallinUnitCreated:         "RenderUnitCreated",
		CallinUnitDestroyed:       "RenderUnitDestroyed",
		CallinUnitCloakChanged:    "RenderUnitCloakChanged",
		CallinUnitLOSChanged:      "RenderUnitLOSChanged",
		CallinFeatureCreated:      "RenderFeatureCreated",
		CallinFeatureDestroyed:    "RenderFeatureDestroyed",
		CallinFeatureMoved:        "RenderFeatureMoved",
		CallinProjectileCreated:   "RenderProjectileCreated",
		CallinProjectileDestroyed: "RenderProjectileDestroyed",
	}
	callinIndex = make(map[string]Callin, numCallins)
	for i, name := range callinNames {
		callinIndex[name] = Callin(i)
	}
}

// Names returns every callin name indexed by Callin.
func Names() [numCallins]string {
	namesOnce.Do(buildNames)
	return callinNames
}

// Number returns the index of a callin name, or -1 if unknown.
func Number(name string) int {
	namesOnce.Do(buildNames)
	if c, ok := callinIndex[name]; ok {
		return int(c)
	}
	return -1
}

// Name returns the name of callin n, or "" when n is out of range.
func Name(n int) string {
	namesOnce.Do(buildNames)
	if n < 0 || n >= int(numCallins) {
		return ""
	}
	return callinNames[n]
}

func (c Callin) String() string { return Name(int(c)) }

// lifecycleCallin maps a category to its created and destroyed callins.
// Both projectile categories share one pair.
func lifecycleCallin(c eventbatch.Category) (created, destroyed Callin, ok bool) {
	switch c {
	case eventbatch.Unit:
		return CallinUnitCreated, CallinUnitDestroyed, true
	case eventbatch.Feature:
		return CallinFeatureCreated, CallinFeatureDestroyed, true
	case eventbatch.SyncedProjectile, eventbatch.UnsyncedProjectile:
		return CallinProjectileCreated, CallinProjectileDestroyed, true
	}
	return 0, 0, false
}
