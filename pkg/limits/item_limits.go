package limits

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultSet is the limits set every item with limits defines.
const DefaultSet = "DEFAULT"

// ItemLimits holds the limits sets and the monitoring state of one item.
type ItemLimits struct {
	sets map[string]Thresholds

	// Enabled turns monitoring on. Checks of a disabled item do nothing.
	Enabled bool

	// PersistenceSetting is how many consecutive checks a new state must
	// be seen before it is reported.
	PersistenceSetting int
	PersistenceCount   int

	State State
}

// NewItemLimits returns enabled limits with a persistence of one and no sets.
func NewItemLimits() *ItemLimits {
	return &ItemLimits{
		Enabled:            true,
		PersistenceSetting: 1,
		State:              Stale,
	}
}

// Set stores thresholds for a set. Sets other than DEFAULT can only be
// added once DEFAULT exists.
func (l *ItemLimits) Set(set string, t Thresholds) error {
	set = strings.ToUpper(set)
	if err := t.Validate(); err != nil {
		return err
	}
	if _, ok := l.sets[DefaultSet]; !ok && set != DefaultSet {
		return fmt.Errorf("%w: cannot add limits set %s", ErrMissingDefaultLimits, set)
	}
	if l.sets == nil {
		l.sets = make(map[string]Thresholds)
	}
	l.sets[set] = t
	return nil
}

// Get returns the thresholds of a set, falling back to DEFAULT when the set
// is not defined for this item.
func (l *ItemLimits) Get(set string) (Thresholds, bool) {
	if t, ok := l.sets[strings.ToUpper(set)]; ok {
		return t, true
	}
	t, ok := l.sets[DefaultSet]
	return t, ok
}

// Defined reports whether any thresholds are set.
func (l *ItemLimits) Defined() bool { return len(l.sets) > 0 }

// Sets returns the names of the defined sets, sorted.
func (l *ItemLimits) Sets() []string {
	names := make([]string, 0, len(l.sets))
	for n := range l.sets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Clone returns an independent copy.
func (l *ItemLimits) Clone() *ItemLimits {
	c := *l
	if l.sets != nil {
		c.sets = make(map[string]Thresholds, len(l.sets))
		for k, v := range l.sets {
			c.sets[k] = v
		}
	}
	return &c
}

// Check classifies value against the named set and updates State once the
// new state has persisted. It returns the previous state and whether State
// changed.
func (l *ItemLimits) Check(value float64, set string, ignorePersistence bool) (State, bool) {
	t, ok := l.Get(set)
	if !l.Enabled || !ok {
		return l.State, false
	}
	return l.transition(Classify(value, t), ignorePersistence)
}

// CheckColor applies a state-colour result directly, without persistence.
func (l *ItemLimits) CheckColor(state State) (State, bool) {
	if !l.Enabled || l.State == state {
		return l.State, false
	}
	old := l.State
	l.State = state
	return old, true
}

func (l *ItemLimits) transition(state State, ignorePersistence bool) (State, bool) {
	if l.State == state {
		l.PersistenceCount = 0
		return l.State, false
	}
	l.PersistenceCount++
	if l.PersistenceCount < l.PersistenceSetting && !ignorePersistence {
		return l.State, false
	}
	old := l.State
	l.State = state
	l.PersistenceCount = 0
	return old, true
}

// Enable turns monitoring on. The state restarts as STALE.
func (l *ItemLimits) Enable() {
	if !l.Enabled {
		l.Enabled = true
		l.State = Stale
		l.PersistenceCount = 0
	}
}

// Disable turns monitoring off and clears the state. It returns the
// previous state and whether that is a reportable change.
func (l *ItemLimits) Disable() (State, bool) {
	l.Enabled = false
	old := l.State
	if old == Stale {
		return old, false
	}
	l.State = None
	return old, old != None
}
