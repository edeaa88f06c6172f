package limits

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/openground/records/pkg/log"
)

// ChangeFunc is called when a manager operation changes an item's state.
type ChangeFunc func(ref ItemRef, old, new State)

// Config configures a Manager.
type Config struct {
	// Store receives limits set at runtime and supplies them to Restore.
	// Nil means changes are kept in memory only.
	Store Store

	// Logger receives limits events. Nil means no logging.
	Logger log.Logger
}

// Manager tracks the limits of every registered item: the known sets, the
// active set, and named groups of items that are enabled together.
type Manager struct {
	mu sync.RWMutex

	items  map[ItemRef]*ItemLimits
	sets   map[string]struct{}
	groups map[string][]ItemRef
	active string

	store    Store
	logger   log.Logger
	onChange ChangeFunc
}

// NewManager creates a manager with DEFAULT as the active set.
func NewManager() *Manager {
	return NewManagerWithConfig(Config{})
}

// NewManagerWithConfig creates a manager with DEFAULT as the active set.
func NewManagerWithConfig(cfg Config) *Manager {
	return &Manager{
		items:  make(map[ItemRef]*ItemLimits),
		sets:   map[string]struct{}{DefaultSet: {}},
		groups: make(map[string][]ItemRef),
		active: DefaultSet,
		store:  cfg.Store,
		logger: log.OrNoop(cfg.Logger),
	}
}

// SetChangeCallback sets the function called when Disable clears a state.
func (m *Manager) SetChangeCallback(fn ChangeFunc) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Register makes an item's limits known to the manager.
func (m *Manager) Register(ref ItemRef, l *ItemLimits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[ref.Normalize()] = l
	for _, s := range l.Sets() {
		m.sets[s] = struct{}{}
	}
}

// Unregister forgets an item. Group membership is kept.
func (m *Manager) Unregister(ref ItemRef) {
	m.mu.Lock()
	delete(m.items, ref.Normalize())
	m.mu.Unlock()
}

// Items returns the registered item references, sorted.
func (m *Manager) Items() []ItemRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := slices.Collect(maps.Keys(m.items))
	slices.SortFunc(refs, func(a, b ItemRef) int { return strings.Compare(a.String(), b.String()) })
	return refs
}

// Sets returns every limits set name seen, sorted.
func (m *Manager) Sets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.sets))
}

// AddGroup appends items to a named group, creating it if needed.
func (m *Manager) AddGroup(name string, refs ...ItemRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = strings.ToUpper(name)
	for _, r := range refs {
		m.groups[name] = append(m.groups[name], r.Normalize())
	}
	if _, ok := m.groups[name]; !ok {
		m.groups[name] = nil
	}
}

// Groups returns a copy of the groups.
func (m *Manager) Groups() map[string][]ItemRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]ItemRef, len(m.groups))
	for k, v := range m.groups {
		out[k] = slices.Clone(v)
	}
	return out
}

// Active returns the active limits set.
func (m *Manager) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// SetActive selects the limits set used by checks. The set must be known.
func (m *Manager) SetActive(set string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set = strings.ToUpper(set)
	if _, ok := m.sets[set]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSet, set)
	}
	m.active = set
	return nil
}

func (m *Manager) lookup(ref ItemRef) (ItemRef, *ItemLimits, error) {
	ref = ref.Normalize()
	l, ok := m.items[ref]
	if !ok {
		return ref, nil, fmt.Errorf("%w: %s", ErrUnknownItem, ref)
	}
	return ref, l, nil
}

// Enabled reports whether monitoring is on for the item.
func (m *Manager) Enabled(ref ItemRef) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, l, err := m.lookup(ref)
	if err != nil {
		return false, err
	}
	return l.Enabled, nil
}

// Enable turns monitoring on for the item.
func (m *Manager) Enable(ref ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, l, err := m.lookup(ref)
	if err != nil {
		return err
	}
	l.Enable()
	return nil
}

// Disable turns monitoring off for the item and reports the cleared state.
func (m *Manager) Disable(ref ItemRef) error {
	m.mu.Lock()
	ref, l, err := m.lookup(ref)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	old, changed := l.Disable()
	fn := m.onChange
	m.mu.Unlock()

	if changed {
		m.report(ref, old, None, fn)
	}
	return nil
}

func (m *Manager) report(ref ItemRef, old, new State, fn ChangeFunc) {
	ev := log.NewEvent(log.LevelInfo, log.CategoryLimits, ref.Target, ref.Packet,
		fmt.Sprintf("%s limits state %s -> %s", ref, old, new))
	ev.Limits = &log.LimitsEvent{Item: ref.Item, OldState: old.String(), NewState: new.String()}
	m.logger.Log(ev)
	if fn != nil {
		fn(ref, old, new)
	}
}

// EnableGroup enables every item of the group.
func (m *Manager) EnableGroup(name string) error {
	return m.eachInGroup(name, m.Enable)
}

// DisableGroup disables every item of the group.
func (m *Manager) DisableGroup(name string) error {
	return m.eachInGroup(name, m.Disable)
}

func (m *Manager) eachInGroup(name string, fn func(ItemRef) error) error {
	m.mu.RLock()
	refs, ok := m.groups[strings.ToUpper(name)]
	refs = slices.Clone(refs)
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, strings.ToUpper(name))
	}
	for _, r := range refs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the thresholds of a set for the item. An empty set means the
// active set; a set the item lacks falls back to DEFAULT.
func (m *Manager) Get(ref ItemRef, set string) (Thresholds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, l, err := m.lookup(ref)
	if err != nil {
		return Thresholds{}, err
	}
	if set == "" {
		set = m.active
	}
	t, ok := l.Get(set)
	if !ok {
		return Thresholds{}, fmt.Errorf("%w: %s has no limits", ErrUnknownSet, ref)
	}
	return t, nil
}

// Set stores thresholds for the item and records them in the Store.
func (m *Manager) Set(ctx context.Context, ref ItemRef, set string, t Thresholds) error {
	m.mu.Lock()
	ref, l, err := m.lookup(ref)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	set = strings.ToUpper(set)
	if set == "" {
		set = m.active
	}
	if err := l.Set(set, t); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", ref, err)
	}
	m.sets[set] = struct{}{}
	store := m.store
	m.mu.Unlock()

	if store != nil {
		return store.Set(ctx, ref, set, t)
	}
	return nil
}

// Restore loads every known set of every registered item from the Store.
// Items without DEFAULT limits in the store keep their current thresholds.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sets := slices.Sorted(maps.Keys(m.sets))
	for ref, l := range m.items {
		for _, set := range sets {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, ok, err := m.store.Get(ctx, ref, set)
			if err != nil {
				return fmt.Errorf("%s %s: %w", ref, set, err)
			}
			if !ok {
				continue
			}
			if err := l.Set(set, t); err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
		}
	}
	return nil
}
