package limits

import (
	"context"
	"strings"
	"sync"
)

// Store persists limits changes made at runtime.
type Store interface {
	Get(ctx context.Context, ref ItemRef, set string) (Thresholds, bool, error)
	Set(ctx context.Context, ref ItemRef, set string, t Thresholds) error
}

// ItemRef names an item in a target's packet.
type ItemRef struct {
	Target string `yaml:"target" cbor:"1,keyasint"`
	Packet string `yaml:"packet" cbor:"2,keyasint"`
	Item   string `yaml:"item" cbor:"3,keyasint"`
}

// Normalize upper-cases every part.
func (r ItemRef) Normalize() ItemRef {
	return ItemRef{Target: strings.ToUpper(r.Target), Packet: strings.ToUpper(r.Packet), Item: strings.ToUpper(r.Item)}
}

func (r ItemRef) String() string { return r.Target + " " + r.Packet + " " + r.Item }

type storeKey struct {
	ref ItemRef
	set string
}

// MemoryStore keeps limits in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[storeKey]Thresholds
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[storeKey]Thresholds)}
}

func (m *MemoryStore) Get(_ context.Context, ref ItemRef, set string) (Thresholds, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.values[storeKey{ref.Normalize(), strings.ToUpper(set)}]
	return t, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, ref ItemRef, set string, t Thresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[storeKey{ref.Normalize(), strings.ToUpper(set)}] = t
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

var _ Store = (*MemoryStore)(nil)
