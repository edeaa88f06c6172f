package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/log"
	"github.com/openground/records/pkg/packet"
	"github.com/openground/records/pkg/structure"
)

// Config configures a Commands or Telemetry registry.
type Config struct {
	// Logger receives length mismatch events from Identify. Nil means no
	// logging.
	Logger log.Logger

	// Limits, when set, has the limits of every added item registered.
	Limits *limits.Manager
}

// targetPackets keeps a target's packets with their insertion order.
type targetPackets struct {
	byName map[string]*packet.Packet
	order  []string
}

type registry struct {
	mu sync.RWMutex

	kind    string
	targets map[string]*targetPackets
	index   map[string]*idIndex

	logger log.Logger
	limits *limits.Manager
}

func newRegistry(kind string, cfg Config) registry {
	return registry{
		kind:    kind,
		targets: make(map[string]*targetPackets),
		index:   make(map[string]*idIndex),
		logger:  log.OrNoop(cfg.Logger),
		limits:  cfg.Limits,
	}
}

// Add registers a packet under its target, replacing one of the same name.
func (r *registry) Add(p *packet.Packet) {
	// Materialize item metadata so lookups never write to the packet.
	items := p.SortedItems()

	r.mu.Lock()
	defer r.mu.Unlock()
	target, name := p.TargetName(), p.PacketName()
	tp, ok := r.targets[target]
	if !ok {
		tp = &targetPackets{byName: make(map[string]*packet.Packet)}
		r.targets[target] = tp
	}
	if old, ok := tp.byName[name]; ok {
		r.unregisterLimits(old)
	} else {
		tp.order = append(tp.order, name)
	}
	tp.byName[name] = p
	delete(r.index, target)

	if r.limits != nil {
		for _, it := range items {
			if it.Limits != nil {
				r.limits.Register(p.ItemRef(it), it.Limits)
			}
		}
	}
}

// Remove drops a packet.
func (r *registry) Remove(target, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(target, name)
	if err != nil {
		return err
	}
	tp := r.targets[p.TargetName()]
	delete(tp.byName, p.PacketName())
	tp.order = slices.DeleteFunc(tp.order, func(n string) bool { return n == p.PacketName() })
	if len(tp.byName) == 0 {
		delete(r.targets, p.TargetName())
	}
	delete(r.index, p.TargetName())
	r.unregisterLimits(p)
	return nil
}

func (r *registry) unregisterLimits(p *packet.Packet) {
	if r.limits == nil {
		return
	}
	for _, it := range p.SortedItems() {
		if it.Limits != nil {
			r.limits.Unregister(p.ItemRef(it))
		}
	}
}

// Invalidate drops the memoized ID index of a target. Call it after
// changing ID items of registered packets.
func (r *registry) Invalidate(target string) {
	r.mu.Lock()
	delete(r.index, strings.ToUpper(target))
	r.mu.Unlock()
}

// TargetNames returns the targets with packets, sorted.
func (r *registry) TargetNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.targets))
	for n := range r.targets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Packets returns the packets of a target keyed by name.
func (r *registry) Packets(target string) (map[string]*packet.Packet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tp, ok := r.targets[strings.ToUpper(target)]
	if !ok {
		return nil, &UnknownTargetError{Kind: r.kind, Target: strings.ToUpper(target)}
	}
	out := make(map[string]*packet.Packet, len(tp.byName))
	for k, v := range tp.byName {
		out[k] = v
	}
	return out, nil
}

// Packet returns the registered packet.
func (r *registry) Packet(target, name string) (*packet.Packet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(target, name)
}

func (r *registry) lookup(target, name string) (*packet.Packet, error) {
	target, name = strings.ToUpper(target), strings.ToUpper(name)
	tp, ok := r.targets[target]
	if !ok {
		return nil, &UnknownTargetError{Kind: r.kind, Target: target}
	}
	p, ok := tp.byName[name]
	if !ok {
		return nil, &UnknownPacketError{Kind: r.kind, Target: target, Packet: name}
	}
	return p, nil
}

// PacketAndItem returns a registered packet and one of its items.
func (r *registry) PacketAndItem(target, name, item string) (*packet.Packet, *packet.Item, error) {
	p, err := r.Packet(target, name)
	if err != nil {
		return nil, nil, err
	}
	it, err := r.item(p, item)
	if err != nil {
		return nil, nil, err
	}
	return p, it, nil
}

func (r *registry) item(p *packet.Packet, name string) (*packet.Item, error) {
	it, err := p.Item(name)
	if err != nil {
		if errors.Is(err, structure.ErrUnknownItem) {
			return nil, &UnknownItemError{Kind: r.kind, Target: p.TargetName(), Packet: p.PacketName(), Item: strings.ToUpper(name)}
		}
		return nil, err
	}
	return it, nil
}

// ItemNames returns a packet's item names in buffer order.
func (r *registry) ItemNames(target, name string) ([]string, error) {
	p, err := r.Packet(target, name)
	if err != nil {
		return nil, err
	}
	return p.ItemNames(), nil
}

// UniqueIDMode reports whether the target's packets are identified by a
// single ID value lookup.
func (r *registry) UniqueIDMode(target string) bool {
	idx := r.indexFor(strings.ToUpper(target))
	return idx != nil && idx.unique
}

// Identify finds the packet a buffer holds, searching the given targets
// (all targets when none are given) in order. The result is a clone bound
// to a copy of buf.
func (r *registry) Identify(buf []byte, targets ...string) (*packet.Packet, bool) {
	p, ok := r.identify(buf, targets)
	if !ok {
		return nil, false
	}
	c := p.Clone()
	r.applyBuffer(c, buf)
	return c, true
}

func (r *registry) identify(buf []byte, targets []string) (*packet.Packet, bool) {
	if buf == nil {
		return nil, false
	}
	if len(targets) == 0 {
		targets = r.TargetNames()
	}
	for _, target := range targets {
		idx := r.indexFor(strings.ToUpper(target))
		if idx == nil {
			continue
		}
		if p := idx.match(buf); p != nil {
			return p, true
		}
	}
	return nil, false
}

// applyBuffer sets buf leniently, logging a length mismatch.
func (r *registry) applyBuffer(p *packet.Packet, buf []byte) {
	if err := p.SetBuffer(buf); err != nil {
		var le *structure.BufferLengthError
		if !errors.As(err, &le) {
			return
		}
		ev := log.NewEvent(log.LevelWarn, log.CategoryLength, p.TargetName(), p.PacketName(),
			fmt.Sprintf("%s %s received with actual packet length of %d but defined length of %d",
				p.TargetName(), p.PacketName(), le.Actual, le.Expected))
		ev.Length = &log.LengthEvent{Expected: le.Expected, Actual: le.Actual}
		r.logger.Log(ev)
	}
}

// indexFor returns the memoized ID index of a target, building it if
// needed. It returns nil for an unknown target.
func (r *registry) indexFor(target string) *idIndex {
	r.mu.RLock()
	idx, ok := r.index[target]
	r.mu.RUnlock()
	if ok {
		return idx
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[target]; ok {
		return idx
	}
	tp, ok := r.targets[target]
	if !ok {
		return nil
	}
	packets := make([]*packet.Packet, len(tp.order))
	for i, n := range tp.order {
		packets[i] = tp.byName[n]
	}
	idx = buildIndex(packets)
	r.index[target] = idx
	return idx
}
