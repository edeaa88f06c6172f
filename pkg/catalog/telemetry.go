package catalog

import (
	"time"

	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/packet"
)

// Telemetry is the registry of telemetry packets. Each registered packet
// doubles as the current value of that packet.
type Telemetry struct {
	registry

	onLimitsChange packet.LimitsChangeFunc
	now            func() time.Time
}

// NewTelemetry creates an empty telemetry registry.
func NewTelemetry() *Telemetry {
	return NewTelemetryWithConfig(Config{})
}

// NewTelemetryWithConfig creates an empty telemetry registry.
func NewTelemetryWithConfig(cfg Config) *Telemetry {
	return &Telemetry{registry: newRegistry("Telemetry", cfg), now: time.Now}
}

// Add registers a packet. The registry's limits change callback, if any,
// is installed on it.
func (t *Telemetry) Add(p *packet.Packet) {
	t.mu.RLock()
	fn := t.onLimitsChange
	t.mu.RUnlock()
	if fn != nil {
		p.SetLimitsChangeCallback(fn)
	}
	t.registry.Add(p)
}

// IdentifyAndUpdate identifies buf and stores it in the registered packet,
// which is returned.
func (t *Telemetry) IdentifyAndUpdate(buf []byte, targets ...string) (*packet.Packet, bool) {
	p, ok := t.identify(buf, targets)
	if !ok {
		return nil, false
	}
	t.store(p, buf)
	return p, true
}

// Update stores buf in the named packet.
func (t *Telemetry) Update(target, name string, buf []byte) (*packet.Packet, error) {
	p, err := t.Packet(target, name)
	if err != nil {
		return nil, err
	}
	t.store(p, buf)
	return p, nil
}

func (t *Telemetry) store(p *packet.Packet, buf []byte) {
	t.applyBuffer(p, buf)
	p.ReceivedTime = t.now()
	p.ReceivedCount++
}

// Value reads an item of a registered packet.
func (t *Telemetry) Value(target, name, item string, vt packet.ValueType) (any, error) {
	p, it, err := t.PacketAndItem(target, name, item)
	if err != nil {
		return nil, err
	}
	return p.ReadItemValue(it, vt)
}

// SetValue writes an item of a registered packet.
func (t *Telemetry) SetValue(target, name, item string, v any, vt packet.ValueType) error {
	p, it, err := t.PacketAndItem(target, name, item)
	if err != nil {
		return err
	}
	return p.WriteItemValue(it, v, vt)
}

// CheckLimits checks a registered packet against the active limits set of
// the configured manager, or DEFAULT without one.
func (t *Telemetry) CheckLimits(target, name string) error {
	p, err := t.Packet(target, name)
	if err != nil {
		return err
	}
	set := limits.DefaultSet
	if t.limits != nil {
		set = t.limits.Active()
	}
	return p.CheckLimits(set, false)
}

// SetLimitsChangeCallback installs fn on every registered packet and on
// packets added later.
func (t *Telemetry) SetLimitsChangeCallback(fn packet.LimitsChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLimitsChange = fn
	for _, tp := range t.targets {
		for _, p := range tp.byName {
			p.SetLimitsChangeCallback(fn)
		}
	}
}

// Reset clears the reception bookkeeping of every packet.
func (t *Telemetry) Reset() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tp := range t.targets {
		for _, p := range tp.byName {
			p.Reset()
		}
	}
}
