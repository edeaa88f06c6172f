package packet

import (
	"errors"
	"fmt"

	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/log"
	"github.com/openground/records/pkg/structure"
)

// SetLimits sets thresholds for one limits set of the named item.
func (p *Packet) SetLimits(name, set string, t limits.Thresholds) error {
	it, err := p.Item(name)
	if err != nil {
		return err
	}
	if err := it.EnsureLimits().Set(set, t); err != nil {
		return fmt.Errorf("%s: %w", p.ItemRef(it), err)
	}
	return nil
}

// LimitsItems returns the items checked by CheckLimits, in buffer order.
func (p *Packet) LimitsItems() []*Item {
	var out []*Item
	for _, it := range p.SortedItems() {
		if it.monitored() {
			out = append(out, it)
		}
	}
	return out
}

// CheckLimits checks every enabled limits item against the named set and
// reports transitions to the limits change callback. Items whose value
// cannot be read are skipped and their errors returned together.
func (p *Packet) CheckLimits(set string, ignorePersistence bool) error {
	if set == "" {
		set = limits.DefaultSet
	}
	var errs []error
	for _, it := range p.LimitsItems() {
		if !it.Limits.Enabled {
			continue
		}
		value, err := p.ReadItemValue(it, Converted)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(it.States) > 0 && len(it.StateColors) > 0 {
			p.checkStates(it, value)
			continue
		}
		f, err := structure.ToFloat64(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ItemRef(it), err))
			continue
		}
		if old, changed := it.Limits.Check(f, set, ignorePersistence); changed {
			p.limitsChanged(it, old, value, true)
		}
	}
	return errors.Join(errs...)
}

func (p *Packet) checkStates(it *Item, value any) {
	state := limits.None
	if name, ok := value.(string); ok {
		if color, ok := it.StateColors[name]; ok {
			if s, err := limits.ColorState(color); err == nil {
				state = s
			}
		}
	}
	if old, changed := it.Limits.CheckColor(state); changed {
		p.limitsChanged(it, old, value, state != limits.None)
	}
}

func (p *Packet) limitsChanged(it *Item, old limits.State, value any, logChange bool) {
	if logChange && !it.MessagesDisabled && !p.MessagesDisabled {
		ref := p.ItemRef(it)
		level := log.LevelInfo
		switch it.Limits.State.Severity() {
		case limits.SeverityRed:
			level = log.LevelError
		case limits.SeverityYellow:
			level = log.LevelWarn
		}
		ev := log.NewEvent(level, log.CategoryLimits, ref.Target, ref.Packet,
			fmt.Sprintf("%s = %v is %s", ref, value, it.Limits.State))
		ev.Limits = &log.LimitsEvent{Item: ref.Item, OldState: old.String(), NewState: it.Limits.State.String(), Value: fmt.Sprint(value)}
		p.Logger().Log(ev)
	}
	if p.onLimitsChange != nil {
		p.onLimitsChange(p, it, old, value, logChange)
	}
}

// OutOfLimitsItem is one entry of OutOfLimits.
type OutOfLimitsItem struct {
	Ref   limits.ItemRef
	State limits.State
}

// OutOfLimits lists the enabled limits items currently in a red or yellow
// state.
func (p *Packet) OutOfLimits() []OutOfLimitsItem {
	var out []OutOfLimitsItem
	for _, it := range p.LimitsItems() {
		if it.Limits.Enabled && it.Limits.State.OutOfLimits() {
			out = append(out, OutOfLimitsItem{Ref: p.ItemRef(it), State: it.Limits.State})
		}
	}
	return out
}

// EnableLimits turns limits monitoring on for the named item.
func (p *Packet) EnableLimits(name string) error {
	it, err := p.Item(name)
	if err != nil {
		return err
	}
	it.EnsureLimits().Enable()
	return nil
}

// DisableLimits turns limits monitoring off for the named item. A cleared
// state is reported to the limits change callback.
func (p *Packet) DisableLimits(name string) error {
	it, err := p.Item(name)
	if err != nil {
		return err
	}
	if old, changed := it.EnsureLimits().Disable(); changed && p.onLimitsChange != nil {
		p.onLimitsChange(p, it, old, nil, false)
	}
	return nil
}
