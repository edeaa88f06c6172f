package packet

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	snapshotEncMode cbor.EncMode
	snapshotDecMode cbor.DecMode
)

func init() {
	var err error
	snapshotEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR encoder mode: %v", err))
	}
	snapshotDecMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
		IntDec:      cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR decoder mode: %v", err))
	}
}

// Snapshot is a decoded packet: every item's value and limits state at one
// moment, tagged with the packet's instance ID.
type Snapshot struct {
	InstanceID    string     `cbor:"1,keyasint"`
	Target        string     `cbor:"2,keyasint"`
	Packet        string     `cbor:"3,keyasint"`
	ValueType     ValueType  `cbor:"4,keyasint"`
	ReceivedTime  time.Time  `cbor:"5,keyasint"`
	ReceivedCount uint64     `cbor:"6,keyasint,omitempty"`
	Items         []ItemSnap `cbor:"7,keyasint"`
}

// ItemSnap is one item of a Snapshot.
type ItemSnap struct {
	Name  string `cbor:"1,keyasint"`
	Value any    `cbor:"2,keyasint"`
	State string `cbor:"3,keyasint,omitempty"`
}

// Snapshot reads every item as vt along with its limits state.
func (p *Packet) Snapshot(vt ValueType) (*Snapshot, error) {
	values, err := p.ReadAllWithLimitsStates(vt)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		InstanceID:    p.instanceID.String(),
		Target:        p.TargetName(),
		Packet:        p.PacketName(),
		ValueType:     vt,
		ReceivedTime:  p.ReceivedTime,
		ReceivedCount: p.ReceivedCount,
		Items:         make([]ItemSnap, len(values)),
	}
	for i, v := range values {
		s.Items[i] = ItemSnap{Name: v.Name, Value: v.Value, State: v.State}
	}
	return s, nil
}

// Value returns the value of the named item, or nil.
func (s *Snapshot) Value(name string) any {
	for _, it := range s.Items {
		if it.Name == name {
			return it.Value
		}
	}
	return nil
}

// EncodeSnapshot encodes a snapshot to CBOR.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// DecodeSnapshot decodes a snapshot from CBOR. Integers decode as int64
// when they fit and as uint64 otherwise; arrays decode as []any.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := snapshotDecMode.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
