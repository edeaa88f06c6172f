package catalog

import (
	"errors"
	"fmt"

	"github.com/openground/records/pkg/structure"
)

var (
	ErrUnknownTarget    = errors.New("unknown target")
	ErrUnknownPacket    = errors.New("unknown packet")
	ErrUnknownItem      = structure.ErrUnknownItem
	ErrMissingParameter = errors.New("missing required parameter")
	ErrOutOfRange       = errors.New("parameter out of range")
)

// UnknownTargetError reports a target with no packets of the kind asked for.
type UnknownTargetError struct {
	Kind   string
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("%s target '%s' does not exist", e.Kind, e.Target)
}

func (e *UnknownTargetError) Unwrap() error { return ErrUnknownTarget }

// UnknownPacketError reports a packet missing from a known target.
type UnknownPacketError struct {
	Kind   string
	Target string
	Packet string
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("%s packet '%s %s' does not exist", e.Kind, e.Target, e.Packet)
}

func (e *UnknownPacketError) Unwrap() error { return ErrUnknownPacket }

// UnknownItemError reports an item missing from a known packet.
type UnknownItemError struct {
	Kind   string
	Target string
	Packet string
	Item   string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("%s item '%s %s %s' does not exist", e.Kind, e.Target, e.Packet, e.Item)
}

func (e *UnknownItemError) Unwrap() error { return ErrUnknownItem }

// MissingRequiredParameterError reports a required command parameter that
// was not given.
type MissingRequiredParameterError struct {
	Target string
	Packet string
	Item   string
}

func (e *MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("Required command parameter '%s %s %s' not given", e.Target, e.Packet, e.Item)
}

func (e *MissingRequiredParameterError) Unwrap() error { return ErrMissingParameter }

// RangeError reports a command parameter outside its minimum and maximum.
type RangeError struct {
	Target  string
	Packet  string
	Item    string
	Value   any
	Minimum any
	Maximum any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("Command parameter '%s %s %s' = %v not in valid range of %v to %v",
		e.Target, e.Packet, e.Item, e.Value, e.Minimum, e.Maximum)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }
