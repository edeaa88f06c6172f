package packet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownValueType = errors.New("unknown value type")
	ErrInvalidValueType = errors.New("invalid value type on write")
	ErrUnknownState     = errors.New("unknown state")
)

// StateError reports a state name that is not defined for an item.
type StateError struct {
	Item   string
	State  string
	States []string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("Unknown state '%s' for %s, must be one of %s", e.State, e.Item, strings.Join(e.States, ", "))
}

func (e *StateError) Unwrap() error { return ErrUnknownState }
