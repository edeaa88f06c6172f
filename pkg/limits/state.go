package limits

import "fmt"

// State is the limits state of an item.
type State uint8

const (
	// None means limits are disabled or the value matched no state colour.
	None State = iota
	// Stale means the item has not been checked since it was enabled.
	Stale
	RedLow
	YellowLow
	GreenLow
	Green
	Blue
	GreenHigh
	YellowHigh
	RedHigh
	// Red and Yellow are set by state-colour monitoring.
	Red
	Yellow
)

var stateNames = [...]string{"NONE", "STALE", "RED_LOW", "YELLOW_LOW", "GREEN_LOW", "GREEN", "BLUE", "GREEN_HIGH", "YELLOW_HIGH", "RED_HIGH", "RED", "YELLOW"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// ParseState parses a state name such as "YELLOW_HIGH".
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return None, fmt.Errorf("unknown limits state %q", name)
}

// OutOfLimits reports whether the state is one of the red or yellow states.
// GREEN_LOW and GREEN_HIGH are within limits.
func (s State) OutOfLimits() bool {
	switch s {
	case RedLow, YellowLow, YellowHigh, RedHigh, Red, Yellow:
		return true
	}
	return false
}

// Severity reduces a state to a colour.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityGreen
	SeverityYellow
	SeverityRed
)

func (s Severity) String() string {
	switch s {
	case SeverityGreen:
		return "GREEN"
	case SeverityYellow:
		return "YELLOW"
	case SeverityRed:
		return "RED"
	}
	return "NONE"
}

// Severity maps the state to a colour. GREEN_LOW and GREEN_HIGH lie
// outside the green operational band and count as YELLOW; BLUE lies inside
// it and counts as GREEN.
func (s State) Severity() Severity {
	switch s {
	case RedLow, RedHigh, Red:
		return SeverityRed
	case YellowLow, YellowHigh, Yellow, GreenLow, GreenHigh:
		return SeverityYellow
	case Green, Blue:
		return SeverityGreen
	}
	return SeverityNone
}

// ColorState converts a state colour name (RED, YELLOW or GREEN) into the
// state used by state-colour monitoring.
func ColorState(color string) (State, error) {
	switch color {
	case "RED":
		return Red, nil
	case "YELLOW":
		return Yellow, nil
	case "GREEN":
		return Green, nil
	}
	return None, fmt.Errorf("unknown state colour %q, must be RED, YELLOW or GREEN", color)
}
