package limits

import "fmt"

// Thresholds is one limits set of an item. GreenLow and GreenHigh are
// optional and define an operational band inside the yellow limits.
type Thresholds struct {
	RedLow     float64  `yaml:"red_low" cbor:"1,keyasint"`
	YellowLow  float64  `yaml:"yellow_low" cbor:"2,keyasint"`
	YellowHigh float64  `yaml:"yellow_high" cbor:"3,keyasint"`
	RedHigh    float64  `yaml:"red_high" cbor:"4,keyasint"`
	GreenLow   *float64 `yaml:"green_low,omitempty" cbor:"5,keyasint,omitempty"`
	GreenHigh  *float64 `yaml:"green_high,omitempty" cbor:"6,keyasint,omitempty"`
}

// NewThresholds returns validated thresholds without a green band.
func NewThresholds(redLow, yellowLow, yellowHigh, redHigh float64) (Thresholds, error) {
	t := Thresholds{RedLow: redLow, YellowLow: yellowLow, YellowHigh: yellowHigh, RedHigh: redHigh}
	return t, t.Validate()
}

// WithGreen returns a copy with a green operational band.
func (t Thresholds) WithGreen(greenLow, greenHigh float64) (Thresholds, error) {
	t.GreenLow = &greenLow
	t.GreenHigh = &greenHigh
	return t, t.Validate()
}

// HasGreen reports whether both green thresholds are set.
func (t Thresholds) HasGreen() bool { return t.GreenLow != nil && t.GreenHigh != nil }

// Validate checks that the thresholds are ordered.
func (t Thresholds) Validate() error {
	if t.RedLow > t.YellowLow || t.YellowLow >= t.YellowHigh || t.YellowHigh > t.RedHigh {
		return fmt.Errorf("%w: must satisfy red_low <= yellow_low < yellow_high <= red_high, got %v %v %v %v",
			ErrInvalidThresholds, t.RedLow, t.YellowLow, t.YellowHigh, t.RedHigh)
	}
	if (t.GreenLow == nil) != (t.GreenHigh == nil) {
		return fmt.Errorf("%w: green_low and green_high must be given together", ErrInvalidThresholds)
	}
	if t.HasGreen() {
		gl, gh := *t.GreenLow, *t.GreenHigh
		if t.YellowLow > gl || gl >= gh || gh > t.YellowHigh {
			return fmt.Errorf("%w: must satisfy yellow_low <= green_low < green_high <= yellow_high, got %v %v",
				ErrInvalidThresholds, gl, gh)
		}
	}
	return nil
}

// Equal compares thresholds by value.
func (t Thresholds) Equal(o Thresholds) bool {
	eq := func(a, b *float64) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	return t.RedLow == o.RedLow && t.YellowLow == o.YellowLow && t.YellowHigh == o.YellowHigh &&
		t.RedHigh == o.RedHigh && eq(t.GreenLow, o.GreenLow) && eq(t.GreenHigh, o.GreenHigh)
}

// Classify returns the state of value against t.
//
//	value <= RedLow                RED_LOW
//	value <= YellowLow             YELLOW_LOW
//	value >= RedHigh               RED_HIGH
//	value >= YellowHigh            YELLOW_HIGH
//	otherwise, with a green band:
//	  GreenLow < value < GreenHigh BLUE
//	  value <= GreenLow            GREEN_LOW
//	  value >= GreenHigh           GREEN_HIGH
//	otherwise                      GREEN
func Classify(value float64, t Thresholds) State {
	switch {
	case value > t.YellowLow:
		switch {
		case value < t.YellowHigh:
			if !t.HasGreen() {
				return Green
			}
			switch {
			case value >= *t.GreenHigh:
				return GreenHigh
			case value > *t.GreenLow:
				return Blue
			default:
				return GreenLow
			}
		case value < t.RedHigh:
			return YellowHigh
		default:
			return RedHigh
		}
	case value > t.RedLow:
		return YellowLow
	default:
		return RedLow
	}
}
