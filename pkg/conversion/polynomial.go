package conversion

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/openground/records/pkg/structure"
)

// Polynomial evaluates c0 + c1*x + c2*x^2 + ...
type Polynomial struct {
	Coefficients []float64
}

// NewPolynomial returns a polynomial with coefficients in ascending power.
func NewPolynomial(coefficients ...float64) (*Polynomial, error) {
	if len(coefficients) == 0 {
		return nil, ErrNoCoefficients
	}
	return &Polynomial{Coefficients: slices.Clone(coefficients)}, nil
}

func (p *Polynomial) Call(value any, _ Source, _ []byte) (any, error) {
	return mapNumeric(value, func(x float64) float64 { return evaluate(p.Coefficients, x) })
}

func (p *Polynomial) ConvertedType() structure.DataType { return structure.Float }
func (p *Polynomial) ConvertedBitSize() int             { return 64 }

func (p *Polynomial) String() string {
	return "Polynomial(" + formatCoefficients(p.Coefficients) + ")"
}

// evaluate uses Horner's method.
func evaluate(coefficients []float64, x float64) float64 {
	var y float64
	for i := len(coefficients) - 1; i >= 0; i-- {
		y = y*x + coefficients[i]
	}
	return y
}

func formatCoefficients(coefficients []float64) string {
	parts := make([]string, len(coefficients))
	for i, c := range coefficients {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, ", ")
}

// Segment is one piece of a SegmentedPolynomial. It applies to raw values
// greater than or equal to LowerBound.
type Segment struct {
	LowerBound   float64   `yaml:"lower_bound" cbor:"1,keyasint"`
	Coefficients []float64 `yaml:"coefficients" cbor:"2,keyasint"`
}

// SegmentedPolynomial applies the segment with the greatest lower bound not
// above the raw value. Values below every bound use the lowest segment.
type SegmentedPolynomial struct {
	segments []Segment
}

// NewSegmentedPolynomial returns a piecewise polynomial. Segments may be
// given in any order.
func NewSegmentedPolynomial(segments ...Segment) (*SegmentedPolynomial, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	s := &SegmentedPolynomial{}
	for _, seg := range segments {
		if err := s.Add(seg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts a segment keeping them ordered by descending lower bound.
func (s *SegmentedPolynomial) Add(seg Segment) error {
	if len(seg.Coefficients) == 0 {
		return ErrNoCoefficients
	}
	seg.Coefficients = slices.Clone(seg.Coefficients)
	s.segments = append(s.segments, seg)
	slices.SortStableFunc(s.segments, func(a, b Segment) int { return cmp.Compare(b.LowerBound, a.LowerBound) })
	return nil
}

// Segments returns the segments ordered by descending lower bound.
func (s *SegmentedPolynomial) Segments() []Segment {
	return slices.Clone(s.segments)
}

func (s *SegmentedPolynomial) Call(value any, _ Source, _ []byte) (any, error) {
	if len(s.segments) == 0 {
		return nil, ErrNoSegments
	}
	return mapNumeric(value, func(x float64) float64 {
		for _, seg := range s.segments {
			if x >= seg.LowerBound {
				return evaluate(seg.Coefficients, x)
			}
		}
		return evaluate(s.segments[len(s.segments)-1].Coefficients, x)
	})
}

func (s *SegmentedPolynomial) ConvertedType() structure.DataType { return structure.Float }
func (s *SegmentedPolynomial) ConvertedBitSize() int             { return 64 }

func (s *SegmentedPolynomial) String() string {
	parts := make([]string, len(s.segments))
	for i, seg := range s.segments {
		parts[i] = fmt.Sprintf("%v: [%s]", seg.LowerBound, formatCoefficients(seg.Coefficients))
	}
	return "SegmentedPolynomial(" + strings.Join(parts, "; ") + ")"
}
