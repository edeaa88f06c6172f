package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustThresholds(t *testing.T, rl, yl, yh, rh float64) Thresholds {
	t.Helper()
	th, err := NewThresholds(rl, yl, yh, rh)
	require.NoError(t, err)
	return th
}

func TestClassify(t *testing.T) {
	th := Thresholds{RedLow: 1, YellowLow: 2, YellowHigh: 4, RedHigh: 5}

	tests := []struct {
		value    float64
		state    State
		severity Severity
	}{
		{0, RedLow, SeverityRed},
		{1, RedLow, SeverityRed},
		{1.5, YellowLow, SeverityYellow},
		{2, YellowLow, SeverityYellow},
		{3, Green, SeverityGreen},
		{4, YellowHigh, SeverityYellow},
		{4.5, YellowHigh, SeverityYellow},
		{5, RedHigh, SeverityRed},
		{6, RedHigh, SeverityRed},
	}
	for _, tt := range tests {
		got := Classify(tt.value, th)
		assert.Equal(t, tt.state, got, "value %v", tt.value)
		assert.Equal(t, tt.severity, got.Severity(), "value %v", tt.value)
	}
}

func TestClassifyGreenBand(t *testing.T) {
	th, err := Thresholds{RedLow: 0, YellowLow: 10, YellowHigh: 90, RedHigh: 100}.WithGreen(40, 60)
	require.NoError(t, err)

	assert.Equal(t, GreenLow, Classify(20, th))
	assert.Equal(t, GreenLow, Classify(40, th))
	assert.Equal(t, Blue, Classify(50, th))
	assert.Equal(t, GreenHigh, Classify(60, th))
	assert.Equal(t, GreenHigh, Classify(80, th))
	assert.Equal(t, YellowHigh, Classify(95, th))

	assert.True(t, YellowHigh.OutOfLimits())
	assert.False(t, GreenHigh.OutOfLimits())
	assert.False(t, Blue.OutOfLimits())
}

func TestThresholdsValidate(t *testing.T) {
	_, err := NewThresholds(1, 2, 4, 5)
	assert.NoError(t, err)

	_, err = NewThresholds(3, 2, 4, 5)
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	_, err = NewThresholds(1, 4, 4, 5)
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	_, err = Thresholds{RedLow: 1, YellowLow: 2, YellowHigh: 4, RedHigh: 5}.WithGreen(1, 3)
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	g := 3.0
	err = Thresholds{RedLow: 1, YellowLow: 2, YellowHigh: 4, RedHigh: 5, GreenLow: &g}.Validate()
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestThresholdsEqual(t *testing.T) {
	a := mustThresholds(t, 1, 2, 4, 5)
	b := mustThresholds(t, 1, 2, 4, 5)
	assert.True(t, a.Equal(b))

	ga, _ := a.WithGreen(2.5, 3.5)
	gb, _ := b.WithGreen(2.5, 3.5)
	assert.True(t, ga.Equal(gb))
	assert.False(t, ga.Equal(a))
}

func TestParseState(t *testing.T) {
	for s := None; s <= Yellow; s++ {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("PURPLE")
	assert.Error(t, err)

	st, err := ColorState("RED")
	require.NoError(t, err)
	assert.Equal(t, Red, st)
	_, err = ColorState("BLUE")
	assert.Error(t, err)
}

func TestItemLimitsRequiresDefault(t *testing.T) {
	l := NewItemLimits()
	assert.False(t, l.Defined())

	err := l.Set("TVAC", mustThresholds(t, 1, 2, 4, 5))
	assert.ErrorIs(t, err, ErrMissingDefaultLimits)

	require.NoError(t, l.Set("default", mustThresholds(t, 1, 2, 4, 5)))
	require.NoError(t, l.Set("tvac", mustThresholds(t, 10, 20, 40, 50)))
	assert.Equal(t, []string{"DEFAULT", "TVAC"}, l.Sets())

	th, ok := l.Get("TVAC")
	require.True(t, ok)
	assert.Equal(t, 10.0, th.RedLow)

	th, ok = l.Get("UNKNOWN")
	require.True(t, ok)
	assert.Equal(t, 1.0, th.RedLow)
}

func TestItemLimitsPersistence(t *testing.T) {
	l := NewItemLimits()
	require.NoError(t, l.Set(DefaultSet, mustThresholds(t, 1, 2, 4, 5)))
	l.PersistenceSetting = 3

	// Stale to green needs three consecutive checks.
	_, changed := l.Check(3, DefaultSet, false)
	assert.False(t, changed)
	_, changed = l.Check(3, DefaultSet, false)
	assert.False(t, changed)
	old, changed := l.Check(3, DefaultSet, false)
	assert.True(t, changed)
	assert.Equal(t, Stale, old)
	assert.Equal(t, Green, l.State)
	assert.Equal(t, 0, l.PersistenceCount)

	// A single excursion does not change state and a return resets the count.
	_, changed = l.Check(6, DefaultSet, false)
	assert.False(t, changed)
	assert.Equal(t, 1, l.PersistenceCount)
	_, changed = l.Check(3, DefaultSet, false)
	assert.False(t, changed)
	assert.Equal(t, 0, l.PersistenceCount)

	old, changed = l.Check(6, DefaultSet, true)
	assert.True(t, changed)
	assert.Equal(t, Green, old)
	assert.Equal(t, RedHigh, l.State)
}

func TestItemLimitsEnableDisable(t *testing.T) {
	l := NewItemLimits()
	require.NoError(t, l.Set(DefaultSet, mustThresholds(t, 1, 2, 4, 5)))

	old, changed := l.Disable()
	assert.False(t, changed, "stale state is not reported")
	assert.Equal(t, Stale, old)

	l.Enable()
	assert.Equal(t, Stale, l.State)
	l.Check(0, DefaultSet, false)
	assert.Equal(t, RedLow, l.State)

	old, changed = l.Disable()
	assert.True(t, changed)
	assert.Equal(t, RedLow, old)
	assert.Equal(t, None, l.State)

	_, changed = l.Check(3, DefaultSet, true)
	assert.False(t, changed, "disabled limits are not checked")
	assert.Equal(t, None, l.State)
}

func TestItemLimitsCheckColor(t *testing.T) {
	l := NewItemLimits()
	old, changed := l.CheckColor(Red)
	assert.True(t, changed)
	assert.Equal(t, Stale, old)

	_, changed = l.CheckColor(Red)
	assert.False(t, changed)
}

func TestItemLimitsClone(t *testing.T) {
	l := NewItemLimits()
	require.NoError(t, l.Set(DefaultSet, mustThresholds(t, 1, 2, 4, 5)))
	c := l.Clone()
	require.NoError(t, c.Set("OPS", mustThresholds(t, 0, 1, 2, 3)))
	assert.Equal(t, []string{"DEFAULT"}, l.Sets())
	assert.Equal(t, []string{"DEFAULT", "OPS"}, c.Sets())
}
