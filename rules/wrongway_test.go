package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility/mot"
	"mobility/smooth"
)

func TestWrongWayRequiresHistory(t *testing.T) {
	s := smooth.NewBoxSmoother(30)
	d := NewWrongWayDetector(s)

	// 19 samples moving up hard: still below the history requirement.
	var current mot.Rect
	for i := 0; i < 19; i++ {
		current = s.Update(1, mot.NewRect(100, 1000-float64(i)*10, 200, 1100-float64(i)*10))
	}
	violation, first := d.Check(1, current)
	assert.False(t, violation)
	assert.False(t, first)

	// The 20th sample crosses the threshold.
	current = s.Update(1, mot.NewRect(100, 810, 200, 910))
	violation, first = d.Check(1, current)
	assert.True(t, violation)
	assert.True(t, first)
}

func TestWrongWayFlagsOnce(t *testing.T) {
	s := smooth.NewBoxSmoother(30)
	d := NewWrongWayDetector(s)

	var current mot.Rect
	for i := 0; i < 25; i++ {
		current = s.Update(4, mot.NewRect(50, 900-float64(i)*10, 150, 1000-float64(i)*10))
	}

	violation, first := d.Check(4, current)
	require.True(t, violation)
	require.True(t, first)

	// The condition keeps holding, but only the first check reports it as
	// new.
	for i := 0; i < 5; i++ {
		current = s.Update(4, mot.NewRect(50, 650-float64(i)*10, 150, 750-float64(i)*10))
		violation, first = d.Check(4, current)
		assert.True(t, violation)
		assert.False(t, first)
	}
	assert.True(t, d.Flagged(4))
}

func TestWrongWayIgnoresAllowedDirection(t *testing.T) {
	s := smooth.NewBoxSmoother(30)
	d := NewWrongWayDetector(s)

	// Moving down is the allowed direction.
	var current mot.Rect
	for i := 0; i < 25; i++ {
		current = s.Update(2, mot.NewRect(50, 100+float64(i)*10, 150, 200+float64(i)*10))
	}
	violation, _ := d.Check(2, current)
	assert.False(t, violation)
	assert.False(t, d.Flagged(2))
}

func TestWrongWaySmallDriftBelowThreshold(t *testing.T) {
	s := smooth.NewBoxSmoother(30)
	d := NewWrongWayDetector(s)

	// 25 samples drifting up only 1px each: total displacement under 50px.
	var current mot.Rect
	for i := 0; i < 25; i++ {
		current = s.Update(3, mot.NewRect(50, 500-float64(i), 150, 600-float64(i)))
	}
	violation, _ := d.Check(3, current)
	assert.False(t, violation)
}

func TestWrongWayHistoryCappedAtSmootherWindow(t *testing.T) {
	// A 5-sample window can never buffer 20 samples; the history requirement
	// must shrink with it or the rule would be dead.
	s := smooth.NewBoxSmoother(5)
	d := NewWrongWayDetector(s)
	require.Equal(t, 5, d.MinHistory)

	var current mot.Rect
	for i := 0; i < 5; i++ {
		current = s.Update(6, mot.NewRect(50, 500-float64(i)*30, 150, 600-float64(i)*30))
	}
	violation, first := d.Check(6, current)
	assert.True(t, violation)
	assert.True(t, first)
}

func TestWrongWayInvertedDirection(t *testing.T) {
	s := smooth.NewBoxSmoother(30)
	d := NewWrongWayDetector(s)
	d.Allowed = DirectionUp

	var current mot.Rect
	for i := 0; i < 25; i++ {
		current = s.Update(5, mot.NewRect(50, 100+float64(i)*10, 150, 200+float64(i)*10))
	}
	violation, first := d.Check(5, current)
	assert.True(t, violation)
	assert.True(t, first)
}
