package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mobility/mot"
)

func TestSpeedFirstObservationIsZero(t *testing.T) {
	e := NewSpeedEstimator(50, 30)
	assert.Zero(t, e.Update(1, mot.NewRect(0, 0, 100, 100)))
}

func TestSpeedConversion(t *testing.T) {
	// 50 px/m at 30 fps: 50px between frames is 1m per 1/30s = 30 m/s =
	// 108 km/h.
	e := NewSpeedEstimator(50, 30)
	e.Update(1, mot.NewRect(0, 0, 100, 100))
	got := e.Update(1, mot.NewRect(0, 50, 100, 150))
	assert.InDelta(t, 108.0, got, 0.0001)
}

func TestSpeedDiagonalDistance(t *testing.T) {
	// 3-4-5 triangle: 5px displacement.
	e := NewSpeedEstimator(10, 10)
	e.Update(2, mot.NewRect(0, 0, 10, 10))
	got := e.Update(2, mot.NewRect(3, 4, 13, 14))
	// 5px / 10 px/m * 10 fps * 3.6 = 18 km/h
	assert.InDelta(t, 18.0, got, 0.0001)
}

func TestSpeedStationary(t *testing.T) {
	e := NewSpeedEstimator(50, 30)
	box := mot.NewRect(200, 200, 300, 300)
	e.Update(3, box)
	assert.Zero(t, e.Update(3, box))
}

func TestSpeedForgetResets(t *testing.T) {
	e := NewSpeedEstimator(50, 30)
	e.Update(4, mot.NewRect(0, 0, 100, 100))
	e.Forget(4)
	// After Forget the next observation is a first observation again.
	assert.Zero(t, e.Update(4, mot.NewRect(500, 500, 600, 600)))
}

func TestSpeedTracksAreIndependent(t *testing.T) {
	e := NewSpeedEstimator(50, 30)
	e.Update(1, mot.NewRect(0, 0, 100, 100))
	assert.Zero(t, e.Update(2, mot.NewRect(1000, 1000, 1100, 1100)))
}
