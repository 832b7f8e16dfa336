package rules

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"mobility/mot"
)

// fill paints the rectangle of img with c.
func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestDetectRedVehicle(t *testing.T) {
	d := NewEmergencyDetector(DefaultEmergencyConfig())

	frame := image.NewRGBA(image.Rect(0, 0, 200, 200))
	fill(frame, frame.Bounds(), color.RGBA{128, 128, 128, 255})
	// Vehicle ROI mostly saturated red.
	fill(frame, image.Rect(50, 50, 150, 150), color.RGBA{220, 20, 20, 255})

	assert.True(t, d.Detect(frame, mot.NewRect(50, 50, 150, 150)))
	// A grey region of the same frame is not an emergency.
	assert.False(t, d.Detect(frame, mot.NewRect(0, 0, 40, 40)))
}

func TestDetectRatioThreshold(t *testing.T) {
	d := NewEmergencyDetector(DefaultEmergencyConfig())

	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	fill(frame, frame.Bounds(), color.RGBA{255, 255, 255, 255})
	// Exactly 10% red: below the 15% ratio.
	fill(frame, image.Rect(0, 0, 100, 10), color.RGBA{220, 20, 20, 255})
	assert.False(t, d.Detect(frame, mot.NewRect(0, 0, 100, 100)))

	// 20% red: above.
	fill(frame, image.Rect(0, 10, 100, 20), color.RGBA{220, 20, 20, 255})
	assert.True(t, d.Detect(frame, mot.NewRect(0, 0, 100, 100)))
}

func TestDetectDegenerateCrops(t *testing.T) {
	d := NewEmergencyDetector(DefaultEmergencyConfig())
	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	fill(frame, frame.Bounds(), color.RGBA{220, 20, 20, 255})

	assert.False(t, d.Detect(nil, mot.NewRect(0, 0, 10, 10)), "nil frame")
	assert.False(t, d.Detect(frame, mot.NewRect(-10, 0, 50, 50)), "out of frame")
	assert.False(t, d.Detect(frame, mot.NewRect(50, 50, 150, 150)), "partially out of frame")
	assert.False(t, d.Detect(frame, mot.NewRect(20, 20, 20, 60)), "zero width")
}

func TestObserveDeduplicatesOpenInterval(t *testing.T) {
	d := NewEmergencyDetector(DefaultEmergencyConfig())
	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	fill(frame, frame.Bounds(), color.RGBA{220, 20, 20, 255})
	box := mot.NewRect(10, 10, 90, 90)

	emergency, opened := d.Observe(7, frame, box)
	assert.True(t, emergency)
	assert.True(t, opened, "first sighting opens the interval")
	firstSeen, ok := d.LastSeen(7)
	assert.True(t, ok)

	emergency, opened = d.Observe(7, frame, box)
	assert.True(t, emergency)
	assert.False(t, opened, "continued presence only refreshes last-seen")
	lastSeen, _ := d.LastSeen(7)
	assert.False(t, lastSeen.Before(firstSeen))

	assert.True(t, d.Retire(7))
	assert.False(t, d.Retire(7), "interval already closed")
	_, ok = d.LastSeen(7)
	assert.False(t, ok)
}

func TestObserveNonEmergencyDoesNotOpen(t *testing.T) {
	d := NewEmergencyDetector(DefaultEmergencyConfig())
	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	fill(frame, frame.Bounds(), color.RGBA{128, 128, 128, 255})

	emergency, opened := d.Observe(3, frame, mot.NewRect(0, 0, 50, 50))
	assert.False(t, emergency)
	assert.False(t, opened)
	assert.Empty(t, d.ActiveIDs())
}
