package rules

import (
	"math"

	"mobility/mot"
)

// SpeedEstimator derives a km/h estimate per track from the pixel distance
// between consecutive box centers, a pixels-per-meter calibration constant
// and the source frame rate.
type SpeedEstimator struct {
	pixelsPerMeter float64
	fps            float64
	last           map[int]mot.Point
}

// NewSpeedEstimator creates an estimator for the given calibration. Typical
// values: 50 px/m, 30 fps.
func NewSpeedEstimator(pixelsPerMeter, fps float64) *SpeedEstimator {
	return &SpeedEstimator{
		pixelsPerMeter: pixelsPerMeter,
		fps:            fps,
		last:           make(map[int]mot.Point),
	}
}

// Update records the track's current box and returns the speed estimate in
// km/h. The first observation of a track returns 0.
func (e *SpeedEstimator) Update(id int, box mot.Rect) float64 {
	center := box.Center()
	prev, ok := e.last[id]
	e.last[id] = center
	if !ok {
		return 0
	}
	pixels := math.Hypot(center.X-prev.X, center.Y-prev.Y)
	metersPerSecond := pixels / e.pixelsPerMeter * e.fps
	return metersPerSecond * 3.6
}

// Forget drops the stored position for a retired track.
func (e *SpeedEstimator) Forget(id int) {
	delete(e.last, id)
}
