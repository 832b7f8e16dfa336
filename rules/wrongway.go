package rules

import (
	"mobility/mot"
	"mobility/smooth"
)

// Direction is the allowed travel direction in image coordinates.
type Direction int

const (
	// DirectionDown means traffic flows towards increasing y; moving up is
	// the violation. This matches the usual overhead approach camera.
	DirectionDown Direction = iota
	// DirectionUp inverts the rule for cameras facing the other way.
	DirectionUp
)

// WrongWayDetector flags tracks moving against the allowed direction. It
// reads trajectory history from the car box smoother; MinHistory is capped
// at the smoother window, since the buffer never holds more samples than
// that and the rule could otherwise never fire.
type WrongWayDetector struct {
	// MinHistory is the number of buffered samples required before the rule
	// fires at all.
	MinHistory int
	// Threshold is the minimum displacement in pixels over the history
	// window.
	Threshold float64
	// Allowed is the permitted travel direction.
	Allowed Direction

	smoother *smooth.BoxSmoother
	flagged  map[int]struct{}
}

// NewWrongWayDetector creates a detector with the standard calibration:
// 20 samples of history and a 50px displacement threshold, downward traffic.
func NewWrongWayDetector(smoother *smooth.BoxSmoother) *WrongWayDetector {
	minHistory := 20
	if w := smoother.Window(); w < minHistory {
		minHistory = w
	}
	return &WrongWayDetector{
		MinHistory: minHistory,
		Threshold:  50,
		Allowed:    DirectionDown,
		smoother:   smoother,
		flagged:    make(map[int]struct{}),
	}
}

// Check evaluates the rule for a track against its current smoothed box.
// violation is true every frame the condition holds; first is true only the
// first time this track violates, for at-most-once logging.
func (d *WrongWayDetector) Check(id int, current mot.Rect) (violation, first bool) {
	if d.smoother.Len(id) < d.MinHistory {
		return false, false
	}
	oldest, ok := d.smoother.Oldest(id)
	if !ok {
		return false, false
	}

	delta := oldest.Y1 - current.Y1
	if d.Allowed == DirectionUp {
		delta = -delta
	}
	if delta <= d.Threshold {
		return false, false
	}

	if _, seen := d.flagged[id]; !seen {
		d.flagged[id] = struct{}{}
		return true, true
	}
	return true, false
}

// Flagged reports whether the track has ever been flagged.
func (d *WrongWayDetector) Flagged(id int) bool {
	_, ok := d.flagged[id]
	return ok
}

// Forget drops all state for a retired track.
func (d *WrongWayDetector) Forget(id int) {
	delete(d.flagged, id)
}
