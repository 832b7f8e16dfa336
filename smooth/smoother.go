// Package smooth provides the temporal smoothing layer between raw tracker
// output and the decision heuristics: windowed box averaging per track and
// best-confidence consolidation of plate read-outs.
package smooth

import (
	"mobility/mot"
)

// BoxSmoother keeps a fixed-capacity FIFO of the most recent raw boxes per
// track id and reports their element-wise mean. Output is exact while the
// buffer is still filling.
type BoxSmoother struct {
	window  int
	buffers map[int][]mot.Rect
}

// NewBoxSmoother creates a smoother with the given window size.
func NewBoxSmoother(window int) *BoxSmoother {
	if window < 1 {
		window = 1
	}
	return &BoxSmoother{
		window:  window,
		buffers: make(map[int][]mot.Rect),
	}
}

// Window returns the configured window size.
func (s *BoxSmoother) Window() int {
	return s.window
}

// Update appends a raw box for the track and returns the mean of all boxes
// currently buffered.
func (s *BoxSmoother) Update(id int, box mot.Rect) mot.Rect {
	buf := append(s.buffers[id], box)
	if len(buf) > s.window {
		buf = buf[1:]
	}
	s.buffers[id] = buf

	var sum mot.Rect
	for _, b := range buf {
		sum.X1 += b.X1
		sum.Y1 += b.Y1
		sum.X2 += b.X2
		sum.Y2 += b.Y2
	}
	n := float64(len(buf))
	return mot.Rect{X1: sum.X1 / n, Y1: sum.Y1 / n, X2: sum.X2 / n, Y2: sum.Y2 / n}
}

// Len returns the number of buffered samples for the track.
func (s *BoxSmoother) Len(id int) int {
	return len(s.buffers[id])
}

// Oldest returns the oldest buffered box for the track, false when the track
// has no samples.
func (s *BoxSmoother) Oldest(id int) (mot.Rect, bool) {
	buf := s.buffers[id]
	if len(buf) == 0 {
		return mot.Rect{}, false
	}
	return buf[0], true
}

// Forget drops all buffered state for a retired track.
func (s *BoxSmoother) Forget(id int) {
	delete(s.buffers, id)
}

// UnknownPlate is the sentinel text reported for tracks with no accepted
// plate read-out yet.
const UnknownPlate = "0"

// PlateRecord is the best plate read-out seen for a track so far.
type PlateRecord struct {
	Text  string
	Score float64
}

// PlateConsolidator accumulates the best-confidence plate text per track id.
// Stored confidence never decreases; ties favor the newer read.
type PlateConsolidator struct {
	best map[int]PlateRecord
}

// NewPlateConsolidator creates an empty consolidator.
func NewPlateConsolidator() *PlateConsolidator {
	return &PlateConsolidator{best: make(map[int]PlateRecord)}
}

// UpdateText offers a candidate read-out for the track. Empty text is
// ignored. The candidate replaces the stored record when its score is at
// least the stored score.
func (c *PlateConsolidator) UpdateText(id int, text string, score float64) {
	if text == "" {
		return
	}
	if prev, ok := c.best[id]; ok && score < prev.Score {
		return
	}
	c.best[id] = PlateRecord{Text: text, Score: score}
}

// BestText returns the stored record for the track, or the UnknownPlate
// sentinel when nothing was recorded.
func (c *PlateConsolidator) BestText(id int) PlateRecord {
	if rec, ok := c.best[id]; ok {
		return rec
	}
	return PlateRecord{Text: UnknownPlate, Score: 0.0}
}

// Forget drops the stored record for a retired track.
func (c *PlateConsolidator) Forget(id int) {
	delete(c.best, id)
}
