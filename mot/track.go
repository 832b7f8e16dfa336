package mot

// Detection is one external detector output for a single frame.
type Detection struct {
	Box     Rect
	Score   float64
	ClassID int
}

// TrackedBox is a confirmed track as reported by Tracker.Update.
type TrackedBox struct {
	Box Rect
	ID  int
}

// maxTrackHistory bounds the per-track predicted box buffer.
const maxTrackHistory = 32

// Track is a single tracked object: one motion model plus the bookkeeping the
// tracker drives through predict/update.
type Track struct {
	ID int
	// Age counts frames since creation.
	Age int
	// Hits counts frames matched to a detection.
	Hits int
	// HitStreak counts consecutive matched frames. Resets to zero on the
	// first predict after a missed frame.
	HitStreak int
	// TimeSinceUpdate counts frames since the last match, zero when just
	// matched.
	TimeSinceUpdate int

	kf      *boxKalman
	history []Rect
}

func newTrack(id int, det Detection) *Track {
	return &Track{
		ID:      id,
		kf:      newBoxKalman(boxToMeasurement(det.Box)),
		history: make([]Rect, 0, maxTrackHistory),
	}
}

// Predict advances the motion model one frame and returns the predicted box.
func (t *Track) Predict() Rect {
	t.kf.Predict()
	t.Age++
	if t.TimeSinceUpdate > 0 {
		t.HitStreak = 0
	}
	t.TimeSinceUpdate++

	box := t.kf.Box()
	t.history = append(t.history, box)
	if len(t.history) > maxTrackHistory {
		t.history = t.history[1:]
	}
	return box
}

// Update corrects the motion model with a matched detection.
func (t *Track) Update(det Detection) error {
	t.TimeSinceUpdate = 0
	t.history = t.history[:0]
	t.Hits++
	t.HitStreak++
	return t.kf.Update(boxToMeasurement(det.Box))
}

// Box returns the current state estimate as a box.
func (t *Track) Box() Rect {
	return t.kf.Box()
}

// LastPredicted returns the most recent predicted box, falling back to the
// state estimate when no prediction happened since the last update.
func (t *Track) LastPredicted() Rect {
	if len(t.history) == 0 {
		return t.kf.Box()
	}
	return t.history[len(t.history)-1]
}
