package mot

// Tracker is a SORT-style multi-object tracker: constant-velocity Kalman
// prediction per track, IoU-gated optimal assignment of detections to
// predicted boxes, and age/hit-streak based track lifecycle.
//
// Each Tracker owns its identity counter, so independently running instances
// never share state. A Tracker is not safe for concurrent use; frames must be
// applied in arrival order.
type Tracker struct {
	maxAge       int
	minHits      int
	iouThreshold float64
	assigner     Assigner

	tracks     []*Track
	frameCount int
	nextID     int

	removed []int
}

// NewTracker creates a tracker with explicit parameters. The assigner decides
// which optimal solver resolves ambiguous associations.
func NewTracker(maxAge, minHits int, iouThreshold float64, assigner Assigner) *Tracker {
	return &Tracker{
		maxAge:       maxAge,
		minHits:      minHits,
		iouThreshold: iouThreshold,
		assigner:     assigner,
	}
}

// NewDefaultTracker creates a tracker with the standard parameters:
// maxAge=30, minHits=3, iouThreshold=0.3, Munkres assignment.
func NewDefaultTracker() *Tracker {
	return NewTracker(30, 3, 0.3, MunkresAssigner{})
}

// FrameCount returns the number of frames applied so far.
func (tr *Tracker) FrameCount() int {
	return tr.frameCount
}

// Removed returns the ids of tracks retired by the most recent Update call.
// The slice is reused between calls.
func (tr *Tracker) Removed() []int {
	return tr.removed
}

// Update advances the tracker by one frame and returns the confirmed tracks.
// A track is confirmed when it was matched this frame and either its hit
// streak reached minHits or the tracker is still inside the startup grace
// window of the first minHits frames.
//
// If the assignment solver fails, every detection of this frame is treated
// as unmatched and processing continues; the failure is never fatal to the
// tracker.
func (tr *Tracker) Update(detections []Detection) []TrackedBox {
	tr.frameCount++
	tr.removed = tr.removed[:0]

	// Predict all tracks, dropping any that went numerically degenerate.
	// Dropped tracks count as removed so callers can release per-track state.
	kept := tr.tracks[:0]
	for _, t := range tr.tracks {
		if box := t.Predict(); box.IsFinite() {
			kept = append(kept, t)
		} else {
			tr.removed = append(tr.removed, t.ID)
		}
	}
	tr.tracks = kept

	matched, unmatchedDets := tr.associate(detections)

	for _, m := range matched {
		// An update error means a singular innovation covariance; the match
		// still counts and the track keeps its predicted state this frame.
		_ = tr.tracks[m[1]].Update(detections[m[0]])
	}

	for _, di := range unmatchedDets {
		tr.nextID++
		tr.tracks = append(tr.tracks, newTrack(tr.nextID, detections[di]))
	}

	out := make([]TrackedBox, 0, len(tr.tracks))
	// Reverse iteration keeps removal index-stable.
	for i := len(tr.tracks) - 1; i >= 0; i-- {
		t := tr.tracks[i]
		if t.TimeSinceUpdate < 1 && (t.HitStreak >= tr.minHits || tr.frameCount <= tr.minHits) {
			out = append(out, TrackedBox{Box: t.Box(), ID: t.ID})
		}
		if t.TimeSinceUpdate > tr.maxAge {
			tr.removed = append(tr.removed, t.ID)
			tr.tracks = append(tr.tracks[:i], tr.tracks[i+1:]...)
		}
	}
	return out
}

// associate matches detections against current track predictions. Returns
// matched (detection, track) index pairs and the unmatched detection indices.
func (tr *Tracker) associate(detections []Detection) ([][2]int, []int) {
	if len(tr.tracks) == 0 || len(detections) == 0 {
		unmatched := make([]int, len(detections))
		for i := range detections {
			unmatched[i] = i
		}
		return nil, unmatched
	}

	iou := make([][]float64, len(detections))
	for i, det := range detections {
		iou[i] = make([]float64, len(tr.tracks))
		for j, t := range tr.tracks {
			iou[i][j] = IoU(det.Box, t.LastPredicted())
		}
	}

	pairs, ok := oneToOne(iou, tr.iouThreshold)
	if !ok {
		var err error
		pairs, err = tr.assigner.Assign(iou)
		if err != nil {
			pairs = nil
		}
	}

	matched := make([][2]int, 0, len(pairs))
	matchedDets := make(map[int]struct{}, len(pairs))
	for _, p := range pairs {
		if iou[p[0]][p[1]] < tr.iouThreshold {
			continue
		}
		matched = append(matched, p)
		matchedDets[p[0]] = struct{}{}
	}

	unmatched := make([]int, 0, len(detections)-len(matched))
	for i := range detections {
		if _, ok := matchedDets[i]; !ok {
			unmatched = append(unmatched, i)
		}
	}
	return matched, unmatched
}

// oneToOne checks whether the thresholded adjacency already forms a
// one-to-one matching. If every row and every column has at most one entry
// above the threshold, the matching is returned directly and no solver run
// is needed.
func oneToOne(iou [][]float64, threshold float64) ([][2]int, bool) {
	rowHits := make([]int, len(iou))
	colHits := make([]int, len(iou[0]))
	pairs := make([][2]int, 0)
	for i, row := range iou {
		for j, v := range row {
			if v >= threshold {
				rowHits[i]++
				colHits[j]++
				if rowHits[i] > 1 || colHits[j] > 1 {
					return nil, false
				}
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs, true
}
