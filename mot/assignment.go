package mot

import (
	munkres "github.com/charles-haynes/munkres"
	"github.com/pkg/errors"
)

// Assigner solves the rectangular detection-to-track assignment problem for
// an IoU matrix (rows are detections, columns are tracks), maximizing total
// IoU. Implementations must produce an optimal matching; pairs are
// (detection index, track index). Gating against the IoU threshold is the
// caller's job.
type Assigner interface {
	Assign(iou [][]float64) ([][2]int, error)
}

// MunkresAssigner solves the assignment as a minimum-cost problem over
// negated IoU values, the way the Jonker-Volgenant/Munkres family of solvers
// is normally fed. It is the default assigner.
type MunkresAssigner struct{}

func (MunkresAssigner) Assign(iou [][]float64) ([][2]int, error) {
	rows := len(iou)
	if rows == 0 {
		return nil, nil
	}
	cols := len(iou[0])
	if cols == 0 {
		return nil, nil
	}

	// Pad to square with zero-cost dummies; any real overlap has negative
	// cost and therefore beats a dummy.
	size := rows
	if cols > size {
		size = cols
	}
	cost := make([][]float64, size)
	for i := range cost {
		cost[i] = make([]float64, size)
		if i < rows {
			for j, v := range iou[i] {
				cost[i][j] = -v
			}
		}
	}

	solver, err := munkres.NewHungarianAlgorithm(cost)
	if err != nil {
		return nil, errors.Wrap(err, "munkres solver rejected cost matrix")
	}
	assigned := solver.Execute()

	matches := make([][2]int, 0, rows)
	for row, col := range assigned {
		if row >= rows || col < 0 || col >= cols {
			continue
		}
		matches = append(matches, [2]int{row, col})
	}
	return matches, nil
}
