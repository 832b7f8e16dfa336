package mot

import (
	"sort"
	"testing"
)

func sortPairs(pairs [][2]int) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
}

func TestAssignerSquare(t *testing.T) {
	iou := [][]float64{
		{0.9, 0.1, 0.0},
		{0.2, 0.8, 0.05},
		{0.0, 0.3, 0.7},
	}
	want := [][2]int{{0, 0}, {1, 1}, {2, 2}}

	got, err := MunkresAssigner{}.Assign(iou)
	if err != nil {
		t.Fatal(err)
	}
	sortPairs(got)
	if len(got) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAssignerPrefersTotalOverGreedy(t *testing.T) {
	// The greedy choice (0,0) with 0.6 forces detection 1 onto 0.1;
	// the optimal total pairs (0,1) and (1,0).
	iou := [][]float64{
		{0.6, 0.55},
		{0.5, 0.1},
	}
	want := [][2]int{{0, 1}, {1, 0}}

	got, err := MunkresAssigner{}.Assign(iou)
	if err != nil {
		t.Fatal(err)
	}
	sortPairs(got)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAssignerRectangular(t *testing.T) {
	// More detections than tracks; one detection must stay unmatched.
	iou := [][]float64{
		{0.8, 0.0},
		{0.0, 0.9},
		{0.4, 0.3},
	}
	got, err := MunkresAssigner{}.Assign(iou)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 2 {
		t.Fatalf("%d matches for 2 tracks", len(got))
	}
	seen := map[int]bool{}
	for _, p := range got {
		if seen[p[1]] {
			t.Errorf("track %d matched twice", p[1])
		}
		seen[p[1]] = true
	}
	// the two strong pairs must be in there
	sortPairs(got)
	if len(got) == 2 && (got[0] != [2]int{0, 0} || got[1] != [2]int{1, 1}) {
		t.Errorf("got %v, want [[0 0] [1 1]]", got)
	}
}

func TestAssignerEmpty(t *testing.T) {
	if got, err := (MunkresAssigner{}).Assign(nil); err != nil || len(got) != 0 {
		t.Errorf("nil matrix: got %v, %v", got, err)
	}
	if got, err := (MunkresAssigner{}).Assign([][]float64{}); err != nil || len(got) != 0 {
		t.Errorf("empty matrix: got %v, %v", got, err)
	}
}
