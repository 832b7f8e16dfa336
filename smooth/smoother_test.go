package smooth

import (
	"math"
	"testing"

	"mobility/mot"
)

const eps = 0.00001

func TestBoxSmootherMeanOfWindow(t *testing.T) {
	s := NewBoxSmoother(3)

	got := s.Update(1, mot.NewRect(0, 0, 10, 10))
	if got != mot.NewRect(0, 0, 10, 10) {
		t.Errorf("single sample not returned exactly: %v", got)
	}

	s.Update(1, mot.NewRect(2, 2, 12, 12))
	got = s.Update(1, mot.NewRect(4, 4, 14, 14))
	want := mot.NewRect(2, 2, 12, 12)
	if math.Abs(got.X1-want.X1) > eps || math.Abs(got.Y2-want.Y2) > eps {
		t.Errorf("mean of 3 samples: got %v, want %v", got, want)
	}

	// Fourth sample evicts the oldest; mean covers samples 2..4.
	got = s.Update(1, mot.NewRect(6, 6, 16, 16))
	want = mot.NewRect(4, 4, 14, 14)
	if math.Abs(got.X1-want.X1) > eps {
		t.Errorf("mean after eviction: got %v, want %v", got, want)
	}
	if s.Len(1) != 3 {
		t.Errorf("buffer length = %d, want 3", s.Len(1))
	}
}

func TestBoxSmootherIdempotentOnConstantInput(t *testing.T) {
	s := NewBoxSmoother(5)
	box := mot.NewRect(100, 200, 300, 400)
	for i := 0; i < 10; i++ {
		if got := s.Update(7, box); got != box {
			t.Fatalf("iteration %d: got %v, want %v", i, got, box)
		}
	}
}

func TestBoxSmootherOldest(t *testing.T) {
	s := NewBoxSmoother(2)
	if _, ok := s.Oldest(3); ok {
		t.Error("Oldest returned ok for unseen track")
	}
	first := mot.NewRect(1, 1, 2, 2)
	s.Update(3, first)
	s.Update(3, mot.NewRect(5, 5, 6, 6))
	if got, ok := s.Oldest(3); !ok || got != first {
		t.Errorf("Oldest: got %v %v", got, ok)
	}
	s.Update(3, mot.NewRect(9, 9, 10, 10))
	if got, _ := s.Oldest(3); got == first {
		t.Error("Oldest not advanced after eviction")
	}
}

func TestBoxSmootherIndependentTracks(t *testing.T) {
	s := NewBoxSmoother(4)
	s.Update(1, mot.NewRect(0, 0, 10, 10))
	got := s.Update(2, mot.NewRect(100, 100, 110, 110))
	if got != mot.NewRect(100, 100, 110, 110) {
		t.Errorf("track 2 polluted by track 1: %v", got)
	}
	s.Forget(1)
	if s.Len(1) != 0 {
		t.Error("Forget did not clear buffer")
	}
	if s.Len(2) != 1 {
		t.Error("Forget cleared wrong track")
	}
}

func TestPlateConsolidatorMonotonicScore(t *testing.T) {
	c := NewPlateConsolidator()

	if rec := c.BestText(1); rec.Text != UnknownPlate || rec.Score != 0 {
		t.Errorf("sentinel: got %+v", rec)
	}

	c.UpdateText(1, "AB12CDE", 0.6)
	c.UpdateText(1, "XY34ZZZ", 0.4) // lower score, ignored
	if rec := c.BestText(1); rec.Text != "AB12CDE" {
		t.Errorf("lower score replaced record: %+v", rec)
	}

	c.UpdateText(1, "AB12CDF", 0.6) // tie favors newer read
	if rec := c.BestText(1); rec.Text != "AB12CDF" {
		t.Errorf("tie did not favor newer read: %+v", rec)
	}

	c.UpdateText(1, "AB12CDE", 0.9)
	if rec := c.BestText(1); rec.Text != "AB12CDE" || rec.Score != 0.9 {
		t.Errorf("higher score not stored: %+v", rec)
	}

	c.UpdateText(1, "", 1.0) // empty text ignored
	if rec := c.BestText(1); rec.Text != "AB12CDE" {
		t.Errorf("empty text overwrote record: %+v", rec)
	}
}

func TestPlateConsolidatorForget(t *testing.T) {
	c := NewPlateConsolidator()
	c.UpdateText(2, "AA00AAA", 0.5)
	c.Forget(2)
	if rec := c.BestText(2); rec.Text != UnknownPlate {
		t.Errorf("record survived Forget: %+v", rec)
	}
}
