package mot

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const stateDim = 7
const measureDim = 4

// boxKalman is a constant-velocity Kalman filter over the state
// [cx, cy, area, aspect, vcx, vcy, varea]. Aspect ratio carries no velocity
// term. Measurement noise is inflated on the area/aspect components and
// process noise is down-weighted on the velocity components, matching the
// usual low confidence in per-frame size estimates.
type boxKalman struct {
	x *mat.VecDense // state mean
	p *mat.Dense    // state covariance
	f *mat.Dense    // transition
	h *mat.Dense    // observation
	q *mat.Dense    // process noise
	r *mat.Dense    // measurement noise
}

func newBoxKalman(z [4]float64) *boxKalman {
	f := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		f.Set(i, i, 1.0)
	}
	// cx' = cx + vcx, cy' = cy + vcy, area' = area + varea
	f.Set(0, 4, 1.0)
	f.Set(1, 5, 1.0)
	f.Set(2, 6, 1.0)

	h := mat.NewDense(measureDim, stateDim, nil)
	for i := 0; i < measureDim; i++ {
		h.Set(i, i, 1.0)
	}

	r := mat.NewDense(measureDim, measureDim, nil)
	r.Set(0, 0, 1.0)
	r.Set(1, 1, 1.0)
	r.Set(2, 2, 10.0)
	r.Set(3, 3, 10.0)

	q := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < 4; i++ {
		q.Set(i, i, 1.0)
	}
	q.Set(4, 4, 0.01)
	q.Set(5, 5, 0.01)
	q.Set(6, 6, 0.0001)

	p := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < 4; i++ {
		p.Set(i, i, 10.0)
	}
	// velocities are unobserved at creation
	for i := 4; i < stateDim; i++ {
		p.Set(i, i, 10000.0)
	}

	x := mat.NewVecDense(stateDim, nil)
	for i := 0; i < measureDim; i++ {
		x.SetVec(i, z[i])
	}

	return &boxKalman{x: x, p: p, f: f, h: h, q: q, r: r}
}

// Predict advances the state one step. When the projected area would go
// non-positive the area velocity is zeroed first, so the state never degrades
// into a negative-area box.
func (k *boxKalman) Predict() {
	if k.x.AtVec(2)+k.x.AtVec(6) <= 0 {
		k.x.SetVec(6, 0.0)
	}

	var xNext mat.VecDense
	xNext.MulVec(k.f, k.x)
	k.x.CopyVec(&xNext)

	var fp, fpft mat.Dense
	fp.Mul(k.f, k.p)
	fpft.Mul(&fp, k.f.T())
	fpft.Add(&fpft, k.q)
	k.p.Copy(&fpft)
}

// Update corrects the state against the measurement [cx, cy, area, aspect].
func (k *boxKalman) Update(z [4]float64) error {
	zVec := mat.NewVecDense(measureDim, z[:])

	// innovation y = z - Hx
	var hx, y mat.VecDense
	hx.MulVec(k.h, k.x)
	y.SubVec(zVec, &hx)

	// S = HPH' + R
	var hp, s mat.Dense
	hp.Mul(k.h, k.p)
	s.Mul(&hp, k.h.T())
	s.Add(&s, k.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return errors.Wrap(err, "innovation covariance is singular")
	}

	// K = PH'S^-1
	var pht, gain mat.Dense
	pht.Mul(k.p, k.h.T())
	gain.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&gain, &y)
	k.x.AddVec(k.x, &ky)

	// P = (I - KH)P
	var kh mat.Dense
	kh.Mul(&gain, k.h)
	ikh := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		ikh.Set(i, i, 1.0)
	}
	ikh.Sub(ikh, &kh)
	var pNext mat.Dense
	pNext.Mul(ikh, k.p)
	k.p.Copy(&pNext)
	return nil
}

// Box returns the current state position components as a corner-form box.
func (k *boxKalman) Box() Rect {
	return measurementToBox(k.x.AtVec(0), k.x.AtVec(1), k.x.AtVec(2), k.x.AtVec(3))
}
