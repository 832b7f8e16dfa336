package rules

import (
	"image"
	"math"
	"time"

	"mobility/mot"
)

// EmergencyConfig holds the color-ratio calibration for the emergency
// vehicle heuristic. Hue is on the halved 0-180 scale customary for 8-bit
// HSV; saturation and value are normalized to [0,1].
type EmergencyConfig struct {
	RedHueLow1  float64
	RedHueHigh1 float64
	RedHueLow2  float64
	RedHueHigh2 float64
	MinSat      float64
	MinVal      float64
	MinRedRatio float64
}

// DefaultEmergencyConfig returns the standard calibration: red hue bands
// 0-10 and 170-180, saturation >= 70/255, value >= 50/255, ratio > 0.15.
func DefaultEmergencyConfig() EmergencyConfig {
	return EmergencyConfig{
		RedHueLow1:  0,
		RedHueHigh1: 10,
		RedHueLow2:  170,
		RedHueHigh2: 180,
		MinSat:      70.0 / 255.0,
		MinVal:      50.0 / 255.0,
		MinRedRatio: 0.15,
	}
}

// EmergencyDetector classifies track ROIs as emergency vehicles by the
// fraction of red pixels, and maintains the set of currently active
// emergencies so repeated sightings of the same vehicle do not re-trigger
// "new emergency" events.
type EmergencyDetector struct {
	cfg    EmergencyConfig
	active map[int]time.Time
	now    func() time.Time
}

// NewEmergencyDetector creates a detector. A zero-valued config falls back
// to the defaults.
func NewEmergencyDetector(cfg EmergencyConfig) *EmergencyDetector {
	if cfg.MinRedRatio == 0 {
		cfg = DefaultEmergencyConfig()
	}
	return &EmergencyDetector{
		cfg:    cfg,
		active: make(map[int]time.Time),
		now:    time.Now,
	}
}

// Detect reports whether the box region of the frame looks like an emergency
// vehicle. Out-of-frame or degenerate crops are never an error; they simply
// classify as false. A nil frame classifies as false.
func (d *EmergencyDetector) Detect(frame image.Image, box mot.Rect) bool {
	if frame == nil || !box.IsFinite() {
		return false
	}
	bounds := frame.Bounds()
	x1 := int(box.X1)
	y1 := int(box.Y1)
	x2 := int(box.X2)
	y2 := int(box.Y2)
	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return false
	}
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return false
	}

	red := 0
	total := 0
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			total++
			h, s, v := rgbToHSV(frame.At(x, y).RGBA())
			if s < d.cfg.MinSat || v < d.cfg.MinVal {
				continue
			}
			if (h >= d.cfg.RedHueLow1 && h <= d.cfg.RedHueHigh1) ||
				(h >= d.cfg.RedHueLow2 && h <= d.cfg.RedHueHigh2) {
				red++
			}
		}
	}
	return float64(red)/float64(total) > d.cfg.MinRedRatio
}

// Observe runs Detect for a track and maintains the active set. opened is
// true only when this sighting starts a new emergency interval; continued
// presence just refreshes the last-seen timestamp.
func (d *EmergencyDetector) Observe(id int, frame image.Image, box mot.Rect) (emergency, opened bool) {
	if !d.Detect(frame, box) {
		return false, false
	}
	_, known := d.active[id]
	d.active[id] = d.now()
	return true, !known
}

// LastSeen returns when the track was last observed as an emergency.
func (d *EmergencyDetector) LastSeen(id int) (time.Time, bool) {
	t, ok := d.active[id]
	return t, ok
}

// Retire closes the track's emergency interval, reporting whether one was
// open.
func (d *EmergencyDetector) Retire(id int) bool {
	if _, ok := d.active[id]; !ok {
		return false
	}
	delete(d.active, id)
	return true
}

// ActiveIDs returns the track ids with an open emergency interval.
func (d *EmergencyDetector) ActiveIDs() []int {
	ids := make([]int, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	return ids
}

// rgbToHSV converts 16-bit premultiplied RGBA channels to HSV with hue on
// the halved 0-180 scale and saturation/value in [0,1].
func rgbToHSV(r, g, b, _ uint32) (h, s, v float64) {
	rf := float64(r) / 65535.0
	gf := float64(g) / 65535.0
	bf := float64(b) / 65535.0

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}
	if delta == 0 {
		return 0, s, v
	}

	var deg float64
	switch maxC {
	case rf:
		deg = 60 * math.Mod((gf-bf)/delta, 6)
	case gf:
		deg = 60 * ((bf-rf)/delta + 2)
	default:
		deg = 60 * ((rf-gf)/delta + 4)
	}
	if deg < 0 {
		deg += 360
	}
	return deg / 2, s, v
}
