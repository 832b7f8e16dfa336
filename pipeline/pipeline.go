// Package pipeline wires the tracking engine, smoothing layer, violation
// heuristics and signal policy into a per-junction frame loop.
package pipeline

import (
	"image"
	"time"

	"mobility/internal/monitoring"
	"mobility/mot"
	"mobility/rules"
	"mobility/smooth"
	"mobility/store"
)

// OCRFunc reads plate text from the given region of the frame. ok is false
// when no readable text was found. A nil OCRFunc skips plate reading for the
// frame.
type OCRFunc func(frame image.Image, plateBox mot.Rect) (text string, score float64, ok bool)

// ViolationWrongWay is the violation type recorded for wrong-way tracks.
const ViolationWrongWay = "wrong_way"

// Params configures one junction pipeline.
type Params struct {
	Junction int

	MaxAge       int
	MinHits      int
	IOUThreshold float64
	Assigner     mot.Assigner

	CarWindow   int
	PlateWindow int

	PixelsPerMeter float64
	FPS            float64

	Emergency rules.EmergencyConfig
	Policy    rules.SignalPolicy

	LogInterval time.Duration
}

// DefaultParams returns the standard calibration for a junction.
func DefaultParams(junction int) Params {
	return Params{
		Junction:       junction,
		MaxAge:         30,
		MinHits:        3,
		IOUThreshold:   0.3,
		Assigner:       mot.MunkresAssigner{},
		CarWindow:      30,
		PlateWindow:    5,
		PixelsPerMeter: 50,
		FPS:            30,
		Emergency:      rules.DefaultEmergencyConfig(),
		Policy:         rules.DefaultSignalPolicy(),
		LogInterval:    5 * time.Second,
	}
}

// VehicleReport is the per-track slice of a FrameReport.
type VehicleReport struct {
	ID          int       `json:"id"`
	Box         mot.Rect  `json:"box"`
	SmoothedBox mot.Rect  `json:"smoothed_box"`
	SpeedKmh    float64   `json:"speed_kmh"`
	WrongWay    bool      `json:"wrong_way"`
	Emergency   bool      `json:"emergency"`
	Plate       string    `json:"plate"`
	PlateScore  float64   `json:"plate_score"`
}

// FrameReport is the full result of processing one frame.
type FrameReport struct {
	Junction  int             `json:"junction_id"`
	Frame     int             `json:"frame"`
	Density   int             `json:"density"`
	Emergency bool            `json:"emergency"`
	Decision  rules.Decision  `json:"decision"`
	Vehicles  []VehicleReport `json:"vehicles"`
}

// Pipeline owns the full per-junction processing state. Every junction gets
// its own Pipeline; instances share nothing and are not safe for concurrent
// use. Frames must be applied in arrival order.
type Pipeline struct {
	params Params

	tracker       *mot.Tracker
	carSmoother   *smooth.BoxSmoother
	plateSmoother *smooth.BoxSmoother
	plates        *smooth.PlateConsolidator
	wrongWay      *rules.WrongWayDetector
	speed         *rules.SpeedEstimator
	emergency     *rules.EmergencyDetector

	st *store.Store
	// open emergency interval ids in the store, by track id
	emergencyIDs map[int]string

	lastLog time.Time
	now     func() time.Time
}

// New creates a pipeline. st may be nil to disable persistence.
func New(params Params, st *store.Store) *Pipeline {
	carSmoother := smooth.NewBoxSmoother(params.CarWindow)
	return &Pipeline{
		params:        params,
		tracker:       mot.NewTracker(params.MaxAge, params.MinHits, params.IOUThreshold, params.Assigner),
		carSmoother:   carSmoother,
		plateSmoother: smooth.NewBoxSmoother(params.PlateWindow),
		plates:        smooth.NewPlateConsolidator(),
		wrongWay:      rules.NewWrongWayDetector(carSmoother),
		speed:         rules.NewSpeedEstimator(params.PixelsPerMeter, params.FPS),
		emergency:     rules.NewEmergencyDetector(params.Emergency),
		st:            st,
		emergencyIDs:  make(map[int]string),
		now:           time.Now,
	}
}

// BestPlate returns the consolidated plate record for a track.
func (p *Pipeline) BestPlate(trackID int) smooth.PlateRecord {
	return p.plates.BestText(trackID)
}

// ProcessFrame advances the pipeline by one frame. frame may be nil when
// pixel data is unavailable; the emergency heuristic then reports false.
// vehicles must already be filtered to vehicle classes. ocr may be nil on
// frames where plate reading is skipped.
//
// Persistence failures are logged and retried naturally on later frames;
// they never fail the frame.
func (p *Pipeline) ProcessFrame(frame image.Image, vehicles, plateBoxes []mot.Detection, ocr OCRFunc) FrameReport {
	tracks := p.tracker.Update(vehicles)
	p.retire(p.tracker.Removed())

	report := FrameReport{
		Junction: p.params.Junction,
		Frame:    p.tracker.FrameCount(),
		Density:  len(tracks),
		Vehicles: make([]VehicleReport, 0, len(tracks)),
	}

	var speedSum float64
	for _, tb := range tracks {
		smoothed := p.carSmoother.Update(tb.ID, tb.Box)
		speed := p.speed.Update(tb.ID, smoothed)
		speedSum += speed

		wrongWay, first := p.wrongWay.Check(tb.ID, smoothed)
		if first {
			p.logWrongWay(tb.ID, speed)
		}

		isEmergency, opened := p.emergency.Observe(tb.ID, frame, smoothed)
		if isEmergency {
			report.Emergency = true
			p.recordEmergency(tb.ID, opened)
		}

		plate := p.readPlate(tb.ID, smoothed, frame, plateBoxes, ocr)

		report.Vehicles = append(report.Vehicles, VehicleReport{
			ID:          tb.ID,
			Box:         tb.Box,
			SmoothedBox: smoothed,
			SpeedKmh:    speed,
			WrongWay:    wrongWay,
			Emergency:   isEmergency,
			Plate:       plate.Text,
			PlateScore:  plate.Score,
		})
	}

	report.Decision = p.params.Policy.Decide(report.Density, report.Emergency)

	p.syncTelemetry(report, speedSum)
	return report
}

// readPlate matches a plate detection to the vehicle by center containment,
// smooths the plate box and feeds the OCR result to the consolidator.
func (p *Pipeline) readPlate(trackID int, carBox mot.Rect, frame image.Image, plateBoxes []mot.Detection, ocr OCRFunc) smooth.PlateRecord {
	for _, lp := range plateBoxes {
		if !carBox.Contains(lp.Box.Center()) {
			continue
		}
		smoothedPlate := p.plateSmoother.Update(trackID, lp.Box)
		if ocr != nil {
			if text, score, ok := ocr(frame, smoothedPlate); ok {
				p.plates.UpdateText(trackID, text, score)
			}
		}
		break
	}
	return p.plates.BestText(trackID)
}

func (p *Pipeline) logWrongWay(trackID int, speed float64) {
	if p.st == nil {
		return
	}
	plate := p.plates.BestText(trackID)
	plateText := plate.Text
	if plateText == smooth.UnknownPlate {
		plateText = ""
	}
	if _, err := p.st.LogViolation(p.params.Junction, trackID, ViolationWrongWay, plateText, speed); err != nil {
		monitoring.Logf("junction %d: log violation for track %d: %v", p.params.Junction, trackID, err)
	}
}

func (p *Pipeline) recordEmergency(trackID int, opened bool) {
	if p.st == nil {
		return
	}
	seen, _ := p.emergency.LastSeen(trackID)
	if opened {
		id, err := p.st.OpenEmergency(p.params.Junction, trackID, seen)
		if err != nil {
			monitoring.Logf("junction %d: open emergency for track %d: %v", p.params.Junction, trackID, err)
			return
		}
		p.emergencyIDs[trackID] = id
		return
	}
	if id, ok := p.emergencyIDs[trackID]; ok {
		if err := p.st.TouchEmergency(id, seen); err != nil {
			monitoring.Logf("junction %d: touch emergency %s: %v", p.params.Junction, id, err)
		}
	}
}

// retire drops all per-track state for tracks removed by the tracker and
// closes their emergency intervals.
func (p *Pipeline) retire(ids []int) {
	for _, id := range ids {
		p.carSmoother.Forget(id)
		p.plateSmoother.Forget(id)
		p.plates.Forget(id)
		p.wrongWay.Forget(id)
		p.speed.Forget(id)
		if p.emergency.Retire(id) {
			if storeID, ok := p.emergencyIDs[id]; ok {
				if p.st != nil {
					if err := p.st.CloseEmergency(storeID); err != nil {
						monitoring.Logf("junction %d: close emergency %s: %v", p.params.Junction, storeID, err)
					}
				}
				delete(p.emergencyIDs, id)
			}
		}
	}
}

// syncTelemetry writes one traffic sample when the log interval elapsed.
// Failures are logged and the write is retried on the next interval.
func (p *Pipeline) syncTelemetry(report FrameReport, speedSum float64) {
	if p.st == nil {
		return
	}
	now := p.now()
	if !p.lastLog.IsZero() && now.Sub(p.lastLog) < p.params.LogInterval {
		return
	}

	congestion := "Low"
	if report.Density > p.params.Policy.HighDensity {
		congestion = "High"
	}
	var avgSpeed float64
	if report.Density > 0 {
		avgSpeed = speedSum / float64(report.Density)
	}

	if err := p.st.LogTraffic(p.params.Junction, report.Density, congestion, avgSpeed); err != nil {
		monitoring.Logf("junction %d: telemetry sync: %v", p.params.Junction, err)
		return
	}
	p.lastLog = now
}
