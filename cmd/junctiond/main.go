// junctiond reads per-frame detection batches as JSON lines on stdin,
// runs the tracking and decision pipeline for each junction and writes the
// annotated line back to stdout. With HTTP enabled it also serves the REST
// and WebSocket API.
//
// Input line format:
//
//	{"junction_id": 1,
//	 "detections": [{"class": 2, "score": 0.91, "bbox": [x1, y1, x2, y2]}, ...],
//	 "plates": [{"bbox": [x1, y1, x2, y2], "text": "AB12CDE", "score": 0.77}, ...]}
//
// Lines without a junction_id fall back to the configured junction.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"math"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"mobility/api"
	"mobility/config"
	"mobility/internal/monitoring"
	"mobility/mot"
	"mobility/pipeline"
	"mobility/rules"
	"mobility/store"
)

var configPath = flag.String("config", "config.yaml", "Path to the YAML config file")

// COCO class ids tracked as vehicles: car, motorcycle, bus, truck.
var vehicleClasses = map[int64]bool{2: true, 3: true, 5: true, 7: true}

type daemon struct {
	cfg       config.Config
	st        *store.Store
	srv       *api.Server
	pipelines map[int]*pipeline.Pipeline
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	d := &daemon{
		cfg:       cfg,
		st:        st,
		pipelines: make(map[int]*pipeline.Pipeline),
	}

	if cfg.HTTP.Enabled {
		d.srv = api.NewServer(st, api.NewHub())
		go func() {
			if err := d.srv.Router().Run(cfg.HTTP.Addr); err != nil {
				log.Fatalf("http server: %v", err)
			}
		}()
	}

	s := bufio.NewScanner(os.Stdin)
	bufsize := 10 << 20
	s.Buffer(make([]byte, bufsize), bufsize)
	for s.Scan() {
		fmt.Println(d.processLine(s.Text()))
	}
	if err := s.Err(); err != nil {
		log.Fatalf("read stdin: %v", err)
	}
}

// pipelineFor returns the pipeline owning the junction, creating it on first
// sight.
func (d *daemon) pipelineFor(junction int) *pipeline.Pipeline {
	if p, ok := d.pipelines[junction]; ok {
		return p
	}

	params := pipeline.Params{
		Junction:       junction,
		MaxAge:         d.cfg.Tracker.MaxAge,
		MinHits:        d.cfg.Tracker.MinHits,
		IOUThreshold:   d.cfg.Tracker.IOUThreshold,
		Assigner:       mot.MunkresAssigner{},
		CarWindow:      d.cfg.Tracker.CarWindow,
		PlateWindow:    d.cfg.Tracker.PlateWindow,
		PixelsPerMeter: d.cfg.Junction.PixelsPerMeter,
		FPS:            d.cfg.Junction.FPS,
		Emergency:      rules.DefaultEmergencyConfig(),
		Policy: rules.SignalPolicy{
			StandardGreen: d.cfg.Rules.StandardGreen,
			MinGreen:      d.cfg.Rules.MinGreen,
			MaxGreen:      d.cfg.Rules.MaxGreen,
			HighDensity:   d.cfg.Rules.HighDensity,
			LowDensity:    d.cfg.Rules.LowDensity,
		},
		LogInterval: d.cfg.Rules.LogInterval,
	}
	p := pipeline.New(params, d.st)
	d.pipelines[junction] = p
	if d.srv != nil {
		d.srv.RegisterJunction(junction, p)
	}
	return p
}

// plateRead is one plate detection with its OCR read-out from the input line.
type plateRead struct {
	box   mot.Rect
	text  string
	score float64
}

// processLine runs one frame through its junction pipeline and returns the
// line with the frame report attached under "report".
func (d *daemon) processLine(line string) string {
	parsed := gjson.Parse(line)

	junction := d.cfg.Junction.ID
	if id := parsed.Get("junction_id"); id.Exists() {
		junction = int(id.Int())
	}

	var vehicles []mot.Detection
	parsed.Get("detections").ForEach(func(_, item gjson.Result) bool {
		if !vehicleClasses[item.Get("class").Int()] {
			return true
		}
		box, ok := parseBBox(item.Get("bbox"))
		if !ok {
			return true
		}
		vehicles = append(vehicles, mot.Detection{
			Box:     box,
			Score:   item.Get("score").Float(),
			ClassID: int(item.Get("class").Int()),
		})
		return true
	})

	var plates []mot.Detection
	var reads []plateRead
	parsed.Get("plates").ForEach(func(_, item gjson.Result) bool {
		box, ok := parseBBox(item.Get("bbox"))
		if !ok {
			return true
		}
		plates = append(plates, mot.Detection{Box: box, Score: item.Get("score").Float()})
		reads = append(reads, plateRead{
			box:   box,
			text:  item.Get("text").String(),
			score: item.Get("score").Float(),
		})
		return true
	})

	p := d.pipelineFor(junction)
	report := p.ProcessFrame(nil, vehicles, plates, ocrFromReads(reads))
	if d.srv != nil {
		d.srv.Publish(report)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		monitoring.Logf("junction %d: marshal report: %v", junction, err)
		return line
	}
	out, err := sjson.SetRaw(line, "report", string(raw))
	if err != nil {
		monitoring.Logf("junction %d: annotate line: %v", junction, err)
		return line
	}
	return out
}

// ocrFromReads resolves the read-out for a smoothed plate box by nearest
// detection center. Texts that do not normalize to a valid plate are dropped.
func ocrFromReads(reads []plateRead) pipeline.OCRFunc {
	if len(reads) == 0 {
		return nil
	}
	return func(_ image.Image, box mot.Rect) (string, float64, bool) {
		read, ok := nearestRead(reads, box)
		if !ok {
			return "", 0, false
		}
		text, ok := pipeline.NormalizePlate(read.text)
		if !ok {
			return "", 0, false
		}
		return text, read.score, true
	}
}

func parseBBox(raw gjson.Result) (mot.Rect, bool) {
	var coords []float64
	raw.ForEach(func(_, value gjson.Result) bool {
		coords = append(coords, value.Float())
		return true
	})
	if len(coords) != 4 {
		return mot.Rect{}, false
	}
	r := mot.NewRect(coords[0], coords[1], coords[2], coords[3])
	if !r.IsFinite() {
		return mot.Rect{}, false
	}
	return r, true
}

func nearestRead(reads []plateRead, box mot.Rect) (plateRead, bool) {
	best := -1
	bestDist := math.Inf(1)
	center := box.Center()
	for i, r := range reads {
		c := r.box.Center()
		d := math.Hypot(c.X-center.X, c.Y-center.Y)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return plateRead{}, false
	}
	return reads[best], true
}
