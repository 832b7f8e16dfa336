// Package api exposes the junction state over HTTP and WebSocket: latest
// frame reports, persisted violations and emergency intervals, consolidated
// plate read-outs and a live report stream.
package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"mobility/pipeline"
	"mobility/smooth"
	"mobility/store"
)

// PlateReader resolves the best plate read-out for a track. *pipeline.Pipeline
// satisfies it.
type PlateReader interface {
	BestPlate(trackID int) smooth.PlateRecord
}

// Server serves the REST and WebSocket API. st may be nil; the persistence
// endpoints then answer 503.
type Server struct {
	st  *store.Store
	hub *Hub

	mu     sync.RWMutex
	latest map[int]pipeline.FrameReport
	plates map[int]PlateReader
}

// NewServer creates a server around the store and hub.
func NewServer(st *store.Store, hub *Hub) *Server {
	return &Server{
		st:     st,
		hub:    hub,
		latest: make(map[int]pipeline.FrameReport),
		plates: make(map[int]PlateReader),
	}
}

// RegisterJunction attaches the plate source for a junction.
func (s *Server) RegisterJunction(junction int, plates PlateReader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plates[junction] = plates
}

// Publish records the latest report for its junction and streams it to
// WebSocket subscribers.
func (s *Server) Publish(report pipeline.FrameReport) {
	s.mu.Lock()
	s.latest[report.Junction] = report
	s.mu.Unlock()
	s.hub.BroadcastReport(report)
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	apiRoutes := r.Group("/api")
	apiRoutes.GET("/status", s.handleStatus)
	apiRoutes.GET("/junctions/:id/violations", s.handleViolations)
	apiRoutes.GET("/junctions/:id/emergencies", s.handleEmergencies)
	apiRoutes.GET("/junctions/:id/plates/:track", s.handlePlate)

	r.GET("/ws/junctions/:id", gin.WrapF(s.hub.ServeWS))

	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.RLock()
	junctions := make([]pipeline.FrameReport, 0, len(s.latest))
	for _, report := range s.latest {
		junctions = append(junctions, report)
	}
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"junctions": junctions,
		"clients":   s.hub.ClientCount(),
	})
}

func (s *Server) handleViolations(c *gin.Context) {
	if s.st == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	junction, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			c.Status(http.StatusBadRequest)
			return
		}
	}

	violations, err := s.st.RecentViolations(junction, limit)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if violations == nil {
		violations = []store.Violation{}
	}
	c.JSON(http.StatusOK, violations)
}

func (s *Server) handleEmergencies(c *gin.Context) {
	if s.st == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	junction, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	active, err := s.st.ActiveEmergencies(junction)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if active == nil {
		active = []store.Emergency{}
	}
	c.JSON(http.StatusOK, active)
}

func (s *Server) handlePlate(c *gin.Context) {
	junction, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	track, err := strconv.Atoi(c.Param("track"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	plates, ok := s.plates[junction]
	s.mu.RUnlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	rec := plates.BestPlate(track)
	c.JSON(http.StatusOK, gin.H{
		"track_id": track,
		"plate":    rec.Text,
		"score":    rec.Score,
		"known":    rec.Text != smooth.UnknownPlate,
	})
}
