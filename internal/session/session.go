// Package session runs the monitoring pipeline: a worker pulls frames from
// a source, sends them through the perception service, and applies the
// staged results to the shared safety aggregates. At most one session is
// active at a time; consumers read the aggregates through snapshots.
package session

import (
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/watchher/monitoring-server/internal/journal"
	"github.com/watchher/monitoring-server/internal/logger"
	"github.com/watchher/monitoring-server/internal/metrics"
	"github.com/watchher/monitoring-server/internal/safety"
	"github.com/watchher/monitoring-server/internal/source"
	"github.com/watchher/monitoring-server/internal/vision"
	"github.com/watchher/monitoring-server/pkg/types"
)

// Config holds the pipeline tunables.
type Config struct {
	CellSize         int
	HistoryCapacity  int
	TargetFPS        int
	ProcessingWidth  int
	ProcessingHeight int
	DisplayWidth     int
	DisplayHeight    int
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		CellSize:         safety.DefaultCellSize,
		HistoryCapacity:  1000,
		TargetFPS:        30,
		ProcessingWidth:  640,
		ProcessingHeight: 480,
		DisplayWidth:     800,
		DisplayHeight:    600,
	}
}

// Session is one monitoring run over a single frame source. The worker
// stops only at frame boundaries, so a stopping session never leaves a
// frame half-applied.
type Session struct {
	ID        string
	StartedAt time.Time

	cfg      Config
	src      source.Source
	analyzer vision.Analyzer
	agg      *aggregates
	journal  *journal.Journal
	frames   *FrameBroadcaster
	metrics  *metrics.Metrics

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSession(cfg Config, src source.Source, analyzer vision.Analyzer, agg *aggregates, jnl *journal.Journal, frames *FrameBroadcaster, m *metrics.Metrics) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		cfg:       cfg,
		src:       src,
		analyzer:  analyzer,
		agg:       agg,
		journal:   jnl,
		frames:    frames,
		metrics:   m,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Session) start() {
	go s.run()
}

// Stop signals the worker, waits for it to finish the current frame, and
// releases the source. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	defer func() {
		if err := s.src.Close(); err != nil {
			logger.Warn("Session", "close source: %v", err)
		}
	}()

	fps := s.cfg.TargetFPS
	if fps <= 0 {
		fps = DefaultConfig().TargetFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	logger.Info("Session", "monitoring started (session %s)", s.ID)

	for {
		select {
		case <-s.stop:
			logger.Info("Session", "monitoring stopped (session %s)", s.ID)
			return
		case <-ticker.C:
			s.processFrame()
		}
	}
}

// processFrame runs one pipeline iteration. Any failure before the apply
// phase discards the frame without touching the aggregates; the apply phase
// itself cannot fail.
func (s *Session) processFrame() {
	start := time.Now()

	frame, err := s.src.Read()
	if err != nil {
		logger.Warn("Session", "source read: %v", err)
		s.metrics.SourceErrors.Add(1)
		return
	}

	img := frame.Image
	if s.src.Mirrored() {
		img = imaging.FlipH(img)
	}

	proc := imaging.Resize(img, s.cfg.ProcessingWidth, s.cfg.ProcessingHeight, imaging.Linear)

	result, err := s.analyzer.Analyze(proc)
	if err != nil {
		logger.Warn("Session", "frame %d analysis: %v", frame.Number, err)
		s.metrics.InferenceErrors.Add(1)
		s.metrics.FramesDiscarded.Add(1)
		return
	}

	// Stage everything derived from the result before applying any of it.
	scaleX := float64(s.cfg.DisplayWidth) / float64(s.cfg.ProcessingWidth)
	scaleY := float64(s.cfg.DisplayHeight) / float64(s.cfg.ProcessingHeight)

	people := scaleDetections(result.People, scaleX, scaleY)
	weapons := scaleDetections(result.Weapons, scaleX, scaleY)
	detections := make([]types.Detection, 0, len(people)+len(weapons))
	detections = append(detections, people...)
	detections = append(detections, weapons...)

	assessment := result.Assessment
	threat := assessment.OverallThreatLevel
	if !threat.Valid() {
		threat = types.ThreatSafe
		assessment.OverallThreatLevel = threat
	}

	women := 0
	for _, det := range people {
		if det.IsProtected {
			women++
		}
	}

	event := types.RiskEvent{
		Timestamp:    frame.Timestamp,
		ThreatLevel:  threat,
		WomenCount:   women,
		SafetyAlerts: assessment.LoneWomen + assessment.SurroundedWomen + assessment.WomenInDanger,
	}

	// Apply phase: one lock acquisition covers all three aggregates, so
	// no reader sees this frame in one view but not another.
	zoneCount := s.agg.applyFrame(detections, assessment, event, s.cfg.DisplayWidth, s.cfg.DisplayHeight)
	s.journal.Record(event)

	s.logSignificantEvents(assessment)

	s.metrics.FramesProcessed.Add(1)
	s.metrics.WomenMonitored.Add(uint64(women))
	s.metrics.SafetyAlerts.Add(uint64(assessment.AlertCount()))
	s.metrics.RiskZoneCells.Store(uint64(zoneCount))
	s.metrics.ThreatLevelRank.Store(uint64(threat.Rank()))
	s.metrics.UpdateFrameLatency(start)

	// Annotation is only worth the cost when someone is streaming.
	if s.frames.ClientCount() > 0 {
		annotated := &vision.Result{People: people, Weapons: weapons, Assessment: assessment}
		jpg, err := annotateFrame(img, s.cfg.DisplayWidth, s.cfg.DisplayHeight, annotated, frame.Number, frame.Timestamp)
		if err != nil {
			logger.Warn("Session", "annotate frame %d: %v", frame.Number, err)
			return
		}
		s.frames.Publish(jpg)
	}
}

func scaleDetections(dets []types.Detection, sx, sy float64) []types.Detection {
	scaled := make([]types.Detection, len(dets))
	for i, det := range dets {
		det.BBox = det.BBox.Scale(sx, sy)
		scaled[i] = det
	}
	return scaled
}

func (s *Session) logSignificantEvents(a types.SafetyAssessment) {
	switch {
	case a.WomenInDanger > 0:
		logger.Error("Session", "CRITICAL: %d women in immediate danger", a.WomenInDanger)
	case a.SurroundedWomen > 0:
		logger.Warn("Session", "ALERT: %d women surrounded", a.SurroundedWomen)
	case a.DistressSignals > 0:
		logger.Warn("Session", "DISTRESS: %d distress signals", a.DistressSignals)
	case a.LoneWomen > 0:
		logger.Info("Session", "%d women alone", a.LoneWomen)
	}
}
