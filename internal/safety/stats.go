package safety

import (
	"sync"
	"time"

	"github.com/watchher/monitoring-server/pkg/types"
)

// StatisticsSnapshot is a point-in-time copy of the cumulative counters.
// Counter fields only ever increase; ThreatLevel is last-write-wins per frame.
type StatisticsSnapshot struct {
	WomenMonitored       int               `json:"women_monitored"`
	SafetyAlerts         int               `json:"safety_alerts"`
	LoneIncidents        int               `json:"lone_women_incidents"`
	SurroundedIncidents  int               `json:"surrounded_women_incidents"`
	DistressSignals      int               `json:"distress_signals"`
	FramesProcessed      int               `json:"frames_processed"`
	ElapsedSeconds       float64           `json:"elapsed_seconds"`
	FrameRate            float64           `json:"frame_rate"`
	ThreatLevel          types.ThreatLevel `json:"threat_level"`
}

// StatisticsCounter accumulates monitoring statistics across a session.
type StatisticsCounter struct {
	mu        sync.Mutex
	startTime time.Time

	womenMonitored      int
	safetyAlerts        int
	loneIncidents       int
	surroundedIncidents int
	distressSignals     int
	framesProcessed     int
	threatLevel         types.ThreatLevel
}

// NewStatisticsCounter creates a counter with its clock started now.
func NewStatisticsCounter() *StatisticsCounter {
	return &StatisticsCounter{
		startTime:   time.Now(),
		threatLevel: types.ThreatSafe,
	}
}

// Update applies one frame's assessment and detections: protected-category
// detections count toward womenMonitored, the assessment's incident counts
// accumulate, and the threat level is overwritten with the frame's value.
func (s *StatisticsCounter) Update(detections []types.Detection, assessment types.SafetyAssessment) {
	women := 0
	for _, det := range detections {
		if det.IsProtected {
			women++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.womenMonitored += women
	s.loneIncidents += assessment.LoneWomen
	s.surroundedIncidents += assessment.SurroundedWomen
	s.distressSignals += assessment.DistressSignals
	s.safetyAlerts += assessment.AlertCount()
	if assessment.OverallThreatLevel.Valid() {
		s.threatLevel = assessment.OverallThreatLevel
	}
}

// AddFrame increments the processed-frame counter.
func (s *StatisticsCounter) AddFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesProcessed++
}

// Rate returns frames processed per elapsed wall-clock second, 0 when no
// time has passed.
func (s *StatisticsCounter) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rate(s.framesProcessed, time.Since(s.startTime))
}

// Elapsed returns the wall-clock time since the counter started.
func (s *StatisticsCounter) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.startTime)
}

// Snapshot returns a copy of the current statistics.
func (s *StatisticsCounter) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.startTime)
	return StatisticsSnapshot{
		WomenMonitored:      s.womenMonitored,
		SafetyAlerts:        s.safetyAlerts,
		LoneIncidents:       s.loneIncidents,
		SurroundedIncidents: s.surroundedIncidents,
		DistressSignals:     s.distressSignals,
		FramesProcessed:     s.framesProcessed,
		ElapsedSeconds:      elapsed.Seconds(),
		FrameRate:           rate(s.framesProcessed, elapsed),
		ThreatLevel:         s.threatLevel,
	}
}

// Reset zeroes every counter and restarts the clock.
func (s *StatisticsCounter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startTime = time.Now()
	s.womenMonitored = 0
	s.safetyAlerts = 0
	s.loneIncidents = 0
	s.surroundedIncidents = 0
	s.distressSignals = 0
	s.framesProcessed = 0
	s.threatLevel = types.ThreatSafe
}

func rate(frames int, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(frames) / secs
}
