package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/watchher/monitoring-server/pkg/types"
)

func TestStatisticsAccumulation(t *testing.T) {
	s := NewStatisticsCounter()

	dets := []types.Detection{
		{ClassName: "person", IsProtected: true},
		{ClassName: "person"},
		{ClassName: "person", IsProtected: true},
	}
	s.Update(dets, types.SafetyAssessment{
		LoneWomen:          1,
		SurroundedWomen:    2,
		WomenInDanger:      1,
		DistressSignals:    1,
		OverallThreatLevel: types.ThreatHigh,
	})
	s.Update(nil, types.SafetyAssessment{
		LoneWomen:          1,
		OverallThreatLevel: types.ThreatLow,
	})

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.WomenMonitored)
	assert.Equal(t, 2, snap.LoneIncidents)
	assert.Equal(t, 2, snap.SurroundedIncidents)
	assert.Equal(t, 1, snap.DistressSignals)
	// 1+2+1+1 from the first frame, +1 from the second.
	assert.Equal(t, 6, snap.SafetyAlerts)
	// Threat level is last-write-wins, not the maximum seen.
	assert.Equal(t, types.ThreatLow, snap.ThreatLevel)
}

func TestStatisticsInvalidThreatKeepsPrevious(t *testing.T) {
	s := NewStatisticsCounter()
	s.Update(nil, types.SafetyAssessment{OverallThreatLevel: types.ThreatCritical})
	s.Update(nil, types.SafetyAssessment{OverallThreatLevel: types.ThreatLevel("BOGUS")})

	assert.Equal(t, types.ThreatCritical, s.Snapshot().ThreatLevel)
}

func TestStatisticsRateGuard(t *testing.T) {
	s := NewStatisticsCounter()
	// Force zero elapsed time; the rate must not divide by zero.
	s.startTime = time.Now().Add(time.Hour)
	s.framesProcessed = 100
	assert.Zero(t, s.Rate())

	assert.Zero(t, rate(10, 0))
	assert.Zero(t, rate(10, -time.Second))
	assert.InDelta(t, 5.0, rate(10, 2*time.Second), 1e-9)
}

func TestStatisticsFrameCountAndReset(t *testing.T) {
	s := NewStatisticsCounter()
	for i := 0; i < 7; i++ {
		s.AddFrame()
	}
	assert.Equal(t, 7, s.Snapshot().FramesProcessed)

	s.Reset()
	snap := s.Snapshot()
	assert.Zero(t, snap.FramesProcessed)
	assert.Zero(t, snap.WomenMonitored)
	assert.Zero(t, snap.SafetyAlerts)
	assert.Equal(t, types.ThreatSafe, snap.ThreatLevel)
}
