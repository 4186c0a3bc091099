package session

import (
	"sync"

	"github.com/watchher/monitoring-server/internal/safety"
	"github.com/watchher/monitoring-server/pkg/types"
)

// aggregates bundles the shared safety state behind one mutex. A frame's
// contribution lands in statistics, zones, and history as a unit, and a
// composite snapshot always describes the same set of frames.
type aggregates struct {
	mu      sync.Mutex
	zones   *safety.RiskZoneAggregator
	history *safety.EventHistory
	stats   *safety.StatisticsCounter
}

func newAggregates(cellSize, historyCapacity int) *aggregates {
	return &aggregates{
		zones:   safety.NewRiskZoneAggregator(cellSize),
		history: safety.NewEventHistory(historyCapacity),
		stats:   safety.NewStatisticsCounter(),
	}
}

// applyFrame records one processed frame in all three aggregates under a
// single lock acquisition. Returns the risk cell count for the metrics
// gauge.
func (a *aggregates) applyFrame(detections []types.Detection, assessment types.SafetyAssessment, event types.RiskEvent, frameWidth, frameHeight int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Update(detections, assessment)
	a.stats.AddFrame()
	a.zones.Update(detections, assessment, frameWidth, frameHeight)
	a.history.Append(event)
	return a.zones.Len()
}

// snapshot captures all three views together.
func (a *aggregates) snapshot() (safety.RiskZoneMap, safety.StatisticsSnapshot, []types.RiskEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.zones.Snapshot(), a.stats.Snapshot(), a.history.Snapshot()
}

// statusView returns the statistics snapshot and the risk cell count as
// one consistent pair.
func (a *aggregates) statusView() (safety.StatisticsSnapshot, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.Snapshot(), a.zones.Len()
}

func (a *aggregates) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zones.Clear()
	a.history.Clear()
	a.stats.Reset()
}
