// Package safety holds the aggregate state built from per-frame inference
// results: the spatial risk map, the rolling event history, and the
// cumulative monitoring statistics. Aggregates are written by the session
// worker and read through snapshot copies everywhere else.
package safety

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/watchher/monitoring-server/pkg/types"
)

// DefaultCellSize is the grid cell edge in pixels of the processing frame.
const DefaultCellSize = 50

// Risk contributions per detection and per-frame ambient broadcast.
const (
	riskBase          = 1
	riskProtected     = 2
	riskHarmfulObject = 10
	broadcastHigh     = 2
	broadcastCritical = 5
)

// Cell identifies one grid cell by integer division of the detection center
// by the cell size.
type Cell struct {
	GX int
	GY int
}

// Key returns the "<gx>,<gy>" form used in export documents.
func (c Cell) Key() string {
	return strconv.Itoa(c.GX) + "," + strconv.Itoa(c.GY)
}

// ParseCellKey parses a "<gx>,<gy>" key back into a Cell.
func ParseCellKey(key string) (Cell, error) {
	gx, gy, ok := strings.Cut(key, ",")
	if !ok {
		return Cell{}, fmt.Errorf("invalid cell key: %q", key)
	}
	x, err := strconv.Atoi(gx)
	if err != nil {
		return Cell{}, fmt.Errorf("invalid cell key: %q", key)
	}
	y, err := strconv.Atoi(gy)
	if err != nil {
		return Cell{}, fmt.Errorf("invalid cell key: %q", key)
	}
	return Cell{GX: x, GY: y}, nil
}

// RiskZoneMap is a point-in-time copy of the accumulated scores.
type RiskZoneMap map[Cell]int

// Max returns the highest score in the map. ok is false for an empty map,
// so "no data" is distinguishable from a zero score.
func (m RiskZoneMap) Max() (score int, ok bool) {
	for _, v := range m {
		if !ok || v > score {
			score = v
			ok = true
		}
	}
	return score, ok
}

// Total returns the sum of all scores.
func (m RiskZoneMap) Total() int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// Average returns the mean score per cell, 0 for an empty map.
func (m RiskZoneMap) Average() float64 {
	if len(m) == 0 {
		return 0
	}
	return float64(m.Total()) / float64(len(m))
}

// CountAbove returns the number of cells with a score strictly greater than
// the threshold.
func (m RiskZoneMap) CountAbove(threshold int) int {
	n := 0
	for _, v := range m {
		if v > threshold {
			n++
		}
	}
	return n
}

// RiskZoneAggregator accumulates risk scores on a sparse, unbounded grid.
// Scores only ever grow until Clear.
type RiskZoneAggregator struct {
	mu       sync.Mutex
	cellSize int
	zones    map[Cell]int
}

// NewRiskZoneAggregator creates an empty aggregator. A non-positive cell
// size falls back to DefaultCellSize.
func NewRiskZoneAggregator(cellSize int) *RiskZoneAggregator {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &RiskZoneAggregator{
		cellSize: cellSize,
		zones:    make(map[Cell]int),
	}
}

// CellSize returns the configured grid cell edge in pixels.
func (a *RiskZoneAggregator) CellSize() int {
	return a.cellSize
}

// Contribution returns the risk added by a single detection.
func Contribution(det types.Detection) int {
	risk := riskBase
	if det.IsProtected {
		risk += riskProtected
	}
	if det.HasHarmfulObject {
		risk += riskHarmfulObject
	}
	return risk
}

// Update applies one frame's contributions: per-detection scores at the
// detection centers, plus a flat broadcast over the frame's visible grid
// extent when the overall threat is HIGH or CRITICAL. The broadcast applies
// every frame the condition holds; it is cumulative, not a one-shot event.
func (a *RiskZoneAggregator) Update(detections []types.Detection, assessment types.SafetyAssessment, frameWidth, frameHeight int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, det := range detections {
		cx, cy := det.BBox.Center()
		cell := Cell{GX: cx / a.cellSize, GY: cy / a.cellSize}
		a.zones[cell] += Contribution(det)
	}

	var ambient int
	switch assessment.OverallThreatLevel {
	case types.ThreatHigh:
		ambient = broadcastHigh
	case types.ThreatCritical:
		ambient = broadcastCritical
	default:
		return
	}

	// The extent is anchored at the grid origin, not at any detection.
	// A panning camera re-broadcasts over the same cells.
	for gx := 0; gx < frameWidth/a.cellSize; gx++ {
		for gy := 0; gy < frameHeight/a.cellSize; gy++ {
			a.zones[Cell{GX: gx, GY: gy}] += ambient
		}
	}
}

// Clear resets the map to empty.
func (a *RiskZoneAggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zones = make(map[Cell]int)
}

// Snapshot returns a copy of the current map, safe for concurrent use.
func (a *RiskZoneAggregator) Snapshot() RiskZoneMap {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := make(RiskZoneMap, len(a.zones))
	for cell, score := range a.zones {
		snap[cell] = score
	}
	return snap
}

// Max returns the current maximum score; ok is false when the map is empty.
func (a *RiskZoneAggregator) Max() (score int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, v := range a.zones {
		if !ok || v > score {
			score = v
			ok = true
		}
	}
	return score, ok
}

// Len returns the number of cells with at least one contribution.
func (a *RiskZoneAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.zones)
}
