// Package export builds and persists the JSON heatmap export document and
// the derived safety report. Documents are assembled from aggregate
// snapshots, so a failed write never disturbs session state.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/watchher/monitoring-server/internal/safety"
	"github.com/watchher/monitoring-server/pkg/types"
)

// ErrNoData is returned when an export is requested before any risk
// contribution has been recorded.
var ErrNoData = errors.New("no heatmap data to export")

// Metadata describes the monitoring run the document was taken from.
type Metadata struct {
	ExportTime         time.Time `json:"export_time"`
	TotalFrames        int       `json:"total_frames"`
	MonitoringDuration float64   `json:"monitoring_duration"`
	GridSize           int       `json:"grid_size"`
}

// Statistics is the cumulative-counter section of the document.
type Statistics struct {
	WomenMonitored           int `json:"women_monitored"`
	SafetyAlerts             int `json:"safety_alerts"`
	LoneWomenIncidents       int `json:"lone_women_incidents"`
	SurroundedWomenIncidents int `json:"surrounded_women_incidents"`
	DistressSignals          int `json:"distress_signals"`
}

// Document is the full heatmap export: run metadata, the sparse risk grid
// keyed "gx,gy", the cumulative statistics, and the recent event history
// oldest first.
type Document struct {
	Metadata         Metadata          `json:"metadata"`
	RiskZones        map[string]int    `json:"risk_zones"`
	SafetyStatistics Statistics        `json:"safety_statistics"`
	RiskHistory      []types.RiskEvent `json:"risk_history"`
}

// BuildDocument assembles an export document from aggregate snapshots.
func BuildDocument(zones safety.RiskZoneMap, stats safety.StatisticsSnapshot, history []types.RiskEvent, gridSize int) *Document {
	riskZones := make(map[string]int, len(zones))
	for cell, score := range zones {
		riskZones[cell.Key()] = score
	}

	return &Document{
		Metadata: Metadata{
			ExportTime:         time.Now(),
			TotalFrames:        stats.FramesProcessed,
			MonitoringDuration: stats.ElapsedSeconds,
			GridSize:           gridSize,
		},
		RiskZones: riskZones,
		SafetyStatistics: Statistics{
			WomenMonitored:           stats.WomenMonitored,
			SafetyAlerts:             stats.SafetyAlerts,
			LoneWomenIncidents:       stats.LoneIncidents,
			SurroundedWomenIncidents: stats.SurroundedIncidents,
			DistressSignals:          stats.DistressSignals,
		},
		RiskHistory: history,
	}
}

// Exporter writes export documents to a directory on disk.
type Exporter struct {
	dir string
}

// NewExporter ensures the export directory exists.
func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Dir returns the export directory path.
func (e *Exporter) Dir() string {
	return e.dir
}

// Write persists the document as indented JSON and returns the file name
// within the export directory. An empty document is rejected with ErrNoData.
func (e *Exporter) Write(doc *Document) (string, error) {
	if len(doc.RiskZones) == 0 {
		return "", ErrNoData
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	name := fmt.Sprintf("watchher_heatmap_%s_%s.json",
		doc.Metadata.ExportTime.Format("20060102_150405"),
		uuid.NewString()[:8])

	if err := os.WriteFile(filepath.Join(e.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return name, nil
}

// List returns the export file names in the directory, sorted by name. The
// timestamped naming makes that chronological order.
func (e *Exporter) List() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
