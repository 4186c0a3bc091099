package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchher/monitoring-server/internal/safety"
	"github.com/watchher/monitoring-server/pkg/types"
)

func sampleZones() safety.RiskZoneMap {
	return safety.RiskZoneMap{
		{GX: 0, GY: 0}:  3,
		{GX: 4, GY: 7}:  15,
		{GX: 12, GY: 2}: 11,
	}
}

func sampleStats() safety.StatisticsSnapshot {
	return safety.StatisticsSnapshot{
		WomenMonitored:      42,
		SafetyAlerts:        6,
		LoneIncidents:       3,
		SurroundedIncidents: 2,
		DistressSignals:     1,
		FramesProcessed:     900,
		ElapsedSeconds:      30,
		FrameRate:           30,
		ThreatLevel:         types.ThreatHigh,
	}
}

func TestBuildDocumentCoversEveryZone(t *testing.T) {
	history := []types.RiskEvent{
		{Timestamp: time.Now(), ThreatLevel: types.ThreatHigh, WomenCount: 2, SafetyAlerts: 1},
	}

	doc := BuildDocument(sampleZones(), sampleStats(), history, 50)

	require.Len(t, doc.RiskZones, 3)
	assert.Equal(t, 3, doc.RiskZones["0,0"])
	assert.Equal(t, 15, doc.RiskZones["4,7"])
	assert.Equal(t, 11, doc.RiskZones["12,2"])

	assert.Equal(t, 900, doc.Metadata.TotalFrames)
	assert.Equal(t, 30.0, doc.Metadata.MonitoringDuration)
	assert.Equal(t, 50, doc.Metadata.GridSize)
	assert.Equal(t, 42, doc.SafetyStatistics.WomenMonitored)
	assert.Equal(t, 6, doc.SafetyStatistics.SafetyAlerts)
	require.Len(t, doc.RiskHistory, 1)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := BuildDocument(sampleZones(), sampleStats(), nil, 50)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, doc.RiskZones, decoded.RiskZones)
	assert.Equal(t, doc.SafetyStatistics, decoded.SafetyStatistics)

	// Every key parses back to a valid cell.
	for key := range decoded.RiskZones {
		_, err := safety.ParseCellKey(key)
		assert.NoError(t, err, "key %q", key)
	}
}

func TestExporterWriteAndList(t *testing.T) {
	dir := t.TempDir()
	e, err := NewExporter(dir)
	require.NoError(t, err)

	doc := BuildDocument(sampleZones(), sampleStats(), nil, 50)
	name, err := e.Write(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "watchher_heatmap_"))
	assert.True(t, strings.HasSuffix(name, ".json"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, doc.RiskZones, decoded.RiskZones)

	names, err := e.List()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)
}

func TestExporterRejectsEmptyDocument(t *testing.T) {
	e, err := NewExporter(t.TempDir())
	require.NoError(t, err)

	doc := BuildDocument(safety.RiskZoneMap{}, sampleStats(), nil, 50)
	_, err = e.Write(doc)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestExporterWriteFailure(t *testing.T) {
	dir := t.TempDir()
	e, err := NewExporter(dir)
	require.NoError(t, err)

	// Remove the directory out from under the exporter.
	require.NoError(t, os.RemoveAll(dir))

	doc := BuildDocument(sampleZones(), sampleStats(), nil, 50)
	_, err = e.Write(doc)
	assert.Error(t, err)

	// The document itself is untouched and can be retried.
	assert.Len(t, doc.RiskZones, 3)
}

func TestBuildReportDerivations(t *testing.T) {
	report := BuildReport(sampleZones(), sampleStats())

	// Scores 3, 15, 11: two cells strictly above 10.
	assert.Equal(t, 2, report.RiskAnalysis.HighRiskZones)
	assert.Equal(t, 3, report.RiskAnalysis.TotalRiskZones)
	assert.InDelta(t, 29.0/3.0, report.RiskAnalysis.AverageRiskLevel, 1e-9)
	assert.Equal(t, types.ThreatHigh, report.SafetyStatistics.CurrentThreatLevel)
	assert.Equal(t, 900, report.FramesProcessed)
}

func TestBuildReportEmptyZones(t *testing.T) {
	report := BuildReport(safety.RiskZoneMap{}, sampleStats())

	assert.Equal(t, 0, report.RiskAnalysis.HighRiskZones)
	assert.Equal(t, 0, report.RiskAnalysis.TotalRiskZones)
	assert.Equal(t, 0.0, report.RiskAnalysis.AverageRiskLevel)
}

func TestReportText(t *testing.T) {
	text := BuildReport(sampleZones(), sampleStats()).Text()

	assert.Contains(t, text, "WatchHer - Women's Safety Monitoring Report")
	assert.Contains(t, text, "SAFETY STATISTICS")
	assert.Contains(t, text, "RISK ANALYSIS")
	assert.Contains(t, text, "RECOMMENDATIONS")
	assert.Contains(t, text, "Total Women Monitored: 42")
	assert.Contains(t, text, "High Risk Zones: 2")
	assert.Contains(t, text, "Average Risk Level: 9.67")
	assert.Contains(t, text, "Current Threat Level: HIGH")
	// 30 seconds of monitoring.
	assert.Contains(t, text, "Monitoring Duration: 0.01 hours")
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	e, err := NewExporter(dir)
	require.NoError(t, err)

	report := BuildReport(sampleZones(), sampleStats())
	name, err := e.WriteReport(report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "watchher_report_"))
	assert.True(t, strings.HasSuffix(name, ".txt"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, report.Text(), string(data))

	// Saved reports do not show up in the heatmap document listing.
	names, err := e.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
