package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/watchher/monitoring-server/internal/safety"
	"github.com/watchher/monitoring-server/pkg/types"
)

// A cell is a high-risk zone once its score passes this.
const highRiskThreshold = 10

// ReportStatistics is the statistics section of a safety report.
type ReportStatistics struct {
	WomenMonitored           int               `json:"women_monitored"`
	TotalSafetyAlerts        int               `json:"total_safety_alerts"`
	LoneWomenIncidents       int               `json:"lone_women_incidents"`
	SurroundedWomenIncidents int               `json:"surrounded_women_incidents"`
	DistressSignalsDetected  int               `json:"distress_signals_detected"`
	CurrentThreatLevel       types.ThreatLevel `json:"current_threat_level"`
}

// RiskAnalysis summarizes the risk grid for planning purposes.
type RiskAnalysis struct {
	HighRiskZones    int     `json:"high_risk_zones"`
	TotalRiskZones   int     `json:"total_risk_zones"`
	AverageRiskLevel float64 `json:"average_risk_level"`
}

// Report is the derived safety report served as JSON and as plain text.
type Report struct {
	ReportDate         time.Time        `json:"report_date"`
	MonitoringDuration float64          `json:"monitoring_duration"`
	FramesProcessed    int              `json:"frames_processed"`
	SafetyStatistics   ReportStatistics `json:"safety_statistics"`
	RiskAnalysis       RiskAnalysis     `json:"risk_analysis"`
}

// BuildReport derives a safety report from aggregate snapshots.
func BuildReport(zones safety.RiskZoneMap, stats safety.StatisticsSnapshot) *Report {
	return &Report{
		ReportDate:         time.Now(),
		MonitoringDuration: stats.ElapsedSeconds,
		FramesProcessed:    stats.FramesProcessed,
		SafetyStatistics: ReportStatistics{
			WomenMonitored:           stats.WomenMonitored,
			TotalSafetyAlerts:        stats.SafetyAlerts,
			LoneWomenIncidents:       stats.LoneIncidents,
			SurroundedWomenIncidents: stats.SurroundedIncidents,
			DistressSignalsDetected:  stats.DistressSignals,
			CurrentThreatLevel:       stats.ThreatLevel,
		},
		RiskAnalysis: RiskAnalysis{
			HighRiskZones:    zones.CountAbove(highRiskThreshold),
			TotalRiskZones:   len(zones),
			AverageRiskLevel: zones.Average(),
		},
	}
}

// Text renders the report in the fixed plain-text layout.
func (r *Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "WatchHer - Women's Safety Monitoring Report\n")
	fmt.Fprintf(&b, "===========================================\n\n")
	fmt.Fprintf(&b, "Report Generated: %s\n", r.ReportDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Monitoring Duration: %.2f hours\n", r.MonitoringDuration/3600)
	fmt.Fprintf(&b, "Frames Processed: %d\n\n", r.FramesProcessed)

	fmt.Fprintf(&b, "SAFETY STATISTICS\n")
	fmt.Fprintf(&b, "=================\n")
	fmt.Fprintf(&b, "Total Women Monitored: %d\n", r.SafetyStatistics.WomenMonitored)
	fmt.Fprintf(&b, "Total Safety Alerts: %d\n", r.SafetyStatistics.TotalSafetyAlerts)
	fmt.Fprintf(&b, "Lone Women Incidents: %d\n", r.SafetyStatistics.LoneWomenIncidents)
	fmt.Fprintf(&b, "Surrounded Women Incidents: %d\n", r.SafetyStatistics.SurroundedWomenIncidents)
	fmt.Fprintf(&b, "Distress Signals Detected: %d\n", r.SafetyStatistics.DistressSignalsDetected)
	fmt.Fprintf(&b, "Current Threat Level: %s\n\n", r.SafetyStatistics.CurrentThreatLevel)

	fmt.Fprintf(&b, "RISK ANALYSIS\n")
	fmt.Fprintf(&b, "=============\n")
	fmt.Fprintf(&b, "High Risk Zones: %d\n", r.RiskAnalysis.HighRiskZones)
	fmt.Fprintf(&b, "Total Risk Zones: %d\n", r.RiskAnalysis.TotalRiskZones)
	fmt.Fprintf(&b, "Average Risk Level: %.2f\n\n", r.RiskAnalysis.AverageRiskLevel)

	fmt.Fprintf(&b, "RECOMMENDATIONS\n")
	fmt.Fprintf(&b, "===============\n")
	fmt.Fprintf(&b, "- Deploy additional security personnel in high-risk zones\n")
	fmt.Fprintf(&b, "- Improve lighting in areas with frequent lone women incidents\n")
	fmt.Fprintf(&b, "- Install emergency call stations in isolated areas\n")
	fmt.Fprintf(&b, "- Increase patrol frequency during high-threat periods\n")

	return b.String()
}

// WriteReport persists the plain-text rendering of the report next to the
// JSON exports and returns the file name.
func (e *Exporter) WriteReport(rep *Report) (string, error) {
	name := fmt.Sprintf("watchher_report_%s.txt", rep.ReportDate.Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(e.dir, name), []byte(rep.Text()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return name, nil
}
