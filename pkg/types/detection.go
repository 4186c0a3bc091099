package types

import (
	"fmt"
	"image"
	"time"
)

// ThreatLevel is the per-frame severity supplied by the perception service.
type ThreatLevel string

// Threat levels, lowest to highest.
const (
	ThreatSafe     ThreatLevel = "SAFE"
	ThreatLow      ThreatLevel = "LOW"
	ThreatModerate ThreatLevel = "MODERATE"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

var threatRanks = map[ThreatLevel]int{
	ThreatSafe:     0,
	ThreatLow:      1,
	ThreatModerate: 2,
	ThreatHigh:     3,
	ThreatCritical: 4,
}

// Dashboard badge colors, matching the desktop UI palette.
var threatColors = map[ThreatLevel]string{
	ThreatSafe:     "#27ae60",
	ThreatLow:      "#f1c40f",
	ThreatModerate: "#f39c12",
	ThreatHigh:     "#e67e22",
	ThreatCritical: "#e74c3c",
}

// Rank returns the ordinal severity of the level (SAFE=0 .. CRITICAL=4).
// Unknown levels rank as SAFE.
func (t ThreatLevel) Rank() int {
	return threatRanks[t]
}

// Color returns the hex display color for the level.
func (t ThreatLevel) Color() string {
	if c, ok := threatColors[t]; ok {
		return c
	}
	return threatColors[ThreatSafe]
}

// Valid reports whether the level is one of the known values.
func (t ThreatLevel) Valid() bool {
	_, ok := threatRanks[t]
	return ok
}

// ParseThreatLevel parses a threat level string.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	t := ThreatLevel(s)
	if !t.Valid() {
		return ThreatSafe, fmt.Errorf("invalid threat level: %q", s)
	}
	return t, nil
}

// BoundingBox is an axis-aligned box in pixel coordinates (x1,y1)-(x2,y2).
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Center returns the center point of the box.
func (b BoundingBox) Center() (int, int) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Scale returns the box rescaled by independent x/y factors.
func (b BoundingBox) Scale(sx, sy float64) BoundingBox {
	return BoundingBox{
		X1: int(float64(b.X1) * sx),
		Y1: int(float64(b.Y1) * sy),
		X2: int(float64(b.X2) * sx),
		Y2: int(float64(b.Y2) * sy),
	}
}

// Detection is one recognized object in a frame.
type Detection struct {
	ClassName        string      `json:"class_name"`
	Confidence       float64     `json:"confidence"`
	BBox             BoundingBox `json:"bbox"`
	IsProtected      bool        `json:"is_protected"`
	HasHarmfulObject bool        `json:"has_harmful_object"`
}

// SafetyAssessment is the per-frame summary produced by the perception
// service alongside the raw detections.
type SafetyAssessment struct {
	LoneWomen          int         `json:"lone_women"`
	SurroundedWomen    int         `json:"surrounded_women"`
	WomenInDanger      int         `json:"women_in_danger"`
	DistressSignals    int         `json:"distress_signals"`
	OverallThreatLevel ThreatLevel `json:"overall_threat_level"`
}

// AlertCount returns the total number of safety alerts in the assessment.
func (a SafetyAssessment) AlertCount() int {
	return a.LoneWomen + a.SurroundedWomen + a.WomenInDanger + a.DistressSignals
}

// RiskEvent records one processed frame in the rolling history.
// Field names match the export document contract.
type RiskEvent struct {
	Timestamp    time.Time   `json:"timestamp"`
	ThreatLevel  ThreatLevel `json:"threat_level"`
	WomenCount   int         `json:"women_count"`
	SafetyAlerts int         `json:"safety_alerts"`
}

// Frame is one decoded video frame with capture metadata.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
	Number    uint64
}

// Width returns the pixel width of the frame image, 0 when empty.
func (f *Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the pixel height of the frame image, 0 when empty.
func (f *Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}
