// Package heatmap renders risk-map snapshots into colored cell grids and
// JPEG images for the dashboard. Rendering is a pure function of a snapshot
// and a viewport; it never touches live aggregator state.
package heatmap

import (
	"fmt"
	"image/color"
)

// Gradient segment boundaries of the normalized risk scale.
const (
	gradientLowEnd  = 0.3
	gradientMidEnd  = 0.7
	gradientHighEnd = 1.0
)

// Gradient maps a normalized risk value to a color along a three-segment
// green-yellow-orange-dark-red ramp. Input outside [0,1] is clamped. The
// ramp is continuous at the 0.3 and 0.7 segment boundaries.
func Gradient(normalized float64) color.RGBA {
	n := clamp01(normalized)

	switch {
	case n < gradientLowEnd:
		// Green to yellow: red rises 0..255 across the segment.
		r := uint8(255 * n / gradientLowEnd)
		return color.RGBA{R: r, G: 255, A: 255}
	case n < gradientMidEnd:
		// Yellow to orange: green falls 255..0 across the segment.
		ratio := (n - gradientLowEnd) / (gradientMidEnd - gradientLowEnd)
		g := uint8(255 * (1 - ratio))
		return color.RGBA{R: 255, G: g, A: 255}
	default:
		// Orange to dark red: red falls 255..128 across the segment.
		ratio := (n - gradientMidEnd) / (gradientHighEnd - gradientMidEnd)
		r := uint8(255 * (1 - ratio*0.5))
		return color.RGBA{R: r, A: 255}
	}
}

// Hex formats a color as "#rrggbb" for JSON payloads and the dashboard.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Swatch is one fixed legend entry. The legend is visual reference data
// only; it is not derived from live scores.
type Swatch struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend returns the five fixed legend swatches.
func Legend() []Swatch {
	return []Swatch{
		{Label: "Low", Color: "#00ff00"},
		{Label: "Med", Color: "#ffff00"},
		{Label: "High", Color: "#ff7f00"},
		{Label: "Very High", Color: "#ff0000"},
		{Label: "Critical", Color: "#7f0000"},
	}
}
