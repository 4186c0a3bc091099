package heatmap

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/watchher/monitoring-server/internal/safety"
)

// Viewport is the bounded cell-grid window actually rendered, independent
// of the full map's extent.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultViewport matches the dashboard heatmap panel.
var DefaultViewport = Viewport{Width: 20, Height: 15}

// RenderedCell is one colored cell of the rendered grid.
type RenderedCell struct {
	GX         int     `json:"gx"`
	GY         int     `json:"gy"`
	Score      int     `json:"score"`
	Normalized float64 `json:"normalized"`
	Color      string  `json:"color"`
}

// Grid is the result of rendering a risk-map snapshot into a viewport.
// NoData is set when the snapshot was empty; Cells then carries nothing and
// the caller renders a placeholder instead.
type Grid struct {
	Viewport Viewport       `json:"viewport"`
	NoData   bool           `json:"no_data"`
	MaxScore int            `json:"max_score"`
	Cells    []RenderedCell `json:"cells"`
}

// Render maps a snapshot onto the viewport. Cells outside the viewport are
// skipped; cells absent from the snapshot stay transparent. Scores are
// normalized against the snapshot maximum, clamped to [0,1]; an all-zero
// snapshot renders every present cell at normalized 0 without dividing.
func Render(snapshot safety.RiskZoneMap, vp Viewport) Grid {
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}

	grid := Grid{Viewport: vp}
	max, ok := snapshot.Max()
	if !ok {
		grid.NoData = true
		return grid
	}
	grid.MaxScore = max
	grid.Cells = make([]RenderedCell, 0, len(snapshot))

	for cell, score := range snapshot {
		if cell.GX < 0 || cell.GX >= vp.Width || cell.GY < 0 || cell.GY >= vp.Height {
			continue
		}
		var normalized float64
		if max > 0 {
			normalized = clamp01(float64(score) / float64(max))
		}
		grid.Cells = append(grid.Cells, RenderedCell{
			GX:         cell.GX,
			GY:         cell.GY,
			Score:      score,
			Normalized: normalized,
			Color:      Hex(Gradient(normalized)),
		})
	}
	return grid
}

// Canvas dimensions of the rendered heatmap image, matching the dashboard
// panel.
const (
	canvasWidth  = 350
	canvasHeight = 250
)

var canvasBackground = color.RGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 255}

// RenderImage draws a rendered grid onto an RGBA canvas with the fixed
// legend along the top. An empty grid produces the "no data" placeholder.
func RenderImage(grid Grid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(canvasBackground), image.Point{}, draw.Src)

	if grid.NoData {
		drawText(img, canvasWidth/2-60, canvasHeight/2, "No risk data available", color.RGBA{R: 0x95, G: 0xa5, B: 0xa6, A: 255})
		return img
	}

	cellW := canvasWidth / grid.Viewport.Width
	cellH := canvasHeight / grid.Viewport.Height
	for _, cell := range grid.Cells {
		c := Gradient(cell.Normalized)
		rect := image.Rect(cell.GX*cellW, cell.GY*cellH, (cell.GX+1)*cellW, (cell.GY+1)*cellH)
		draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
	}

	drawLegend(img)
	return img
}

// EncodeJPEG renders a grid to a JPEG for the MJPEG stream and one-shot
// heatmap endpoint.
func EncodeJPEG(grid Grid) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, RenderImage(grid), &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawLegend(img *image.RGBA) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	drawText(img, 10, 14, "Risk Level:", white)

	for i, swatch := range Legend() {
		x := 10 + i*64
		c := parseHex(swatch.Color)
		draw.Draw(img, image.Rect(x, 20, x+14, 30), image.NewUniform(c), image.Point{}, draw.Src)
		drawText(img, x+17, 29, swatch.Label, white)
	}
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func parseHex(s string) color.RGBA {
	var r, g, b uint8
	if len(s) == 7 && s[0] == '#' {
		r = hexByte(s[1], s[2])
		g = hexByte(s[3], s[4])
		b = hexByte(s[5], s[6])
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func hexByte(hi, lo byte) uint8 {
	return hexNibble(hi)<<4 | hexNibble(lo)
}

func hexNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
