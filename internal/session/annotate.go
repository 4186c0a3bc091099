package session

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/watchher/monitoring-server/internal/vision"
	"github.com/watchher/monitoring-server/pkg/types"
)

var (
	colorPerson    = color.RGBA{R: 0x27, G: 0xae, B: 0x60, A: 255}
	colorProtected = color.RGBA{R: 0xe6, G: 0x7e, B: 0x22, A: 255}
	colorWeapon    = color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 255}
	colorOverlay   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// annotate draws detection boxes and the safety overlay onto a display-size
// frame. Detections must already be in display coordinates.
func annotate(img *image.NRGBA, people, weapons []types.Detection, assessment types.SafetyAssessment, frameNumber uint64, ts time.Time) {
	for _, det := range people {
		c := colorPerson
		if det.IsProtected {
			c = colorProtected
		}
		drawBox(img, det, c)
	}
	for _, det := range weapons {
		drawBox(img, det, colorWeapon)
	}

	threat := assessment.OverallThreatLevel
	header := fmt.Sprintf("WatchHer  %s  Frame %d  Threat: %s",
		ts.Format("15:04:05"), frameNumber, threat)
	drawLabel(img, 10, 18, header, parseHex(threat.Color()))

	if n := assessment.AlertCount(); n > 0 {
		drawLabel(img, 10, 36, fmt.Sprintf("%d active safety alerts", n), colorWeapon)
	}
}

// annotateFrame resizes to display resolution, draws the overlay, and
// encodes the result for the MJPEG stream.
func annotateFrame(src image.Image, width, height int, result *vision.Result, frameNumber uint64, ts time.Time) ([]byte, error) {
	display := imaging.Resize(src, width, height, imaging.Linear)
	annotate(display, result.People, result.Weapons, result.Assessment, frameNumber, ts)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, display, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode display frame: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBox(img *image.NRGBA, det types.Detection, c color.RGBA) {
	const thickness = 2
	b := det.BBox
	drawRect(img, b.X1, b.Y1, b.X2, b.Y2, c, thickness)

	label := fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence)
	labelY := b.Y1 - 5
	if labelY < 12 {
		labelY = b.Y2 + 14
	}
	drawLabel(img, b.X1, labelY, label, c)
}

func drawRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.RGBA, thickness int) {
	u := image.NewUniform(c)
	// Top, bottom, left, right edges.
	draw.Draw(img, image.Rect(x1, y1, x2, y1+thickness), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(x1, y2-thickness, x2, y2), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(x1, y1, x1+thickness, y2), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(x2-thickness, y1, x2, y2), u, image.Point{}, draw.Src)
}

func drawLabel(img *image.NRGBA, x, y int, text string, c color.RGBA) {
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
	if r == 0 && g == 0 && b == 0 {
		return colorOverlay
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
