package heatmap

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchher/monitoring-server/internal/safety"
)

func TestRenderEmptyMap(t *testing.T) {
	grid := Render(safety.RiskZoneMap{}, DefaultViewport)
	assert.True(t, grid.NoData)
	assert.Empty(t, grid.Cells)
	assert.Zero(t, grid.MaxScore)
}

func TestRenderNormalizationBounds(t *testing.T) {
	m := safety.RiskZoneMap{}
	for i := 0; i < 15; i++ {
		m[safety.Cell{GX: i % 5, GY: i / 5}] = i*7 + 1
	}

	grid := Render(m, DefaultViewport)
	require.False(t, grid.NoData)
	max, _ := m.Max()
	assert.Equal(t, max, grid.MaxScore)

	sawTop := false
	for _, cell := range grid.Cells {
		assert.GreaterOrEqual(t, cell.Normalized, 0.0)
		assert.LessOrEqual(t, cell.Normalized, 1.0)
		if cell.Normalized == 1.0 {
			sawTop = true
		}
	}
	assert.True(t, sawTop, "the maximum cell must normalize to exactly 1")
}

func TestRenderSkipsCellsOutsideViewport(t *testing.T) {
	m := safety.RiskZoneMap{
		{GX: 1, GY: 1}:    5,
		{GX: 25, GY: 3}:   9, // beyond viewport width
		{GX: 3, GY: 40}:   9, // beyond viewport height
		{GX: -1, GY: 2}:   9, // left of origin
		{GX: 19, GY: 14}:  7, // last visible cell
	}

	grid := Render(m, Viewport{Width: 20, Height: 15})
	require.Len(t, grid.Cells, 2)
	for _, cell := range grid.Cells {
		assert.GreaterOrEqual(t, cell.GX, 0)
		assert.Less(t, cell.GX, 20)
		assert.GreaterOrEqual(t, cell.GY, 0)
		assert.Less(t, cell.GY, 15)
	}
	// Normalization still uses the full map maximum, viewport or not.
	assert.Equal(t, 9, grid.MaxScore)
}

func TestRenderDefaultsViewport(t *testing.T) {
	grid := Render(safety.RiskZoneMap{{GX: 0, GY: 0}: 1}, Viewport{})
	assert.Equal(t, DefaultViewport, grid.Viewport)
}

func TestRenderImageDimensions(t *testing.T) {
	m := safety.RiskZoneMap{{GX: 2, GY: 2}: 10}
	img := RenderImage(Render(m, DefaultViewport))
	assert.Equal(t, canvasWidth, img.Bounds().Dx())
	assert.Equal(t, canvasHeight, img.Bounds().Dy())

	// Placeholder image has the same canvas.
	img = RenderImage(Render(safety.RiskZoneMap{}, DefaultViewport))
	assert.Equal(t, canvasWidth, img.Bounds().Dx())
}

func TestEncodeJPEGProducesDecodableImage(t *testing.T) {
	m := safety.RiskZoneMap{
		{GX: 0, GY: 0}: 1,
		{GX: 5, GY: 5}: 20,
	}
	data, err := EncodeJPEG(Render(m, DefaultViewport))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, canvasWidth, cfg.Width)
	assert.Equal(t, canvasHeight, cfg.Height)
}
