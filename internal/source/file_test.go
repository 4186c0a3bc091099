package source

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestJPEG renders a solid-color frame of the given width so frames
// can be told apart after decoding.
func encodeTestJPEG(t *testing.T, width int, c color.RGBA) []byte {
	t.Helper()
	img := imaging.New(width, 20, c)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func writeMJPEGFile(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mjpeg")
	var data []byte
	for _, f := range frames {
		data = append(data, f...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileSourceLoopsToFirstFrame(t *testing.T) {
	red := encodeTestJPEG(t, 30, color.RGBA{R: 255, A: 255})
	blue := encodeTestJPEG(t, 40, color.RGBA{B: 255, A: 255})
	src, err := NewFileSource(writeMJPEGFile(t, red, blue))
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 2, src.FrameCount())

	widths := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		frame, err := src.Read()
		require.NoError(t, err)
		widths = append(widths, frame.Width())
		assert.Equal(t, uint64(i+1), frame.Number)
	}
	// 2-frame file wraps: 30,40,30,40,30.
	assert.Equal(t, []int{30, 40, 30, 40, 30}, widths)
}

func TestFileSourceSingleImage(t *testing.T) {
	jpg := encodeTestJPEG(t, 24, color.RGBA{G: 255, A: 255})
	src, err := NewFileSource(writeMJPEGFile(t, jpg))
	require.NoError(t, err)
	defer src.Close()

	for i := 0; i < 3; i++ {
		frame, err := src.Read()
		require.NoError(t, err)
		assert.Equal(t, 24, frame.Width())
	}
}

func TestFileSourceNotMirrored(t *testing.T) {
	jpg := encodeTestJPEG(t, 16, color.RGBA{A: 255})
	src, err := NewFileSource(writeMJPEGFile(t, jpg))
	require.NoError(t, err)
	defer src.Close()

	assert.False(t, src.Mirrored())
}

func TestFileSourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a video"), 0o644))

	_, err := NewFileSource(path)
	assert.Error(t, err)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.mjpeg"))
	assert.Error(t, err)
}

func TestFileSourceReadAfterClose(t *testing.T) {
	jpg := encodeTestJPEG(t, 16, color.RGBA{A: 255})
	src, err := NewFileSource(writeMJPEGFile(t, jpg))
	require.NoError(t, err)
	require.NoError(t, src.Close())

	_, err = src.Read()
	assert.Error(t, err)
}

func TestScanJPEGFrames(t *testing.T) {
	a := encodeTestJPEG(t, 20, color.RGBA{R: 1, A: 255})
	b := encodeTestJPEG(t, 20, color.RGBA{R: 2, A: 255})

	var stream []byte
	stream = append(stream, []byte("leading junk")...)
	stream = append(stream, a...)
	stream = append(stream, b...)
	stream = append(stream, []byte("trailing")...)

	frames := scanJPEGFrames(stream)
	require.Len(t, frames, 2)
	assert.True(t, bytes.Equal(frames[0], a))
	assert.True(t, bytes.Equal(frames[1], b))
}

// withEXIFThumbnail splices an APP1 segment carrying an embedded thumbnail,
// with its own SOI/EOI markers, right after the frame's SOI.
func withEXIFThumbnail(frame []byte) []byte {
	thumb := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	app1 := []byte{0xFF, 0xE1, 0x00, byte(2 + len(thumb))}
	app1 = append(app1, thumb...)

	out := make([]byte, 0, len(frame)+len(app1))
	out = append(out, frame[:2]...)
	out = append(out, app1...)
	out = append(out, frame[2:]...)
	return out
}

func TestScanSkipsEmbeddedThumbnail(t *testing.T) {
	a := withEXIFThumbnail(encodeTestJPEG(t, 20, color.RGBA{R: 3, A: 255}))
	b := withEXIFThumbnail(encodeTestJPEG(t, 30, color.RGBA{R: 4, A: 255}))

	frames := scanJPEGFrames(append(append([]byte{}, a...), b...))
	require.Len(t, frames, 2)
	assert.True(t, bytes.Equal(frames[0], a))
	assert.True(t, bytes.Equal(frames[1], b))

	// The split frames still decode as complete images.
	for i, f := range frames {
		_, err := imaging.Decode(bytes.NewReader(f))
		require.NoError(t, err, "frame %d", i)
	}
}
