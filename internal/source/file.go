package source

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/watchher/monitoring-server/pkg/types"
)

// JPEG stream markers.
var (
	markerSOI = []byte{0xFF, 0xD8}
	markerEOI = []byte{0xFF, 0xD9}
)

// FileSource replays an MJPEG file (concatenated JPEG frames). Reaching the
// last frame wraps around to the first; the session decides when to stop.
type FileSource struct {
	mu     sync.Mutex
	path   string
	frames [][]byte
	next   int
	number uint64
}

// NewFileSource loads and indexes an MJPEG (or single JPEG) file.
func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}

	frames := scanJPEGFrames(data)
	if len(frames) == 0 {
		return nil, fmt.Errorf("no JPEG frames found in %s", path)
	}

	return &FileSource{path: path, frames: frames}, nil
}

// scanJPEGFrames splits a byte stream into individual JPEG frames. Marker
// segments are skipped by their declared length, so an EOI inside an
// embedded thumbnail (EXIF APP1) does not end a frame early.
func scanJPEGFrames(data []byte) [][]byte {
	var frames [][]byte
	offset := 0
	for offset < len(data) {
		start := bytes.Index(data[offset:], markerSOI)
		if start == -1 {
			break
		}
		start += offset

		end, ok := jpegEnd(data, start)
		if !ok {
			break
		}

		frames = append(frames, data[start:end])
		offset = end
	}
	return frames
}

// jpegEnd walks the marker structure from the SOI at start and returns the
// offset just past the matching EOI.
func jpegEnd(data []byte, start int) (int, bool) {
	i := start + len(markerSOI)
	for i+1 < len(data) {
		if data[i] != 0xFF {
			// Entropy-coded data after SOS; resync on the next 0xFF.
			i++
			continue
		}

		marker := data[i+1]
		switch {
		case marker == 0xD9: // EOI
			return i + 2, true
		case marker == 0xFF:
			// Fill byte; the next byte may start a real marker.
			i++
		case marker == 0x00 || marker == 0x01 || marker == 0xD8 ||
			(marker >= 0xD0 && marker <= 0xD7):
			// Stuffed byte, TEM, SOI, and restart markers carry no length.
			i += 2
		default:
			// Everything else has a two-byte big-endian length that
			// includes the length field itself.
			if i+3 >= len(data) {
				return 0, false
			}
			length := int(data[i+2])<<8 | int(data[i+3])
			if length < 2 {
				return 0, false
			}
			i += 2 + length
		}
	}
	return 0, false
}

// FrameCount returns the number of indexed frames.
func (s *FileSource) FrameCount() int {
	return len(s.frames)
}

// Read decodes the next frame, wrapping to the first at end of file.
func (s *FileSource) Read() (*types.Frame, error) {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("source closed")
	}
	raw := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	s.number++
	number := s.number
	s.mu.Unlock()

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", number, err)
	}

	return &types.Frame{
		Image:     img,
		Timestamp: time.Now(),
		Number:    number,
	}, nil
}

// Mirrored is false for file playback.
func (s *FileSource) Mirrored() bool {
	return false
}

// Close releases the indexed frames.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
	return nil
}
