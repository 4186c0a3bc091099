package source

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/watchher/monitoring-server/pkg/types"
)

// CameraSource pulls live frames from a network camera serving an MJPEG
// multipart stream. A failed read tears the connection down and reports an
// error for that iteration; the next read reconnects.
type CameraSource struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	body   io.ReadCloser
	parts  *multipart.Reader
	number uint64
	closed bool
}

// NewCameraSource creates a source for the given MJPEG stream URL. The
// connection is established lazily on the first read.
func NewCameraSource(url string) *CameraSource {
	return &CameraSource{
		url:    url,
		client: &http.Client{Timeout: 0}, // streaming body, no deadline
	}
}

func (s *CameraSource) connectLocked() error {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return fmt.Errorf("connect camera: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("camera is not an MJPEG stream (Content-Type %q)", resp.Header.Get("Content-Type"))
	}

	s.body = resp.Body
	s.parts = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

func (s *CameraSource) teardownLocked() {
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.parts = nil
}

// Read returns the next live frame, reconnecting if needed.
func (s *CameraSource) Read() (*types.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("source closed")
	}

	if s.parts == nil {
		if err := s.connectLocked(); err != nil {
			return nil, err
		}
	}

	part, err := s.parts.NextPart()
	if err != nil {
		s.teardownLocked()
		return nil, fmt.Errorf("read camera frame: %w", err)
	}
	defer part.Close()

	img, err := imaging.Decode(part)
	if err != nil {
		s.teardownLocked()
		return nil, fmt.Errorf("decode camera frame: %w", err)
	}

	s.number++
	return &types.Frame{
		Image:     img,
		Timestamp: time.Now(),
		Number:    s.number,
	}, nil
}

// Mirrored is true for live capture.
func (s *CameraSource) Mirrored() bool {
	return true
}

// Close drops the stream connection.
func (s *CameraSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.teardownLocked()
	return nil
}
