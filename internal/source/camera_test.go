package source

import (
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveMJPEG writes n JPEG parts on each connection, then ends the stream.
func serveMJPEG(t *testing.T, n int, frame []byte, connections *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if connections != nil {
			connections.Add(1)
		}
		mw := multipart.NewWriter(w)
		require.NoError(t, mw.SetBoundary("frame"))
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.WriteHeader(http.StatusOK)
		for i := 0; i < n; i++ {
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type": {"image/jpeg"},
			})
			require.NoError(t, err)
			_, err = part.Write(frame)
			require.NoError(t, err)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		mw.Close()
	}))
}

func TestCameraSourceReadsFrames(t *testing.T) {
	jpg := encodeTestJPEG(t, 32, color.RGBA{R: 200, A: 255})
	srv := serveMJPEG(t, 3, jpg, nil)
	defer srv.Close()

	src := NewCameraSource(srv.URL)
	defer src.Close()

	for i := 0; i < 3; i++ {
		frame, err := src.Read()
		require.NoError(t, err)
		assert.Equal(t, 32, frame.Width())
		assert.Equal(t, uint64(i+1), frame.Number)
	}
}

func TestCameraSourceMirrored(t *testing.T) {
	assert.True(t, NewCameraSource("http://camera.local/stream").Mirrored())
}

func TestCameraSourceReconnectsAfterStreamEnd(t *testing.T) {
	jpg := encodeTestJPEG(t, 32, color.RGBA{G: 200, A: 255})
	var connections atomic.Int32
	srv := serveMJPEG(t, 1, jpg, &connections)
	defer srv.Close()

	src := NewCameraSource(srv.URL)
	defer src.Close()

	_, err := src.Read()
	require.NoError(t, err)

	// The stream ended after one part, so this iteration fails.
	_, err = src.Read()
	require.Error(t, err)

	// The next read reconnects and succeeds.
	frame, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 32, frame.Width())
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestCameraSourceRejectsNonMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a camera</html>"))
	}))
	defer srv.Close()

	_, err := NewCameraSource(srv.URL).Read()
	assert.Error(t, err)
}

func TestCameraSourceReadAfterClose(t *testing.T) {
	src := NewCameraSource("http://camera.local/stream")
	require.NoError(t, src.Close())

	_, err := src.Read()
	assert.Error(t, err)
}
