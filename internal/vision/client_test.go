package vision

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchher/monitoring-server/pkg/types"
)

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func TestAnalyzeRoundTrip(t *testing.T) {
	var gotReq analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/analyze":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			json.NewEncoder(w).Encode(analyzeResponse{
				People: []types.Detection{
					{ClassName: "person", Confidence: 0.91, IsProtected: true,
						BBox: types.BoundingBox{X1: 10, Y1: 20, X2: 50, Y2: 120}},
				},
				Weapons: []types.Detection{
					{ClassName: "knife", Confidence: 0.77, HasHarmfulObject: true,
						BBox: types.BoundingBox{X1: 60, Y1: 60, X2: 80, Y2: 90}},
				},
				Assessment: types.SafetyAssessment{
					LoneWomen:          1,
					OverallThreatLevel: types.ThreatHigh,
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	assert.True(t, c.Ready())

	result, err := c.Analyze(testFrame())
	require.NoError(t, err)

	assert.Equal(t, 640, gotReq.Width)
	assert.Equal(t, 480, gotReq.Height)
	_, err = base64.StdEncoding.DecodeString(gotReq.Image)
	assert.NoError(t, err, "frame payload must be base64 JPEG")

	require.Len(t, result.People, 1)
	require.Len(t, result.Weapons, 1)
	assert.True(t, result.People[0].IsProtected)
	assert.True(t, result.Weapons[0].HasHarmfulObject)
	assert.Equal(t, types.ThreatHigh, result.Assessment.OverallThreatLevel)
	assert.Len(t, result.Detections(), 2)
}

func TestAnalyzeDefaultsInvalidThreatLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"assessment": map[string]any{"overall_threat_level": "WEIRD"},
		})
	}))
	defer srv.Close()

	result, err := NewHTTPClient(srv.URL).Analyze(testFrame())
	require.NoError(t, err)
	assert.Equal(t, types.ThreatSafe, result.Assessment.OverallThreatLevel)
}

func TestAnalyzeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Analyze(testFrame())
	assert.Error(t, err)
}

func TestReadyFalseWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	assert.False(t, NewHTTPClient(srv.URL).Ready())
}
