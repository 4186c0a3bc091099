package vision

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/watchher/monitoring-server/pkg/types"
)

// HTTPClient talks to a perception service over REST.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	health  *http.Client
}

// NewHTTPClient creates a client for the given service base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		// No request timeout on inference: a hung model call stalls the
		// pipeline until it returns.
		client: &http.Client{},
		health: &http.Client{Timeout: 2 * time.Second},
	}
}

type analyzeRequest struct {
	Image  string `json:"image"` // base64 JPEG at processing resolution
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type analyzeResponse struct {
	People     []types.Detection      `json:"people"`
	Weapons    []types.Detection      `json:"weapons"`
	Assessment types.SafetyAssessment `json:"assessment"`
}

// Ready probes the service health endpoint.
func (c *HTTPClient) Ready() bool {
	resp, err := c.health.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Analyze encodes the frame as JPEG and posts it for inference.
func (c *HTTPClient) Analyze(frame image.Image) (*Result, error) {
	var jpegBuf bytes.Buffer
	if err := imaging.Encode(&jpegBuf, frame, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	bounds := frame.Bounds()
	reqBody, err := json.Marshal(analyzeRequest{
		Image:  base64.StdEncoding.EncodeToString(jpegBuf.Bytes()),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perception service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("perception service returned status %d", resp.StatusCode)
	}

	var analyzed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzed); err != nil {
		return nil, fmt.Errorf("decode perception response: %w", err)
	}

	result := &Result{
		People:     analyzed.People,
		Weapons:    analyzed.Weapons,
		Assessment: analyzed.Assessment,
	}
	if !result.Assessment.OverallThreatLevel.Valid() {
		result.Assessment.OverallThreatLevel = types.ThreatSafe
	}
	return result, nil
}
