// Package vision defines the perception service contract and its HTTP
// client. The service receives frames at the fixed processing resolution
// and returns detections in processing-resolution pixel coordinates; the
// caller owns any rescaling.
package vision

import (
	"image"

	"github.com/watchher/monitoring-server/pkg/types"
)

// Result is one frame's inference output.
type Result struct {
	People     []types.Detection      `json:"people"`
	Weapons    []types.Detection      `json:"weapons"`
	Assessment types.SafetyAssessment `json:"assessment"`
}

// Detections returns people and weapons as one slice.
func (r *Result) Detections() []types.Detection {
	out := make([]types.Detection, 0, len(r.People)+len(r.Weapons))
	out = append(out, r.People...)
	out = append(out, r.Weapons...)
	return out
}

// Analyzer is the perception service seen by the pipeline.
type Analyzer interface {
	// Ready reports whether the service can accept frames. Sessions are
	// refused while the analyzer is not ready.
	Ready() bool

	// Analyze runs inference on a frame at processing resolution.
	Analyze(frame image.Image) (*Result, error)
}
