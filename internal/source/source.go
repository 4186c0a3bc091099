// Package source provides frame sources for monitoring sessions. Sources
// produce frames indefinitely: file-backed sources loop to their first
// frame at end of stream, live sources surface each read failure as an
// error for that iteration only.
package source

import (
	"github.com/watchher/monitoring-server/pkg/types"
)

// Source produces frames at source resolution.
type Source interface {
	// Read returns the next frame. File sources never return a terminal
	// end-of-stream; they wrap around instead.
	Read() (*types.Frame, error)

	// Mirrored reports whether frames should be flipped horizontally
	// before processing (live cameras, for a natural view).
	Mirrored() bool

	// Close releases the underlying file or connection.
	Close() error
}
