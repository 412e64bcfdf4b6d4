package organize

import (
	"gather/pkg/types"
)

// Organizer handles single files as they appear.
// This allows the watcher to be tested without a real engine.
type Organizer interface {
	// OrganizeFile moves path if it matches; false means it was not a match
	OrganizeFile(path string) (types.MoveResult, bool)

	// IsDryRun reports whether moves are only simulated
	IsDryRun() bool
}

// Ensure Engine implements the Organizer interface
var _ Organizer = (*Engine)(nil)
