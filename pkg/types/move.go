package types

import (
	"errors"
)

// MoveStatus is the outcome of a single planned move
type MoveStatus string

const (
	// StatusMoved: the file was renamed into the target directory
	StatusMoved MoveStatus = "moved"
	// StatusPlanned: dry run, the move would have happened
	StatusPlanned MoveStatus = "planned"
	// StatusSkipped: the collision policy left the file in place
	StatusSkipped MoveStatus = "skipped"
	// StatusFailed: the move was attempted or planned and failed
	StatusFailed MoveStatus = "failed"
)

// Move is a source file and the path it is moved to.
type Move struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Size        int64  `json:"size"`
}

// Reasons a file was skipped
const (
	DetailExists  = "destination exists"
	DetailInPlace = "already in target"
)

// MoveResult holds the outcome of one move
type MoveResult struct {
	Move
	Status MoveStatus `json:"status"`
	Detail string     `json:"detail,omitempty"` // why a file was skipped
	Error  error      `json:"-"`
}

// UnitResult is the outcome of processing one directory.
// Error is set when the unit itself failed (listing, cancellation);
// per-file failures live in Results.
type UnitResult struct {
	Directory string       `json:"directory"`
	Results   []MoveResult `json:"results"`
	Error     error        `json:"-"`
}

// Report aggregates every unit of a run
type Report struct {
	RunID       string       `json:"run_id"`
	Pattern     string       `json:"pattern"`
	Target      string       `json:"target"`
	DryRun      bool         `json:"dry_run"`
	Directories []string     `json:"directories"`
	Units       []UnitResult `json:"units"`
}

// Results returns every move result in directory-list order
func (r *Report) Results() []MoveResult {
	var out []MoveResult
	for _, u := range r.Units {
		out = append(out, u.Results...)
	}
	return out
}

// Count returns the number of results with the given status
func (r *Report) Count(status MoveStatus) int {
	n := 0
	for _, u := range r.Units {
		for _, res := range u.Results {
			if res.Status == status {
				n++
			}
		}
	}
	return n
}

func (r *Report) Moved() int   { return r.Count(StatusMoved) }
func (r *Report) Planned() int { return r.Count(StatusPlanned) }
func (r *Report) Skipped() int { return r.Count(StatusSkipped) }
func (r *Report) Failed() int  { return r.Count(StatusFailed) }

// BytesMoved sums the sizes of moved (or, in a dry run, planned) files
func (r *Report) BytesMoved() int64 {
	var total int64
	for _, u := range r.Units {
		for _, res := range u.Results {
			if res.Status == StatusMoved || res.Status == StatusPlanned {
				total += res.Size
			}
		}
	}
	return total
}

// Err joins every unit and file failure, or returns nil when there are none
func (r *Report) Err() error {
	var errs []error
	for _, u := range r.Units {
		if u.Error != nil {
			errs = append(errs, u.Error)
		}
		for _, res := range u.Results {
			if res.Status == StatusFailed && res.Error != nil {
				errs = append(errs, res.Error)
			}
		}
	}
	return errors.Join(errs...)
}
