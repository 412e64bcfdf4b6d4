package organize

import (
	"path/filepath"

	"gather/pkg/types"
)

type planEntry struct {
	result  types.MoveResult
	pending bool // destination assigned, move not yet executed
}

// unitPlan is one directory's candidates as they move through match, plan
// and execute.
type unitPlan struct {
	dir     string
	entries []planEntry
	err     error
}

func (u *unitPlan) add(moves []types.Move) {
	for _, mv := range moves {
		u.entries = append(u.entries, planEntry{result: types.MoveResult{Move: mv}})
	}
}

// reject records results that are already final, such as unusable names.
func (u *unitPlan) reject(results []types.MoveResult) {
	for _, res := range results {
		u.entries = append(u.entries, planEntry{result: res})
	}
}

func (u *unitPlan) pendingCount() int {
	n := 0
	for _, en := range u.entries {
		if en.pending {
			n++
		}
	}
	return n
}

// result drops entries that were planned but never executed because the run
// was cancelled.
func (u *unitPlan) result() types.UnitResult {
	out := types.UnitResult{Directory: u.dir, Error: u.err}
	for _, en := range u.entries {
		if en.pending || en.result.Status == "" {
			continue
		}
		out.Results = append(out.Results, en.result)
	}
	return out
}

// plan assigns a destination to every candidate, walking units in directory
// list order and each unit in listing order. A destination claimed earlier in
// the walk counts as taken, so the first file in that order always wins a
// same-name collision, no matter how the moves are later scheduled.
// It returns the first failure it records.
func (e *Engine) plan(units []*unitPlan) error {
	claimed := make(map[string]bool)
	taken := func(path string) bool {
		return claimed[filepath.Clean(path)] || e.existsOnDisk(path)
	}

	var first error
	for _, u := range units {
		for i := range u.entries {
			en := &u.entries[i]
			if en.result.Status != "" {
				continue
			}
			src := en.result.Source
			dest, status, err := e.resolve(src, e.Destination(src), taken)
			switch {
			case err != nil:
				en.result = e.fail(en.result, err)
				if first == nil {
					first = err
				}
			case status == types.StatusSkipped:
				en.result.Status = status
				en.result.Detail = types.DetailExists
			default:
				en.result.Destination = dest
				en.pending = true
				claimed[filepath.Clean(dest)] = true
			}
		}
	}
	return first
}
