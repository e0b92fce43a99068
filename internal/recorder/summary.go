package recorder

import (
	"fmt"
	"strings"
)

// WriteResult is the outcome of one tracked ledger write.
type WriteResult struct {
	Description string
	Err         error // nil on success
}

// Success reports whether this result represents a successful write.
func (r WriteResult) Success() bool { return r.Err == nil }

// WriteSummary accumulates the outcome of every write tracked into it,
// mirroring the original implementation's WriteSummary/WriteResult
// reporting structure.
type WriteSummary struct {
	Results []WriteResult
}

// AddSuccess records a successful write.
func (s *WriteSummary) AddSuccess(description string) {
	s.Results = append(s.Results, WriteResult{Description: description})
}

// AddFailure records a failed write.
func (s *WriteSummary) AddFailure(description string, err error) {
	s.Results = append(s.Results, WriteResult{Description: description, Err: err})
}

// SuccessfulCount returns how many writes succeeded.
func (s WriteSummary) SuccessfulCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Success() {
			n++
		}
	}
	return n
}

// FailedCount returns how many writes failed.
func (s WriteSummary) FailedCount() int {
	return len(s.Results) - s.SuccessfulCount()
}

// TotalCount returns the number of tracked writes.
func (s WriteSummary) TotalCount() int { return len(s.Results) }

// AllSuccessful reports whether every tracked write succeeded.
func (s WriteSummary) AllSuccessful() bool { return s.FailedCount() == 0 }

// String renders a human-readable report, matching the shape of the
// original implementation's Display impl.
func (s WriteSummary) String() string {
	var b strings.Builder
	sep := strings.Repeat("=", 41)
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "Ledger Write Summary")
	fmt.Fprintln(&b, sep)
	fmt.Fprintf(&b, "Total: %d/%d successful\n", s.SuccessfulCount(), s.TotalCount())

	if !s.AllSuccessful() {
		fmt.Fprintln(&b, "Failed writes:")
		for _, r := range s.Results {
			if !r.Success() {
				fmt.Fprintf(&b, "  [FAIL] %s: %v\n", r.Description, r.Err)
			}
		}
	}
	fmt.Fprintln(&b, "All writes:")
	for _, r := range s.Results {
		if r.Success() {
			fmt.Fprintf(&b, "  [OK] %s\n", r.Description)
		} else {
			fmt.Fprintf(&b, "  [FAIL] %s\n", r.Description)
		}
	}
	fmt.Fprintln(&b, sep)
	return b.String()
}
