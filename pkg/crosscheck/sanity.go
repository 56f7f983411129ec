package crosscheck

import (
	"fmt"

	"github.com/danpilch/mprof/pkg/report"
)

// SanityResult holds the outcome of one invariant check.
type SanityResult struct {
	Check   string `json:"check"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// RunSanityChecks validates every report entry against invariants that hold
// for any correctly aggregated profile.
func RunSanityChecks(rep *report.Report) []SanityResult {
	var results []SanityResult

	for _, m := range rep.Time.Methods {
		// Timed methods must have completed at least one call
		if m.TotalTime > 0 {
			results = append(results, SanityResult{
				Check:   fmt.Sprintf("%s calls", m.Name),
				Passed:  m.Calls > 0,
				Details: fmt.Sprintf("%d calls for %.6fs", m.Calls, m.TotalTime),
			})
		}

		if m.TotalTime < 0 || m.Time < 0 {
			results = append(results, SanityResult{
				Check:   fmt.Sprintf("%s non-negative time", m.Name),
				Passed:  false,
				Details: fmt.Sprintf("total %.6fs, average %.6fs", m.TotalTime, m.Time),
			})
		}

		// The average of a non-empty set cannot exceed its sum
		if m.Calls > 0 {
			results = append(results, SanityResult{
				Check:   fmt.Sprintf("%s average <= total", m.Name),
				Passed:  m.Time <= m.TotalTime,
				Details: fmt.Sprintf("average %.6fs, total %.6fs", m.Time, m.TotalTime),
			})
		}
	}

	for _, n := range rep.Nodes() {
		if n.Bytes == 0 {
			continue
		}
		// Bytes only arrive together with an object of some class
		var objects uint64
		for _, o := range n.Objects {
			objects += o.Count
		}
		results = append(results, SanityResult{
			Check:   fmt.Sprintf("%s objects recorded", n.Name),
			Passed:  objects > 0,
			Details: fmt.Sprintf("%d bytes in %d objects", n.Bytes, objects),
		})
	}

	return results
}
