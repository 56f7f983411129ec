// Package crosscheck validates a profile by comparing the same quantity
// derived from independent views of the data, and by checking each report
// entry against invariants that must always hold.
package crosscheck

import (
	"math"
	"sort"
)

// ValidationStatus indicates how well the sources of a quantity agree.
type ValidationStatus string

const (
	StatusValid    ValidationStatus = "valid"
	StatusSuspect  ValidationStatus = "suspect"
	StatusConflict ValidationStatus = "conflict"
)

// Source is one derivation of a quantity.
type Source struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ValidationResult holds the agreement analysis of one quantity.
type ValidationResult struct {
	Metric       string           `json:"metric"`
	Sources      []Source         `json:"sources"`
	Consensus    float64          `json:"consensus"`
	MaxDeviation float64          `json:"max_deviation"`
	Status       ValidationStatus `json:"status"`
}

// Validator compares sources against their median.
type Validator struct {
	SuspectThreshold  float64 // deviation % to mark suspect
	ConflictThreshold float64 // deviation % to mark conflict
}

// NewValidator creates a validator flagging 1% deviation as suspect and 10%
// as a conflict. Every source is computed from the same samples, so any
// difference points at lost or double-counted events.
func NewValidator() *Validator {
	return &Validator{
		SuspectThreshold:  1.0,
		ConflictThreshold: 10.0,
	}
}

// CrossCheck reports the median of the sources and the largest deviation from it.
func (v *Validator) CrossCheck(metric string, sources []Source) ValidationResult {
	result := ValidationResult{
		Metric:  metric,
		Sources: sources,
		Status:  StatusValid,
	}
	if len(sources) == 0 {
		return result
	}

	values := make([]float64, len(sources))
	for i, s := range sources {
		values[i] = s.Value
	}
	sort.Float64s(values)
	result.Consensus = median(values)

	for _, val := range values {
		var dev float64
		switch {
		case result.Consensus != 0:
			dev = math.Abs(val-result.Consensus) / math.Abs(result.Consensus) * 100
		case val != 0:
			dev = 100
		}
		result.MaxDeviation = math.Max(result.MaxDeviation, dev)
	}

	switch {
	case result.MaxDeviation >= v.ConflictThreshold:
		result.Status = StatusConflict
	case result.MaxDeviation >= v.SuspectThreshold:
		result.Status = StatusSuspect
	}
	return result
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
