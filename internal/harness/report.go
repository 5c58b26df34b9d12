// Package harness runs the acceptance probes against a live OfSpectrum
// service and aggregates the results.
package harness

import (
	"fmt"
	"strings"
)

// Status classifies the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Check is one recorded probe result.
type Check struct {
	Name    string `json:"name" yaml:"name"`
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Report is the append-only result aggregate for one run. It is written
// by a single goroutine; no synchronization is needed.
type Report struct {
	Checks []Check `json:"checks" yaml:"checks"`

	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Warned  int `json:"warned" yaml:"warned"`
	Skipped int `json:"skipped" yaml:"skipped"`

	emit func(Check)
}

// NewReport creates a report. emit, if non-nil, is called once per
// recorded check, in order — the run command uses it for live output.
func NewReport(emit func(Check)) *Report {
	return &Report{emit: emit}
}

func (r *Report) record(c Check) {
	r.Checks = append(r.Checks, c)
	switch c.Status {
	case StatusPass:
		r.Passed++
	case StatusFail:
		r.Failed++
	case StatusWarn:
		r.Warned++
	case StatusSkip:
		r.Skipped++
	}
	if r.emit != nil {
		r.emit(c)
	}
}

// Pass records a successful check.
func (r *Report) Pass(name, msg string) {
	r.record(Check{Name: name, Status: StatusPass, Message: msg})
}

// Warn records a check that succeeded but deviated from an expectation
// worth flagging.
func (r *Report) Warn(name, msg string) {
	r.record(Check{Name: name, Status: StatusWarn, Message: msg})
}

// Fail records a hard deviation: wrong status, error, or missing data.
func (r *Report) Fail(name, msg string) {
	r.record(Check{Name: name, Status: StatusFail, Message: msg})
}

// Skip records a check that could not run because a prerequisite
// produced no usable output. Skips never count toward the pass rate.
func (r *Report) Skip(name, msg string) {
	r.record(Check{Name: name, Status: StatusSkip, Message: msg})
}

// Attempted returns the number of checks that actually ran.
func (r *Report) Attempted() int {
	return r.Passed + r.Failed + r.Warned
}

// PassRate returns the percentage of pass among pass+fail outcomes.
func (r *Report) PassRate() float64 {
	total := r.Passed + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(total) * 100
}

// Summary returns a human-readable one-line summary.
func (r *Report) Summary() string {
	if r.Failed == 0 && r.Warned == 0 && r.Passed > 0 {
		if r.Skipped > 0 {
			return fmt.Sprintf("All %d checks passed, %d skipped", r.Passed, r.Skipped)
		}
		return fmt.Sprintf("All %d checks passed", r.Passed)
	}
	parts := []string{}
	if r.Passed > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", r.Passed))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	if r.Warned > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", r.Warned, pluralize(r.Warned, "warning", "warnings")))
	}
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", r.Skipped))
	}
	if len(parts) == 0 {
		return "No checks ran"
	}
	return strings.Join(parts, ", ")
}

// pluralize returns singular or plural form based on count.
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
