// Package results persists one JSON line per finished job so a run can be
// summarized after the fact.
package results

import (
	"errors"
	"time"

	"slimsweep/internal/errs"
	"slimsweep/internal/executor"
	"slimsweep/internal/jobspace"
)

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Record is the persisted form of an executor.JobResult.
type Record struct {
	RunID       string    `json:"run_id"`
	Job         int       `json:"job"`
	Seed        string    `json:"seed"`
	Combination int       `json:"combination"`
	Params      string    `json:"params"`
	Command     string    `json:"command"`
	Status      string    `json:"status"`
	ExitCode    int       `json:"exit_code"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Stderr      string    `json:"stderr,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// FromResult converts a job result. For subprocess failures only the
// underlying cause is stored; job and exit code have their own fields.
func FromResult(runID string, r executor.JobResult, at time.Time) Record {
	rec := Record{
		RunID:       runID,
		Job:         r.JobIndex,
		Seed:        string(r.Seed),
		Combination: r.Combination,
		Params:      r.Label,
		Command:     r.Command,
		Status:      StatusOK,
		ExitCode:    r.ExitCode,
		DurationMS:  r.Duration.Milliseconds(),
		Stderr:      r.StderrTail,
		FinishedAt:  at.UTC(),
	}
	switch {
	case r.Skipped:
		rec.Status = StatusSkipped
	case r.Failed():
		rec.Status = StatusFailed
	}
	if r.Error != nil {
		var sf *errs.SubprocessFailure
		if errors.As(r.Error, &sf) {
			if sf.Err != nil {
				rec.Error = sf.Err.Error()
			}
		} else {
			rec.Error = r.Error.Error()
		}
	}
	return rec
}

// JobResult rebuilds the executor view of a record.
func (rec Record) JobResult() executor.JobResult {
	r := executor.JobResult{
		JobIndex:    rec.Job,
		Seed:        jobspace.Seed(rec.Seed),
		Combination: rec.Combination,
		Label:       rec.Params,
		Command:     rec.Command,
		ExitCode:    rec.ExitCode,
		Duration:    time.Duration(rec.DurationMS) * time.Millisecond,
		StderrTail:  rec.Stderr,
	}
	var cause error
	if rec.Error != "" {
		cause = errors.New(rec.Error)
	}
	switch rec.Status {
	case StatusSkipped:
		r.Skipped = true
		if cause == nil {
			cause = errors.New("not started")
		}
		r.Error = cause
	case StatusFailed:
		r.Error = &errs.SubprocessFailure{Job: rec.Job, ExitCode: rec.ExitCode, Err: cause}
	}
	return r
}

// JobResults converts every record.
func JobResults(recs []Record) []executor.JobResult {
	out := make([]executor.JobResult, len(recs))
	for i, rec := range recs {
		out[i] = rec.JobResult()
	}
	return out
}
