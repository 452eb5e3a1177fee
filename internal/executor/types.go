package executor

import (
	"io"
	"time"

	"slimsweep/internal/jobspace"
)

// DefaultStderrTail is how many trailing bytes of simulator stderr a result
// keeps.
const DefaultStderrTail = 4 * 1024

// Options configures one Dispatch call.
type Options struct {
	// Workers bounds concurrent subprocesses. Zero resolves from the
	// environment and the host CPU count.
	Workers int
	// Dir is the working directory of every subprocess.
	Dir string
	// Stdout receives simulator stdout. Nil discards it.
	Stdout io.Writer
	// LogOutput copies simulator stdout line by line into the active log.
	LogOutput bool
	// StderrTail overrides DefaultStderrTail.
	StderrTail int
	// OnResult is called once per job, from the worker that ran it, or from
	// Dispatch itself for jobs that were never started.
	OnResult func(JobResult)
}

func (o Options) stderrLimit() int {
	if o.StderrTail > 0 {
		return o.StderrTail
	}
	return DefaultStderrTail
}

// JobResult is the outcome of one job.
type JobResult struct {
	JobIndex    int
	Seed        jobspace.Seed
	Combination int
	Label       string
	Command     string
	ExitCode    int
	Duration    time.Duration
	Error       error
	StderrTail  string
	// Skipped is set for jobs not started because dispatch was cancelled.
	Skipped bool
}

// Failed reports a job that ran or tried to run and did not succeed.
func (r JobResult) Failed() bool {
	return r.Error != nil && !r.Skipped
}

func newResult(job jobspace.JobSpec) JobResult {
	return JobResult{
		JobIndex:    job.Index,
		Seed:        job.Seed,
		Combination: job.Combination.Index,
		Label:       job.Combination.Label(),
		Command:     job.CommandLine(),
	}
}
