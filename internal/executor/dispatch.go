// Package executor runs an enumerated job space on the local host with a
// bounded pool of workers, one blocking simulator process per job.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	config "slimsweep/internal/config"
	"slimsweep/internal/errs"
	"slimsweep/internal/jobspace"
)

var nowFn = time.Now

// ResolveWorkers picks the worker count for n jobs: the requested count, or
// the configured default, never more than n and never less than 1.
func ResolveWorkers(requested, n int) int {
	workers := requested
	if workers <= 0 {
		workers = config.ResolveMaxParallelWorkers()
	}
	workers = min(workers, n)
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Dispatch runs every job and returns one result per job in job order.
// There is no retry and no timeout. Once ctx is done no further job is
// started; jobs already running are waited for and the rest are reported
// as skipped.
func Dispatch(ctx context.Context, jobs []jobspace.JobSpec, opts Options) []JobResult {
	results := make([]JobResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}
	workers := ResolveWorkers(opts.Workers, len(jobs))
	logInfo(fmt.Sprintf("dispatching %d jobs on %d workers", len(jobs), workers))

	queue := make(chan int, workers)
	var wg conc.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for i := range queue {
				res := runJob(jobs[i], opts)
				results[i] = res
				if opts.OnResult != nil {
					opts.OnResult(res)
				}
			}
		})
	}

	sent := 0
feed:
	for sent < len(jobs) {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case queue <- sent:
			sent++
		}
	}
	close(queue)
	wg.Wait()

	if sent < len(jobs) {
		logWarn(fmt.Sprintf("dispatch cancelled: %d of %d jobs not started", len(jobs)-sent, len(jobs)))
	}
	for i := sent; i < len(jobs); i++ {
		res := newResult(jobs[i])
		res.Skipped = true
		res.Error = context.Cause(ctx)
		results[i] = res
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
	}
	return results
}

func runJob(job jobspace.JobSpec, opts Options) JobResult {
	res := newResult(job)
	name, args := job.Command()
	if name == "" {
		res.ExitCode = -1
		res.Error = &errs.SubprocessFailure{Job: job.Index, ExitCode: -1, Err: fmt.Errorf("empty command")}
		return res
	}

	cmd := newCommandRunner(name, args...)
	stderr := &tailBuffer{limit: opts.stderrLimit()}
	cmd.SetStderr(stderr)

	stdout, stdoutLog := stdoutFor(job.Index, opts)
	cmd.SetStdout(stdout)
	if opts.Dir != "" {
		cmd.SetDir(opts.Dir)
	}

	start := nowFn()
	if err := cmd.Start(); err != nil {
		res.ExitCode = -1
		res.Error = &errs.SubprocessFailure{Job: job.Index, ExitCode: -1, Err: err}
		logError(fmt.Sprintf("job %d failed to start: %v", job.Index, err))
		return res
	}
	logDebug(fmt.Sprintf("job %d started (pid %d): %s", job.Index, cmd.Pid(), res.Command))

	waitErr := cmd.Wait()
	res.Duration = nowFn().Sub(start)
	res.StderrTail = stderr.String()
	stdoutLog.Flush()

	if waitErr != nil {
		res.ExitCode = exitCodeOf(waitErr)
		res.Error = &errs.SubprocessFailure{Job: job.Index, ExitCode: res.ExitCode, Err: waitErr}
		logError(fmt.Sprintf("job %d (seed %s, %s) exited with status %d", job.Index, job.Seed, res.Label, res.ExitCode))
		return res
	}
	logDebug(fmt.Sprintf("job %d finished in %s", job.Index, res.Duration.Round(time.Millisecond)))
	return res
}
