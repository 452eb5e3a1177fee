package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slimsweep/internal/errs"
	"slimsweep/internal/executor"
	"slimsweep/internal/plan"
	"slimsweep/internal/results"
)

var (
	dispatchFn    = executor.Dispatch
	notifyContext = signal.NotifyContext
	nowFn         = time.Now
)

type runOptions struct {
	Inputs      inputOptions
	Workers     int
	Results     string
	Passthrough bool
	LogOutput   bool
	Dir         string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every (seed, combination) job on this host",
		Long: "Loads the seed and combination tables, enumerates the full job space and runs one simulator process per job " +
			"on a bounded worker pool. Interrupting stops new jobs from starting; running jobs finish.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.execute(cmd, func(s *session) error { return runSweep(s, opts) })
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &opts.Inputs)
	fs.IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent simulator processes (default: SLIMSWEEP_MAX_PARALLEL_WORKERS or CPU count)")
	fs.StringVar(&opts.Results, "results", "", "Write one JSON line per finished job to this file")
	fs.BoolVar(&opts.Passthrough, "passthrough", false, "Copy simulator stdout to stdout")
	fs.BoolVar(&opts.LogOutput, "log-output", false, "Copy simulator stdout into the log file")
	fs.StringVar(&opts.Dir, "dir", "", "Working directory of every simulator process")
	return cmd
}

func runSweep(s *session, opts *runOptions) error {
	in, err := opts.Inputs.inputs(s)
	if err != nil {
		return err
	}
	workers := opts.Workers
	if !s.changed("workers") && s.cfg.Workers > 0 {
		workers = s.cfg.Workers
	}
	if workers < 0 {
		return errs.Configf("--workers must not be negative, got %d", workers)
	}
	in.Resources.Workers = workers

	p, err := plan.Build(in)
	if err != nil {
		return err
	}
	logInfo(fmt.Sprintf("run %s: %d seeds x %d combinations = %d jobs (%s)",
		p.RunID, len(p.Seeds), len(p.Combinations), p.Len(), p.Nesting))

	var rw *results.Writer
	if opts.Results != "" {
		if rw, err = results.Create(opts.Results); err != nil {
			return err
		}
		defer rw.Close()
	}

	ctx, stop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		mu       sync.Mutex
		writeErr error
	)
	execOpts := executor.Options{
		Workers:   workers,
		Dir:       opts.Dir,
		LogOutput: opts.LogOutput,
		OnResult: func(r executor.JobResult) {
			if rw == nil {
				return
			}
			if err := rw.Write(results.FromResult(p.RunID, r, nowFn())); err != nil {
				mu.Lock()
				if writeErr == nil {
					writeErr = err
				}
				mu.Unlock()
			}
		},
	}
	if opts.Passthrough {
		execOpts.Stdout = &syncWriter{w: s.out}
	}

	res := dispatchFn(ctx, p.Jobs(), execOpts)
	summary := executor.Summarize(res)
	fmt.Fprintln(s.out, executor.FormatSummary(summary))

	if rw != nil {
		if err := rw.Close(); err != nil && writeErr == nil {
			writeErr = err
		}
		logInfo(fmt.Sprintf("%d result records written to %s", rw.Count(), rw.Path()))
	}
	if writeErr != nil {
		return writeErr
	}
	if !summary.OK() {
		logError(fmt.Sprintf("run %s: %d failed, %d skipped of %d jobs", p.RunID, summary.Failed, summary.Skipped, summary.Total))
		return exitError{code: 1}
	}
	return nil
}

// syncWriter serializes writes coming from several simulator processes.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
