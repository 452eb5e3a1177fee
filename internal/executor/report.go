package executor

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"slimsweep/internal/utils"
)

// Summary aggregates the results of one run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	// Busy is the summed duration of all jobs that ran.
	Busy     time.Duration
	Failures []JobResult
}

// OK reports a run in which every job ran and succeeded.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Skipped == 0
}

// Summarize counts results; failures are kept in job order.
func Summarize(results []JobResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
			continue
		case r.Failed():
			s.Failed++
			s.Failures = append(s.Failures, r)
		default:
			s.Succeeded++
		}
		s.Busy += r.Duration
	}
	slices.SortFunc(s.Failures, func(a, b JobResult) int { return a.JobIndex - b.JobIndex })
	return s
}

const (
	maxListedFailures = 20
	stderrDetailLen   = 240
)

// FormatSummary renders the run report printed at the end of `run` and by
// `summary`.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("=== Sweep Summary ===\n")
	fmt.Fprintf(&b, "Jobs: %d | Succeeded: %d | Failed: %d | Skipped: %d\n", s.Total, s.Succeeded, s.Failed, s.Skipped)
	fmt.Fprintf(&b, "Busy time: %s\n", s.Busy.Round(time.Millisecond))
	if len(s.Failures) == 0 {
		return b.String()
	}

	b.WriteString("\n--- Failed jobs ---\n")
	for i, r := range s.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "... and %d more\n", len(s.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "[job %d] seed=%s %s: %v\n", r.JobIndex, r.Seed, r.Label, r.Error)
		if r.Command != "" {
			fmt.Fprintf(&b, "  cmd: %s\n", r.Command)
		}
		if detail := errorDetail(r.StderrTail, stderrDetailLen); detail != "" {
			fmt.Fprintf(&b, "  stderr: %s\n", detail)
		}
	}
	return b.String()
}

// errorTailLines is how many trailing stderr lines stand in for the error
// when no line looks like one.
const errorTailLines = 3

// errorDetail picks the lines of simulator stderr that look like errors,
// falling back to the last few lines.
func errorDetail(stderr string, maxLen int) string {
	if stderr == "" || maxLen <= 0 {
		return ""
	}

	clean := utils.StripTerminal(stderr)
	var picked []string
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "fail") ||
			strings.Contains(lower, "undefined") ||
			strings.Contains(lower, "not found") ||
			strings.Contains(lower, "cannot") ||
			strings.Contains(lower, "terminated") {
			picked = append(picked, line)
		}
	}

	if len(picked) == 0 {
		picked = utils.LastLines(clean, errorTailLines)
	}
	return utils.Clip(strings.Join(picked, " | "), maxLen)
}
