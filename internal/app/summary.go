package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"slimsweep/internal/errs"
	"slimsweep/internal/executor"
	"slimsweep/internal/results"
)

func newSummaryCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "summary <results.jsonl>",
		Short:         "Report the outcome of a run from its results file",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.execute(cmd, func(s *session) error { return runSummary(s, args[0]) })
		},
	}
}

func runSummary(s *session, path string) error {
	recs, err := results.ReadFile(path, logWarn)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return errs.Configf("%s holds no result records", path)
	}

	runs := make(map[string]struct{})
	for _, rec := range recs {
		runs[rec.RunID] = struct{}{}
	}
	if len(runs) > 1 {
		ids := make([]string, 0, len(runs))
		for id := range runs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		logWarn(fmt.Sprintf("%s mixes %d runs: %s", path, len(ids), strings.Join(ids, ", ")))
	}

	summary := executor.Summarize(results.JobResults(recs))
	fmt.Fprintln(s.out, executor.FormatSummary(summary))
	if !summary.OK() {
		return exitError{code: 1}
	}
	return nil
}
