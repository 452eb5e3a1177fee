package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"slimsweep/internal/plan"
)

type planOptions struct {
	Inputs inputOptions
	Format string
	Brief  bool
}

func newPlanCommand(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:           "plan",
		Short:         "Print the enumerated job space without running it",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.execute(cmd, func(s *session) error { return runPlan(s, opts) })
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &opts.Inputs)
	fs.StringVar(&opts.Format, "format", "yaml", "Manifest format: yaml or json")
	fs.BoolVar(&opts.Brief, "brief", false, "Omit the per-job command lines")
	return cmd
}

func runPlan(s *session, opts *planOptions) error {
	in, err := opts.Inputs.inputs(s)
	if err != nil {
		return err
	}
	p, err := plan.Build(in)
	if err != nil {
		return err
	}
	data, err := p.Encode(opts.Format, opts.Brief)
	if err != nil {
		return err
	}
	logInfo(fmt.Sprintf("plan %s: %d jobs", p.RunID, p.Len()))
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(s.out)
	}
	return nil
}
