package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slimsweep/internal/errs"
	"slimsweep/internal/seed"
)

type seedsOptions struct {
	Count       int
	Destination string
	Header      string
	Long        bool
	Strategy    string
	Entropy     uint64
}

func newSeedsCommand(root *rootOptions) *cobra.Command {
	opts := &seedsOptions{}
	cmd := &cobra.Command{
		Use:           "seeds",
		Short:         "Write a table of simulator seeds",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.execute(cmd, func(s *session) error { return runSeeds(s, opts) })
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&opts.Count, "nsamples", "n", 10, "Number of seeds to generate")
	fs.StringVarP(&opts.Destination, "destination", "d", "./seeds.csv", "Output file")
	fs.StringVarP(&opts.Header, "top", "t", seed.DefaultHeader, "Header line; --top= writes none")
	fs.BoolVarP(&opts.Long, "long", "l", false, "Generate 64-bit seeds instead of 32-bit")
	fs.StringVar(&opts.Strategy, "strategy", seed.StrategyNoise, "Generator: noise (position hash) or stateful (PRNG)")
	fs.Uint64Var(&opts.Entropy, "entropy", 0, "Pin the run-level entropy value instead of drawing one")
	return cmd
}

func runSeeds(s *session, opts *seedsOptions) error {
	if opts.Count < 0 {
		return errs.Configf("--nsamples must not be negative, got %d", opts.Count)
	}
	if strings.TrimSpace(opts.Destination) == "" {
		return errs.Configf("--destination requires a value")
	}

	width := seed.Bits32
	if opts.Long {
		width = seed.Bits64
	}
	strategy := opts.Strategy
	if !s.changed("strategy") {
		if v := strings.TrimSpace(s.v.GetString("strategy")); v != "" {
			strategy = v
		}
	}
	var genOpts []seed.Option
	if s.changed("entropy") {
		genOpts = append(genOpts, seed.WithEntropy(opts.Entropy))
	}

	gen, err := seed.New(strategy, width, genOpts...)
	if err != nil {
		return err
	}
	seeds, err := gen.Generate(opts.Count)
	if err != nil {
		return err
	}
	if err := seed.WriteFile(opts.Destination, seeds, opts.Header); err != nil {
		return err
	}

	logInfo(fmt.Sprintf("generated %d %d-bit seeds with the %s strategy (entropy %d) into %s",
		len(seeds), gen.Width(), gen.Name(), gen.Entropy(), opts.Destination))
	fmt.Fprintf(s.out, "Wrote %d seeds to %s\n", len(seeds), opts.Destination)
	return nil
}
