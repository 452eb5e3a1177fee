package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	config "slimsweep/internal/config"
	"slimsweep/internal/errs"
	"slimsweep/internal/jobspace"
	"slimsweep/internal/plan"
	"slimsweep/internal/script"
	"slimsweep/internal/table"
)

type scriptsOptions struct {
	Name         string
	JobName      string
	JobArray     string
	Walltime     string
	Cores        int
	Memory       string
	Params       string
	Combos       string
	Seeds        string
	SeedColumn   string
	NoSeedHeader bool
	Script       string
	Binary       string
	SeedFlag     string
	Nesting      string
	Delimiter    string
	Profile      string
	Queue        string
	Account      string
	RModule      string
	ResultsDir   string
	Outputs      []string
	ResourceOnly bool
	DriverOnly   bool
	Force        bool
}

func newScriptsCommand(root *rootOptions) *cobra.Command {
	opts := &scriptsOptions{}
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "Write the PBS resource script and the R driver for a cluster sweep",
		Long: "Writes <name>.pbs and <name>.R. The driver runs the same job space as `run`: one simulator call per " +
			"(seed, combination) pairing with one -d definition per parameter. Parameter kinds come from the " +
			"combinations file when it is readable here.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.execute(cmd, func(s *session) error { return runScripts(s, opts) })
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.Name, "name", "f", script.DefaultName, "Base file name of the generated scripts")
	fs.StringVarP(&opts.JobName, "job-name", "N", script.DefaultJobName, "Scheduler job name")
	fs.StringVarP(&opts.JobArray, "job-array", "J", "", "Job array range START-END[:STEP]; each index runs one combination")
	fs.StringVarP(&opts.Walltime, "walltime", "w", "", "Walltime HH:MM:SS (default from profile)")
	fs.IntVarP(&opts.Cores, "cores", "c", 0, "Cores per node (default from profile)")
	fs.StringVarP(&opts.Memory, "mem", "m", "", "Memory per node, e.g. 120 or 50G (default from profile)")
	fs.StringVarP(&opts.Params, "params", "p", "", "Comma-delimited parameters, optionally name:numeric or name:string")
	fs.StringVar(&opts.Combos, "combos", script.DefaultCombosFile, "Combination table the driver reads")
	fs.StringVar(&opts.Seeds, "seeds", script.DefaultSeedsFile, "Seed table the driver reads")
	fs.StringVar(&opts.SeedColumn, "seed-column", script.DefaultSeedColumn, "Seed column name")
	fs.BoolVar(&opts.NoSeedHeader, "no-seed-header", false, "The seed table has no header row")
	fs.StringVar(&opts.Script, "script", "", "Simulation script passed last to the simulator")
	fs.StringVar(&opts.Binary, "binary", "", "Simulator binary on the cluster (default from profile)")
	fs.StringVar(&opts.SeedFlag, "seed-flag", jobspace.DefaultSeedFlag, "Flag that passes the seed")
	fs.StringVar(&opts.Nesting, "nesting", jobspace.CombosOuter.String(), "Loop order of the driver: combos-outer or seeds-outer")
	fs.StringVar(&opts.Delimiter, "delimiter", ",", "Field delimiter of both tables")
	fs.StringVarP(&opts.Profile, "profile", "P", "", "Cluster profile (default from config, else "+config.DefaultProfileName+")")
	fs.StringVar(&opts.Queue, "queue", "", "Scheduler queue (default from profile)")
	fs.StringVar(&opts.Account, "account", "", "Scheduler account (default from profile)")
	fs.StringVarP(&opts.RModule, "r-module", "R", "", "Environment module that provides R (default from profile)")
	fs.StringVar(&opts.ResultsDir, "results-dir", "", "Directory collecting per-run outputs (default from profile)")
	fs.StringSliceVar(&opts.Outputs, "outputs", nil, "Output files appended to the results directory (default from profile)")
	fs.BoolVar(&opts.ResourceOnly, "pbs-only", false, "Only write the resource script")
	fs.BoolVar(&opts.DriverOnly, "r-only", false, "Only write the driver script")
	fs.BoolVar(&opts.Force, "force", false, "Overwrite existing scripts")
	return cmd
}

func runScripts(s *session, opts *scriptsOptions) error {
	mode, err := script.ModeFromFlags(opts.ResourceOnly, opts.DriverOnly)
	if err != nil {
		return err
	}
	profile, err := config.ResolveProfile(s.stringSetting("profile", opts.Profile, s.cfg.Profile))
	if err != nil {
		return err
	}
	jobSpace, err := scriptJobSpace(s, opts, profile)
	if err != nil {
		return err
	}

	options := []script.Option{
		script.WithProfile(profile),
		script.WithName(opts.Name),
		script.WithJobName(opts.JobName),
		script.WithJobArray(opts.JobArray),
	}
	options = append(options, jobSpace...)
	if s.changed("walltime") {
		options = append(options, script.WithWalltime(opts.Walltime))
	}
	if s.changed("cores") {
		options = append(options, script.WithCores(opts.Cores))
	}
	if s.changed("mem") {
		gb, err := parseMemoryGB(opts.Memory)
		if err != nil {
			return err
		}
		options = append(options, script.WithMemoryGB(gb))
	}
	if s.changed("queue") {
		options = append(options, script.WithQueue(opts.Queue))
	}
	if s.changed("account") {
		options = append(options, script.WithAccount(opts.Account))
	}
	if s.changed("r-module") {
		options = append(options, script.WithRModule(opts.RModule))
	}
	if s.changed("results-dir") {
		options = append(options, script.WithResultsDir(opts.ResultsDir))
	}
	if s.changed("outputs") {
		options = append(options, script.WithOutputs(opts.Outputs))
	}

	cfg, err := script.NewConfig(options...)
	if err != nil {
		return err
	}
	artifacts, err := script.Write(cfg, mode, opts.Force)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		fmt.Fprintf(s.out, "Wrote %s script %s\n", a.Kind, a.Path)
	}
	return nil
}

// scriptJobSpace builds the ExecutionPlan the driver will run when both
// tables are readable here. Otherwise the job space comes from the flags:
// kinds from the combinations file if only that one is readable, else from
// --params with unspelled kinds numeric.
func scriptJobSpace(s *session, opts *scriptsOptions, profile config.Profile) ([]script.Option, error) {
	tableOpts, err := tableOptions(s, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	nesting := jobspace.CombosOuter
	if s.changed("nesting") || s.cfg.Nesting != "" {
		if nesting, err = jobspace.ParseNesting(s.stringSetting("nesting", opts.Nesting, s.cfg.Nesting)); err != nil {
			return nil, err
		}
	}
	inv := jobspace.Invocation{
		Binary:     profile.Binary,
		SeedFlag:   s.stringSetting("seed-flag", opts.SeedFlag, s.cfg.SeedFlag),
		ScriptPath: opts.Script,
	}
	if s.changed("binary") {
		inv.Binary = opts.Binary
	}

	// Without a header the seeds are the first column on both back-ends.
	seedColumn := opts.SeedColumn
	if opts.NoSeedHeader {
		seedColumn = ""
	}
	p, err := plan.Build(plan.Inputs{
		SeedsPath:    opts.Seeds,
		SeedColumn:   seedColumn,
		SeedsHeader:  !opts.NoSeedHeader,
		CombosPath:   opts.Combos,
		Params:       opts.Params,
		Invocation:   inv,
		Nesting:      nesting,
		TableOptions: tableOpts,
	})
	if err == nil {
		logInfo(fmt.Sprintf("scripts cover %d seeds x %d combinations = %d jobs (%s)", len(p.Seeds), len(p.Combinations), p.Len(), p.Nesting))
		return []script.Option{script.WithPlan(p)}, nil
	}
	if !errors.Is(err, errs.ErrFileAccess) {
		return nil, err
	}
	logWarn(fmt.Sprintf("no local job space: %v", err))

	params, comboCount, err := resolveScriptParams(opts, tableOpts)
	if err != nil {
		return nil, err
	}
	jobSpace := []script.Option{
		script.WithTableOptions(tableOpts),
		script.WithCombosFile(opts.Combos),
		script.WithSeedsFile(opts.Seeds),
		script.WithSeedColumn(opts.SeedColumn),
		script.WithSeedsHeader(!opts.NoSeedHeader),
		script.WithParams(params),
		script.WithComboCount(comboCount),
		script.WithScript(inv.ScriptPath),
		script.WithSeedFlag(inv.SeedFlag),
		script.WithNesting(nesting),
	}
	if inv.Binary != "" {
		jobSpace = append(jobSpace, script.WithBinary(inv.Binary))
	}
	return jobSpace, nil
}

// resolveScriptParams takes parameter kinds and the combination count from
// the combinations file when it can be read. Without the file the parameter
// list must be given; kinds not spelled out default to numeric.
func resolveScriptParams(opts *scriptsOptions, tableOpts table.Options) ([]jobspace.Param, int, error) {
	refs, err := jobspace.ParseParamList(opts.Params)
	if err != nil {
		return nil, 0, err
	}

	tableOpts.Header = true
	t, err := table.Load(opts.Combos, tableOpts)
	if err == nil {
		combos, params, err := jobspace.ParseCombinations(t, refs)
		if err != nil {
			return nil, 0, err
		}
		if len(combos) == 0 {
			return nil, 0, errs.Configf("%s: combination set is empty", opts.Combos)
		}
		return params, len(combos), nil
	}
	if !errors.Is(err, errs.ErrFileAccess) {
		return nil, 0, err
	}
	if len(refs) == 0 {
		return nil, 0, errs.Configf("--params is required when %s cannot be read: %v", opts.Combos, err)
	}

	logWarn(fmt.Sprintf("%s is not readable here; parameter kinds come from --params", opts.Combos))
	params := make([]jobspace.Param, len(refs))
	for i, ref := range refs {
		kind := jobspace.Numeric
		if ref.KindSet {
			kind = ref.Kind
		}
		params[i] = jobspace.Param{Name: ref.Name, Kind: kind}
	}
	return params, 0, nil
}

// parseMemoryGB accepts a whole number of gigabytes with an optional G or GB
// suffix.
func parseMemoryGB(raw string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "B")
	s = strings.TrimSuffix(s, "G")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errs.Configf("--mem %q is not a positive number of gigabytes", raw)
	}
	return n, nil
}
