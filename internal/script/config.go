// Package script renders the scheduler resource script and the R driver
// script that run a sweep on a batch cluster.
package script

import (
	"regexp"
	"strconv"
	"strings"

	"slimsweep/internal/config"
	"slimsweep/internal/errs"
	"slimsweep/internal/jobspace"
	"slimsweep/internal/plan"
	"slimsweep/internal/table"
)

const (
	DefaultName       = "slim_script"
	DefaultJobName    = "slim_job"
	DefaultCombosFile = "lscombos.csv"
	DefaultSeedsFile  = "seeds.csv"
	DefaultSeedColumn = "Seed"
)

// Mode selects which artifacts are produced.
type Mode int

const (
	Both Mode = iota
	ResourceOnly
	DriverOnly
)

func (m Mode) String() string {
	switch m {
	case ResourceOnly:
		return "resource-only"
	case DriverOnly:
		return "driver-only"
	default:
		return "both"
	}
}

// ModeFromFlags maps the two "only" switches to a Mode; setting both is
// contradictory.
func ModeFromFlags(resourceOnly, driverOnly bool) (Mode, error) {
	switch {
	case resourceOnly && driverOnly:
		return Both, errs.Configf("resource-only and driver-only are mutually exclusive")
	case resourceOnly:
		return ResourceOnly, nil
	case driverOnly:
		return DriverOnly, nil
	default:
		return Both, nil
	}
}

// Config is built once by NewConfig and only read afterwards.
type Config struct {
	name       string
	jobName    string
	shell      string
	queue      string
	account    string
	walltime   string
	cores      int
	memoryGB   int
	jobArray   string
	rModule    string
	scratchDir string
	resultsDir string
	outputs    []string
	combosFile string
	seedsFile  string
	seedColumn string
	seedsHead  bool
	comma      rune
	comment    rune
	seedFlag   string
	params     []jobspace.Param
	binary     string
	script     string
	nesting    jobspace.Nesting
	comboCount int
}

type Option func(*Config)

func WithName(name string) Option           { return func(c *Config) { c.name = name } }
func WithJobName(name string) Option        { return func(c *Config) { c.jobName = name } }
func WithShell(line string) Option          { return func(c *Config) { c.shell = line } }
func WithQueue(queue string) Option         { return func(c *Config) { c.queue = queue } }
func WithAccount(account string) Option     { return func(c *Config) { c.account = account } }
func WithWalltime(walltime string) Option   { return func(c *Config) { c.walltime = walltime } }
func WithCores(n int) Option                { return func(c *Config) { c.cores = n } }
func WithMemoryGB(n int) Option             { return func(c *Config) { c.memoryGB = n } }
func WithJobArray(r string) Option          { return func(c *Config) { c.jobArray = r } }
func WithRModule(module string) Option      { return func(c *Config) { c.rModule = module } }
func WithScratchDir(dir string) Option      { return func(c *Config) { c.scratchDir = dir } }
func WithResultsDir(dir string) Option      { return func(c *Config) { c.resultsDir = dir } }
func WithCombosFile(path string) Option     { return func(c *Config) { c.combosFile = path } }
func WithSeedsFile(path string) Option      { return func(c *Config) { c.seedsFile = path } }
func WithSeedColumn(column string) Option   { return func(c *Config) { c.seedColumn = column } }
func WithBinary(binary string) Option       { return func(c *Config) { c.binary = binary } }
func WithSeedFlag(flag string) Option       { return func(c *Config) { c.seedFlag = flag } }
func WithScript(path string) Option         { return func(c *Config) { c.script = path } }
func WithNesting(n jobspace.Nesting) Option { return func(c *Config) { c.nesting = n } }

// WithSeedsHeader states whether the seeds file starts with a header row.
// Without one R names the column V1.
func WithSeedsHeader(header bool) Option { return func(c *Config) { c.seedsHead = header } }

// WithComboCount records how many rows the combinations file has so a job
// array range can be checked against it. Zero skips the check.
func WithComboCount(n int) Option { return func(c *Config) { c.comboCount = n } }

// WithTableOptions sets the delimiter and comment character the driver
// reads both tables with.
func WithTableOptions(o table.Options) Option {
	return func(c *Config) { c.comma, c.comment = o.Comma, o.Comment }
}

// WithPlan takes the job space from p: both tables and how they are split,
// the seed column, the parameters and their kinds, the nesting and the
// simulator invocation. Options after it override single fields.
func WithPlan(p *plan.Plan) Option {
	return func(c *Config) {
		c.seedsFile = p.SeedsPath
		c.seedColumn = p.SeedColumn
		c.seedsHead = p.SeedsHeader
		c.combosFile = p.CombosPath
		c.comma, c.comment = p.TableOptions.Comma, p.TableOptions.Comment
		c.params = append([]jobspace.Param(nil), p.Params...)
		c.comboCount = len(p.Combinations)
		c.nesting = p.Nesting
		c.script = p.Invocation.ScriptPath
		if p.Invocation.Binary != "" {
			c.binary = p.Invocation.Binary
		}
		if p.Invocation.SeedFlag != "" {
			c.seedFlag = p.Invocation.SeedFlag
		}
	}
}

func WithOutputs(files []string) Option {
	return func(c *Config) { c.outputs = append([]string(nil), files...) }
}

func WithParams(params []jobspace.Param) Option {
	return func(c *Config) { c.params = append([]jobspace.Param(nil), params...) }
}

// WithProfile applies every preset the profile sets. Options after it
// override it.
func WithProfile(p config.Profile) Option {
	return func(c *Config) {
		set := func(dst *string, v string) {
			if strings.TrimSpace(v) != "" {
				*dst = v
			}
		}
		set(&c.shell, p.Shell)
		set(&c.queue, p.Queue)
		set(&c.account, p.Account)
		set(&c.rModule, p.RModule)
		set(&c.scratchDir, p.ScratchDir)
		set(&c.resultsDir, p.ResultsDir)
		set(&c.walltime, p.Walltime)
		set(&c.binary, p.Binary)
		if p.Cores > 0 {
			c.cores = p.Cores
		}
		if p.MemoryGB > 0 {
			c.memoryGB = p.MemoryGB
		}
		if len(p.Outputs) > 0 {
			c.outputs = append([]string(nil), p.Outputs...)
		}
	}
}

var (
	walltimePattern = regexp.MustCompile(`^\d+:[0-5]\d:[0-5]\d$`)
	jobArrayPattern = regexp.MustCompile(`^(\d+)-(\d+)(?::(\d+))?$`)
)

// NewConfig starts from the default cluster profile, applies opts in order
// and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	base, err := config.ResolveProfile("")
	if err != nil {
		return Config{}, err
	}
	c := Config{
		name:       DefaultName,
		jobName:    DefaultJobName,
		combosFile: DefaultCombosFile,
		seedsFile:  DefaultSeedsFile,
		seedColumn: DefaultSeedColumn,
		seedsHead:  true,
		comma:      ',',
		comment:    '#',
		seedFlag:   jobspace.DefaultSeedFlag,
		nesting:    jobspace.CombosOuter,
	}
	WithProfile(base)(&c)
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	c.name = strings.TrimSpace(c.name)
	c.jobName = strings.TrimSpace(c.jobName)
	c.jobArray = strings.TrimSpace(strings.TrimPrefix(c.jobArray, "="))
	switch {
	case c.name == "":
		return errs.Configf("script name is empty")
	case c.jobName == "" || strings.ContainsAny(c.jobName, " \t\n"):
		return errs.Configf("job name %q must be a single non-empty word", c.jobName)
	case !walltimePattern.MatchString(c.walltime):
		return errs.Configf("walltime %q is not HH:MM:SS", c.walltime)
	case c.cores <= 0:
		return errs.Configf("cores must be positive, got %d", c.cores)
	case c.memoryGB <= 0:
		return errs.Configf("memory must be positive, got %d GB", c.memoryGB)
	case strings.TrimSpace(c.script) == "":
		return errs.Configf("simulation script path is required")
	case strings.TrimSpace(c.binary) == "":
		return errs.Configf("simulator binary is empty")
	case strings.TrimSpace(c.seedFlag) == "":
		return errs.Configf("seed flag is empty")
	}
	if c.comma == 0 {
		c.comma = ','
	}
	if c.comma == '"' || c.comma == '\n' || c.comma == '\r' || c.comma == c.comment {
		return errs.Configf("delimiter %q cannot split the tables", c.comma)
	}
	if !c.seedsHead {
		c.seedColumn = "V1"
	}
	if err := jobspace.ValidateParamName(c.seedColumn); err != nil {
		return errs.Configf("seed column %q is not a valid R column name", c.seedColumn)
	}
	seen := make(map[string]struct{}, len(c.params))
	for _, p := range c.params {
		if err := jobspace.ValidateParamName(p.Name); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return errs.Configf("parameter %q listed twice", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	for _, out := range c.outputs {
		if strings.TrimSpace(out) == "" || strings.ContainsAny(out, "/ \t\n") {
			return errs.Configf("output file %q must be a plain file name", out)
		}
	}
	return c.validateJobArray()
}

func (c *Config) validateJobArray() error {
	if c.jobArray == "" {
		return nil
	}
	m := jobArrayPattern.FindStringSubmatch(c.jobArray)
	if m == nil {
		return errs.Configf("job array %q is not of the form START-END[:STEP]", c.jobArray)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if start < 1 || end < start {
		return errs.Configf("job array %q must satisfy 1 <= START <= END", c.jobArray)
	}
	if len(c.params) == 0 {
		return errs.Configf("a job array needs swept parameters: each array index selects one combination")
	}
	if c.comboCount > 0 && end > c.comboCount {
		return errs.Configf("job array %q addresses combination %d but %s has only %d", c.jobArray, end, c.combosFile, c.comboCount)
	}
	return nil
}

func (c Config) Name() string             { return c.name }
func (c Config) Params() []jobspace.Param { return append([]jobspace.Param(nil), c.params...) }

// ResourcePath and DriverPath are where Write puts the two artifacts.
func (c Config) ResourcePath() string { return c.name + ".pbs" }
func (c Config) DriverPath() string   { return c.name + ".R" }

func (c Config) paramNames() []string {
	names := make([]string, len(c.params))
	for i, p := range c.params {
		names[i] = p.Name
	}
	return names
}
