// Package plan assembles the read-only ExecutionPlan shared by the local
// dispatcher and the script synthesizer.
package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"slimsweep/internal/jobspace"
	"slimsweep/internal/table"
)

// Resources is the concurrency and scheduler request for a run.
type Resources struct {
	Workers  int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	Cores    int    `json:"cores,omitempty" yaml:"cores,omitempty"`
	MemoryGB int    `json:"memory_gb,omitempty" yaml:"memory_gb,omitempty"`
	Walltime string `json:"walltime,omitempty" yaml:"walltime,omitempty"`
	JobArray string `json:"job_array,omitempty" yaml:"job_array,omitempty"`
	Queue    string `json:"queue,omitempty" yaml:"queue,omitempty"`
	Account  string `json:"account,omitempty" yaml:"account,omitempty"`
}

// Inputs names the tables and options a plan is built from.
type Inputs struct {
	SeedsPath    string
	SeedColumn   string
	SeedsHeader  bool
	CombosPath   string
	Params       string // comma-delimited, empty means every column
	Invocation   jobspace.Invocation
	Nesting      jobspace.Nesting
	Resources    Resources
	Outputs      []string
	TableOptions table.Options
}

// Plan is built once and never mutated afterwards.
type Plan struct {
	RunID        string
	CreatedAt    time.Time
	SeedsPath    string
	SeedColumn   string
	SeedsHeader  bool
	CombosPath   string
	TableOptions table.Options
	Nesting      jobspace.Nesting
	Invocation   jobspace.Invocation
	Params       []jobspace.Param
	Seeds        []jobspace.Seed
	Combinations []jobspace.Combination
	Resources    Resources
	Outputs      []string

	jobs []jobspace.JobSpec
}

var (
	newRunID = func() string { return uuid.NewString() }
	nowFn    = time.Now
)

// Build loads both tables and enumerates the job space. Any load or
// enumeration error aborts before a plan exists.
func Build(in Inputs) (*Plan, error) {
	seedOpts := in.TableOptions
	seedOpts.Header = in.SeedsHeader
	seedTable, err := table.Load(in.SeedsPath, seedOpts)
	if err != nil {
		return nil, err
	}
	column := strings.TrimSpace(in.SeedColumn)
	if column == "" {
		if in.SeedsHeader {
			column = "Seed"
		} else {
			column = table.SyntheticName(0)
		}
	}
	seeds, err := jobspace.ParseSeeds(seedTable, column)
	if err != nil {
		return nil, err
	}
	in.SeedColumn = column

	comboOpts := in.TableOptions
	comboOpts.Header = true
	comboTable, err := table.Load(in.CombosPath, comboOpts)
	if err != nil {
		return nil, err
	}
	refs, err := jobspace.ParseParamList(in.Params)
	if err != nil {
		return nil, err
	}
	combos, params, err := jobspace.ParseCombinations(comboTable, refs)
	if err != nil {
		return nil, err
	}

	return New(seeds, combos, params, in)
}

// New builds a plan from already parsed inputs.
func New(seeds []jobspace.Seed, combos []jobspace.Combination, params []jobspace.Param, in Inputs) (*Plan, error) {
	jobs, err := jobspace.Enumerate(seeds, combos, in.Invocation, in.Nesting)
	if err != nil {
		return nil, err
	}
	return &Plan{
		RunID:        newRunID(),
		CreatedAt:    nowFn().UTC(),
		SeedsPath:    in.SeedsPath,
		SeedColumn:   in.SeedColumn,
		SeedsHeader:  in.SeedsHeader,
		CombosPath:   in.CombosPath,
		TableOptions: in.TableOptions,
		Nesting:      in.Nesting,
		Invocation:   in.Invocation,
		Params:       append([]jobspace.Param(nil), params...),
		Seeds:        append([]jobspace.Seed(nil), seeds...),
		Combinations: append([]jobspace.Combination(nil), combos...),
		Resources:    in.Resources,
		Outputs:      append([]string(nil), in.Outputs...),
		jobs:         jobs,
	}, nil
}

// Jobs returns the enumerated jobs. Callers must treat the slice as
// read-only.
func (p *Plan) Jobs() []jobspace.JobSpec {
	return p.jobs
}

// Len is the number of jobs.
func (p *Plan) Len() int {
	return len(p.jobs)
}

// ParamNames lists the swept parameters in order.
func (p *Plan) ParamNames() []string {
	names := make([]string, len(p.Params))
	for i, prm := range p.Params {
		names[i] = prm.Name
	}
	return names
}

// Manifest is the serializable form of a plan.
type Manifest struct {
	RunID        string              `json:"run_id" yaml:"run_id"`
	CreatedAt    time.Time           `json:"created_at" yaml:"created_at"`
	Seeds        string              `json:"seeds" yaml:"seeds"`
	Combinations string              `json:"combinations" yaml:"combinations"`
	Nesting      jobspace.Nesting    `json:"nesting" yaml:"nesting"`
	Invocation   jobspace.Invocation `json:"invocation" yaml:"invocation"`
	Params       []jobspace.Param    `json:"params" yaml:"params"`
	SeedCount    int                 `json:"seed_count" yaml:"seed_count"`
	ComboCount   int                 `json:"combination_count" yaml:"combination_count"`
	JobCount     int                 `json:"job_count" yaml:"job_count"`
	Resources    Resources           `json:"resources" yaml:"resources"`
	Outputs      []string            `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Jobs         []ManifestJob       `json:"jobs,omitempty" yaml:"jobs,omitempty"`
}

// ManifestJob is one job line of a manifest.
type ManifestJob struct {
	Index       int    `json:"index" yaml:"index"`
	Seed        string `json:"seed" yaml:"seed"`
	Combination int    `json:"combination" yaml:"combination"`
	Command     string `json:"command" yaml:"command"`
}

// Manifest describes the plan; brief omits the per-job lines.
func (p *Plan) Manifest(brief bool) Manifest {
	m := Manifest{
		RunID:        p.RunID,
		CreatedAt:    p.CreatedAt,
		Seeds:        p.SeedsPath,
		Combinations: p.CombosPath,
		Nesting:      p.Nesting,
		Invocation:   p.Invocation,
		Params:       p.Params,
		SeedCount:    len(p.Seeds),
		ComboCount:   len(p.Combinations),
		JobCount:     len(p.jobs),
		Resources:    p.Resources,
		Outputs:      p.Outputs,
	}
	if !brief {
		m.Jobs = make([]ManifestJob, len(p.jobs))
		for i, j := range p.jobs {
			m.Jobs[i] = ManifestJob{Index: j.Index, Seed: string(j.Seed), Combination: j.Combination.Index, Command: j.CommandLine()}
		}
	}
	return m
}

// Encode renders the manifest as "yaml" or "json".
func (p *Plan) Encode(format string, brief bool) ([]byte, error) {
	m := p.Manifest(brief)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		return yaml.Marshal(m)
	case "json":
		return json.MarshalIndent(m, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want yaml or json)", format)
	}
}
