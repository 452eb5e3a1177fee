package app

import (
	"unicode/utf8"

	"github.com/spf13/pflag"

	"slimsweep/internal/errs"
	"slimsweep/internal/jobspace"
	"slimsweep/internal/plan"
	"slimsweep/internal/table"
)

// inputOptions are the flags shared by run and plan: where the tables are
// and how the simulator is called.
type inputOptions struct {
	Seeds        string
	SeedColumn   string
	NoSeedHeader bool
	Combos       string
	Params       string
	Script       string
	Binary       string
	SeedFlag     string
	Nesting      string
	Delimiter    string
}

func addInputFlags(fs *pflag.FlagSet, o *inputOptions) {
	fs.StringVar(&o.Seeds, "seeds", "seeds.csv", "Seed table file")
	fs.StringVar(&o.SeedColumn, "seed-column", "", "Seed column (default Seed, or X0 without a header)")
	fs.BoolVar(&o.NoSeedHeader, "no-seed-header", false, "The seed table has no header row")
	fs.StringVar(&o.Combos, "combos", "lscombos.csv", "Parameter combination table file")
	fs.StringVarP(&o.Params, "params", "p", "", "Comma-delimited parameters, optionally name:numeric or name:string (default: every column)")
	fs.StringVar(&o.Script, "script", "", "Simulation script passed last to the simulator")
	fs.StringVar(&o.Binary, "binary", jobspace.DefaultBinary, "Simulator binary")
	fs.StringVar(&o.SeedFlag, "seed-flag", jobspace.DefaultSeedFlag, "Flag that passes the seed")
	fs.StringVar(&o.Nesting, "nesting", jobspace.SeedsOuter.String(), "Enumeration order: seeds-outer or combos-outer")
	fs.StringVar(&o.Delimiter, "delimiter", ",", "Field delimiter of both tables")
}

// inputs merges flags over the config file and environment.
func (o *inputOptions) inputs(s *session) (plan.Inputs, error) {
	in := plan.Inputs{
		SeedsPath:   o.Seeds,
		SeedColumn:  o.SeedColumn,
		SeedsHeader: !o.NoSeedHeader,
		CombosPath:  o.Combos,
		Params:      o.Params,
		Invocation: jobspace.Invocation{
			Binary:     s.stringSetting("binary", o.Binary, s.cfg.Binary),
			SeedFlag:   s.stringSetting("seed-flag", o.SeedFlag, s.cfg.SeedFlag),
			ScriptPath: o.Script,
		},
	}

	nesting, err := jobspace.ParseNesting(s.stringSetting("nesting", o.Nesting, s.cfg.Nesting))
	if err != nil {
		return plan.Inputs{}, err
	}
	in.Nesting = nesting

	opts, err := tableOptions(s, o.Delimiter)
	if err != nil {
		return plan.Inputs{}, err
	}
	in.TableOptions = opts
	return in, nil
}

// tableOptions resolves the delimiter shared by both tables from the flag,
// then the config file. Lines starting with # are comments.
func tableOptions(s *session, flagValue string) (table.Options, error) {
	delim := flagValue
	if !s.changed("delimiter") && s.cfg.Delimiter != "" {
		delim = s.cfg.Delimiter
	}
	if delim == `\t` {
		delim = "\t"
	}
	if utf8.RuneCountInString(delim) != 1 || delim == `"` || delim == "#" || delim == "\n" || delim == "\r" {
		return table.Options{}, errs.Configf("--delimiter must be a single character other than a quote, # or a line break, got %q", delim)
	}
	comma, _ := utf8.DecodeRuneInString(delim)
	return table.Options{Comma: comma, Comment: '#'}, nil
}
