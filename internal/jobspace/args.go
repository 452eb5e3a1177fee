package jobspace

import (
	"strconv"
	"strings"

	"slimsweep/internal/errs"
)

const (
	DefaultBinary   = "slim"
	DefaultSeedFlag = "-s"
	DefineFlag      = "-d"
)

// Invocation describes how the simulator is called.
type Invocation struct {
	Binary     string `json:"binary" yaml:"binary"`
	SeedFlag   string `json:"seed_flag,omitempty" yaml:"seed_flag,omitempty"`
	ScriptPath string `json:"script" yaml:"script"`
}

func (inv Invocation) withDefaults() Invocation {
	if strings.TrimSpace(inv.Binary) == "" {
		inv.Binary = DefaultBinary
	}
	if strings.TrimSpace(inv.SeedFlag) == "" {
		inv.SeedFlag = DefaultSeedFlag
	}
	return inv
}

// Validate checks that a simulation script is set.
func (inv Invocation) Validate() error {
	if strings.TrimSpace(inv.ScriptPath) == "" {
		return errs.Configf("simulation script path is required")
	}
	return nil
}

// FormatNumber renders a numeric value in fixed-point notation with the
// shortest digits that round-trip. A decimal point is always present so the
// simulator types the constant as a float.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Assignment renders one name=value definition for the define flag.
func Assignment(v Value) string {
	if v.Param.Kind == String {
		return v.Param.Name + "=" + QuoteLiteral(v.Raw)
	}
	return v.Param.Name + "=" + FormatNumber(v.Num)
}

// ArgBuilder assembles a simulator argv. Quoting is deferred to ShellQuote
// when a command line is rendered; the argv itself is exec-ready.
type ArgBuilder struct {
	inv  Invocation
	args []string
}

func NewArgBuilder(inv Invocation) *ArgBuilder {
	inv = inv.withDefaults()
	return &ArgBuilder{inv: inv, args: []string{inv.Binary}}
}

func (b *ArgBuilder) Seed(s Seed) *ArgBuilder {
	b.args = append(b.args, b.inv.SeedFlag, string(s))
	return b
}

func (b *ArgBuilder) Define(v Value) *ArgBuilder {
	b.args = append(b.args, DefineFlag, Assignment(v))
	return b
}

func (b *ArgBuilder) Combination(c Combination) *ArgBuilder {
	for _, v := range c.Values {
		b.Define(v)
	}
	return b
}

// Build appends the script path and returns the argv.
func (b *ArgBuilder) Build() []string {
	out := make([]string, 0, len(b.args)+1)
	out = append(out, b.args...)
	return append(out, b.inv.ScriptPath)
}

// BuildArgs renders the full argv for one pairing.
func BuildArgs(inv Invocation, s Seed, c Combination) []string {
	return NewArgBuilder(inv).Seed(s).Combination(c).Build()
}
