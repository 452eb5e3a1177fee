// Package jobspace builds the ordered cross product of seeds and parameter
// combinations and renders each pairing into a simulator invocation.
package jobspace

import (
	"fmt"
	"strings"

	"slimsweep/internal/errs"
)

// Seed is a validated decimal integer, kept as text so signed and unsigned
// 64-bit seeds pass through unchanged.
type Seed string

// Kind is how a parameter value is rendered on the command line.
type Kind int

const (
	Numeric Kind = iota
	String
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts "numeric"/"num"/"float" and "string"/"str".
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "num", "float", "number":
		return Numeric, true
	case "string", "str", "text":
		return String, true
	default:
		return 0, false
	}
}

// Param names one swept parameter.
type Param struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Value is one parameter value of a combination. Num is set for Numeric
// params.
type Value struct {
	Param Param
	Raw   string
	Num   float64
}

// Combination is one row of the combinations table.
type Combination struct {
	Index  int
	Values []Value
}

// Get returns the value of the named parameter.
func (c Combination) Get(name string) (Value, bool) {
	for _, v := range c.Values {
		if v.Param.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Label is a compact "name=value,..." description for logs and reports.
func (c Combination) Label() string {
	parts := make([]string, len(c.Values))
	for i, v := range c.Values {
		parts[i] = v.Param.Name + "=" + v.Raw
	}
	return strings.Join(parts, ",")
}

// Nesting selects which input varies slowest in the enumeration.
type Nesting int

const (
	// SeedsOuter: for each seed, every combination.
	SeedsOuter Nesting = iota
	// CombosOuter: for each combination, every seed. This is the layout of
	// the generated driver script.
	CombosOuter
)

func (n Nesting) String() string {
	if n == CombosOuter {
		return "combos-outer"
	}
	return "seeds-outer"
}

// ParseNesting accepts "seeds-outer"/"seeds" and "combos-outer"/"combos".
func ParseNesting(s string) (Nesting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seeds", "seeds-outer", "seed":
		return SeedsOuter, nil
	case "combos", "combos-outer", "combo", "combinations":
		return CombosOuter, nil
	default:
		return 0, errs.Configf("unknown nesting %q (want seeds-outer or combos-outer)", s)
	}
}

// JobSpec is one (seed, combination) pairing and its simulator argv.
type JobSpec struct {
	Index       int
	SeedIndex   int
	Seed        Seed
	Combination Combination
	Args        []string
}

// Command returns the executable and its arguments.
func (j JobSpec) Command() (string, []string) {
	if len(j.Args) == 0 {
		return "", nil
	}
	return j.Args[0], j.Args[1:]
}

// CommandLine renders the argv as a single shell command line.
func (j JobSpec) CommandLine() string {
	return JoinArgs(j.Args)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown parameter kind %q", string(b))
	}
	*k = parsed
	return nil
}

func (n Nesting) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *Nesting) UnmarshalText(b []byte) error {
	parsed, err := ParseNesting(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
