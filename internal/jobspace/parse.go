package jobspace

import (
	"math"
	"strconv"
	"strings"

	"slimsweep/internal/errs"
	"slimsweep/internal/table"
)

// ValidateParamName requires an identifier the simulator can define:
// a letter or underscore followed by letters, digits or underscores.
func ValidateParamName(name string) error {
	if name == "" {
		return errs.Configf("parameter name is empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return errs.Configf("parameter name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// ParseParamList parses a comma-delimited list such as "nloci,Ne:numeric,
// model:string". Entries without a kind are inferred from the table.
func ParseParamList(list string) ([]ParamRef, error) {
	var refs []ParamRef
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		ref := ParamRef{Name: raw}
		if name, kind, ok := strings.Cut(raw, ":"); ok {
			k, valid := ParseKind(kind)
			if !valid {
				return nil, errs.Configf("parameter %q has unknown kind %q", name, kind)
			}
			ref = ParamRef{Name: strings.TrimSpace(name), Kind: k, KindSet: true}
		}
		if err := ValidateParamName(ref.Name); err != nil {
			return nil, err
		}
		if _, dup := seen[ref.Name]; dup {
			return nil, errs.Configf("parameter %q listed twice", ref.Name)
		}
		seen[ref.Name] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParamRef is a requested parameter, optionally with an explicit kind.
type ParamRef struct {
	Name    string
	Kind    Kind
	KindSet bool
}

// Names lists the referenced parameter names in order.
func Names(refs []ParamRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}

// ParseSeed validates s as a signed or unsigned 64-bit decimal integer.
func ParseSeed(s string) (Seed, bool) {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Seed(s), true
	}
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Seed(s), true
	}
	return "", false
}

// ParseSeeds reads the named column of t as seeds.
func ParseSeeds(t *table.Table, column string) ([]Seed, error) {
	values, ok := t.Column(column)
	if !ok {
		return nil, errs.Configf("%s: seed column %q not found (columns: %s)", pathOf(t), column, strings.Join(t.Columns, ","))
	}
	seeds := make([]Seed, len(values))
	for i, raw := range values {
		s, ok := ParseSeed(raw)
		if !ok {
			return nil, &errs.TypeMismatchError{Path: pathOf(t), Column: column, Row: i + 1, Value: raw, Want: "integer seed"}
		}
		seeds[i] = s
	}
	return seeds, nil
}

// ParseCombinations reads one Combination per row of t. With no refs every
// column is used. Kinds not given explicitly are inferred: a column whose
// cells all parse as finite numbers is Numeric, anything else String.
func ParseCombinations(t *table.Table, refs []ParamRef) ([]Combination, []Param, error) {
	if len(refs) == 0 {
		for _, name := range t.Columns {
			if err := ValidateParamName(name); err != nil {
				return nil, nil, errs.Configf("%s: column %q is not usable as a parameter name", pathOf(t), name)
			}
			refs = append(refs, ParamRef{Name: name})
		}
	}

	params := make([]Param, len(refs))
	columns := make([][]string, len(refs))
	for i, ref := range refs {
		values, ok := t.Column(ref.Name)
		if !ok {
			return nil, nil, errs.Configf("%s: parameter column %q not found (columns: %s)", pathOf(t), ref.Name, strings.Join(t.Columns, ","))
		}
		kind := ref.Kind
		if !ref.KindSet {
			kind = inferKind(values)
		}
		params[i] = Param{Name: ref.Name, Kind: kind}
		columns[i] = values
	}

	combos := make([]Combination, t.Len())
	for row := range combos {
		vals := make([]Value, len(params))
		for c, p := range params {
			raw := columns[c][row]
			v := Value{Param: p, Raw: raw}
			if p.Kind == Numeric {
				num, ok := parseNumber(raw)
				if !ok {
					return nil, nil, &errs.TypeMismatchError{Path: pathOf(t), Column: p.Name, Row: row + 1, Value: raw, Want: "number"}
				}
				v.Num = num
			}
			vals[c] = v
		}
		combos[row] = Combination{Index: row, Values: vals}
	}
	return combos, params, nil
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func inferKind(values []string) Kind {
	if len(values) == 0 {
		return Numeric
	}
	for _, v := range values {
		if _, ok := parseNumber(v); !ok {
			return String
		}
	}
	return Numeric
}

func pathOf(t *table.Table) string {
	if t == nil || t.Path == "" {
		return "<table>"
	}
	return t.Path
}
