package jobspace

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"slimsweep/internal/errs"
	"slimsweep/internal/table"
)

var testInvocation = Invocation{Binary: "slim", ScriptPath: "example_script.slim"}

func mustTable(t *testing.T, text string, header bool) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(text), table.Options{Header: header})
	require.NoError(t, err)
	return tbl
}

func scenarioInputs(t *testing.T) ([]Seed, []Combination) {
	t.Helper()
	seeds, err := ParseSeeds(mustTable(t, "Seed\n17\n42", true), "Seed")
	require.NoError(t, err)
	combos, params, err := ParseCombinations(mustTable(t, "param1,param2\n1.5,a\n2.0,b\n", true), nil)
	require.NoError(t, err)
	require.Equal(t, []Param{{Name: "param1", Kind: Numeric}, {Name: "param2", Kind: String}}, params)
	return seeds, combos
}

type pairing struct {
	seed   Seed
	param1 string
	param2 string
}

func pairings(jobs []JobSpec) []pairing {
	out := make([]pairing, len(jobs))
	for i, j := range jobs {
		p1, _ := j.Combination.Get("param1")
		p2, _ := j.Combination.Get("param2")
		out[i] = pairing{j.Seed, p1.Raw, p2.Raw}
	}
	return out
}

func TestEnumerateScenarioSeedsOuter(t *testing.T) {
	seeds, combos := scenarioInputs(t)

	jobs, err := Enumerate(seeds, combos, testInvocation, SeedsOuter)
	require.NoError(t, err)

	assert.Equal(t, []pairing{
		{"17", "1.5", "a"},
		{"17", "2.0", "b"},
		{"42", "1.5", "a"},
		{"42", "2.0", "b"},
	}, pairings(jobs))
	for i, j := range jobs {
		assert.Equal(t, i, j.Index)
	}
	assert.Equal(t,
		[]string{"slim", "-s", "17", "-d", "param1=1.5", "-d", "param2='a'", "example_script.slim"},
		jobs[0].Args)
	assert.Equal(t, `slim -s 42 -d param1=2.0 -d "param2='b'" example_script.slim`, jobs[3].CommandLine())
}

func TestEnumerateScenarioCombosOuter(t *testing.T) {
	seeds, combos := scenarioInputs(t)

	jobs, err := Enumerate(seeds, combos, testInvocation, CombosOuter)
	require.NoError(t, err)

	assert.Equal(t, []pairing{
		{"17", "1.5", "a"},
		{"42", "1.5", "a"},
		{"17", "2.0", "b"},
		{"42", "2.0", "b"},
	}, pairings(jobs))
}

func TestEnumerateEmptyInputs(t *testing.T) {
	seeds, combos := scenarioInputs(t)

	emptyCombos, _, err := ParseCombinations(mustTable(t, "param1,param2\n", true), nil)
	require.NoError(t, err)

	jobs, err := Enumerate(seeds, emptyCombos, testInvocation, SeedsOuter)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
	assert.Empty(t, jobs)

	jobs, err = Enumerate(nil, combos, testInvocation, SeedsOuter)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
	assert.Empty(t, jobs)
}

func TestEnumerateRequiresScript(t *testing.T) {
	seeds, combos := scenarioInputs(t)
	_, err := Enumerate(seeds, combos, Invocation{Binary: "slim"}, SeedsOuter)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func genCombos(t *rapid.T, n int) []Combination {
	combos := make([]Combination, n)
	for i := range combos {
		num := float64(i) + rapid.Float64Range(0, 0.5).Draw(t, "num")
		combos[i] = Combination{Index: i, Values: []Value{
			{Param: Param{Name: "p", Kind: Numeric}, Raw: FormatNumber(num), Num: num},
			{Param: Param{Name: "q", Kind: String}, Raw: "v" + strconv.Itoa(i)},
		}}
	}
	return combos
}

func TestEnumerateCardinality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nSeeds := rapid.IntRange(1, 30).Draw(t, "seeds")
		nCombos := rapid.IntRange(1, 30).Draw(t, "combos")
		nesting := rapid.SampledFrom([]Nesting{SeedsOuter, CombosOuter}).Draw(t, "nesting")

		seeds := make([]Seed, nSeeds)
		for i := range seeds {
			seeds[i] = Seed(strconv.Itoa(1000 + i))
		}
		combos := genCombos(t, nCombos)

		jobs, err := Enumerate(seeds, combos, testInvocation, nesting)
		if err != nil {
			t.Fatalf("Enumerate: %v", err)
		}
		if len(jobs) != nSeeds*nCombos {
			t.Fatalf("got %d jobs, want %d", len(jobs), nSeeds*nCombos)
		}

		seen := make(map[[2]int]struct{}, len(jobs))
		lines := make(map[string]struct{}, len(jobs))
		for i, j := range jobs {
			key := [2]int{j.SeedIndex, j.Combination.Index}
			if _, dup := seen[key]; dup {
				t.Fatalf("duplicate pairing %v", key)
			}
			seen[key] = struct{}{}
			lines[j.CommandLine()] = struct{}{}

			si, ci, ok := Locate(i, nSeeds, nCombos, nesting)
			if !ok || si != j.SeedIndex || ci != j.Combination.Index {
				t.Fatalf("Locate(%d) = (%d,%d,%v), want (%d,%d)", i, si, ci, ok, j.SeedIndex, j.Combination.Index)
			}
		}
		if len(lines) != len(jobs) {
			t.Fatalf("command lines not injective: %d distinct for %d jobs", len(lines), len(jobs))
		}
	})
}

func TestLocateOutOfRange(t *testing.T) {
	_, _, ok := Locate(4, 2, 2, SeedsOuter)
	assert.False(t, ok)
	_, _, ok = Locate(-1, 2, 2, SeedsOuter)
	assert.False(t, ok)
	_, _, ok = Locate(0, 0, 2, CombosOuter)
	assert.False(t, ok)
}

func TestCommandLineShellRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := rapid.StringMatching(`[ -~\t\n]{0,24}`).Draw(t, "value")
		combo := Combination{Values: []Value{
			{Param: Param{Name: "param1", Kind: Numeric}, Raw: "0.1", Num: 0.1},
			{Param: Param{Name: "param2", Kind: String}, Raw: value},
		}}
		job := JobSpec{Args: BuildArgs(testInvocation, "7", combo)}

		tokens, err := shellquote.Split(job.CommandLine())
		if err != nil {
			t.Fatalf("Split(%q): %v", job.CommandLine(), err)
		}
		if strings.Join(tokens, "\x00") != strings.Join(job.Args, "\x00") {
			t.Fatalf("tokens %q != args %q", tokens, job.Args)
		}

		assign := tokens[len(tokens)-2]
		lit, ok := strings.CutPrefix(assign, "param2=")
		if !ok {
			t.Fatalf("unexpected assignment %q", assign)
		}
		got, ok := UnquoteLiteral(lit)
		if !ok || got != value {
			t.Fatalf("UnquoteLiteral(%q) = %q, %v; want %q", lit, got, ok, value)
		}
	})
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"slim", "slim"},
		{"param1=1.5", "param1=1.5"},
		{"", `""`},
		{"param2='a'", `"param2='a'"`},
		{"a b", `"a b"`},
		{`x"y`, `"x\"y"`},
		{"$HOME", `"\$HOME"`},
		{"`id`", "\"\\`id\\`\""},
		{`back\slash`, `"back\\slash"`},
		{"~/script.slim", `"~/script.slim"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellQuote(tt.in))
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'a'`, QuoteLiteral("a"))
	assert.Equal(t, `'it\'s'`, QuoteLiteral("it's"))
	assert.Equal(t, `'c:\\x'`, QuoteLiteral(`c:\x`))

	_, ok := UnquoteLiteral("a")
	assert.False(t, ok)
	_, ok = UnquoteLiteral(`'a\'`)
	assert.False(t, ok)
	_, ok = UnquoteLiteral(`'a'b'`)
	assert.False(t, ok)
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		1.5:     "1.5",
		2:       "2.0",
		0.1:     "0.1",
		-3:      "-3.0",
		1e21:    "1000000000000000000000.0",
		0.00001: "0.00001",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatNumber(in), "FormatNumber(%v)", in)
	}
}

func TestParseSeedsTypeMismatch(t *testing.T) {
	_, err := ParseSeeds(mustTable(t, "Seed\n17\nabc\n", true), "Seed")
	require.Error(t, err)

	var tme *errs.TypeMismatchError
	require.True(t, errors.As(err, &tme))
	assert.Equal(t, "Seed", tme.Column)
	assert.Equal(t, 2, tme.Row)
	assert.Equal(t, "abc", tme.Value)
}

func TestParseSeedsAcceptsSignedAndUnsigned(t *testing.T) {
	seeds, err := ParseSeeds(mustTable(t, "-5\n18446744073709551615\n", false), "X0")
	require.NoError(t, err)
	assert.Equal(t, []Seed{"-5", "18446744073709551615"}, seeds)

	_, err = ParseSeeds(mustTable(t, "1\n", false), "Seed")
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestParseCombinationsExplicitKinds(t *testing.T) {
	tbl := mustTable(t, "nloci,Ne,model\n10,100,neutral\n20,x,sweep\n", true)

	refs, err := ParseParamList("nloci, model:string")
	require.NoError(t, err)
	combos, params, err := ParseCombinations(tbl, refs)
	require.NoError(t, err)
	assert.Equal(t, []Param{{"nloci", Numeric}, {"model", String}}, params)
	require.Len(t, combos, 2)
	assert.Equal(t, 20.0, combos[1].Values[0].Num)
	assert.Equal(t, "nloci=10,model=neutral", combos[0].Label())

	refs, err = ParseParamList("Ne:numeric")
	require.NoError(t, err)
	_, _, err = ParseCombinations(tbl, refs)
	var tme *errs.TypeMismatchError
	require.True(t, errors.As(err, &tme))
	assert.Equal(t, "Ne", tme.Column)
	assert.Equal(t, 2, tme.Row)
}

func TestParseCombinationsNumericStrings(t *testing.T) {
	// A numeric-looking column forced to string is quoted as a literal.
	tbl := mustTable(t, "level\n1\n", true)
	refs, err := ParseParamList("level:string")
	require.NoError(t, err)
	combos, _, err := ParseCombinations(tbl, refs)
	require.NoError(t, err)
	assert.Equal(t, "level='1'", Assignment(combos[0].Values[0]))
}

func TestParseCombinationsMissingColumn(t *testing.T) {
	refs, err := ParseParamList("absent")
	require.NoError(t, err)
	_, _, err = ParseCombinations(mustTable(t, "a\n1\n", true), refs)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestParseParamList(t *testing.T) {
	refs, err := ParseParamList("nloci,Ne,param1,param2")
	require.NoError(t, err)
	assert.Equal(t, []string{"nloci", "Ne", "param1", "param2"}, Names(refs))

	for _, bad := range []string{"a,a", "1abc", "a-b", "x:weird", "a b"} {
		_, err := ParseParamList(bad)
		assert.True(t, errors.Is(err, errs.ErrConfiguration), "ParseParamList(%q)", bad)
	}

	refs, err = ParseParamList("")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestParseNesting(t *testing.T) {
	n, err := ParseNesting("combos")
	require.NoError(t, err)
	assert.Equal(t, CombosOuter, n)

	n, err = ParseNesting("")
	require.NoError(t, err)
	assert.Equal(t, SeedsOuter, n)

	_, err = ParseNesting("diagonal")
	require.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Contains(t, err.Error(), `unknown nesting "diagonal"`)

	text, err := CombosOuter.MarshalText()
	require.NoError(t, err)
	var back Nesting
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, CombosOuter, back)
}
