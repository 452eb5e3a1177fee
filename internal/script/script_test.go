package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"slimsweep/internal/config"
	"slimsweep/internal/errs"
	"slimsweep/internal/jobspace"
	"slimsweep/internal/table"
)

var threeParams = []jobspace.Param{
	{Name: "param1", Kind: jobspace.Numeric},
	{Name: "param2", Kind: jobspace.String},
	{Name: "param3", Kind: jobspace.Numeric},
}

func newTestConfig(t *testing.T, opts ...Option) Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	config.ResetProfilesCacheForTest()
	t.Cleanup(config.ResetProfilesCacheForTest)

	base := []Option{WithScript("model.slim"), WithParams(threeParams)}
	cfg, err := NewConfig(append(base, opts...)...)
	require.NoError(t, err)
	return cfg
}

func TestThreeParameterSweepArtifactsAgree(t *testing.T) {
	cfg := newTestConfig(t)
	artifacts := Render(cfg, Both)
	require.Len(t, artifacts, 2)
	resource, driver := artifacts[0].Content, artifacts[1].Content

	require.Contains(t, resource, "# slimsweep: parameters=3 (param1,param2,param3)\n")
	require.Contains(t, driver, "# slimsweep: parameters=3 (param1,param2,param3)\n")

	defines, ok := driverDefines(driver)
	require.True(t, ok)
	require.Equal(t, []string{"param1", "param2", "param3"}, defines)
	require.NoError(t, CheckConsistency(resource, driver))
}

func TestRenderResourceScript(t *testing.T) {
	cfg := newTestConfig(t,
		WithJobName("stabsel"),
		WithJobArray("1-3"),
		WithOutputs([]string{"out_a.csv", "out_b.csv"}),
	)
	want := strings.Join([]string{
		"#!/bin/bash -l",
		"#PBS -q workq",
		"#PBS -A qris-uq",
		"#PBS -N stabsel",
		"#PBS -l walltime=3:00:00",
		"#PBS -l nodes=1:ncpus=24:mem=120GB",
		"#PBS -J 1-3",
		"# slimsweep: parameters=3 (param1,param2,param3)",
		"# slimsweep: seeds=seeds.csv",
		"# slimsweep: combinations=lscombos.csv",
		"# slimsweep: outputs=out_a.csv,out_b.csv",
		"# slimsweep: nesting=combos-outer",
		"",
		"cd $TMPDIR",
		"module load R/3.5.0",
		"",
		"SECONDS=0",
		"R --file=$PBS_O_WORKDIR/slim_script.R",
		"",
		"cat $TMPDIR/out_a.csv >> /30days/$USER/out_a.csv",
		"cat $TMPDIR/out_b.csv >> /30days/$USER/out_b.csv",
		"",
		"DURATION=$SECONDS",
		`echo "$(($DURATION / 3600)) hours, $((($DURATION / 60) % 60)) minutes, and $(($DURATION % 60)) seconds elapsed."`,
		"",
	}, "\n")
	require.Equal(t, want, RenderResourceScript(cfg))
}

func TestRenderResourceScriptOmitsUnsetDirectives(t *testing.T) {
	cfg := newTestConfig(t, WithQueue(""), WithAccount(""), WithRModule(""), WithName("/abs/sweep"))
	out := RenderResourceScript(cfg)
	require.NotContains(t, out, "#PBS -q")
	require.NotContains(t, out, "#PBS -A")
	require.NotContains(t, out, "#PBS -J")
	require.NotContains(t, out, "module load")
	require.Contains(t, out, "R --file=/abs/sweep.R\n")
}

func TestRenderDriverScript(t *testing.T) {
	cfg := newTestConfig(t, WithBinary("slim"), WithJobArray("1-4"))
	out := RenderDriverScript(cfg)

	for _, want := range []string{
		"USER <- Sys.getenv('USER')",
		"library(foreach)\nlibrary(doParallel)\nlibrary(future)",
		"read_table <- function(path, header) {",
		"  lines <- lines[!startsWith(lines, '#')]",
		"  t <- read.csv(text = lines, header = header, sep = ',', colClasses = 'character',",
		"seeds <- read_table('seeds.csv', header = TRUE)",
		"combos <- read_table('lscombos.csv', header = TRUE)",
		"array_index <- as.integer(Sys.getenv('PBS_ARRAY_INDEX', unset = '0'))",
		"combos <- combos[array_index, , drop = FALSE]",
		"cl <- makeCluster(future::availableCores())\nregisterDoParallel(cl)",
		`slim_cmd <- "slim -s %s -d param1=%s -d \"param2='%s'\" -d param3=%s model.slim"`,
		"status <- foreach(i=seq_len(nrow(combos)), .combine = c) %:%\n  foreach(j=seeds$Seed, .combine = c) %dopar% {",
		"system(sprintf(slim_cmd, j, slim_num(combos$param1[i]), slim_str(combos$param2[i]), slim_num(combos$param3[i])))",
		"stopCluster(cl)",
		"quit(status = 1)",
	} {
		require.Contains(t, out, want)
	}
}

func TestRenderDriverScriptSeedsOuter(t *testing.T) {
	cfg := newTestConfig(t, WithNesting(jobspace.SeedsOuter))
	out := RenderDriverScript(cfg)
	require.Contains(t, out, "status <- foreach(j=seeds$Seed, .combine = c) %:%\n  foreach(i=seq_len(nrow(combos)), .combine = c) %dopar% {")
	require.Contains(t, out, "# slimsweep: nesting=seeds-outer")
}

func TestRenderDriverScriptSeedOnly(t *testing.T) {
	cfg := newTestConfig(t, WithParams(nil), WithSeedsHeader(false))
	out := RenderDriverScript(cfg)
	require.NotContains(t, out, "combos")
	require.NotContains(t, out, "nesting=")
	require.Contains(t, out, "header = FALSE")
	require.Contains(t, out, "status <- foreach(j=seeds$V1, .combine = c) %dopar% {")
	require.Contains(t, out, "system(sprintf(slim_cmd, j))")
	require.NoError(t, CheckConsistency(RenderResourceScript(cfg), out))
}

func TestReadTableHelperFollowsTableOptions(t *testing.T) {
	cfg := newTestConfig(t, WithTableOptions(table.Options{Comma: ';'}))
	helper := readTableHelper(cfg)
	require.Contains(t, helper, "sep = ';'")
	require.NotContains(t, helper, "startsWith")
	require.Contains(t, helper, "strip.white = FALSE, comment.char = ''")

	_, err := NewConfig(WithScript("m.slim"), WithTableOptions(table.Options{Comma: '#', Comment: '#'}))
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestCommandFormatEscapesPercent(t *testing.T) {
	cfg := newTestConfig(t, WithBinary("/opt/slim%1/slim"), WithScript(`dir with "quote"/m.slim`), WithParams(nil))
	require.Equal(t, `/opt/slim%%1/slim -s %s dir with "quote"/m.slim`, commandFormat(cfg))
	require.Contains(t, RenderDriverScript(cfg), `slim_cmd <- "/opt/slim%%1/slim -s %s dir with \"quote\"/m.slim"`)
}

func TestRString(t *testing.T) {
	require.Equal(t, `'it\'s'`, rString("it's", '\''))
	require.Equal(t, `"a\\b \"c\" it's"`, rString(`a\b "c" it's`, '"'))
	require.Equal(t, `"x\ny"`, rString("x\ny", '"'))
}

func TestNewConfigValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.ResetProfilesCacheForTest()
	t.Cleanup(config.ResetProfilesCacheForTest)

	tests := []struct {
		name string
		opts []Option
	}{
		{"no script", []Option{WithScript("")}},
		{"empty name", []Option{WithName("  ")}},
		{"job name with space", []Option{WithJobName("my job")}},
		{"bad walltime", []Option{WithWalltime("3h")}},
		{"zero cores", []Option{WithCores(0)}},
		{"zero memory", []Option{WithMemoryGB(0)}},
		{"bad array", []Option{WithJobArray("a-b")}},
		{"reversed array", []Option{WithJobArray("5-2")}},
		{"array past combos", []Option{WithJobArray("1-10"), WithComboCount(4)}},
		{"array without params", []Option{WithJobArray("1-2"), WithParams(nil)}},
		{"bad param", []Option{WithParams([]jobspace.Param{{Name: "1x"}})}},
		{"duplicate param", []Option{WithParams([]jobspace.Param{{Name: "a"}, {Name: "a"}})}},
		{"output with dir", []Option{WithOutputs([]string{"dir/out.csv"})}},
		{"bad seed column", []Option{WithSeedColumn("seed col")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithScript("model.slim"), WithParams(threeParams)}, tt.opts...)
			_, err := NewConfig(opts...)
			require.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestNewConfigAcceptsArrayWithinCombos(t *testing.T) {
	cfg := newTestConfig(t, WithJobArray("=1-4:2"), WithComboCount(4))
	require.Contains(t, RenderResourceScript(cfg), "#PBS -J 1-4:2\n")
}

func TestWithProfileOverrides(t *testing.T) {
	p := config.Profile{Queue: "gpu", Cores: 8, Outputs: []string{"x.csv"}}
	cfg := newTestConfig(t, WithProfile(p), WithCores(4))
	out := RenderResourceScript(cfg)
	require.Contains(t, out, "#PBS -q gpu\n")
	require.Contains(t, out, "#PBS -A qris-uq\n")
	require.Contains(t, out, "ncpus=4:")
	require.Contains(t, out, "cat $TMPDIR/x.csv >> /30days/$USER/x.csv")
}

func TestParamsAreCopied(t *testing.T) {
	params := append([]jobspace.Param(nil), threeParams...)
	cfg := newTestConfig(t, WithParams(params))
	params[0].Name = "changed"
	require.Equal(t, "param1", cfg.Params()[0].Name)
}

func TestModeFromFlags(t *testing.T) {
	m, err := ModeFromFlags(false, false)
	require.NoError(t, err)
	require.Equal(t, Both, m)
	m, err = ModeFromFlags(true, false)
	require.NoError(t, err)
	require.Equal(t, ResourceOnly, m)
	m, err = ModeFromFlags(false, true)
	require.NoError(t, err)
	require.Equal(t, DriverOnly, m)
	_, err = ModeFromFlags(true, true)
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestCheckConsistencyDetectsDrift(t *testing.T) {
	cfg := newTestConfig(t)
	resource := RenderResourceScript(cfg)
	driver := RenderDriverScript(cfg)

	tests := []struct {
		name     string
		resource string
		driver   string
	}{
		{"no resource marker", strings.ReplaceAll(resource, markerPrefix, "# "), driver},
		{"no driver marker", resource, strings.ReplaceAll(driver, markerPrefix, "# ")},
		{"count drift", strings.Replace(resource, "parameters=3 (param1,param2,param3)", "parameters=2 (param1,param2)", 1), driver},
		{"seed source drift", resource, strings.Replace(driver, "seeds=seeds.csv", "seeds=other.csv", 1)},
		{"dropped define", resource, strings.Replace(driver, " -d param3=%s", "", 1)},
		{"renamed define", resource, strings.Replace(driver, "-d param1=%s", "-d alpha=%s", 1)},
		{"no template", resource, strings.Replace(driver, "slim_cmd <- ", "cmd <- ", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, CheckConsistency(tt.resource, tt.driver), errs.ErrConfiguration)
		})
	}
}

func TestWriteModes(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "sweep")

	cfg := newTestConfig(t, WithName(name))
	artifacts, err := Write(cfg, ResourceOnly, false)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	require.FileExists(t, name+".pbs")
	require.NoFileExists(t, name+".R")

	artifacts, err = Write(cfg, DriverOnly, false)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	data, err := os.ReadFile(name + ".R")
	require.NoError(t, err)
	require.Equal(t, RenderDriverScript(cfg), string(data))
}

func TestWriteRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "sweep")
	require.NoError(t, os.WriteFile(name+".R", []byte("keep"), 0o644))

	cfg := newTestConfig(t, WithName(name))
	_, err := Write(cfg, Both, false)
	require.ErrorIs(t, err, errs.ErrFileAccess)
	require.NoFileExists(t, name+".pbs")
	data, _ := os.ReadFile(name + ".R")
	require.Equal(t, "keep", string(data))

	artifacts, err := Write(cfg, Both, true)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	data, _ = os.ReadFile(name + ".R")
	require.Equal(t, RenderDriverScript(cfg), string(data))
}

func TestWriteUnwritableDirectory(t *testing.T) {
	cfg := newTestConfig(t, WithName(filepath.Join(t.TempDir(), "missing", "sweep")))
	_, err := Write(cfg, Both, false)
	require.ErrorIs(t, err, errs.ErrFileAccess)
}
