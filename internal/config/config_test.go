package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"slimsweep/internal/errs"
)

func TestResolveMaxParallelWorkers(t *testing.T) {
	t.Cleanup(SetCPUCountFn(func() (int, error) { return 12, nil }))

	tests := []struct {
		name string
		env  string
		want int
	}{
		{"unset uses cpu count", "", 12},
		{"explicit", "3", 3},
		{"capped", "10000", maxParallelWorkersLimit},
		{"zero falls back", "0", 12},
		{"negative falls back", "-2", 12},
		{"garbage falls back", "many", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(maxParallelWorkersEnv, tt.env)
			if got := ResolveMaxParallelWorkers(); got != tt.want {
				t.Fatalf("ResolveMaxParallelWorkers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveMaxParallelWorkersCPUFallback(t *testing.T) {
	t.Setenv(maxParallelWorkersEnv, "")

	restore := SetCPUCountFn(func() (int, error) { return 0, errors.New("no cpuinfo") })
	if got := ResolveMaxParallelWorkers(); got != fallbackWorkers {
		t.Fatalf("ResolveMaxParallelWorkers() = %d, want %d", got, fallbackWorkers)
	}
	restore()

	t.Cleanup(SetCPUCountFn(func() (int, error) { return 512, nil }))
	if got := ResolveMaxParallelWorkers(); got != maxParallelWorkersLimit {
		t.Fatalf("ResolveMaxParallelWorkers() = %d, want %d", got, maxParallelWorkersLimit)
	}
}

func TestResolveMaxParallelWorkersRealHost(t *testing.T) {
	t.Setenv(maxParallelWorkersEnv, "")
	if got := ResolveMaxParallelWorkers(); got < 1 || got > maxParallelWorkersLimit {
		t.Fatalf("ResolveMaxParallelWorkers() = %d, out of range", got)
	}
}

func TestParseBoolFlag(t *testing.T) {
	tests := []struct {
		in   string
		def  bool
		want bool
	}{
		{"1", false, true},
		{" YES ", false, true},
		{"off", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := ParseBoolFlag(tt.in, tt.def); got != tt.want {
			t.Fatalf("ParseBoolFlag(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestEnvFlags(t *testing.T) {
	const key = "SLIMSWEEP_TEST_FLAG"
	os.Unsetenv(key)
	if EnvFlagEnabled(key) {
		t.Fatalf("unset flag should be disabled")
	}
	for val, want := range map[string]bool{"": false, " ": false, "false": false, "0": false, "on": true, "1": true, "anything": true} {
		t.Setenv(key, val)
		if got := EnvFlagEnabled(key); got != want {
			t.Fatalf("EnvFlagEnabled with %q = %v, want %v", val, got, want)
		}
	}
}

func TestValidateProfileName(t *testing.T) {
	for _, ok := range []string{"tinaroo", "my-cluster_2"} {
		if err := ValidateProfileName(ok); err != nil {
			t.Fatalf("ValidateProfileName(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "../etc", "a b"} {
		if err := ValidateProfileName(bad); err == nil {
			t.Fatalf("ValidateProfileName(%q) expected error", bad)
		}
	}
}

func TestNewViperReadsEnvAndFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	dir := filepath.Join(home, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("binary: /opt/slim/bin/slim\nworkers: 6\nnesting: combos-outer\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLIMSWEEP_SEED_FLAG", "--seed")

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	cfg := FromViper(v)
	if cfg.Binary != "/opt/slim/bin/slim" || cfg.Workers != 6 || cfg.Nesting != "combos-outer" {
		t.Fatalf("config from file = %+v", cfg)
	}
	if cfg.SeedFlag != "--seed" {
		t.Fatalf("SeedFlag = %q, want env override", cfg.SeedFlag)
	}
}

func TestNewViperMissingDefaultFileIsFine(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	if cfg := FromViper(v); cfg.Binary != "" || cfg.Workers != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestNewViperExplicitFileErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewViper(missing); !errors.Is(err, errs.ErrFileAccess) {
		t.Fatalf("NewViper(missing) error = %v, want file access error", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("binary: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewViper(bad); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("NewViper(bad) error = %v, want configuration error", err)
	}
}

func TestNewViperPrefersLocalConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	dir := filepath.Join(home, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("binary: home-slim\nworkers: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, LocalConfigName+".json"), []byte(`{"binary": "local-slim"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	if cfg := FromViper(v); cfg.Binary != "local-slim" || cfg.Workers != 0 {
		t.Fatalf("config = %+v, want only the local file", cfg)
	}
}

func TestFromViperNil(t *testing.T) {
	if cfg := FromViper(nil); cfg != (Config{}) {
		t.Fatalf("FromViper(nil) = %+v", cfg)
	}
}
