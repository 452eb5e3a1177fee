package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/viper"
)

// Config holds the defaults a run picks up from the config file and the
// SLIMSWEEP_* environment before flags are applied.
type Config struct {
	Binary    string
	SeedFlag  string
	Workers   int
	Nesting   string
	Profile   string
	Delimiter string
	Verbose   bool
}

// FromViper reads the keys shared by every subcommand.
func FromViper(v *viper.Viper) Config {
	if v == nil {
		return Config{}
	}
	return Config{
		Binary:    strings.TrimSpace(v.GetString("binary")),
		SeedFlag:  strings.TrimSpace(v.GetString("seed-flag")),
		Workers:   v.GetInt("workers"),
		Nesting:   strings.TrimSpace(v.GetString("nesting")),
		Profile:   strings.TrimSpace(v.GetString("profile")),
		Delimiter: v.GetString("delimiter"),
		Verbose:   v.GetBool("verbose"),
	}
}

// EnvFlagEnabled returns true when the environment variable exists and is not
// explicitly set to a falsey value ("0/false/no/off").
func EnvFlagEnabled(key string) bool {
	val, ok := os.LookupEnv(key)
	return ok && ParseBoolFlag(val, strings.TrimSpace(val) != "")
}

// ParseBoolFlag reads the usual spellings of true and false, returning
// defaultValue for anything else.
func ParseBoolFlag(val string, defaultValue bool) bool {
	val = strings.TrimSpace(strings.ToLower(val))
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ValidateProfileName accepts letters, digits, '-' and '_'.
func ValidateProfileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile name is empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-', r == '_':
		default:
			return fmt.Errorf("profile name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

const (
	maxParallelWorkersEnv   = "SLIMSWEEP_MAX_PARALLEL_WORKERS"
	maxParallelWorkersLimit = 256
	fallbackWorkers         = 4
)

var cpuCountFn = func() (int, error) { return cpu.Counts(true) }

// ResolveMaxParallelWorkers reads SLIMSWEEP_MAX_PARALLEL_WORKERS, falling
// back to the logical CPU count and then to 4. The result is always in
// [1, 256].
func ResolveMaxParallelWorkers() int {
	raw := strings.TrimSpace(os.Getenv(maxParallelWorkersEnv))
	if raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			return clampWorkers(value)
		}
	}

	if n, err := cpuCountFn(); err == nil && n > 0 {
		return clampWorkers(n)
	}
	return fallbackWorkers
}

func clampWorkers(n int) int {
	if n > maxParallelWorkersLimit {
		return maxParallelWorkersLimit
	}
	return n
}

func SetCPUCountFn(fn func() (int, error)) (restore func()) {
	prev := cpuCountFn
	if fn != nil {
		cpuCountFn = fn
	} else {
		cpuCountFn = func() (int, error) { return cpu.Counts(true) }
	}
	return func() { cpuCountFn = prev }
}
