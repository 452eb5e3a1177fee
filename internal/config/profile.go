package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"slimsweep/internal/errs"
	ilogger "slimsweep/internal/logger"
)

// Profile holds the scheduler presets of one cluster.
type Profile struct {
	Shell      string   `json:"shell,omitempty"`
	Queue      string   `json:"queue,omitempty"`
	Account    string   `json:"account,omitempty"`
	RModule    string   `json:"r_module,omitempty"`
	ScratchDir string   `json:"scratch_dir,omitempty"`
	ResultsDir string   `json:"results_dir,omitempty"`
	Walltime   string   `json:"walltime,omitempty"`
	Cores      int      `json:"cores,omitempty"`
	MemoryGB   int      `json:"memory_gb,omitempty"`
	Binary     string   `json:"binary,omitempty"`
	Outputs    []string `json:"outputs,omitempty"`
}

type ProfilesConfig struct {
	Default  string             `json:"default"`
	Profiles map[string]Profile `json:"profiles"`
}

const DefaultProfileName = "tinaroo"

var defaultProfilesConfig = ProfilesConfig{
	Default: DefaultProfileName,
	Profiles: map[string]Profile{
		DefaultProfileName: {
			Shell:      "#!/bin/bash -l",
			Queue:      "workq",
			Account:    "qris-uq",
			RModule:    "R/3.5.0",
			ScratchDir: "$TMPDIR",
			ResultsDir: "/30days/$USER",
			Walltime:   "3:00:00",
			Cores:      24,
			MemoryGB:   120,
			Binary:     "/home/$USER/SLiM/slim",
			Outputs: []string{
				"out_stabsel_means.csv",
				"out_stabsel_muts.csv",
				"out_stabsel_burnin.csv",
				"out_stabsel_opt.csv",
				"out_stabsel_dict.csv",
				"out_stabsel_pos.csv",
			},
		},
	},
}

var (
	profilesOnce   sync.Once
	profilesCached *ProfilesConfig
)

func profilesConfig() *ProfilesConfig {
	profilesOnce.Do(func() {
		profilesCached = loadProfilesConfig()
	})
	if profilesCached == nil {
		return &defaultProfilesConfig
	}
	return profilesCached
}

func loadProfilesConfig() *ProfilesConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		ilogger.LogWarn(fmt.Sprintf("Failed to resolve home directory for profiles: %v; using defaults", err))
		return &defaultProfilesConfig
	}

	configDir := filepath.Clean(filepath.Join(home, ConfigDirName))
	configPath := filepath.Join(configDir, "profiles.json")
	data, err := os.ReadFile(configPath) // #nosec G304 -- fixed path under user home
	if err != nil {
		if !os.IsNotExist(err) {
			ilogger.LogWarn(fmt.Sprintf("Failed to read profiles %s: %v; using defaults", configPath, err))
		}
		return &defaultProfilesConfig
	}

	var cfg ProfilesConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		ilogger.LogWarn(fmt.Sprintf("Failed to parse profiles %s: %v; using defaults", configPath, err))
		return &defaultProfilesConfig
	}

	merged := ProfilesConfig{
		Default:  strings.TrimSpace(cfg.Default),
		Profiles: make(map[string]Profile, len(cfg.Profiles)+len(defaultProfilesConfig.Profiles)),
	}
	if merged.Default == "" {
		merged.Default = defaultProfilesConfig.Default
	}
	for name, p := range defaultProfilesConfig.Profiles {
		merged.Profiles[name] = p
	}
	for name, p := range cfg.Profiles {
		name = strings.TrimSpace(name)
		if err := ValidateProfileName(name); err != nil {
			ilogger.LogWarn(fmt.Sprintf("Ignoring profile in %s: %v", configPath, err))
			continue
		}
		// A user profile named like a builtin only overrides what it sets.
		merged.Profiles[name] = mergeProfile(merged.Profiles[name], p)
	}
	return &merged
}

func mergeProfile(base, over Profile) Profile {
	pick := func(a, b string) string {
		if strings.TrimSpace(b) != "" {
			return strings.TrimSpace(b)
		}
		return a
	}
	out := base
	out.Shell = pick(base.Shell, over.Shell)
	out.Queue = pick(base.Queue, over.Queue)
	out.Account = pick(base.Account, over.Account)
	out.RModule = pick(base.RModule, over.RModule)
	out.ScratchDir = pick(base.ScratchDir, over.ScratchDir)
	out.ResultsDir = pick(base.ResultsDir, over.ResultsDir)
	out.Walltime = pick(base.Walltime, over.Walltime)
	out.Binary = pick(base.Binary, over.Binary)
	if over.Cores > 0 {
		out.Cores = over.Cores
	}
	if over.MemoryGB > 0 {
		out.MemoryGB = over.MemoryGB
	}
	if len(over.Outputs) > 0 {
		out.Outputs = append([]string(nil), over.Outputs...)
	}
	return out
}

// ResolveProfile returns the named profile; an empty name selects the
// configured default.
func ResolveProfile(name string) (Profile, error) {
	cfg := profilesConfig()
	name = strings.TrimSpace(name)
	if name == "" {
		name = cfg.Default
	}
	if err := ValidateProfileName(name); err != nil {
		return Profile{}, err
	}
	p, ok := cfg.Profiles[name]
	if !ok {
		return Profile{}, errs.Configf("unknown profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	p.Outputs = append([]string(nil), p.Outputs...)
	return p, nil
}

// ProfileNames lists every known profile, sorted.
func ProfileNames() []string {
	cfg := profilesConfig()
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ResetProfilesCacheForTest() {
	profilesCached = nil
	profilesOnce = sync.Once{}
}
