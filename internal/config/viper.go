package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"slimsweep/internal/errs"
)

const (
	// ConfigDirName is the per-user directory under $HOME holding config.*
	// and profiles.json.
	ConfigDirName = ".slimsweep"
	// LocalConfigName is the base name of a config file in the working
	// directory, which takes precedence over the per-user one.
	LocalConfigName = "slimsweep"

	envPrefix = "SLIMSWEEP"
)

// NewViper returns a viper instance for SLIMSWEEP_* environment variables
// and at most one config file. An explicit configFile must exist. Otherwise
// the first of ./slimsweep.<ext> and $HOME/.slimsweep/config.<ext> is read,
// and having neither is fine.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := strings.TrimSpace(configFile)
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &errs.FileAccessError{Path: path, Op: "read config", Err: os.ErrNotExist}
		}
		return nil, errs.Configf("config file %s: %v", path, err)
	}
	return v, nil
}

func findConfigFile() string {
	candidates := []string{LocalConfigName}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		candidates = append(candidates, filepath.Join(home, ConfigDirName, "config"))
	}
	for _, base := range candidates {
		for _, ext := range viper.SupportedExts {
			p := base + "." + ext
			if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
				return p
			}
		}
	}
	return ""
}
