// Package config resolves the executor's runtime knobs (parallelism,
// single-target mode, listing, stack traces, exit code) from a YAML
// config file, WEAVE_-prefixed environment variables, and CLI flags, in
// that increasing order of precedence.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the resolved values consumed by executor.Options.
type Config struct {
	ParallelJobs    int    `mapstructure:"parallel-jobs"`
	SingleTarget    bool   `mapstructure:"single-target"`
	List            bool   `mapstructure:"list"`
	PrintStackTrace bool   `mapstructure:"print-stack-trace"`
	ExitCodeOnError int    `mapstructure:"exit-code-on-error"`
	DefaultTarget   string `mapstructure:"default-target"`
}

const (
	defaultParallelJobs    = 1
	defaultExitCodeOnError = 42
)

// Defaults returns a Config populated with the engine's built-in
// defaults, used as the base layer before a config file or environment
// is consulted.
func Defaults() Config {
	return Config{
		ParallelJobs:    defaultParallelJobs,
		ExitCodeOnError: defaultExitCodeOnError,
	}
}

// Load reads configPath (if non-empty and present) via viper, overlays
// WEAVE_-prefixed environment variables, and returns the merged Config.
// A missing configPath is not an error; the defaults and environment
// still apply.
func Load(configPath string) (Config, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("parallel-jobs", defaults.ParallelJobs)
	v.SetDefault("single-target", defaults.SingleTarget)
	v.SetDefault("list", defaults.List)
	v.SetDefault("print-stack-trace", defaults.PrintStackTrace)
	v.SetDefault("exit-code-on-error", defaults.ExitCodeOnError)
	v.SetDefault("default-target", defaults.DefaultTarget)

	v.SetEnvPrefix("WEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyFlags overlays explicitly-set CLI flag values onto cfg, giving
// flags the highest precedence. Zero-value flags (not passed by the
// user) should not be applied; callers pass only the values cobra
// reports as changed.
func (c Config) ApplyFlags(parallelJobs *int, singleTarget, list, printStackTrace *bool, exitCodeOnError *int) Config {
	out := c
	if parallelJobs != nil {
		out.ParallelJobs = *parallelJobs
	}
	if singleTarget != nil {
		out.SingleTarget = *singleTarget
	}
	if list != nil {
		out.List = *list
	}
	if printStackTrace != nil {
		out.PrintStackTrace = *printStackTrace
	}
	if exitCodeOnError != nil {
		out.ExitCodeOnError = *exitCodeOnError
	}
	return out
}
