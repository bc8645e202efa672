package config

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile returns explicit, or the first of FileNames present in the
// working directory, or "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// Defaults returns the lowest-priority configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"verbose":           false,
		"output":            DefaultOutput,
		"log_format":        DefaultLogFormat,
		"interactive_login": false,
		"api_version":       DefaultAPIVersion,
		"bulk_max_records":  DefaultBulkMaxRecords,
		"poll_interval":     DefaultPollInterval.String(),
		"encoding":          DefaultEncoding,
		"out":               DefaultOut,
		"out_files_only":    DefaultOutFilesOnly,
	}
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, &core.ConfigError{Field: "defaults", Reason: err.Error()}
	}

	// 2. docjoin.yaml
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, &core.ConfigError{Field: "config", Value: configFileUsed, Reason: err.Error()}
		}
	}

	// 3. DOCJOIN_DOCID_COL -> docid_col
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, &core.ConfigError{Field: "env", Reason: err.Error()}
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, &core.ConfigError{Field: "flags", Reason: err.Error()}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &core.ConfigError{Field: "config", Value: configFileUsed, Reason: "unable to decode: " + err.Error()}
	}

	cfg.SiteTrackerCSV = expandEnvVars(cfg.SiteTrackerCSV)
	cfg.Out = expandEnvVars(cfg.Out)
	cfg.OutFilesOnly = expandEnvVars(cfg.OutFilesOnly)
	cfg.CLIPath = expandEnvVars(cfg.CLIPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration from the last successful Load.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns; unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
