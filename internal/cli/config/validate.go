package config

import (
	"net/url"
	"slices"
	"strings"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

var (
	outputModes = []string{"auto", "text", "markdown", "json"}
	logFormats  = []string{"auto", "text", "json"}
)

// Validate checks settings shared by every command. Export-specific
// requirements are checked when the export engine is built.
func (c *Config) Validate() error {
	if !slices.Contains(outputModes, c.OutputFormat) {
		return &core.ConfigError{Field: "output", Value: c.OutputFormat, Reason: "must be one of " + strings.Join(outputModes, ", ")}
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return &core.ConfigError{Field: "log_format", Value: c.LogFormat, Reason: "must be one of " + strings.Join(logFormats, ", ")}
	}
	if c.LoginURL != "" {
		u, err := url.Parse(c.LoginURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return &core.ConfigError{Field: "login_url", Value: c.LoginURL, Reason: "must be an https URL"}
		}
	}
	return nil
}
