// Package config loads docjoin settings from defaults, docjoin.yaml,
// DOCJOIN_* environment variables and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogFormat    string `koanf:"log_format"`

	// Salesforce CLI identity
	Alias            string `koanf:"alias"`
	LoginURL         string `koanf:"login_url"`
	CLIPath          string `koanf:"cli_path"`
	InteractiveLogin bool   `koanf:"interactive_login"`

	// Bulk API 2.0
	APIVersion     string        `koanf:"api_version"`
	BulkMaxRecords int           `koanf:"bulk_max_records"`
	PollInterval   time.Duration `koanf:"poll_interval"`

	// Local SiteTracker export
	SiteTrackerCSV     string `koanf:"sitetracker_csv"`
	DocIDCol           string `koanf:"docid_col"`
	SiteTrackerColumns string `koanf:"sitetracker_columns"`
	Encoding           string `koanf:"encoding"`

	// Reports
	Out          string `koanf:"out"`
	OutFilesOnly string `koanf:"out_files_only"`
}

// Default configuration values.
const (
	DefaultOutput         = "auto" // TTY=text, non-TTY=markdown
	DefaultLogFormat      = "auto" // TTY=tint, non-TTY=text
	DefaultAPIVersion     = "60.0"
	DefaultBulkMaxRecords = 50000
	DefaultPollInterval   = 3 * time.Second
	DefaultEncoding       = "utf-8-sig"
	DefaultOut            = "merged_sitetracker_files.csv"
	DefaultOutFilesOnly   = "sitetracker_files_only.csv"
)

// FileNames are searched for in the working directory, in order.
var FileNames = []string{"docjoin.yaml", "docjoin.yml"}

// EnvPrefix prefixes environment overrides, e.g. DOCJOIN_DOCID_COL.
const EnvPrefix = "DOCJOIN_"
