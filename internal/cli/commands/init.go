package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/docjoin/internal/cli/config"
	"github.com/leapstack-labs/docjoin/internal/cli/output"
)

// starterConfig is the docjoin.yaml written by init. Field order is the
// order keys appear in the file.
type starterConfig struct {
	Alias              string `yaml:"alias"`
	LoginURL           string `yaml:"login_url"`
	SiteTrackerCSV     string `yaml:"sitetracker_csv"`
	DocIDCol           string `yaml:"docid_col"`
	SiteTrackerColumns string `yaml:"sitetracker_columns"`
	Encoding           string `yaml:"encoding"`
	Out                string `yaml:"out"`
	OutFilesOnly       string `yaml:"out_files_only"`
	APIVersion         string `yaml:"api_version"`
	BulkMaxRecords     int    `yaml:"bulk_max_records"`
	PollInterval       string `yaml:"poll_interval"`
	InteractiveLogin   bool   `yaml:"interactive_login"`
}

func defaultStarter() starterConfig {
	return starterConfig{
		Alias:          "my-org",
		LoginURL:       "https://login.salesforce.com",
		SiteTrackerCSV: "sitetracker_attachments.csv",
		DocIDCol:       "Document_ID__c",
		Encoding:       config.DefaultEncoding,
		Out:            config.DefaultOut,
		OutFilesOnly:   config.DefaultOutFilesOnly,
		APIVersion:     config.DefaultAPIVersion,
		BulkMaxRecords: config.DefaultBulkMaxRecords,
		PollInterval:   config.DefaultPollInterval.String(),
	}
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var alias string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter docjoin.yaml",
		Long: `Write a docjoin.yaml with every export setting and its default, ready to
edit. Values in the file are overridden by DOCJOIN_* environment variables and
by command-line flags.`,
		Example: `  # In the current directory
  docjoin init

  # Pre-fill the org alias and overwrite an existing file
  docjoin init --alias prod --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runInit(r, dir, alias, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&alias, "alias", "", "Org alias to write into the file")

	return cmd
}

func runInit(r *output.Renderer, dir, alias string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.FileNames[0])
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", path)
	}

	starter := defaultStarter()
	if alias != "" {
		starter.Alias = alias
	}
	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	r.Success("Created " + path)
	return nil
}
