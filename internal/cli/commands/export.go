package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/docjoin/internal/cli/config"
	"github.com/leapstack-labs/docjoin/internal/cli/output"
	"github.com/leapstack-labs/docjoin/internal/engine"
	"github.com/leapstack-labs/docjoin/internal/merge"
	"github.com/leapstack-labs/docjoin/internal/sfauth"
	"github.com/leapstack-labs/docjoin/internal/source"
)

// ExportDeps overrides the external collaborators of the export command.
// Zero values select the Salesforce CLI and http.DefaultClient.
type ExportDeps struct {
	Tokens     sfauth.TokenSource
	HTTPClient *http.Client
}

// NewExportCommand creates the export command.
func NewExportCommand(deps ExportDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Join a SiteTracker export with Salesforce file metadata",
		Long: `Read the SiteTracker attachment CSV, export latest-version ContentVersion
metadata with a Bulk API 2.0 query job, and write two reports:

  --out             every SiteTracker row with its file details (left join)
  --out-files-only  one row per matched file

Both reports are UTF-8 CSV with a byte-order mark. Nothing is written unless
every step succeeds.`,
		Example: `  # Production org authenticated as "prod"
  docjoin export --alias prod --sitetracker-csv attachments.csv --docid-col Document_ID__c

  # Sandbox, keep only a few source columns
  docjoin export --alias uat --login-url https://test.salesforce.com \
    --sitetracker-csv attachments.csv --docid-col Document_ID__c \
    --sitetracker-columns Id,Name,sitetracker__Site__c`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, deps)
		},
	}

	f := cmd.Flags()
	f.String("alias", "", "Salesforce CLI org alias or username (required)")
	f.String("sitetracker-csv", "", "SiteTracker attachment export CSV (required)")
	f.String("docid-col", "", "Column holding ContentDocument IDs (required)")
	f.String("out", config.DefaultOut, "Merged output CSV")
	f.String("out-files-only", config.DefaultOutFilesOnly, "Files-only output CSV")
	f.String("api-version", config.DefaultAPIVersion, "Salesforce API version")
	f.String("login-url", "", "Login URL for sandboxes or My Domain (used by --interactive-login)")
	f.String("sitetracker-columns", "", "Comma-separated SiteTracker columns to keep")
	f.Int("bulk-max-records", config.DefaultBulkMaxRecords, "Bulk API maxRecords per results page")
	f.String("encoding", config.DefaultEncoding, "SiteTracker CSV encoding (utf-8-sig, utf-8, windows-1252, ...)")
	f.Duration("poll-interval", config.DefaultPollInterval, "Delay between Bulk job status checks")
	f.Bool("interactive-login", false, "Open a browser login once if the org is not authenticated")
	f.String("cli-path", "", "Path to the sf or sfdx executable (default: search PATH)")

	_ = cmd.RegisterFlagCompletionFunc("encoding", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"utf-8-sig", "utf-8", "windows-1252", "latin1", "utf-16le"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExport(cmd *cobra.Command, deps ExportDeps) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	tokens := deps.Tokens
	if tokens == nil {
		cli := sfauth.NewCLI(cmdCtx.Logger)
		cli.Path = cfg.CLIPath
		cli.LoginURL = cfg.LoginURL
		cli.InteractiveLogin = cfg.InteractiveLogin
		tokens = cli
	}

	eng, err := engine.New(engine.Config{
		Alias:         cfg.Alias,
		SourcePath:    cfg.SiteTrackerCSV,
		IDColumn:      cfg.DocIDCol,
		Columns:       source.ParseColumns(cfg.SiteTrackerColumns),
		Encoding:      cfg.Encoding,
		MergedPath:    cfg.Out,
		FilesOnlyPath: cfg.OutFilesOnly,
		APIVersion:    cfg.APIVersion,
		PageSize:      cfg.BulkMaxRecords,
		PollInterval:  cfg.PollInterval,
		Tokens:        tokens,
		HTTPClient:    deps.HTTPClient,
		Logger:        cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	sum, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}
	return renderSummary(cmdCtx.Renderer, sum)
}

func renderSummary(r *output.Renderer, sum *engine.Summary) error {
	st := sum.Stats
	out := output.ExportSummary{
		RunID:             sum.RunID,
		InstanceURL:       sum.InstanceURL,
		SourceRows:        st.SourceRows,
		DistinctIDs:       st.DistinctIDs,
		FetchedRows:       sum.FetchedRows,
		MatchedRows:       st.MatchedRows,
		FilesOnlyRows:     st.FilesOnlyRows,
		DuplicatesDropped: st.DuplicatesDropped,
		Conflicts:         st.Conflicts,
		MissingSize:       st.MissingSize,
		TotalBytes:        st.TotalBytes,
		MergedPath:        sum.MergedPath,
		FilesOnlyPath:     sum.FilesOnlyPath,
		DurationMS:        sum.Duration.Milliseconds(),
	}
	if !st.EarliestCreated.IsZero() {
		out.EarliestCreated = st.EarliestCreated.UTC().Format(time.RFC3339)
		out.LatestCreated = st.LatestCreated.UTC().Format(time.RFC3339)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Export complete")
	r.KeyValue("SiteTracker rows", fmt.Sprint(out.SourceRows))
	r.KeyValue("Distinct ContentDocumentIds", fmt.Sprint(out.DistinctIDs))
	r.KeyValue("ContentVersion rows downloaded", fmt.Sprint(out.FetchedRows))
	r.KeyValue("Matched ContentVersion rows", fmt.Sprint(out.MatchedRows))
	r.KeyValue("Files", fmt.Sprintf("%d (%s MB)", out.FilesOnlyRows, merge.FormatMB(out.TotalBytes)))
	if out.EarliestCreated != "" {
		r.KeyValue("Created", out.EarliestCreated+" to "+out.LatestCreated)
	}
	r.KeyValue("Rows with no matched file size", fmt.Sprint(out.MissingSize))
	if out.DuplicatesDropped > 0 {
		r.KeyValue("Duplicate file rows dropped", fmt.Sprintf("%d (%d conflicting)", out.DuplicatesDropped, out.Conflicts))
	}
	r.KeyValue("File details", out.FilesOnlyPath)
	r.KeyValue("Merged output", out.MergedPath)

	if out.Conflicts > 0 {
		r.Warning(fmt.Sprintf("%d duplicate file rows disagreed with the first row kept", out.Conflicts))
	}
	return nil
}
