// Package engine runs the export end to end: read the local dataset, obtain
// credentials, fetch file metadata, join, and write both reports.
package engine

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/docjoin/internal/bulk"
	"github.com/leapstack-labs/docjoin/internal/match"
	"github.com/leapstack-labs/docjoin/internal/merge"
	"github.com/leapstack-labs/docjoin/internal/report"
	"github.com/leapstack-labs/docjoin/internal/sfauth"
	"github.com/leapstack-labs/docjoin/internal/source"
	"github.com/leapstack-labs/docjoin/pkg/core"
)

// Default output paths.
const (
	DefaultMergedPath    = "merged_sitetracker_files.csv"
	DefaultFilesOnlyPath = "sitetracker_files_only.csv"
)

// Config holds engine configuration.
type Config struct {
	// Alias is the Salesforce CLI org alias or username
	Alias string
	// SourcePath is the SiteTracker attachment CSV
	SourcePath string
	// IDColumn holds ContentDocument identifiers in the source
	IDColumn string
	// Columns is an optional source column allow-list
	Columns []string
	// Encoding of the source file (default utf-8-sig)
	Encoding string

	MergedPath    string
	FilesOnlyPath string

	APIVersion   string
	PageSize     int
	PollInterval time.Duration

	// Tokens supplies credentials for Alias
	Tokens sfauth.TokenSource
	// HTTPClient is optional, defaults to http.DefaultClient
	HTTPClient *http.Client
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Summary describes a completed run.
type Summary struct {
	RunID         string
	InstanceURL   string
	FetchedRows   int
	MergedPath    string
	FilesOnlyPath string
	Stats         merge.Stats
	Duration      time.Duration
}

// Engine executes one export.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and creates an engine.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MergedPath == "" {
		cfg.MergedPath = DefaultMergedPath
	}
	if cfg.FilesOnlyPath == "" {
		cfg.FilesOnlyPath = DefaultFilesOnlyPath
	}
	if cfg.Encoding == "" {
		cfg.Encoding = source.DefaultEncoding
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

func validate(cfg Config) error {
	switch {
	case strings.TrimSpace(cfg.Alias) == "":
		return &core.ConfigError{Field: "alias", Reason: "is required"}
	case strings.TrimSpace(cfg.SourcePath) == "":
		return &core.ConfigError{Field: "sitetracker_csv", Reason: "is required"}
	case strings.TrimSpace(cfg.IDColumn) == "":
		return &core.ConfigError{Field: "docid_col", Reason: "is required"}
	case cfg.Tokens == nil:
		return &core.ConfigError{Field: "alias", Reason: "no credential source configured"}
	}

	if cfg.APIVersion != "" {
		if _, err := strconv.ParseFloat(strings.TrimPrefix(cfg.APIVersion, "v"), 64); err != nil {
			return &core.ConfigError{Field: "api_version", Value: cfg.APIVersion, Reason: "must look like 60.0"}
		}
	}
	if cfg.PageSize < 0 {
		return &core.ConfigError{Field: "bulk_max_records", Value: strconv.Itoa(cfg.PageSize), Reason: "must be positive"}
	}
	if cfg.PollInterval < 0 {
		return &core.ConfigError{Field: "poll_interval", Value: cfg.PollInterval.String(), Reason: "must be positive"}
	}

	in := filepath.Clean(cfg.SourcePath)
	merged := filepath.Clean(cfg.MergedPath)
	filesOnly := filepath.Clean(cfg.FilesOnlyPath)
	if merged == filesOnly {
		return &core.ConfigError{Field: "out_files_only", Value: cfg.FilesOnlyPath, Reason: "must differ from out"}
	}
	if merged == in || filesOnly == in {
		return &core.ConfigError{Field: "out", Value: cfg.MergedPath, Reason: "would overwrite the SiteTracker CSV"}
	}
	return nil
}

// Run performs the export. Steps run strictly in sequence and the first
// failure aborts the run; reports are written only after both are assembled.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID)

	table, err := source.Read(e.cfg.SourcePath, source.Options{
		Encoding: e.cfg.Encoding,
		IDColumn: e.cfg.IDColumn,
		Columns:  e.cfg.Columns,
	})
	if err != nil {
		return nil, err
	}
	log.Info("sitetracker rows loaded", "rows", table.Len(), "columns", len(table.Columns))

	ids, err := match.BuildIdentifierSet(table, e.cfg.IDColumn)
	if err != nil {
		return nil, err
	}
	if ids.Len() == 0 {
		return nil, &core.ConfigError{
			Field:  "docid_col",
			Value:  e.cfg.IDColumn,
			Reason: "no ContentDocument identifiers found in column",
		}
	}
	log.Info("distinct content document ids", "count", ids.Len())

	creds, err := e.cfg.Tokens.Token(ctx, e.cfg.Alias)
	if err != nil {
		return nil, err
	}
	log.Debug("authenticated", "instance_url", creds.InstanceURL)

	client := bulk.New(bulk.Config{
		BaseURL:      creds.InstanceURL,
		Token:        creds.AccessToken,
		APIVersion:   e.cfg.APIVersion,
		PageSize:     e.cfg.PageSize,
		PollInterval: e.cfg.PollInterval,
		HTTPClient:   e.cfg.HTTPClient,
		Logger:       log,
	})
	log.Info("bulk exporting ContentVersion (IsLatest=true)")
	rows, err := client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("downloaded ContentVersion rows", "rows", len(rows))

	matched := match.Filter(ids, rows)
	log.Info("matched ContentVersion rows", "rows", len(matched))

	res, err := merge.Merge(table, matched, merge.Options{
		IDColumn:    e.cfg.IDColumn,
		InstanceURL: creds.InstanceURL,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	err = report.WriteAll(
		report.File{Path: e.cfg.FilesOnlyPath, Table: res.FilesOnly},
		report.File{Path: e.cfg.MergedPath, Table: res.Merged},
	)
	if err != nil {
		return nil, err
	}
	log.Info("reports written",
		"files_only", e.cfg.FilesOnlyPath,
		"merged", e.cfg.MergedPath,
		"missing_size", res.Stats.MissingSize)

	if res.Stats.Conflicts > 0 {
		log.Warn("conflicting duplicate metadata rows were dropped", "count", res.Stats.Conflicts)
	}

	return &Summary{
		RunID:         runID,
		InstanceURL:   strings.TrimRight(creds.InstanceURL, "/"),
		FetchedRows:   len(rows),
		MergedPath:    e.cfg.MergedPath,
		FilesOnlyPath: e.cfg.FilesOnlyPath,
		Stats:         res.Stats,
		Duration:      time.Since(start),
	}, nil
}

// Config returns the effective configuration after defaults.
func (e *Engine) Config() Config {
	return e.cfg
}
