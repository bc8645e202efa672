// Package merge joins the local dataset with matched file metadata and
// produces the merged and files-only report tables.
package merge

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/leapstack-labs/docjoin/internal/sfid"
	"github.com/leapstack-labs/docjoin/pkg/core"
)

// CollisionSuffix is appended to metadata columns that share a name with a source column.
const CollisionSuffix = "_File"

const bytesPerMB = 1024 * 1024

// Options configures a merge.
type Options struct {
	IDColumn    string
	InstanceURL string
	Logger      *slog.Logger
}

// Stats summarises a merge.
type Stats struct {
	SourceRows        int
	DistinctIDs       int
	MatchedRows       int
	FilesOnlyRows     int
	DuplicatesDropped int
	Conflicts         int
	// MissingSize counts merged rows with no matched file size
	// (missing file, no permission, or an invalid identifier).
	MissingSize     int
	TotalBytes      int64
	EarliestCreated time.Time
	LatestCreated   time.Time
}

// Result holds both report tables.
type Result struct {
	Merged    *core.SourceTable
	FilesOnly *core.SourceTable
	Stats     Stats
}

type fileRecord struct {
	meta    core.FileMetadataRow
	derived []string
}

func (f *fileRecord) values() []string {
	return append(f.meta.Fields(), f.derived...)
}

// Merge builds the files-only table from matched (deduplicated by normalized
// ContentDocumentId, first seen wins) and left-joins it onto table.
func Merge(table *core.SourceTable, matched []core.FileMetadataRow, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idCol := table.ColumnIndex(opts.IDColumn)
	if idCol < 0 {
		return nil, &core.ConfigError{
			Field:  "docid_col",
			Value:  opts.IDColumn,
			Reason: "column not found in SiteTracker CSV",
		}
	}
	instance := strings.TrimRight(opts.InstanceURL, "/")

	stats := Stats{SourceRows: table.Len(), MatchedRows: len(matched)}

	byID := make(map[string]*fileRecord, len(matched))
	filesOnly := &core.SourceTable{Columns: core.MetadataColumns()}
	for _, m := range matched {
		key := sfid.Normalize(m.ContentDocumentID)
		if first, ok := byID[key]; ok {
			stats.DuplicatesDropped++
			if first.meta != m {
				stats.Conflicts++
				logger.Warn("conflicting duplicate file metadata dropped",
					"content_document_id", m.ContentDocumentID,
					"kept_title", first.meta.Title,
					"dropped_title", m.Title)
			}
			continue
		}

		rec := &fileRecord{meta: m, derived: derive(m, instance, &stats)}
		byID[key] = rec
		filesOnly.Rows = append(filesOnly.Rows, rec.values())
	}
	stats.FilesOnlyRows = filesOnly.Len()

	merged := &core.SourceTable{Columns: mergedColumns(table.Columns)}
	attachmentCol := table.ColumnIndex(core.ColRecordID)
	if attachmentCol >= 0 {
		merged.Columns = append(merged.Columns, core.ColAttachmentURL)
	}
	empty := make([]string, len(core.MetadataColumns()))

	distinct := make(map[string]struct{})
	for i := range table.Rows {
		row := make([]string, 0, len(merged.Columns))
		for c := range table.Columns {
			row = append(row, table.Value(i, c))
		}

		id := strings.TrimSpace(table.Value(i, idCol))
		var rec *fileRecord
		if id != "" {
			key := sfid.Normalize(id)
			distinct[key] = struct{}{}
			rec = byID[key]
		}
		if rec != nil {
			row = append(row, rec.values()...)
		} else {
			row = append(row, empty...)
		}
		if rec == nil || rec.derived[0] == "" {
			stats.MissingSize++
		}

		if attachmentCol >= 0 {
			row = append(row, AttachmentURL(instance, table.Value(i, attachmentCol)))
		}
		merged.Rows = append(merged.Rows, row)
	}
	stats.DistinctIDs = len(distinct)

	logger.Debug("merge complete",
		"source_rows", stats.SourceRows,
		"files_only_rows", stats.FilesOnlyRows,
		"duplicates_dropped", stats.DuplicatesDropped,
		"missing_size", stats.MissingSize)

	return &Result{Merged: merged, FilesOnly: filesOnly, Stats: stats}, nil
}

// derive computes ContentSizeBytes, ContentSizeMB and FileUrl, and folds the
// row into the size and date statistics.
func derive(m core.FileMetadataRow, instance string, stats *Stats) []string {
	var sizeBytes, sizeMB string
	if n, ok := ParseSize(m.ContentSize); ok {
		sizeBytes = strconv.FormatInt(n, 10)
		sizeMB = FormatMB(n)
		stats.TotalBytes += n
	}

	if created := strings.TrimSpace(m.CreatedDate); created != "" {
		if ts, err := dateparse.ParseAny(created); err == nil {
			if stats.EarliestCreated.IsZero() || ts.Before(stats.EarliestCreated) {
				stats.EarliestCreated = ts
			}
			if ts.After(stats.LatestCreated) {
				stats.LatestCreated = ts
			}
		}
	}

	return []string{sizeBytes, sizeMB, FileURL(instance, m.ContentDocumentID)}
}

// ParseSize parses a ContentSize value. Empty or non-integer values report false.
func ParseSize(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatMB renders bytes as mebibytes rounded to two decimals.
func FormatMB(n int64) string {
	mb := math.Round(float64(n)/bytesPerMB*100) / 100
	return strconv.FormatFloat(mb, 'f', 2, 64)
}

// FileURL is the Lightning record page of a ContentDocument.
func FileURL(instance, contentDocumentID string) string {
	return instance + "/lightning/r/ContentDocument/" + contentDocumentID + "/view"
}

// AttachmentURL is the Lightning record page of a SiteTracker attachment, or
// empty when id is blank.
func AttachmentURL(instance, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return instance + "/lightning/r/sitetracker__Attachment__c/" + id + "/view"
}

func mergedColumns(source []string) []string {
	taken := make(map[string]bool, len(source))
	for _, c := range source {
		taken[c] = true
	}
	cols := append([]string(nil), source...)
	for _, c := range core.MetadataColumns() {
		if taken[c] {
			c += CollisionSuffix
		}
		cols = append(cols, c)
	}
	return cols
}
