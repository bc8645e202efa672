package core

// SourceTable is the local dataset as read from the input CSV.
// Rows keep input order and are never mutated once read.
type SourceTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *SourceTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the header contains name.
func (t *SourceTable) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the number of data rows.
func (t *SourceTable) Len() int {
	return len(t.Rows)
}

// Value returns the cell at row i for column index col, tolerating ragged rows.
func (t *SourceTable) Value(i, col int) string {
	if col < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// FileMetadataRow is one ContentVersion record returned by the Bulk query.
// ContentSize is kept raw; conversion happens at merge time.
type FileMetadataRow struct {
	ContentDocumentID string
	Title             string
	FileType          string
	FileExtension     string
	ContentSize       string
	CreatedDate       string
	CreatedByID       string
	CreatedByName     string
	LastModifiedDate  string
	OwnerID           string
}

// Fields returns the raw query columns in MetadataQueryColumns order.
func (r FileMetadataRow) Fields() []string {
	return []string{
		r.ContentDocumentID,
		r.Title,
		r.FileType,
		r.FileExtension,
		r.ContentSize,
		r.CreatedDate,
		r.CreatedByID,
		r.CreatedByName,
		r.LastModifiedDate,
		r.OwnerID,
	}
}

// Credentials are the short-lived session details obtained from the Salesforce CLI.
type Credentials struct {
	AccessToken string
	InstanceURL string
}

// Report column names.
const (
	ColContentDocumentID = "ContentDocumentId"
	ColTitle             = "Title"
	ColFileType          = "FileType"
	ColFileExtension     = "FileExtension"
	ColContentSize       = "ContentSize"
	ColCreatedDate       = "CreatedDate"
	ColCreatedByID       = "CreatedById"
	ColCreatedByName     = "CreatedBy.Name"
	ColLastModifiedDate  = "LastModifiedDate"
	ColOwnerID           = "OwnerId"

	ColContentSizeBytes = "ContentSizeBytes"
	ColContentSizeMB    = "ContentSizeMB"
	ColFileURL          = "FileUrl"

	ColAttachmentURL = "SiteTrackerAttachmentUrl"
	ColRecordID      = "Id"
)

// MetadataQueryColumns are the ContentVersion fields selected by the Bulk query,
// in the order they appear in both reports.
var MetadataQueryColumns = []string{
	ColContentDocumentID,
	ColTitle,
	ColFileType,
	ColFileExtension,
	ColContentSize,
	ColCreatedDate,
	ColCreatedByID,
	ColCreatedByName,
	ColLastModifiedDate,
	ColOwnerID,
}

// DerivedColumns are computed at merge time and follow MetadataQueryColumns.
var DerivedColumns = []string{
	ColContentSizeBytes,
	ColContentSizeMB,
	ColFileURL,
}

// MetadataColumns returns the full fixed metadata column set in documented order.
func MetadataColumns() []string {
	cols := make([]string, 0, len(MetadataQueryColumns)+len(DerivedColumns))
	cols = append(cols, MetadataQueryColumns...)
	return append(cols, DerivedColumns...)
}
