package output

// ExportSummary is the JSON form of a completed export.
type ExportSummary struct {
	RunID             string `json:"run_id"`
	InstanceURL       string `json:"instance_url"`
	SourceRows        int    `json:"source_rows"`
	DistinctIDs       int    `json:"distinct_ids"`
	FetchedRows       int    `json:"fetched_rows"`
	MatchedRows       int    `json:"matched_rows"`
	FilesOnlyRows     int    `json:"files_only_rows"`
	DuplicatesDropped int    `json:"duplicates_dropped"`
	Conflicts         int    `json:"conflicts"`
	MissingSize       int    `json:"missing_size"`
	TotalBytes        int64  `json:"total_bytes"`
	EarliestCreated   string `json:"earliest_created,omitempty"`
	LatestCreated     string `json:"latest_created,omitempty"`
	MergedPath        string `json:"merged_path"`
	FilesOnlyPath     string `json:"files_only_path"`
	DurationMS        int64  `json:"duration_ms"`
}

// IDInfo describes one identifier passed to the id command.
type IDInfo struct {
	Input string `json:"input"`
	ID15  string `json:"id15,omitempty"`
	ID18  string `json:"id18,omitempty"`
	Valid bool   `json:"valid"`
}
