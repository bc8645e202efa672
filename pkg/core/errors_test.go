package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", &ConfigError{Field: "docid_col", Reason: "required"}, ExitConfig},
		{"wrapped config", fmt.Errorf("load: %w", &ConfigError{Field: "x", Reason: "y"}), ExitConfig},
		{"auth", &AuthError{Command: "sf org display", Stderr: "no org"}, ExitAuth},
		{"fetch", &FetchError{Stage: "create", Status: 400}, ExitFetch},
		{"partial", &PartialResultError{JobID: "750", Pages: 2}, ExitFetch},
		{"partial wrapping fetch", &PartialResultError{Err: &FetchError{Stage: "results"}}, ExitFetch},
		{"write", &WriteError{Path: "out.csv", Err: errors.New("disk full")}, ExitWrite},
		{"unknown", errors.New("boom"), ExitUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestAuthErrorSurfacesStderr(t *testing.T) {
	err := &AuthError{
		Command: "sf org display --json --target-org myorg",
		Stderr:  "  No authorization information found for myorg.\n",
		Err:     errors.New("exit status 1"),
	}

	msg := err.Error()
	assert.Contains(t, msg, "sf org display --json --target-org myorg")
	assert.Contains(t, msg, "STDERR:\nNo authorization information found for myorg.")
	assert.Contains(t, msg, "exit status 1")
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Stage: "create", Status: 400, Body: `[{"errorCode":"INVALID_FIELD"}]`}
	assert.Equal(t, "fetch (create): HTTP 400\n[{\"errorCode\":\"INVALID_FIELD\"}]", err.Error())
}

func TestPartialResultErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &PartialResultError{JobID: "750x", Pages: 1, Rows: 10, Locator: "MTAw", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "stopped after 1 page(s), 10 row(s)")
	assert.Contains(t, err.Error(), "next locator MTAw")
}

func TestMetadataColumnsOrder(t *testing.T) {
	cols := MetadataColumns()
	assert.Equal(t, ColContentDocumentID, cols[0])
	assert.Equal(t, ColOwnerID, cols[9])
	assert.Equal(t, []string{ColContentSizeBytes, ColContentSizeMB, ColFileURL}, cols[10:])

	row := FileMetadataRow{ContentDocumentID: "069A", OwnerID: "005B"}
	fields := row.Fields()
	assert.Len(t, fields, len(MetadataQueryColumns))
	assert.Equal(t, "069A", fields[0])
	assert.Equal(t, "005B", fields[9])
}
