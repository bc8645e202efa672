package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

func table(rows ...string) *core.SourceTable {
	t := &core.SourceTable{Columns: []string{"Id", "Document_ID__c"}}
	for i, r := range rows {
		t.Rows = append(t.Rows, []string{string(rune('a' + i)), r})
	}
	return t
}

func TestBuildIdentifierSet(t *testing.T) {
	set, err := BuildIdentifierSet(table(
		"069000000000001",    // 15-char
		"069000000000001AAA", // same ID, 18-char
		"  ",
		"",
		"069000000000002AAA",
	), "Document_ID__c")
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("069000000000001"))
	assert.True(t, set.Contains("069000000000001aaa"))
	assert.True(t, set.Contains(" 069000000000002 "))
	assert.False(t, set.Contains("069000000000003"))
	assert.False(t, set.Contains(""))
}

func TestBuildIdentifierSetMissingColumn(t *testing.T) {
	_, err := BuildIdentifierSet(table("069000000000001"), "DocId")

	var cfgErr *core.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DocId", cfgErr.Value)
}

func TestBuildIdentifierSetEmpty(t *testing.T) {
	set, err := BuildIdentifierSet(table("", " "), "Document_ID__c")
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestFilter(t *testing.T) {
	set, err := BuildIdentifierSet(table("069000000000002", "069000000000001"), "Document_ID__c")
	require.NoError(t, err)

	rows := []core.FileMetadataRow{
		{ContentDocumentID: "069000000000001AAA", Title: "one"},
		{ContentDocumentID: "069000000000009AAA", Title: "other"},
		{ContentDocumentID: "069000000000002AAA", Title: "two"},
		{ContentDocumentID: "069000000000001AAA", Title: "one again"},
	}

	got := Filter(set, rows)
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Title)
	assert.Equal(t, "two", got[1].Title)
	assert.Equal(t, "one again", got[2].Title)
}

func TestFilterNilSet(t *testing.T) {
	assert.Empty(t, Filter(nil, []core.FileMetadataRow{{ContentDocumentID: "069000000000001AAA"}}))
}
