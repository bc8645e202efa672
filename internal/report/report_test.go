package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

func sample() *core.SourceTable {
	return &core.SourceTable{
		Columns: []string{"Id", "Title", "Notes"},
		Rows: [][]string{
			{"A1", "plan, rev 2.pdf", `say "hi"`},
			{"A2", "Café.png"},
		},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample()))

	want := BOM + "Id,Title,Notes\n" +
		"A1,\"plan, rev 2.pdf\",\"say \"\"hi\"\"\"\n" +
		"A2,Café.png,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "merged.csv")

	require.NoError(t, WriteCSV(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(BOM)))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "merged.csv", entries[0].Name())
}

func TestWriteCSVReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	require.NoError(t, WriteCSV(path, &core.SourceTable{Columns: []string{"Id"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, BOM+"Id\n", string(data))
}

func TestWriteCSVDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, WriteCSV(a, sample()))
	require.NoError(t, WriteCSV(b, sample()))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestWriteCSVError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// The parent "directory" is a regular file.
	err := WriteCSV(filepath.Join(blocker, "out.csv"), sample())
	require.Error(t, err)

	var writeErr *core.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, filepath.Join(blocker, "out.csv"), writeErr.Path)
	assert.Equal(t, core.ExitWrite, core.ExitCode(err))
}

func TestWriteAllStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	good := filepath.Join(dir, "merged.csv")

	err := WriteAll(
		File{Path: filepath.Join(blocker, "files.csv"), Table: sample()},
		File{Path: good, Table: sample()},
	)
	require.Error(t, err)
	assert.NoFileExists(t, good)
}
