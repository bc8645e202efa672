// Package report writes report tables as UTF-8 CSV with a byte-order mark,
// so spreadsheet tools detect the encoding.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

// BOM is written before the header of every report.
const BOM = "\uFEFF"

// File pairs a destination path with the table to write there.
type File struct {
	Path  string
	Table *core.SourceTable
}

// WriteAll writes files in order, stopping at the first failure.
func WriteAll(files ...File) error {
	for _, f := range files {
		if err := WriteCSV(f.Path, f.Table); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes table to path. The data goes to a temporary file in the
// destination directory which is then renamed over path, so an interrupted
// write never leaves a truncated report.
func WriteCSV(path string, table *core.SourceTable) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if err := Encode(tmp, table); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	return nil
}

// Encode writes the BOM, header and rows of table to w.
func Encode(w io.Writer, table *core.SourceTable) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	for i := range table.Rows {
		row := make([]string, len(table.Columns))
		for c := range row {
			row[c] = table.Value(i, c)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
