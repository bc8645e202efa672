// Package source reads the locally exported SiteTracker attachment CSV.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

// DefaultEncoding accepts UTF-8 with or without a byte-order mark, as written by Excel.
const DefaultEncoding = "utf-8-sig"

const utf8BOM = "\uFEFF"

// Options controls how the input is decoded and trimmed.
type Options struct {
	// Encoding is "utf-8-sig" (default), "utf-8", or any WHATWG label
	// such as "windows-1252", "latin1" or "utf-16le".
	Encoding string
	// IDColumn must exist in the header.
	IDColumn string
	// Columns is an optional allow-list. Unknown names are ignored and
	// IDColumn is always kept.
	Columns []string
}

// Read loads the CSV at path.
func Read(path string, opts Options) (*core.SourceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ConfigError{Field: "sitetracker_csv", Value: path, Reason: err.Error()}
	}
	defer func() { _ = f.Close() }()

	table, err := Decode(f, opts)
	if err != nil {
		var cfgErr *core.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &core.ConfigError{Field: "sitetracker_csv", Value: path, Reason: err.Error()}
	}
	return table, nil
}

// Decode parses CSV from r according to opts.
func Decode(r io.Reader, opts Options) (*core.SourceTable, error) {
	dec, err := Decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = cleanHeader(header)

	table := &core.SourceTable{Columns: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, pad(record, len(header)))
	}

	idColumn := norm.NFC.String(strings.TrimSpace(opts.IDColumn))
	if idColumn == "" {
		return nil, &core.ConfigError{Field: "docid_col", Reason: "is required"}
	}
	if !table.HasColumn(idColumn) {
		return nil, &core.ConfigError{
			Field:  "docid_col",
			Value:  idColumn,
			Reason: "column not found in SiteTracker CSV",
		}
	}

	if len(opts.Columns) > 0 {
		table = project(table, opts.Columns, idColumn)
	}
	return table, nil
}

// Decoder resolves an encoding label to a decoding transformer.
func Decoder(label string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8-sig", "utf8-sig", "utf-8", "utf8":
		// BOMOverride also recognises UTF-16 marks from "Unicode Text" exports.
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, &core.ConfigError{Field: "encoding", Value: label, Reason: "unsupported encoding"}
	}
	return enc.NewDecoder(), nil
}

// ParseColumns splits a comma-separated allow-list, dropping blanks.
func ParseColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// project keeps the listed columns that exist, in list order, and appends the
// identifier column when the list omitted it.
func project(t *core.SourceTable, keep []string, idColumn string) *core.SourceTable {
	var idx []int
	var cols []string
	seen := make(map[string]bool)
	for _, name := range keep {
		name = norm.NFC.String(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		if i := t.ColumnIndex(name); i >= 0 {
			idx = append(idx, i)
			cols = append(cols, name)
			seen[name] = true
		}
	}
	if !seen[idColumn] {
		idx = append(idx, t.ColumnIndex(idColumn))
		cols = append(cols, idColumn)
	}

	out := &core.SourceTable{Columns: cols, Rows: make([][]string, len(t.Rows))}
	for r := range t.Rows {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = t.Value(r, i)
		}
		out.Rows[r] = row
	}
	return out
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = norm.NFC.String(strings.TrimSpace(h))
	}
	return out
}

func pad(record []string, width int) []string {
	if len(record) >= width {
		return record
	}
	row := make([]string, width)
	copy(row, record)
	return row
}
