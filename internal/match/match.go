// Package match selects the fetched file metadata referenced by the local dataset.
package match

import (
	"strings"

	"github.com/leapstack-labs/docjoin/internal/sfid"
	"github.com/leapstack-labs/docjoin/pkg/core"
)

// IdentifierSet holds normalized ContentDocument identifiers.
type IdentifierSet struct {
	ids map[string]struct{}
}

// Len returns the number of distinct identifiers.
func (s *IdentifierSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Contains reports whether id, in any casing or length form, is in the set.
func (s *IdentifierSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[sfid.Normalize(id)]
	return ok
}

// BuildIdentifierSet collects the normalized non-blank values of column.
func BuildIdentifierSet(table *core.SourceTable, column string) (*IdentifierSet, error) {
	col := table.ColumnIndex(column)
	if col < 0 {
		return nil, &core.ConfigError{
			Field:  "docid_col",
			Value:  column,
			Reason: "column not found in SiteTracker CSV",
		}
	}

	set := &IdentifierSet{ids: make(map[string]struct{}, table.Len())}
	for i := range table.Rows {
		v := strings.TrimSpace(table.Value(i, col))
		if v == "" {
			continue
		}
		set.ids[sfid.Normalize(v)] = struct{}{}
	}
	return set, nil
}

// Filter keeps rows whose ContentDocumentId is in set, in their original order.
func Filter(set *IdentifierSet, rows []core.FileMetadataRow) []core.FileMetadataRow {
	var out []core.FileMetadataRow
	for _, r := range rows {
		if set.Contains(r.ContentDocumentID) {
			out = append(out, r)
		}
	}
	return out
}
