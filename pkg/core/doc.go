// Package core defines the shared language of docjoin.
//
// This package contains:
//   - Tabular data carried between stages (SourceTable, FileMetadataRow)
//   - Credentials returned by the identity delegate
//   - The fixed report column set
//   - The error taxonomy surfaced to the operator
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
