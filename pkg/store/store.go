package store

import (
	"github.com/noseyparker/noseyparker/pkg/types"
)

// Store provides persistence for scan results.
// This interface abstracts the underlying storage implementation,
// allowing for different backends (SQLite, PostgreSQL, etc.).
type Store interface {
	// AddBlob stores a blob record.
	AddBlob(id types.BlobID, size int64) error

	// AddMatch stores a match record.
	AddMatch(m *types.Match) error

	// AddFinding stores a finding (deduplicated).
	AddFinding(f *types.Finding) error

	// AddProvenance associates provenance with a blob.
	AddProvenance(blobID types.BlobID, prov types.Provenance) error

	// GetMatches retrieves matches for a blob.
	GetMatches(blobID types.BlobID) ([]*types.Match, error)

	// GetAllMatches retrieves all matches (for JSON export).
	GetAllMatches() ([]*types.Match, error)

	// GetFindings retrieves all findings (for reporting).
	GetFindings() ([]*types.Finding, error)

	// FindingExists checks if a finding with this structural ID exists.
	FindingExists(structuralID string) (bool, error)

	// BlobExists checks if a blob has already been scanned.
	BlobExists(id types.BlobID) (bool, error)

	// Summary returns per-rule match/finding counts, one RuleSummary per
	// rule that has at least one match, for the summarize CLI command.
	Summary() ([]RuleSummary, error)

	// Close closes the database connection.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for in-memory database (useful for testing).
	Path string
}

// New constructs a Store; see store_default.go/store_nocgo.go/store_wasm.go
// for the build-tag-selected implementation (SQLite where cgo is available,
// MemoryStore otherwise).

// RuleSummary is one row of Store.Summary(): per-rule match/finding counts
// for the summarize CLI command and SARIF run metadata.
type RuleSummary struct {
	RuleID       string
	RuleName     string
	MatchCount   int
	FindingCount int
}
