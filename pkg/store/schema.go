package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version (compatible with NoseyParker v70).
const SchemaVersion = 70

// CreateSchema creates the database schema if it doesn't exist.
// This matches NoseyParker's schema v70 for compatibility.
func CreateSchema(db *sql.DB) error {
	// Create schema_version table
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	// Create main tables
	if err := createBlobsTable(db); err != nil {
		return fmt.Errorf("creating blobs table: %w", err)
	}

	if err := createRulesTable(db); err != nil {
		return fmt.Errorf("creating rules table: %w", err)
	}

	if err := createMatchesTable(db); err != nil {
		return fmt.Errorf("creating matches table: %w", err)
	}

	if err := createFindingsTable(db); err != nil {
		return fmt.Errorf("creating findings table: %w", err)
	}

	if err := createProvenanceTable(db); err != nil {
		return fmt.Errorf("creating provenance table: %w", err)
	}

	if err := createSnippetsTable(db); err != nil {
		return fmt.Errorf("creating snippets table: %w", err)
	}

	if err := createTriageTables(db); err != nil {
		return fmt.Errorf("creating triage tables: %w", err)
	}

	if err := createDenormalizedViews(db); err != nil {
		return fmt.Errorf("creating denormalized views: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Insert version if table is empty
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	return nil
}

func createBlobsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			id TEXT PRIMARY KEY NOT NULL,
			size INTEGER NOT NULL
		)
	`)
	return err
}

func createRulesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			pattern TEXT NOT NULL,
			structural_id TEXT NOT NULL
		)
	`)
	return err
}

func createMatchesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			blob_id TEXT NOT NULL REFERENCES blobs(id),
			rule_id TEXT NOT NULL REFERENCES rules(id),
			structural_id TEXT NOT NULL UNIQUE,
			offset_start INTEGER NOT NULL,
			offset_end INTEGER NOT NULL,
			snippet_id INTEGER REFERENCES snippets(id),
			groups_json TEXT,
			finding_id INTEGER,
			start_line INTEGER,
			start_column INTEGER,
			end_line INTEGER,
			end_column INTEGER
		)
	`)
	return err
}

// createSnippetsTable stores the (before, matching, after) byte windows
// around a match, deduplicated by content hash: the same secret appearing
// at the same surrounding context (e.g. the same line copy-pasted into two
// files) is stored once and referenced by every matches row that produced
// it, rather than once per match.
func createSnippetsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content_hash TEXT NOT NULL UNIQUE,
			before_bytes BLOB,
			matching_bytes BLOB,
			after_bytes BLOB
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_snippets_hash ON snippets(content_hash)`)
	return err
}

// createTriageTables creates the per-finding status/comment/score side
// tables spec.md §4.4 calls for: human triage state kept separate from the
// findings table itself so re-scanning never clobbers it (findings are
// inserted with INSERT OR IGNORE; triage rows are written only by explicit
// user action, never by a scan).
func createTriageTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS status (
			finding_id TEXT PRIMARY KEY REFERENCES findings(structural_id),
			status TEXT NOT NULL CHECK(status IN ('undetermined', 'accept', 'reject'))
		)`,
		`CREATE TABLE IF NOT EXISTS comment (
			finding_id TEXT PRIMARY KEY REFERENCES findings(structural_id),
			comment TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS score (
			finding_id TEXT PRIMARY KEY REFERENCES findings(structural_id),
			score REAL NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// createDenormalizedViews creates the match_denorm/finding_denorm/
// finding_summary views spec.md §4.5 calls for, joining rule names and
// snippet/triage data in so report/summarize/sarif code can read one row
// per match or finding without re-joining by hand.
func createDenormalizedViews(db *sql.DB) error {
	statements := []string{
		`CREATE VIEW IF NOT EXISTS match_denorm AS
			SELECT
				m.id, m.blob_id, m.rule_id, r.name AS rule_name,
				m.structural_id, m.offset_start, m.offset_end,
				m.start_line, m.start_column, m.end_line, m.end_column,
				m.groups_json,
				sn.before_bytes, sn.matching_bytes, sn.after_bytes
			FROM matches m
			LEFT JOIN rules r ON r.id = m.rule_id
			LEFT JOIN snippets sn ON sn.id = m.snippet_id`,
		`CREATE VIEW IF NOT EXISTS finding_denorm AS
			SELECT
				f.id, f.structural_id, f.rule_id, r.name AS rule_name,
				f.groups_json,
				st.status, c.comment, sc.score
			FROM findings f
			LEFT JOIN rules r ON r.id = f.rule_id
			LEFT JOIN status st ON st.finding_id = f.structural_id
			LEFT JOIN comment c ON c.finding_id = f.structural_id
			LEFT JOIN score sc ON sc.finding_id = f.structural_id`,
		`CREATE VIEW IF NOT EXISTS finding_summary AS
			SELECT
				f.rule_id,
				r.name AS rule_name,
				COUNT(DISTINCT f.structural_id) AS finding_count,
				(SELECT COUNT(*) FROM matches m WHERE m.rule_id = f.rule_id) AS match_count
			FROM findings f
			LEFT JOIN rules r ON r.id = f.rule_id
			GROUP BY f.rule_id, r.name`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func createFindingsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			structural_id TEXT NOT NULL UNIQUE,
			rule_id TEXT NOT NULL,
			groups_json TEXT
		)
	`)
	return err
}

func createProvenanceTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS provenance (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			blob_id TEXT NOT NULL REFERENCES blobs(id),
			type TEXT NOT NULL,
			path TEXT,
			repo_path TEXT,
			commit_hash TEXT,
			UNIQUE(blob_id, type, path, repo_path, commit_hash)
		)
	`)
	if err != nil {
		return err
	}

	// Create index for efficient provenance lookup by blob_id
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_provenance_blob_id ON provenance(blob_id)
	`)
	return err
}
