// Package store persists the audit trail. Every classification, every
// repair attempt, and every batch decision is appended to a SQLite
// database keyed by run ID. The trail is append-only: rows are inserted
// and read back, never updated or deleted, so the history of a recovery
// case stays reconstructable.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/decide"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/repair"
)

const schemaVersion = 1

const schema = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE records (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL,
	artifact_id     TEXT NOT NULL,
	source_path     TEXT,
	method          TEXT,
	classification  TEXT NOT NULL,
	corruption_type TEXT NOT NULL,
	tier            INTEGER NOT NULL,
	technique       TEXT,
	detail          TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX idx_records_run ON records(run_id);

CREATE TABLE attempts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	artifact_id TEXT NOT NULL,
	technique   TEXT NOT NULL,
	status      TEXT NOT NULL,
	note        TEXT,
	error       TEXT,
	duration_us INTEGER NOT NULL,
	output_size INTEGER,
	created_at  TEXT NOT NULL
);
CREATE INDEX idx_attempts_run ON attempts(run_id);

CREATE TABLE decisions (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id              TEXT NOT NULL,
	action              TEXT NOT NULL,
	confidence          TEXT NOT NULL,
	rule                TEXT NOT NULL,
	estimate            REAL NOT NULL,
	expected_additional INTEGER NOT NULL,
	reasoning           TEXT,
	override_action     TEXT,
	override_approver   TEXT,
	override_reason     TEXT,
	created_at          TEXT NOT NULL
);
`

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// AuditStore is the SQLite-backed audit trail.
type AuditStore struct {
	db *sql.DB
}

// Open opens or creates the audit database at path, creating the parent
// directory if needed.
func Open(path string) (*AuditStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time; a multi-connection pool under
	// concurrent repair workers surfaces SQLITE_BUSY. One connection
	// serializes all writers on the database/sql side instead.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &AuditStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *AuditStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unsupported schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// ArtifactMeta carries the provenance columns of a record row.
type ArtifactMeta struct {
	SourcePath string
	Method     string
}

// SaveRecord appends one classification record.
func (s *AuditStore) SaveRecord(runID string, meta ArtifactMeta, rec classify.Record) error {
	_, err := s.db.Exec(
		`INSERT INTO records(run_id, artifact_id, source_path, method,
		                     classification, corruption_type, tier, technique, detail, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.ArtifactID, meta.SourcePath, meta.Method,
		rec.Classification.String(), rec.Type.String(), rec.Tier,
		rec.Technique.String(), rec.Detail, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// SaveAttempts appends the attempt trail of one repair outcome.
func (s *AuditStore) SaveAttempts(runID string, attempts []repair.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin attempts tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range attempts {
		_, err := tx.Exec(
			`INSERT INTO attempts(run_id, artifact_id, technique, status,
			                      note, error, duration_us, output_size, created_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, a.ArtifactID, a.Technique, a.Status.String(),
			a.Note, a.Error, a.Duration.Microseconds(), a.OutputSize, nowUTC(),
		)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attempts tx: %w", err)
	}
	return nil
}

// SaveDecision appends the batch decision, override included when set.
func (s *AuditStore) SaveDecision(runID string, d decide.Decision) error {
	reasoning, err := json.Marshal(d.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}

	var overAction, overApprover, overReason sql.NullString
	if d.Override != nil {
		overAction = sql.NullString{String: d.Override.Action.String(), Valid: true}
		overApprover = sql.NullString{String: d.Override.Approver, Valid: true}
		overReason = sql.NullString{String: d.Override.Justification, Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO decisions(run_id, action, confidence, rule, estimate,
		                       expected_additional, reasoning,
		                       override_action, override_approver, override_reason, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, d.Action.String(), d.Confidence.String(), d.Rule, d.Estimate,
		d.ExpectedAdditional, string(reasoning),
		overAction, overApprover, overReason, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// RecordRow is one persisted classification record.
type RecordRow struct {
	ArtifactID     string
	SourcePath     string
	Method         string
	Classification string
	CorruptionType string
	Tier           int
	Technique      string
	Detail         string
	CreatedAt      string
}

// ListRecords returns the records of one run ordered by artifact ID.
func (s *AuditStore) ListRecords(runID string) ([]RecordRow, error) {
	rows, err := s.db.Query(
		`SELECT artifact_id, source_path, method, classification,
		        corruption_type, tier, technique, detail, created_at
		 FROM records WHERE run_id = ? ORDER BY artifact_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var list []RecordRow
	for rows.Next() {
		var r RecordRow
		var src, method, technique, detail sql.NullString
		if err := rows.Scan(&r.ArtifactID, &src, &method, &r.Classification,
			&r.CorruptionType, &r.Tier, &technique, &detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.SourcePath = src.String
		r.Method = method.String
		r.Technique = technique.String
		r.Detail = detail.String
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return list, nil
}

// AttemptRow is one persisted repair attempt.
type AttemptRow struct {
	ArtifactID string
	Technique  string
	Status     string
	Note       string
	Error      string
	DurationUS int64
	OutputSize int64
	CreatedAt  string
}

// ListAttempts returns the attempts of one run in insertion order.
func (s *AuditStore) ListAttempts(runID string) ([]AttemptRow, error) {
	rows, err := s.db.Query(
		`SELECT artifact_id, technique, status, note, error,
		        duration_us, output_size, created_at
		 FROM attempts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var list []AttemptRow
	for rows.Next() {
		var a AttemptRow
		var note, errMsg sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(&a.ArtifactID, &a.Technique, &a.Status, &note, &errMsg,
			&a.DurationUS, &size, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Note = note.String
		a.Error = errMsg.String
		a.OutputSize = size.Int64
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return list, nil
}

// DecisionRow is one persisted batch decision.
type DecisionRow struct {
	Action             string
	Confidence         string
	Rule               string
	Estimate           float64
	ExpectedAdditional int
	Reasoning          []string
	OverrideAction     string
	OverrideApprover   string
	OverrideReason     string
	CreatedAt          string
}

// LastDecision returns the most recent decision of a run, or nil.
func (s *AuditStore) LastDecision(runID string) (*DecisionRow, error) {
	var d DecisionRow
	var reasoning, overAction, overApprover, overReason sql.NullString
	err := s.db.QueryRow(
		`SELECT action, confidence, rule, estimate, expected_additional,
		        reasoning, override_action, override_approver, override_reason, created_at
		 FROM decisions WHERE run_id = ? ORDER BY id DESC LIMIT 1`,
		runID,
	).Scan(&d.Action, &d.Confidence, &d.Rule, &d.Estimate, &d.ExpectedAdditional,
		&reasoning, &overAction, &overApprover, &overReason, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	if reasoning.Valid {
		if err := json.Unmarshal([]byte(reasoning.String), &d.Reasoning); err != nil {
			return nil, fmt.Errorf("unmarshal reasoning: %w", err)
		}
	}
	d.OverrideAction = overAction.String
	d.OverrideApprover = overApprover.String
	d.OverrideReason = overReason.String
	return &d, nil
}
