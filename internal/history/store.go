// Package history keeps a metadata-only log of conversion batches in
// PostgreSQL. File contents are never stored: only names, sizes, outcome
// and the detected delimiter.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

const tableName = "conversion_log"

var columns = []string{
	"id", "batch_id", "file_index", "file_name", "output_name", "status",
	"error_kind", "error_message", "size_bytes", "row_count", "column_count",
	"missing_count", "delimiter", "client_ip", "user_agent", "created_at",
}

const schema = `
CREATE TABLE IF NOT EXISTS conversion_log (
	id            UUID PRIMARY KEY,
	batch_id      UUID NOT NULL,
	file_index    INTEGER NOT NULL,
	file_name     TEXT NOT NULL,
	output_name   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	error_kind    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	size_bytes    BIGINT NOT NULL,
	row_count     INTEGER NOT NULL DEFAULT 0,
	column_count  INTEGER NOT NULL DEFAULT 0,
	missing_count INTEGER NOT NULL DEFAULT 0,
	delimiter     TEXT NOT NULL DEFAULT '',
	client_ip     TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversion_log_created_at_idx ON conversion_log (created_at DESC);
`

// DBTX is the subset of *pgxpool.Pool the store uses.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Entry is one recorded file.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	BatchID      uuid.UUID `json:"batch_id"`
	FileIndex    int       `json:"file_index"`
	FileName     string    `json:"file_name"`
	OutputName   string    `json:"output_name,omitempty"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	RowCount     int       `json:"row_count"`
	ColumnCount  int       `json:"column_count"`
	MissingCount int       `json:"missing_count"`
	Delimiter    string    `json:"delimiter,omitempty"`
	ClientIP     string    `json:"client_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store records batches. It implements core.Recorder.
type Store struct {
	db DBTX
}

// NewStore returns a Store backed by db.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the log table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", tableName, err)
	}
	return nil
}

// RecordBatch writes one row per file of b.
func (s *Store) RecordBatch(ctx context.Context, b *core.BatchResult) error {
	if len(b.Files) == 0 {
		return nil
	}

	rows := buildRows(b, core.ClientFromContext(ctx))
	n, err := s.db.CopyFrom(ctx, pgx.Identifier{tableName}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("record batch %s: %w", b.ID, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("record batch %s: wrote %d of %d rows", b.ID, n, len(rows))
	}
	return nil
}

// Recent returns the newest entries first. limit is clamped to
// [1, MaxLimit]; zero selects DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit)

	query := fmt.Sprintf(`SELECT id, batch_id, file_index, file_name, output_name, status,
		error_kind, error_message, size_bytes, row_count, column_count,
		missing_count, delimiter, client_ip, user_agent, created_at
		FROM %s ORDER BY created_at DESC, file_index ASC LIMIT $1`, tableName)

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Entry])
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func buildRows(b *core.BatchResult, client core.ClientInfo) [][]any {
	rows := make([][]any, 0, len(b.Files))
	for _, f := range b.Files {
		var output, kind, msg string
		if f.Result != nil {
			output = f.Result.FileName
		}
		if f.Err != nil {
			kind = f.Err.Kind.String()
			msg = f.Err.Detail()
		}

		rows = append(rows, []any{
			uuid.New(),
			b.ID,
			f.Index,
			f.Name,
			output,
			string(f.Status),
			kind,
			msg,
			f.Size,
			f.Summary.RowCount,
			f.Summary.ColumnCount,
			f.Summary.MissingCount,
			f.DelimiterName(),
			client.IPAddress,
			client.UserAgent,
			b.StartedAt,
		})
	}
	return rows
}
