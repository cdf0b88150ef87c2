package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

type fakeDB struct {
	execSQL   []string
	copyTable pgx.Identifier
	copyCols  []string
	copied    [][]any
	queryArgs []any
	queryErr  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...interface{}) (pgx.Rows, error) {
	f.queryArgs = args
	return nil, f.queryErr
}

func (f *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	f.copyTable = table
	f.copyCols = cols
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copied = append(f.copied, vals)
	}
	return int64(len(f.copied)), src.Err()
}

func sampleBatch() *core.BatchResult {
	return &core.BatchResult{
		ID:        uuid.New(),
		StartedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Files: []core.FileOutcome{
			{
				Index:     0,
				Name:      "a.csv",
				Size:      120,
				Status:    core.StatusConverted,
				Delimiter: ';',
				Summary:   core.SummaryStats{RowCount: 3, ColumnCount: 2, MissingCount: 1},
				Result:    &core.ConversionResult{FileName: "a_20240102_030405.xlsx", Data: []byte("PK")},
			},
			{
				Index:  1,
				Name:   "b.csv",
				Size:   10,
				Status: core.StatusFailed,
				Err:    &core.FileError{Kind: core.KindParse, File: "b.csv", Err: errors.New("line 2: expected 1 fields, saw 2")},
			},
		},
	}
}

func TestRecordBatch(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)
	batch := sampleBatch()

	ctx := core.ContextWithClient(context.Background(), core.ClientInfo{IPAddress: "10.0.0.1", UserAgent: "curl/8"})
	require.NoError(t, store.RecordBatch(ctx, batch))

	assert.Equal(t, pgx.Identifier{"conversion_log"}, db.copyTable)
	assert.Equal(t, columns, db.copyCols)
	require.Len(t, db.copied, 2)

	first := db.copied[0]
	require.Len(t, first, len(columns))
	assert.Equal(t, batch.ID, first[1])
	assert.Equal(t, "a.csv", first[3])
	assert.Equal(t, "a_20240102_030405.xlsx", first[4])
	assert.Equal(t, "converted", first[5])
	assert.Equal(t, 3, first[9])
	assert.Equal(t, "semicolon", first[12])
	assert.Equal(t, "10.0.0.1", first[13])
	assert.Equal(t, "curl/8", first[14])

	second := db.copied[1]
	assert.Equal(t, "", second[4])
	assert.Equal(t, "parse_error", second[6])
	assert.Equal(t, "line 2: expected 1 fields, saw 2", second[7])
}

func TestRecordBatch_NeverStoresContent(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).RecordBatch(context.Background(), sampleBatch()))

	for _, row := range db.copied {
		for _, v := range row {
			_, isBytes := v.([]byte)
			assert.False(t, isBytes, "row contains raw bytes: %v", row)
		}
	}
}

func TestRecordBatch_Empty(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).RecordBatch(context.Background(), &core.BatchResult{}))
	assert.Nil(t, db.copied)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).EnsureSchema(context.Background()))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS conversion_log")
}

func TestRecent_ClampsLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{10000, MaxLimit},
	}
	for _, tt := range tests {
		db := &fakeDB{queryErr: errors.New("offline")}
		_, err := NewStore(db).Recent(context.Background(), tt.in)
		require.Error(t, err)
		require.Len(t, db.queryArgs, 1)
		assert.Equal(t, tt.want, db.queryArgs[0], "limit %d", tt.in)
	}
}
