package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	execs   []execCall
	execErr error
	rows    [][]any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if _, _, err := infra.ExtractMarker(query); err != nil {
		return pgconn.CommandTag{}, err
	}
	s.execs = append(s.execs, execCall{query: query, args: args})
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return nil
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if !strings.Contains(query, "from uploaded_assets") {
		return nil, errors.New("unexpected query")
	}
	return &stubRows{data: s.rows, idx: -1}, nil
}

type stubRows struct {
	data [][]any
	idx  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return r.data[r.idx], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		case *int:
			*p = row[i].(int)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func TestUploadRepositoryRecord(t *testing.T) {
	db := &stubExecutor{}
	r := NewUploadRepository(db)

	asset := &domain.UploadedAsset{
		PublicURL:   "https://bucket.s3.us-east-1.amazonaws.com/uploads/a.png",
		StorageKey:  "uploads/a.png",
		ContentType: "image/png",
		Size:        42,
		Width:       4,
		Height:      2,
		Checksum:    "abc",
	}
	require.NoError(t, r.Record(context.Background(), asset))
	require.Len(t, db.execs, 1)

	args := db.execs[0].args
	require.Len(t, args, 9)
	assert.Equal(t, "uploads/a.png", args[1])
	assert.Equal(t, int64(42), args[4])
	assert.False(t, args[8].(time.Time).IsZero())
}

func TestUploadRepositoryRecordWrapsError(t *testing.T) {
	db := &stubExecutor{execErr: errors.New("boom")}
	r := NewUploadRepository(db)

	err := r.Record(context.Background(), &domain.UploadedAsset{StorageKey: "uploads/x.gif"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploads/x.gif")
}

func TestUploadRepositoryRecent(t *testing.T) {
	now := time.Now()
	db := &stubExecutor{rows: [][]any{
		{"uploads/b.jpg", "https://cdn/b.jpg", "image/jpeg", int64(10), 3, 3, "c1", now},
		{"uploads/a.png", "https://cdn/a.png", "image/png", int64(20), 1, 1, "c2", now.Add(-time.Minute)},
	}}
	r := NewUploadRepository(db)

	got, err := r.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "uploads/b.jpg", got[0].StorageKey)
	assert.Equal(t, int64(20), got[1].Size)
}

func TestUploadRepositoryEnsureSchema(t *testing.T) {
	db := &stubExecutor{}
	require.NoError(t, NewUploadRepository(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].query, "create table if not exists uploaded_assets")
}
