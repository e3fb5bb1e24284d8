package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"drawsyncgo/internal/database/db_client"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLStore {
	t.Helper()

	db, err := db_client.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	s := NewSQLStore(db, SQLite)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("oracle")
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestRebind(t *testing.T) {
	q := "DELETE FROM drawings WHERE room_id = ? AND sequence = ?"
	assert.Equal(t, "DELETE FROM drawings WHERE room_id = $1 AND sequence = $2", Postgres.rebind(q))
	assert.Equal(t, q, SQLite.rebind(q))
}

func TestSQLiteRoomRow(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	r, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, r)

	require.NoError(t, s.UpsertRoom(ctx, "r1"))
	require.NoError(t, s.UpsertRoom(ctx, "r1"))

	r, err = s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "r1", r.ID)
	assert.True(t, r.Active)
}

func TestSQLiteDrawingsOrderedBySequence(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDrawing(ctx, "r1", 2, []byte(`{"n":2}`)))
	require.NoError(t, s.SaveDrawing(ctx, "r1", 1, []byte(`{"n":1}`)))
	require.NoError(t, s.SaveDrawing(ctx, "r1", 3, []byte(`{"n":3}`)))
	require.NoError(t, s.SaveDrawing(ctx, "other", 1, []byte(`{"n":99}`)))

	list, err := s.ListDrawings(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, d := range list {
		assert.Equal(t, i+1, d.Sequence)
		assert.Equal(t, "r1", d.RoomID)
	}
	assert.JSONEq(t, `{"n":1}`, string(list[0].Data))
}

func TestSQLiteSaveReusedSequenceReplacesRow(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDrawing(ctx, "r1", 1, []byte(`{"v":"old"}`)))
	require.NoError(t, s.SaveDrawing(ctx, "r1", 1, []byte(`{"v":"new"}`)))

	list, err := s.ListDrawings(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"v":"new"}`, string(list[0].Data))
}

func TestSQLiteDeletes(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	for seq := 1; seq <= 3; seq++ {
		require.NoError(t, s.SaveDrawing(ctx, "r1", seq, []byte(`{}`)))
	}
	require.NoError(t, s.DeleteDrawing(ctx, "r1", 3))

	list, err := s.ListDrawings(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteDrawings(ctx, "r1"))
	list, err = s.ListDrawings(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	s := setupSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestPostgresQueriesUseNumberedPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewSQLStore(db, Postgres)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms (id, active) VALUES ($1, TRUE)")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO drawings (room_id, sequence, element_data) VALUES ($1, $2, $3)")).
		WithArgs("r1", 4, []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM drawings WHERE room_id = $1 AND sequence = $2")).
		WithArgs("r1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sequence, element_data FROM drawings")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"sequence", "element_data"}).
			AddRow(1, []byte(`{"a":1}`)).
			AddRow(2, []byte(`{"a":2}`)))

	require.NoError(t, s.UpsertRoom(ctx, "r1"))
	require.NoError(t, s.SaveDrawing(ctx, "r1", 4, []byte(`{}`)))
	require.NoError(t, s.DeleteDrawing(ctx, "r1", 4))

	list, err := s.ListDrawings(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[1].Sequence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewSQLStore(db, Postgres)

	boom := errors.New("connection reset")
	mock.ExpectExec("DELETE FROM drawings").WithArgs("r1").WillReturnError(boom)

	err = s.DeleteDrawings(context.Background(), "r1")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "r1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewSQLStore(db, Postgres)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rooms").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS drawings").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
