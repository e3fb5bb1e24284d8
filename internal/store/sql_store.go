package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the SQL drivers only; "memory" is handled by the
// caller.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case Postgres, SQLite:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}

// rebind rewrites ? placeholders into $1, $2... for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	upsertRoomQ = `
	  INSERT INTO rooms (id, active) VALUES (?, TRUE)
	  ON CONFLICT (id) DO UPDATE SET active = TRUE`

	getRoomQ = `SELECT id, active, created_at FROM rooms WHERE id = ?`

	// a sequence reused after undo replaces a row whose delete was lost
	saveDrawingQ = `
	  INSERT INTO drawings (room_id, sequence, element_data) VALUES (?, ?, ?)
	  ON CONFLICT (room_id, sequence) DO UPDATE SET element_data = excluded.element_data`

	listDrawingsQ = `
	  SELECT sequence, element_data FROM drawings
	   WHERE room_id = ?
	   ORDER BY sequence ASC`

	deleteDrawingQ  = `DELETE FROM drawings WHERE room_id = ? AND sequence = ?`
	deleteDrawingsQ = `DELETE FROM drawings WHERE room_id = ?`
)

// SQLStore is the HistoryStore over database/sql, for postgres (pgx) and
// sqlite (modernc).
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ HistoryStore = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the tables if they do not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if s.dialect == SQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	zap.L().Info("store schema ready", zap.String("dialect", string(s.dialect)))
	return nil
}

func (s *SQLStore) UpsertRoom(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(upsertRoomQ), roomID); err != nil {
		return fmt.Errorf("upsert room %s: %w", roomID, err)
	}
	return nil
}

// GetRoom returns nil without error when the room row does not exist.
func (s *SQLStore) GetRoom(ctx context.Context, roomID string) (*RoomRow, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(getRoomQ), roomID)
	r := &RoomRow{}
	if err := row.Scan(&r.ID, &r.Active, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return r, nil
}

func (s *SQLStore) SaveDrawing(ctx context.Context, roomID string, sequence int, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(saveDrawingQ), roomID, sequence, data); err != nil {
		return fmt.Errorf("save drawing %s/%d: %w", roomID, sequence, err)
	}
	return nil
}

func (s *SQLStore) ListDrawings(ctx context.Context, roomID string) ([]Drawing, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(listDrawingsQ), roomID)
	if err != nil {
		return nil, fmt.Errorf("list drawings %s: %w", roomID, err)
	}
	defer rows.Close()

	list := make([]Drawing, 0)
	for rows.Next() {
		d := Drawing{RoomID: roomID}
		if err := rows.Scan(&d.Sequence, &d.Data); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (s *SQLStore) DeleteDrawing(ctx context.Context, roomID string, sequence int) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(deleteDrawingQ), roomID, sequence); err != nil {
		return fmt.Errorf("delete drawing %s/%d: %w", roomID, sequence, err)
	}
	return nil
}

func (s *SQLStore) DeleteDrawings(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(deleteDrawingsQ), roomID); err != nil {
		return fmt.Errorf("delete drawings %s: %w", roomID, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
