// Package sqlite provides a SQLite-backed roll history store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/dicebox/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/dicebox/internal/services/dice/storage"
	"github.com/louisbranch/dicebox/internal/services/dice/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists roll history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite roll store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutRoll inserts one roll and returns it with its sequence assigned.
func (s *Store) PutRoll(ctx context.Context, roll storage.Roll) (storage.Roll, error) {
	if err := ctx.Err(); err != nil {
		return storage.Roll{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Roll{}, fmt.Errorf("storage is not configured")
	}
	roll.ID = strings.TrimSpace(roll.ID)
	if roll.ID == "" {
		return storage.Roll{}, fmt.Errorf("roll id is required")
	}
	if roll.Expression == "" {
		return storage.Roll{}, fmt.Errorf("expression is required")
	}
	if roll.CreatedAt.IsZero() {
		roll.CreatedAt = time.Now()
	}
	roll.CreatedAt = fromMillis(toMillis(roll.CreatedAt))

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rolls (id, expression, display, error_text, seed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		roll.ID,
		roll.Expression,
		roll.Display,
		roll.Error,
		roll.Seed,
		toMillis(roll.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Roll{}, storage.ErrAlreadyExists
		}
		return storage.Roll{}, fmt.Errorf("put roll: %w", err)
	}
	if roll.Seq, err = result.LastInsertId(); err != nil {
		return storage.Roll{}, fmt.Errorf("put roll: %w", err)
	}
	return roll, nil
}

const rollColumns = `seq, id, expression, display, error_text, seed, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoll(row scanner) (storage.Roll, error) {
	var roll storage.Roll
	var createdAt int64
	if err := row.Scan(
		&roll.Seq,
		&roll.ID,
		&roll.Expression,
		&roll.Display,
		&roll.Error,
		&roll.Seed,
		&createdAt,
	); err != nil {
		return storage.Roll{}, err
	}
	roll.CreatedAt = fromMillis(createdAt)
	return roll, nil
}

// GetRoll returns one roll by id.
func (s *Store) GetRoll(ctx context.Context, id string) (storage.Roll, error) {
	if err := ctx.Err(); err != nil {
		return storage.Roll{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Roll{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Roll{}, fmt.Errorf("roll id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+rollColumns+` FROM rolls WHERE id = ?`, id)
	roll, err := scanRoll(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Roll{}, storage.ErrNotFound
		}
		return storage.Roll{}, fmt.Errorf("get roll: %w", err)
	}
	return roll, nil
}

// ListRolls returns one page of rolls, newest first.
func (s *Store) ListRolls(ctx context.Context, query storage.RollQuery) (storage.RollPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RollPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RollPage{}, fmt.Errorf("storage is not configured")
	}
	if query.PageSize <= 0 {
		return storage.RollPage{}, fmt.Errorf("page size must be greater than zero")
	}

	var (
		where  []string
		params []any
	)
	if query.BeforeSeq > 0 {
		where = append(where, "seq < ?")
		params = append(params, query.BeforeSeq)
	}
	if !query.Where.Empty() {
		where = append(where, query.Where.Clause)
		params = append(params, query.Where.Params...)
	}
	stmt := `SELECT ` + rollColumns + ` FROM rolls`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, " AND ")
	}
	stmt += ` ORDER BY seq DESC LIMIT ?`
	params = append(params, query.PageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, stmt, params...)
	if err != nil {
		return storage.RollPage{}, fmt.Errorf("list rolls: %w", err)
	}
	defer rows.Close()

	page := storage.RollPage{Rolls: make([]storage.Roll, 0, query.PageSize)}
	for rows.Next() {
		roll, err := scanRoll(rows)
		if err != nil {
			return storage.RollPage{}, fmt.Errorf("list rolls: %w", err)
		}
		page.Rolls = append(page.Rolls, roll)
	}
	if err := rows.Err(); err != nil {
		return storage.RollPage{}, fmt.Errorf("list rolls: %w", err)
	}
	if len(page.Rolls) > query.PageSize {
		page.Rolls = page.Rolls[:query.PageSize]
		page.NextSeq = page.Rolls[query.PageSize-1].Seq
	}
	return page, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.RollStore = (*Store)(nil)
