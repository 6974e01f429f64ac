// Package directory persists employees in a relational `employees` table.
// SQLite is the default backend; Postgres is available through the pgx driver.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hetulpatel/employees/internal/employee"
	"github.com/hetulpatel/employees/internal/logging"
)

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError wraps a connection or statement failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Record is a persisted employee.
type Record struct {
	ID int64
	employee.Employee
}

// Filters narrow ListByFilters. Empty fields impose no constraint.
type Filters struct {
	Gender     string
	NamePrefix string
}

func (f Filters) Empty() bool {
	return f.Gender == "" && f.NamePrefix == ""
}

// Store wraps a single-connection database handle.
type Store struct {
	db      *sql.DB
	dialect dialect
}

func newStore(db *sql.DB, d dialect) *Store {
	db.SetMaxOpenConns(1)
	return &Store{db: db, dialect: d}
}

// Driver names the backend in use.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withConn runs fn on a dedicated connection that is returned on every path.
func (s *Store) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	if s == nil || s.db == nil {
		return &StorageError{Op: op, Err: errors.New("store not initialized")}
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return storageErr(op, err)
	}
	defer conn.Close()
	return storageErr(op, fn(conn))
}

// CreateSchema ensures the employees table exists.
func (s *Store) CreateSchema(ctx context.Context) error {
	return s.withConn(ctx, "create schema", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, s.dialect.schema)
		return err
	})
}

// Insert appends one employee and returns the generated id.
func (s *Store) Insert(ctx context.Context, e employee.Employee) (int64, error) {
	var id int64
	err := s.withConn(ctx, "insert", func(conn *sql.Conn) error {
		q := fmt.Sprintf(
			"INSERT INTO employees (full_name, birth_date, gender) VALUES (%s, %s, %s) RETURNING id",
			s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
		)
		return conn.QueryRowContext(ctx, q, e.FullName, s.dialect.birthDateArg(e), e.Gender).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	logging.Debugf("[directory] inserted id=%d name=%q", id, e.FullName)
	return id, nil
}

// ListAll returns every employee ordered by full name.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	return s.ListByFilters(ctx, Filters{})
}

// ListByFilters returns employees matching all non-empty filters, ordered by
// full name.
func (s *Store) ListByFilters(ctx context.Context, f Filters) ([]Record, error) {
	query, args := s.dialect.selectQuery(f)
	var out []Record
	err := s.withConn(ctx, "list", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = scanRecords(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			r         Record
			birthDate string
		)
		if err := rows.Scan(&r.ID, &r.FullName, &birthDate, &r.Gender); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		bd, err := employee.ParseBirthDate(strings.TrimSpace(birthDate))
		if err != nil {
			return nil, fmt.Errorf("employee %d: %w", r.ID, err)
		}
		r.BirthDate = bd
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
