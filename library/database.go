package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"library-lending/internal/logging"
	"library-lending/library/migrations"
)

// Database owns the books, users and lending_records tables and is the only
// code that knows their schema.
type Database struct {
	db  *sql.DB
	log logging.Logger
	now func() time.Time

	addBookStmt *sql.Stmt
	addUserStmt *sql.Stmt
}

// Option customises a Database at construction time.
type Option func(*Database)

// WithLogger routes storage failures and migration progress to l.
func WithLogger(l logging.Logger) Option {
	return func(d *Database) { d.log = l }
}

// WithClock overrides the clock used for issue and return dates.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	d := &Database{log: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// _txlock=immediate takes the write lock at BEGIN, so the check-then-act
	// in borrow/return never interleaves with another writer.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(context.Background(), db, d.log); err != nil {
		db.Close()
		return nil, err
	}

	d.db = db
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addUserStmt != nil {
		d.addUserStmt.Close()
	}
	return d.db.Close()
}

// Ping verifies the connection is usable.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) today() string { return FormatDate(d.now()) }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

func applyMigrations(ctx context.Context, db *sql.DB, log logging.Logger) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	for _, r := range results {
		log.Info(ctx, "applied migration", "version", r.Source.Version, "file", filepath.Base(r.Source.Path), "took", r.Duration)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Prepare(`INSERT INTO books(title,page_count) VALUES(?,?)`); err != nil {
		return err
	}
	if d.addUserStmt, err = d.db.Prepare(`INSERT INTO users(name,student_number,is_banned) VALUES(?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// isDomainError reports errors that describe a refused operation rather than
// a storage failure.
func isDomainError(err error) bool {
	return IsValidation(err) ||
		errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBookBorrowed) ||
		errors.Is(err, ErrBookNotBorrowed) ||
		errors.Is(err, ErrUserBanned) ||
		errors.Is(err, ErrDuplicateStudentNumber)
}

// storageError logs a failed storage call and wraps it with the operation name.
func (d *Database) storageError(ctx context.Context, op string, err error, args ...any) error {
	d.log.Error(ctx, op+" failed", append(args, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

const (
	bookColumns    = `id, title, page_count, is_available, is_deleted`
	userColumns    = `id, name, student_number, is_banned`
	lendingColumns = `id, book_id, user_id, issue_date, due_date, return_date, is_returned`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (*Book, error) {
	var b Book
	if err := s.Scan(&b.ID, &b.Title, &b.PageCount, &b.Available, &b.Deleted); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanUser(s rowScanner) (*User, error) {
	var (
		u      User
		number sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Name, &number, &u.Banned); err != nil {
		return nil, err
	}
	u.StudentNumber = number.String
	return &u, nil
}

func scanLending(s rowScanner) (*LendingRecord, error) {
	var (
		r        LendingRecord
		returned sql.NullString
	)
	if err := s.Scan(&r.ID, &r.BookID, &r.UserID, &r.IssueDate, &r.DueDate, &returned, &r.Returned); err != nil {
		return nil, err
	}
	r.ReturnDate = returned.String
	return &r, nil
}

// nullable stores "" as SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanOne maps sql.ErrNoRows to a nil result.
func scanOne[T any](row *sql.Row, scan func(rowScanner) (*T, error)) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func scanAll[T any](rows *sql.Rows, scan func(rowScanner) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
