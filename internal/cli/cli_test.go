package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/internal/config"
	"library-lending/library"
)

func fixedClock() time.Time {
	return time.Date(2025, time.January, 10, 9, 30, 0, 0, time.UTC)
}

type harness struct {
	t      *testing.T
	dbPath string
	stdin  string
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, dbPath: filepath.Join(t.TempDir(), "cli.db")}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	cfg := &config.Config{
		Database:     config.Database{Path: h.dbPath},
		Lending:      config.Lending{LoanPeriodDays: 14},
		Log:          config.Log{Level: "error", Format: "text"},
		OverdueSweep: config.OverdueSweep{Schedule: "0 * * * *"},
	}
	root, closeDB := NewRootCmd(cfg, library.WithClock(fixedClock))
	defer func() { require.NoError(h.t, closeDB()) }()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(h.stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "library %s", strings.Join(args, " "))
	return out
}

func TestBookCommands(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("book", "list"), "No books in library.")
	assert.Contains(t, h.mustRun("book", "add", "--title", "Dune", "--pages", "412"), "Added book ID 1")
	h.mustRun("book", "add", "--title", "Emma", "--pages", "300")

	_, err := h.run("book", "add", "--title", " ", "--pages", "10")
	assert.True(t, library.IsValidation(err))

	out := h.mustRun("book", "list")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Emma")

	assert.Contains(t, h.mustRun("book", "edit", "1", "--pages", "500"), "Updated book ID 1")
	out = h.mustRun("book", "show", "1")
	assert.Contains(t, out, "Pages:     500")
	assert.Contains(t, out, "Title:     Dune")

	_, err = h.run("book", "show", "42")
	assert.ErrorIs(t, err, library.ErrBookNotFound)
	_, err = h.run("book", "show", "x")
	assert.ErrorContains(t, err, "invalid book id")
}

func TestBookDelete_Confirmation(t *testing.T) {
	h := newHarness(t)
	h.mustRun("book", "add", "--title", "Dune", "--pages", "412")

	restore := stdinIsTerminal
	t.Cleanup(func() { stdinIsTerminal = restore })

	stdinIsTerminal = func() bool { return false }
	_, err := h.run("book", "delete", "1")
	assert.ErrorIs(t, err, errNotConfirmed)

	stdinIsTerminal = func() bool { return true }
	h.stdin = "n\n"
	assert.Contains(t, h.mustRun("book", "delete", "1"), "Aborted.")

	h.stdin = "y\n"
	assert.Contains(t, h.mustRun("book", "delete", "1"), "Removed book ID 1")
	assert.Contains(t, h.mustRun("book", "list"), "No books in library.")
}

func TestUserCommands(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("user", "add", "--name", "Alice", "--student-number", "S100"), "with ID 1")
	h.mustRun("user", "add", "--name", "Bob", "--banned")

	_, err := h.run("user", "add", "--name", "Carol", "--student-number", "S100")
	assert.ErrorIs(t, err, library.ErrDuplicateStudentNumber)

	out := h.mustRun("user", "list", "--eligible")
	assert.Contains(t, out, "Alice")
	assert.NotContains(t, out, "Bob")

	assert.Contains(t, h.mustRun("user", "show", "--student-number", "S100"), "Alice")
	_, err = h.run("user", "show")
	assert.Error(t, err)

	h.mustRun("user", "unban", "2")
	assert.Contains(t, h.mustRun("user", "list", "--eligible"), "Bob")

	h.mustRun("user", "edit", "2", "--name", "Robert", "--student-number", "S200")
	assert.Contains(t, h.mustRun("user", "show", "2"), "S200")

	_, err = h.run("user", "ban", "9")
	assert.ErrorIs(t, err, library.ErrUserNotFound)

	assert.Contains(t, h.mustRun("user", "delete", "2", "--yes"), "Deleted user ID 2")
	_, err = h.run("user", "delete", "2", "--yes")
	assert.ErrorIs(t, err, library.ErrUserNotFound)
}

func TestCirculationCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("book", "add", "--title", "Dune", "--pages", "412")
	h.mustRun("book", "add", "--title", "Emma", "--pages", "300")
	h.mustRun("user", "add", "--name", "Alice")

	assert.Contains(t, h.mustRun("borrow", "1", "1"), "due 2025-01-24")
	assert.Contains(t, h.mustRun("borrow", "2", "1", "--due", "2025-01-05"), "due 2025-01-05")

	_, err := h.run("borrow", "1", "1")
	assert.ErrorIs(t, err, library.ErrBookBorrowed)

	out := h.mustRun("book", "list", "--available")
	assert.Contains(t, out, "No books in library.")
	assert.Contains(t, h.mustRun("book", "show", "1"), "Borrower:  Alice (ID: 1)")
	assert.Contains(t, h.mustRun("user", "books", "1"), "Emma")

	_, err = h.run("book", "delete", "1", "--yes")
	assert.ErrorIs(t, err, library.ErrBookBorrowed)

	out = h.mustRun("lendings", "--overdue")
	assert.Contains(t, out, "2025-01-05")
	assert.NotContains(t, out, "2025-01-24")

	assert.Contains(t, h.mustRun("return", "1"), "returned by user 1")
	_, err = h.run("return", "1")
	assert.ErrorIs(t, err, library.ErrBookNotBorrowed)

	assert.Contains(t, h.mustRun("user", "history", "1"), "2025-01-10")
	assert.Contains(t, h.mustRun("book", "delete", "1", "--yes"), "Archived book ID 1")

	out = h.mustRun("reconcile")
	assert.Contains(t, out, "Repaired 0 availability flag(s)")
	assert.Contains(t, out, "2025-01-05")
}
