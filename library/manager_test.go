package library

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *LibraryManager {
	dir := t.TempDir()
	mgr, err := NewLibraryManager(filepath.Join(dir, "lib.db"), 0, WithClock(fixedClock))
	require.NoError(t, err, "mgr")
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestDeleteBook_RejectedWhileBorrowed(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	book, _ := mgr.AddBook(ctx, "X", 100)
	user, _ := mgr.AddUser(ctx, &User{Name: "Alice"})
	require.NoError(t, mgr.BorrowBook(ctx, book, user, "2025-02-01"))

	purged, err := mgr.DeleteBook(ctx, book)
	assert.ErrorIs(t, err, ErrBookBorrowed)
	assert.False(t, purged)

	b, _ := mgr.GetBook(ctx, book)
	assert.False(t, b.Deleted)
}

func TestDeleteBook_PurgesUnlentAndSoftDeletesLent(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	fresh, _ := mgr.AddBook(ctx, "Fresh", 10)
	lent, _ := mgr.AddBook(ctx, "Lent", 10)
	user, _ := mgr.AddUser(ctx, &User{Name: "Alice"})
	require.NoError(t, mgr.BorrowBook(ctx, lent, user, ""))
	_, err := mgr.ReturnBook(ctx, lent)
	require.NoError(t, err)

	purged, err := mgr.DeleteBook(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, purged)

	purged, err = mgr.DeleteBook(ctx, lent)
	require.NoError(t, err)
	assert.False(t, purged)
	b, _ := mgr.GetBook(ctx, lent)
	assert.True(t, b.Deleted)

	history, _ := mgr.GetUserLendingHistory(ctx, user)
	assert.Len(t, history, 1, "history survives soft delete")

	_, err = mgr.DeleteBook(ctx, lent)
	assert.ErrorIs(t, err, ErrBookNotFound)
	_, err = mgr.DeleteBook(ctx, 404)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBorrowBook_DefaultDueDate(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	assert.Equal(t, "2025-01-24", mgr.DefaultDueDate())

	book, _ := mgr.AddBook(ctx, "Dune", 412)
	user, _ := mgr.AddUser(ctx, &User{Name: "Alice"})
	require.NoError(t, mgr.BorrowBook(ctx, book, user, ""))

	rec, err := mgr.GetActiveLendingForBook(ctx, book)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-24", rec.DueDate)
}

func TestNewLibraryManager_CustomLoanPeriod(t *testing.T) {
	mgr, err := NewLibraryManager(filepath.Join(t.TempDir(), "lib.db"), 7*24*time.Hour, WithClock(fixedClock))
	require.NoError(t, err)
	defer mgr.Close()

	assert.Equal(t, "2025-01-17", mgr.DefaultDueDate())
}

func TestEligibleBorrowers(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	_, _ = mgr.AddUser(ctx, &User{Name: "Alice"})
	_, _ = mgr.AddUser(ctx, &User{Name: "Mallory", Banned: true})
	_, _ = mgr.AddUser(ctx, &User{Name: "Bob"})

	users, err := mgr.EligibleBorrowers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestOverdue(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	book, _ := mgr.AddBook(ctx, "Dune", 412)
	user, _ := mgr.AddUser(ctx, &User{Name: "Alice"})
	require.NoError(t, mgr.BorrowBook(ctx, book, user, "2025-01-05"))

	overdue, err := mgr.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, book, overdue[0].BookID)
}

func TestPrettyRows(t *testing.T) {
	row := PrettyBook(&Book{ID: 3, Title: strings.Repeat("x", 40), PageCount: 12, Available: true}, "Alice")
	assert.Contains(t, row, "...")
	assert.Contains(t, row, "Alice")

	assert.Contains(t, PrettyUser(&User{ID: 1, Name: "Alice"}), " - ")
	assert.Contains(t, PrettyLending(&LendingRecord{ID: 1, IssueDate: "2025-01-10", DueDate: "2025-01-24"}), "2025-01-24")
}

func TestTruncate_MultibyteTitles(t *testing.T) {
	title := strings.Repeat("ğüşıöç", 10)

	got := truncate(title, 30)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 30, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "Çalıkuşu", truncate("Çalıkuşu", 30))
	assert.True(t, utf8.ValidString(PrettyBook(&Book{ID: 1, Title: title, PageCount: 1}, "")))
}

func TestLend_ReturnsOpenedRecord(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	book, _ := mgr.AddBook(ctx, "Dune", 412)
	user, _ := mgr.AddUser(ctx, &User{Name: "Alice"})

	rec, err := mgr.Lend(ctx, book, user, "")
	require.NoError(t, err)
	assert.Equal(t, book, rec.BookID)
	assert.Equal(t, user, rec.UserID)
	assert.Equal(t, "2025-01-10", rec.IssueDate)
	assert.Equal(t, "2025-01-24", rec.DueDate)
	assert.False(t, rec.Returned)

	stored, err := mgr.GetLendingRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)

	_, err = mgr.Lend(ctx, book, user, "")
	assert.ErrorIs(t, err, ErrBookBorrowed)
}
