package library

import (
	"context"
	"fmt"
	"time"
)

// DefaultLoanPeriod is used when a manager is built without one.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// LibraryManager is a thin façade over the Database that adds the rules the
// front ends share: delete eligibility, default due dates and borrower lists.
type LibraryManager struct {
	db         *Database
	loanPeriod time.Duration
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, loanPeriod time.Duration, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath, opts...)
	if err != nil {
		return nil, err
	}
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	return &LibraryManager{db: db, loanPeriod: loanPeriod}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) Ping(ctx context.Context) error { return lm.db.Ping(ctx) }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, title string, pageCount int) (int64, error) {
	return lm.db.AddBook(ctx, title, pageCount)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LibraryManager) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.GetAllBooks(ctx)
}

func (lm *LibraryManager) GetAvailableBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.GetAvailableBooks(ctx)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, b *Book) (int64, error) {
	return lm.db.UpdateBook(ctx, b)
}

// DeleteBook refuses while the book is out. A book that was never lent is
// removed outright (purged == true); otherwise it is soft-deleted so its
// history stays intact. Check and delete share one transaction.
func (lm *LibraryManager) DeleteBook(ctx context.Context, id int64) (purged bool, err error) {
	return lm.db.DeleteBookIfNotBorrowed(ctx, id)
}

// BookStatus returns a consistent view of a book and its borrower.
func (lm *LibraryManager) BookStatus(ctx context.Context, id int64) (*BookStatus, error) {
	return lm.db.GetBookStatus(ctx, id)
}

// ------------------ User helpers ------------------

func (lm *LibraryManager) AddUser(ctx context.Context, u *User) (int64, error) {
	return lm.db.AddUser(ctx, u)
}

func (lm *LibraryManager) GetUser(ctx context.Context, id int64) (*User, error) {
	return lm.db.GetUser(ctx, id)
}

func (lm *LibraryManager) GetUserByStudentNumber(ctx context.Context, number string) (*User, error) {
	return lm.db.GetUserByStudentNumber(ctx, number)
}

func (lm *LibraryManager) GetAllUsers(ctx context.Context) ([]*User, error) {
	return lm.db.GetAllUsers(ctx)
}

func (lm *LibraryManager) UpdateUser(ctx context.Context, u *User) (int64, error) {
	return lm.db.UpdateUser(ctx, u)
}

func (lm *LibraryManager) DeleteUser(ctx context.Context, id int64) (int64, error) {
	return lm.db.DeleteUser(ctx, id)
}

func (lm *LibraryManager) ToggleUserBan(ctx context.Context, id int64, banned bool) (bool, error) {
	return lm.db.ToggleUserBan(ctx, id, banned)
}

// EligibleBorrowers lists users who may borrow, i.e. everyone not banned.
func (lm *LibraryManager) EligibleBorrowers(ctx context.Context) ([]*User, error) {
	users, err := lm.db.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	eligible := users[:0]
	for _, u := range users {
		if !u.Banned {
			eligible = append(eligible, u)
		}
	}
	return eligible, nil
}

// ------------------ Circulation ------------------

// DefaultDueDate is today plus the loan period.
func (lm *LibraryManager) DefaultDueDate() string {
	return FormatDate(lm.db.now().Add(lm.loanPeriod))
}

// BorrowBook lends a book; an empty dueDate means DefaultDueDate.
func (lm *LibraryManager) BorrowBook(ctx context.Context, bookID, userID int64, dueDate string) error {
	if dueDate == "" {
		dueDate = lm.DefaultDueDate()
	}
	return lm.db.BorrowBook(ctx, bookID, userID, dueDate)
}

// Lend is BorrowBook returning the opened lending record.
func (lm *LibraryManager) Lend(ctx context.Context, bookID, userID int64, dueDate string) (*LendingRecord, error) {
	if dueDate == "" {
		dueDate = lm.DefaultDueDate()
	}
	return lm.db.Lend(ctx, bookID, userID, dueDate)
}

// ReturnBook returns the book and yields the user who had it.
func (lm *LibraryManager) ReturnBook(ctx context.Context, bookID int64) (int64, error) {
	return lm.db.ReturnBook(ctx, bookID)
}

func (lm *LibraryManager) IsBookBorrowed(ctx context.Context, bookID int64) (bool, error) {
	return lm.db.IsBookBorrowed(ctx, bookID)
}

func (lm *LibraryManager) GetActiveLendingForBook(ctx context.Context, bookID int64) (*LendingRecord, error) {
	return lm.db.GetActiveLendingForBook(ctx, bookID)
}

func (lm *LibraryManager) GetBookBorrower(ctx context.Context, bookID int64) (*User, error) {
	return lm.db.GetBookBorrower(ctx, bookID)
}

func (lm *LibraryManager) GetUserLendingHistory(ctx context.Context, userID int64) ([]*LendingRecord, error) {
	return lm.db.GetUserLendingHistory(ctx, userID)
}

func (lm *LibraryManager) GetBorrowedBooksByUser(ctx context.Context, userID int64) ([]*Book, error) {
	return lm.db.GetBorrowedBooksByUser(ctx, userID)
}

func (lm *LibraryManager) GetLendingRecord(ctx context.Context, id int64) (*LendingRecord, error) {
	return lm.db.GetLendingRecord(ctx, id)
}

func (lm *LibraryManager) GetAllLendingRecords(ctx context.Context) ([]*LendingRecord, error) {
	return lm.db.GetAllLendingRecords(ctx)
}

// Overdue lists open lending records past their due date as of today.
func (lm *LibraryManager) Overdue(ctx context.Context) ([]*LendingRecord, error) {
	return lm.db.GetOverdueLendings(ctx, lm.db.now())
}

// Reconcile repairs availability flags that drifted from the lending records.
func (lm *LibraryManager) Reconcile(ctx context.Context) (int64, error) {
	return lm.db.ReconcileAvailability(ctx)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book, borrowerName string) string {
	return fmt.Sprintf("%-5d %-30s %-6d %-10t %-25s", b.ID, truncate(b.Title, 30), b.PageCount, b.Available, borrowerName)
}

// PrettyUser formats a user for lists.
func PrettyUser(u *User) string {
	number := u.StudentNumber
	if number == "" {
		number = "-"
	}
	return fmt.Sprintf("%-5d %-30s %-15s %-6t", u.ID, truncate(u.Name, 30), number, u.Banned)
}

// PrettyLending formats a lending record for lists.
func PrettyLending(r *LendingRecord) string {
	returned := r.ReturnDate
	if returned == "" {
		returned = "-"
	}
	return fmt.Sprintf("%-5d %-7d %-7d %-10s %-10s %-10s", r.ID, r.BookID, r.UserID, r.IssueDate, r.DueDate, returned)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
