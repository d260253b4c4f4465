package httpapi

import (
	"context"

	"library-lending/library"
)

// Store is the part of the library the API depends on.
type Store interface {
	Ping(ctx context.Context) error

	AddBook(ctx context.Context, title string, pageCount int) (int64, error)
	GetBook(ctx context.Context, id int64) (*library.Book, error)
	GetAllBooks(ctx context.Context) ([]*library.Book, error)
	GetAvailableBooks(ctx context.Context) ([]*library.Book, error)
	UpdateBook(ctx context.Context, b *library.Book) (int64, error)
	DeleteBook(ctx context.Context, id int64) (bool, error)
	BookStatus(ctx context.Context, id int64) (*library.BookStatus, error)

	AddUser(ctx context.Context, u *library.User) (int64, error)
	GetUser(ctx context.Context, id int64) (*library.User, error)
	GetUserByStudentNumber(ctx context.Context, number string) (*library.User, error)
	GetAllUsers(ctx context.Context) ([]*library.User, error)
	EligibleBorrowers(ctx context.Context) ([]*library.User, error)
	UpdateUser(ctx context.Context, u *library.User) (int64, error)
	DeleteUser(ctx context.Context, id int64) (int64, error)
	ToggleUserBan(ctx context.Context, id int64, banned bool) (bool, error)

	Lend(ctx context.Context, bookID, userID int64, dueDate string) (*library.LendingRecord, error)
	ReturnBook(ctx context.Context, bookID int64) (int64, error)
	GetUserLendingHistory(ctx context.Context, userID int64) ([]*library.LendingRecord, error)
	GetBorrowedBooksByUser(ctx context.Context, userID int64) ([]*library.Book, error)
	GetAllLendingRecords(ctx context.Context) ([]*library.LendingRecord, error)
	Overdue(ctx context.Context) ([]*library.LendingRecord, error)
}

var _ Store = (*library.LibraryManager)(nil)
