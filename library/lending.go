package library

import (
	"context"
	"fmt"
	"time"
)

// BorrowBook lends bookID to userID until dueDate (yyyy-mm-dd). The open
// lending record and the availability flip are written in one transaction;
// any refusal or failure leaves both tables untouched.
func (d *Database) BorrowBook(ctx context.Context, bookID, userID int64, dueDate string) error {
	_, err := d.Lend(ctx, bookID, userID, dueDate)
	return err
}

// Lend is BorrowBook returning the lending record it opened.
func (d *Database) Lend(ctx context.Context, bookID, userID int64, dueDate string) (*LendingRecord, error) {
	if err := validateDueDate(dueDate); err != nil {
		return nil, err
	}

	var rec *LendingRecord
	err := withTx(ctx, d.db, func(ctx context.Context, tx dbtx) error {
		borrowed, err := isBookBorrowed(ctx, tx, bookID)
		if err != nil {
			return fmt.Errorf("check open lending: %w", err)
		}
		if borrowed {
			return ErrBookBorrowed
		}

		user, err := queryUser(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.Banned {
			return ErrUserBanned
		}

		book, err := queryBook(ctx, tx, bookID)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if book == nil || book.Deleted {
			return ErrBookNotFound
		}

		today := d.today()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO lending_records(book_id,user_id,issue_date,due_date,is_returned) VALUES(?,?,?,?,0)`,
			bookID, userID, today, dueDate)
		if err != nil {
			return fmt.Errorf("insert lending record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec = &LendingRecord{ID: id, BookID: bookID, UserID: userID, IssueDate: today, DueDate: dueDate}

		res, err = tx.ExecContext(ctx, `UPDATE books SET is_available=0 WHERE id=? AND is_deleted=0`, bookID)
		if err != nil {
			return fmt.Errorf("mark book unavailable: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrBookNotFound
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			d.log.Debug(ctx, "borrow refused", "book_id", bookID, "user_id", userID, "reason", err)
			return nil, err
		}
		return nil, d.storageError(ctx, "borrow book", err, "book_id", bookID, "user_id", userID)
	}

	d.log.Info(ctx, "book borrowed", "book_id", bookID, "user_id", userID, "due_date", dueDate)
	return rec, nil
}

// ReturnBook closes the most recent open lending record of bookID and makes
// the book available again, in one transaction. It returns the id of the
// user who had the book.
func (d *Database) ReturnBook(ctx context.Context, bookID int64) (int64, error) {
	var userID int64
	err := withTx(ctx, d.db, func(ctx context.Context, tx dbtx) error {
		rec, err := queryActiveLending(ctx, tx, bookID)
		if err != nil {
			return fmt.Errorf("load open lending: %w", err)
		}
		if rec == nil {
			return ErrBookNotBorrowed
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE lending_records SET is_returned=1, return_date=? WHERE id=? AND is_returned=0`,
			d.today(), rec.ID)
		if err != nil {
			return fmt.Errorf("close lending record: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrBookNotBorrowed
		}

		// A soft-deleted book stays unavailable after its last return.
		res, err = tx.ExecContext(ctx, `UPDATE books SET is_available = NOT is_deleted WHERE id=?`, bookID)
		if err != nil {
			return fmt.Errorf("mark book available: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrBookNotFound
		}

		userID = rec.UserID
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			d.log.Debug(ctx, "return refused", "book_id", bookID, "reason", err)
			return 0, err
		}
		return 0, d.storageError(ctx, "return book", err, "book_id", bookID)
	}

	d.log.Info(ctx, "book returned", "book_id", bookID, "user_id", userID)
	return userID, nil
}

// IsBookBorrowed reports whether bookID has an open lending record. It reads
// lending_records directly and never trusts the availability flag.
func (d *Database) IsBookBorrowed(ctx context.Context, bookID int64) (bool, error) {
	borrowed, err := isBookBorrowed(ctx, d.db, bookID)
	if err != nil {
		return false, d.storageError(ctx, "check book borrowed", err, "book_id", bookID)
	}
	return borrowed, nil
}

// GetActiveLendingForBook returns the open lending record of bookID, or nil.
func (d *Database) GetActiveLendingForBook(ctx context.Context, bookID int64) (*LendingRecord, error) {
	rec, err := queryActiveLending(ctx, d.db, bookID)
	if err != nil {
		return nil, d.storageError(ctx, "get active lending", err, "book_id", bookID)
	}
	return rec, nil
}

// GetBookBorrower returns the user currently holding bookID, or nil.
func (d *Database) GetBookBorrower(ctx context.Context, bookID int64) (*User, error) {
	rec, err := d.GetActiveLendingForBook(ctx, bookID)
	if err != nil || rec == nil {
		return nil, err
	}
	return d.GetUser(ctx, rec.UserID)
}

// GetLendingRecord fetches a single lending record, or nil.
func (d *Database) GetLendingRecord(ctx context.Context, id int64) (*LendingRecord, error) {
	rec, err := scanOne(d.db.QueryRowContext(ctx, `SELECT `+lendingColumns+` FROM lending_records WHERE id=?`, id), scanLending)
	if err != nil {
		return nil, d.storageError(ctx, "get lending record", err, "lending_id", id)
	}
	return rec, nil
}

// GetAllLendingRecords lists every lending record, newest first.
func (d *Database) GetAllLendingRecords(ctx context.Context) ([]*LendingRecord, error) {
	return d.queryLendings(ctx, "list lending records",
		`SELECT `+lendingColumns+` FROM lending_records ORDER BY issue_date DESC, id DESC`)
}

// GetUserLendingHistory lists all lending records of userID, newest first.
func (d *Database) GetUserLendingHistory(ctx context.Context, userID int64) ([]*LendingRecord, error) {
	return d.queryLendings(ctx, "get user lending history",
		`SELECT `+lendingColumns+` FROM lending_records WHERE user_id=? ORDER BY issue_date DESC, id DESC`, userID)
}

// GetOverdueLendings lists open lending records whose due date is before asOf.
func (d *Database) GetOverdueLendings(ctx context.Context, asOf time.Time) ([]*LendingRecord, error) {
	return d.queryLendings(ctx, "list overdue lendings",
		`SELECT `+lendingColumns+` FROM lending_records WHERE is_returned=0 AND due_date < ? ORDER BY due_date, id`,
		FormatDate(asOf))
}

// GetBorrowedBooksByUser lists the books userID currently holds.
func (d *Database) GetBorrowedBooksByUser(ctx context.Context, userID int64) ([]*Book, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT b.id, b.title, b.page_count, b.is_available, b.is_deleted
        FROM books b
        JOIN lending_records l ON l.book_id = b.id
        WHERE l.user_id = ? AND l.is_returned = 0
        ORDER BY b.title, b.id`, userID)
	if err != nil {
		return nil, d.storageError(ctx, "get borrowed books", err, "user_id", userID)
	}
	books, err := scanAll(rows, scanBook)
	if err != nil {
		return nil, d.storageError(ctx, "get borrowed books", err, "user_id", userID)
	}
	return books, nil
}

// GetBookStatus reads a book, its open lending record and the borrower in
// one transaction, so the three never disagree. Returns nil for an unknown book.
func (d *Database) GetBookStatus(ctx context.Context, bookID int64) (*BookStatus, error) {
	var status *BookStatus
	err := withTx(ctx, d.db, func(ctx context.Context, tx dbtx) error {
		book, err := queryBook(ctx, tx, bookID)
		if err != nil || book == nil {
			return err
		}
		status = &BookStatus{Book: book}

		rec, err := queryActiveLending(ctx, tx, bookID)
		if err != nil || rec == nil {
			return err
		}
		status.Borrowed = true
		status.Lending = rec

		status.Borrower, err = queryUser(ctx, tx, rec.UserID)
		return err
	})
	if err != nil {
		return nil, d.storageError(ctx, "get book status", err, "book_id", bookID)
	}
	return status, nil
}

// ReconcileAvailability rewrites every availability flag that disagrees with
// "not deleted and no open lending record" and returns how many it fixed.
func (d *Database) ReconcileAvailability(ctx context.Context) (int64, error) {
	const expected = `CASE WHEN is_deleted = 0 AND NOT EXISTS (
            SELECT 1 FROM lending_records l WHERE l.book_id = books.id AND l.is_returned = 0
        ) THEN 1 ELSE 0 END`

	res, err := d.db.ExecContext(ctx, `UPDATE books SET is_available = `+expected+` WHERE is_available <> `+expected)
	if err != nil {
		return 0, d.storageError(ctx, "reconcile availability", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.log.Warn(ctx, "repaired drifted availability flags", "books", n)
	}
	return n, nil
}

func (d *Database) queryLendings(ctx context.Context, op, query string, args ...any) ([]*LendingRecord, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.storageError(ctx, op, err)
	}
	recs, err := scanAll(rows, scanLending)
	if err != nil {
		return nil, d.storageError(ctx, op, err)
	}
	return recs, nil
}

func isBookBorrowed(ctx context.Context, q dbtx, bookID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM lending_records WHERE book_id=? AND is_returned=0)`, bookID).Scan(&exists)
	return exists, err
}

func queryActiveLending(ctx context.Context, q dbtx, bookID int64) (*LendingRecord, error) {
	return scanOne(q.QueryRowContext(ctx,
		`SELECT `+lendingColumns+` FROM lending_records WHERE book_id=? AND is_returned=0 ORDER BY issue_date DESC, id DESC LIMIT 1`,
		bookID), scanLending)
}
