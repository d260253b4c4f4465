package library

import (
	"context"
	"fmt"
)

// AddBook validates and stores a new, available book and returns its id.
func (d *Database) AddBook(ctx context.Context, title string, pageCount int) (int64, error) {
	b, err := NewBook(title, pageCount)
	if err != nil {
		return 0, err
	}
	res, err := d.addBookStmt.ExecContext(ctx, b.Title, b.PageCount)
	if err != nil {
		return 0, d.storageError(ctx, "add book", err, "title", b.Title)
	}
	return res.LastInsertId()
}

// GetBook returns the book with id, including soft-deleted ones, or nil.
func (d *Database) GetBook(ctx context.Context, id int64) (*Book, error) {
	b, err := queryBook(ctx, d.db, id)
	if err != nil {
		return nil, d.storageError(ctx, "get book", err, "book_id", id)
	}
	return b, nil
}

// GetAllBooks lists books that are not deleted, ordered by title.
func (d *Database) GetAllBooks(ctx context.Context) ([]*Book, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE is_deleted=0 ORDER BY title, id`)
	if err != nil {
		return nil, d.storageError(ctx, "list books", err)
	}
	books, err := scanAll(rows, scanBook)
	if err != nil {
		return nil, d.storageError(ctx, "list books", err)
	}
	return books, nil
}

// GetAvailableBooks lists books that can be borrowed right now.
func (d *Database) GetAvailableBooks(ctx context.Context) ([]*Book, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE is_available=1 AND is_deleted=0 ORDER BY title, id`)
	if err != nil {
		return nil, d.storageError(ctx, "list available books", err)
	}
	books, err := scanAll(rows, scanBook)
	if err != nil {
		return nil, d.storageError(ctx, "list available books", err)
	}
	return books, nil
}

// UpdateBook rewrites title and page count. Availability is owned by the
// lending operations and is left untouched. Returns the affected row count.
func (d *Database) UpdateBook(ctx context.Context, b *Book) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx, `UPDATE books SET title=?, page_count=? WHERE id=?`, b.Title, b.PageCount, b.ID)
	if err != nil {
		return 0, d.storageError(ctx, "update book", err, "book_id", b.ID)
	}
	return res.RowsAffected()
}

// DeleteBook soft-deletes a book so its lending history survives. Returns 0
// when the book does not exist or is already deleted.
func (d *Database) DeleteBook(ctx context.Context, id int64) (int64, error) {
	res, err := d.db.ExecContext(ctx, `UPDATE books SET is_deleted=1, is_available=0 WHERE id=? AND is_deleted=0`, id)
	if err != nil {
		return 0, d.storageError(ctx, "delete book", err, "book_id", id)
	}
	return res.RowsAffected()
}

// RemoveBook physically deletes a book that has never been lent. Returns 0
// when the book is missing or has any lending history.
func (d *Database) RemoveBook(ctx context.Context, id int64) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
        DELETE FROM books
        WHERE id=? AND NOT EXISTS (SELECT 1 FROM lending_records WHERE book_id=?)`, id, id)
	if err != nil {
		return 0, d.storageError(ctx, "remove book", err, "book_id", id)
	}
	return res.RowsAffected()
}

// DeleteBookIfNotBorrowed applies the delete policy in one transaction: a
// book with an open lending record is refused with ErrBookBorrowed, a book
// that was never lent is removed (purged == true), any other book is
// soft-deleted so its history survives.
func (d *Database) DeleteBookIfNotBorrowed(ctx context.Context, id int64) (purged bool, err error) {
	err = withTx(ctx, d.db, func(ctx context.Context, tx dbtx) error {
		borrowed, err := isBookBorrowed(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("check open lending: %w", err)
		}
		if borrowed {
			return ErrBookBorrowed
		}

		book, err := queryBook(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if book == nil || book.Deleted {
			return ErrBookNotFound
		}

		var lent bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM lending_records WHERE book_id=?)`, id).Scan(&lent); err != nil {
			return fmt.Errorf("check lending history: %w", err)
		}
		if !lent {
			if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id); err != nil {
				return fmt.Errorf("remove book: %w", err)
			}
			purged = true
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE books SET is_deleted=1, is_available=0 WHERE id=?`, id); err != nil {
			return fmt.Errorf("soft delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			d.log.Debug(ctx, "delete refused", "book_id", id, "reason", err)
			return false, err
		}
		return false, d.storageError(ctx, "delete book", err, "book_id", id)
	}

	d.log.Info(ctx, "book deleted", "book_id", id, "purged", purged)
	return purged, nil
}

func queryBook(ctx context.Context, q dbtx, id int64) (*Book, error) {
	return scanOne(q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id=?`, id), scanBook)
}
