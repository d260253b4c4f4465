package library

import (
	"strings"
	"time"
)

// DateLayout is the on-disk format of every lending date (ISO-8601 yyyy-MM-dd).
const DateLayout = "2006-01-02"

// FormatDate renders t as a lending date.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ParseDate parses a lending date.
func ParseDate(s string) (time.Time, error) { return time.Parse(DateLayout, s) }

// Book is a catalogue entry. Available caches "no open lending record"; the
// lending_records table is authoritative.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
	Available bool   `json:"available"`
	Deleted   bool   `json:"deleted"`
}

// NewBook returns an available, validated book that has not been stored yet.
func NewBook(title string, pageCount int) (*Book, error) {
	b := &Book{Title: strings.TrimSpace(title), PageCount: pageCount, Available: true}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if b.PageCount <= 0 {
		return &ValidationError{Field: "page_count", Message: "must be positive"}
	}
	return nil
}

// User is a registered borrower. An empty StudentNumber is stored as NULL.
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	StudentNumber string `json:"student_number,omitempty"`
	Banned        bool   `json:"banned"`
}

func NewUser(name, studentNumber string, banned bool) (*User, error) {
	u := &User{
		Name:          strings.TrimSpace(name),
		StudentNumber: strings.TrimSpace(studentNumber),
		Banned:        banned,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// normalize trims name and student number; a blank number becomes "no number".
func (u *User) normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.StudentNumber = strings.TrimSpace(u.StudentNumber)
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	return nil
}

// LendingRecord is one loan of a book to a user. It is open until Returned.
type LendingRecord struct {
	ID         int64  `json:"id"`
	BookID     int64  `json:"book_id"`
	UserID     int64  `json:"user_id"`
	IssueDate  string `json:"issue_date"`
	DueDate    string `json:"due_date"`
	ReturnDate string `json:"return_date,omitempty"`
	Returned   bool   `json:"returned"`
}

// Validate checks that issue and due dates are present and well formed and
// that a return date is set exactly when the record is closed.
func (r *LendingRecord) Validate() error {
	if r.IssueDate == "" {
		return &ValidationError{Field: "issue_date", Message: "cannot be empty"}
	}
	if _, err := ParseDate(r.IssueDate); err != nil {
		return &ValidationError{Field: "issue_date", Message: "must be yyyy-mm-dd"}
	}
	if err := validateDueDate(r.DueDate); err != nil {
		return err
	}
	if r.Returned != (r.ReturnDate != "") {
		return &ValidationError{Field: "return_date", Message: "must be set exactly when returned"}
	}
	if r.ReturnDate != "" {
		if _, err := ParseDate(r.ReturnDate); err != nil {
			return &ValidationError{Field: "return_date", Message: "must be yyyy-mm-dd"}
		}
	}
	return nil
}

// IsOverdue reports whether the record is still open after its due date.
func (r *LendingRecord) IsOverdue(asOf time.Time) bool {
	return !r.Returned && r.DueDate < FormatDate(asOf)
}

func validateDueDate(due string) error {
	if due == "" {
		return &ValidationError{Field: "due_date", Message: "cannot be empty"}
	}
	if _, err := ParseDate(due); err != nil {
		return &ValidationError{Field: "due_date", Message: "must be yyyy-mm-dd"}
	}
	return nil
}

// BookStatus is a single consistent read of a book and its open loan.
type BookStatus struct {
	Book     *Book          `json:"book"`
	Borrowed bool           `json:"borrowed"`
	Lending  *LendingRecord `json:"lending,omitempty"`
	Borrower *User          `json:"borrower,omitempty"`
}
