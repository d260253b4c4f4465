package library

import (
	"context"
	"strings"
)

// AddUser stores u and sets u.ID. A taken student number yields
// ErrDuplicateStudentNumber and leaves the table unchanged.
func (d *Database) AddUser(ctx context.Context, u *User) (int64, error) {
	u.normalize()
	if err := u.Validate(); err != nil {
		return 0, err
	}
	res, err := d.addUserStmt.ExecContext(ctx, u.Name, nullable(u.StudentNumber), u.Banned)
	if err != nil {
		if isUniqueViolation(err) {
			d.log.Warn(ctx, "student number already exists", "student_number", u.StudentNumber)
			return 0, ErrDuplicateStudentNumber
		}
		return 0, d.storageError(ctx, "add user", err, "name", u.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetUser fetches a single user, or nil.
func (d *Database) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := queryUser(ctx, d.db, id)
	if err != nil {
		return nil, d.storageError(ctx, "get user", err, "user_id", id)
	}
	return u, nil
}

// GetUserByStudentNumber fetches the user holding number, or nil.
func (d *Database) GetUserByStudentNumber(ctx context.Context, number string) (*User, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, nil
	}
	u, err := scanOne(d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE student_number=?`, number), scanUser)
	if err != nil {
		return nil, d.storageError(ctx, "get user by student number", err, "student_number", number)
	}
	return u, nil
}

// GetAllUsers returns all users ordered by name.
func (d *Database) GetAllUsers(ctx context.Context) ([]*User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, d.storageError(ctx, "list users", err)
	}
	users, err := scanAll(rows, scanUser)
	if err != nil {
		return nil, d.storageError(ctx, "list users", err)
	}
	return users, nil
}

// UpdateUser rewrites name, student number and ban flag. Returns the
// affected row count.
func (d *Database) UpdateUser(ctx context.Context, u *User) (int64, error) {
	u.normalize()
	if err := u.Validate(); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx, `UPDATE users SET name=?, student_number=?, is_banned=? WHERE id=?`,
		u.Name, nullable(u.StudentNumber), u.Banned, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			d.log.Warn(ctx, "student number already exists", "student_number", u.StudentNumber, "user_id", u.ID)
			return 0, ErrDuplicateStudentNumber
		}
		return 0, d.storageError(ctx, "update user", err, "user_id", u.ID)
	}
	return res.RowsAffected()
}

// DeleteUser removes the user; their lending records go with them.
func (d *Database) DeleteUser(ctx context.Context, id int64) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return 0, d.storageError(ctx, "delete user", err, "user_id", id)
	}
	return res.RowsAffected()
}

// ToggleUserBan sets the ban flag and reports whether the user exists.
func (d *Database) ToggleUserBan(ctx context.Context, id int64, banned bool) (bool, error) {
	res, err := d.db.ExecContext(ctx, `UPDATE users SET is_banned=? WHERE id=?`, banned, id)
	if err != nil {
		return false, d.storageError(ctx, "toggle user ban", err, "user_id", id, "banned", banned)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func queryUser(ctx context.Context, q dbtx, id int64) (*User, error) {
	return scanOne(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id), scanUser)
}
