package pg

import (
	"context"
	"database/sql"
	"errors"

	"identra.org/internal/user"
)

// Users exposes the account tables as a user.Store.
type Users struct {
	store *Store
}

var _ user.Store = (*Users)(nil)

func NewUsers(store *Store) *Users { return &Users{store: store} }

const userColumns = `id, username, email, password_hash, role_id, enabled, logged_in,
	coalesce(twofa_secret, ''), authenticated, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID,
		&u.Enabled, &u.LoggedIn, &u.TwoFactorSecret, &u.Authenticated,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Users) Create(ctx context.Context, u *user.User) error {
	row := s.store.db.QueryRowContext(ctx, `
		insert into app_users (username, email, password_hash, role_id, enabled, logged_in, authenticated)
		values ($1, $2, $3, $4, $5, $6, false)
		returning id, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash, u.RoleID, u.Enabled, u.LoggedIn)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return user.ErrConflict
			case pgErrForeignKeyViolation:
				return user.ErrInvalidInput
			}
		}
		return err
	}
	return nil
}

func (s *Users) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return scanUser(s.store.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from app_users
		where username = $1
	`, username))
}

func (s *Users) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(s.store.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from app_users
		where email = $1
	`, email))
}

func (s *Users) List(ctx context.Context) ([]user.User, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		select `+userColumns+`
		from app_users
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Users) Delete(ctx context.Context, username string) error {
	res, err := s.store.db.ExecContext(ctx, `delete from app_users where username = $1`, username)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *Users) SetLoggedIn(ctx context.Context, username string, loggedIn bool) error {
	res, err := s.store.db.ExecContext(ctx, `
		update app_users set logged_in = $2, updated_at = now() where username = $1
	`, username, loggedIn)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *Users) SetRole(ctx context.Context, username string, roleID int) error {
	res, err := s.store.db.ExecContext(ctx, `
		update app_users set role_id = $2, updated_at = now() where username = $1
	`, username, roleID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return user.ErrInvalidInput
		}
		return err
	}
	return requireOneRow(res)
}

func (s *Users) SetTwoFactorSecret(ctx context.Context, username, encryptedSeed string) error {
	res, err := s.store.db.ExecContext(ctx, `
		update app_users set twofa_secret = $2, updated_at = now() where username = $1
	`, username, encryptedSeed)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *Users) SetAuthenticated(ctx context.Context, username string, authenticated bool) error {
	res, err := s.store.db.ExecContext(ctx, `
		update app_users set authenticated = $2, updated_at = now() where username = $1
	`, username, authenticated)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *Users) ResetTwoFactor(ctx context.Context, username string) error {
	res, err := s.store.db.ExecContext(ctx, `
		update app_users set twofa_secret = null, authenticated = false, updated_at = now()
		where username = $1
	`, username)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
