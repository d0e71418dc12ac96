package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"identra.org/internal/authz"
	"identra.org/internal/user"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func userRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role_id",
		"enabled", "logged_in", "coalesce", "authenticated", "created_at", "updated_at",
	}).AddRow(7, "alice", "alice@example.com", "$2a$hash", 1, true, true, "sealed", true, now, now)
}

func TestUsersFindByUsername(t *testing.T) {
	store, mock := newMock(t)
	users := NewUsers(store)

	mock.ExpectQuery("select (.+) from app_users").WithArgs("alice").WillReturnRows(userRows())

	u, err := users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if u.ID != 7 || u.Username != "alice" || u.TwoFactorSecret != "sealed" {
		t.Fatalf("unexpected user: %+v", u)
	}

	mock.ExpectQuery("select (.+) from app_users").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := users.FindByUsername(context.Background(), "ghost"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUsersCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMock(t)
	users := NewUsers(store)

	mock.ExpectQuery("insert into app_users").
		WithArgs("alice", "alice@example.com", "hash", 1, true, true).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	u := user.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", RoleID: 1, Enabled: true, LoggedIn: true}
	if err := users.Create(context.Background(), &u); !errors.Is(err, user.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUsersUpdateMissingRowIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	users := NewUsers(store)

	mock.ExpectExec("update app_users set logged_in").
		WithArgs("ghost", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := users.SetLoggedIn(context.Background(), "ghost", false); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogRoleByName(t *testing.T) {
	store, mock := newMock(t)
	catalog := NewCatalog(store)

	mock.ExpectQuery("select id, name, kind from roles").WithArgs("ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "kind"}).AddRow(2, "ADMIN", "privileged"))

	role, err := catalog.RoleByName(context.Background(), "ADMIN")
	if err != nil {
		t.Fatalf("RoleByName: %v", err)
	}
	if role.ID != 2 || role.Kind != authz.RoleKindPrivileged {
		t.Fatalf("unexpected role: %+v", role)
	}

	mock.ExpectQuery("select id, name, kind from roles").WithArgs("GHOST").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := catalog.RoleByName(context.Background(), "GHOST"); !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogPermissionsForRole(t *testing.T) {
	store, mock := newMock(t)
	catalog := NewCatalog(store)

	mock.ExpectQuery("select p.id, p.name").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "READ").
			AddRow(2, "UPDATE"))

	perms, err := catalog.PermissionsForRole(context.Background(), 1)
	if err != nil {
		t.Fatalf("PermissionsForRole: %v", err)
	}
	if len(perms) != 2 || perms[0].Name != "READ" || perms[1].Name != "UPDATE" {
		t.Fatalf("unexpected permissions: %+v", perms)
	}
}

func TestCatalogGrantMapsConstraintViolations(t *testing.T) {
	store, mock := newMock(t)
	catalog := NewCatalog(store)

	mock.ExpectQuery("insert into role_permissions").
		WithArgs(1, 2, "dup").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	if _, err := catalog.Grant(context.Background(), 1, 2, "dup"); !errors.Is(err, authz.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	mock.ExpectQuery("insert into role_permissions").
		WithArgs(99, 2, "").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	if _, err := catalog.Grant(context.Background(), 99, 2, ""); !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
