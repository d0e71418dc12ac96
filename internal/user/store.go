package user

import "context"

// Store is the persistence collaborator for accounts.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, username string) error

	SetLoggedIn(ctx context.Context, username string, loggedIn bool) error
	SetRole(ctx context.Context, username string, roleID int) error

	SetTwoFactorSecret(ctx context.Context, username, encryptedSeed string) error
	SetAuthenticated(ctx context.Context, username string, authenticated bool) error
	ResetTwoFactor(ctx context.Context, username string) error
}
