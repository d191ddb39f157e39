package accounts

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateVerifier(ctx context.Context, username string, verifier []byte) error
	GetPoints(ctx context.Context, username string) (int64, error)

	// GetPointsForUpdate reads the points balance under a row lock. It only
	// makes sense on a transactional handle; the lock is held until the
	// surrounding transaction commits or rolls back.
	GetPointsForUpdate(ctx context.Context, username string) (int64, error)
	DeductPoints(ctx context.Context, username string, amount int64) error
	AddPoints(ctx context.Context, username string, amount int64) error
}
