package characters

import "context"

type Repository interface {
	ListByAccountID(ctx context.Context, accountID int64) ([]*Character, error)
	GetByName(ctx context.Context, name string) (*Character, error)
	UpdatePosition(ctx context.Context, name string, x, y, z float64, mapID int) error
}
