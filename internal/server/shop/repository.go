package shop

import (
	"context"
)

type ItemRepository interface {
	GetByID(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	Create(ctx context.Context, item *Item) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id int64) error
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *Purchase) (*Purchase, error)
	ListByUsername(ctx context.Context, username string, limit, offset int) ([]*Purchase, error)
	CountByUsername(ctx context.Context, username string) (int64, error)
}
