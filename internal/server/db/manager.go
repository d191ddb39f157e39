package db

import (
	"context"
	"database/sql"

	"github.com/dkosarev/acportal/internal/server/accounts"
	"github.com/dkosarev/acportal/internal/server/characters"
	"github.com/dkosarev/acportal/internal/server/shop"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Accounts() accounts.Repository
	Items() shop.ItemRepository
	Purchases() shop.PurchaseRepository
	Characters() characters.Repository
}
