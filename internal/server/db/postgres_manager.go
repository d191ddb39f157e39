// Package db owns the process-scoped database pool and hands out
// repositories bound to it. The pool is opened once at startup and closed on
// shutdown; nothing recreates it implicitly.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dkosarev/acportal/internal/server/accounts"
	"github.com/dkosarev/acportal/internal/server/characters"
	"github.com/dkosarev/acportal/internal/server/migrations"
	"github.com/dkosarev/acportal/internal/server/shop"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db         *sql.DB
	accounts   accounts.Repository
	items      shop.ItemRepository
	purchases  shop.PurchaseRepository
	characters characters.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *PostgresRepositoryManager) Items() shop.ItemRepository {
	return m.items
}

func (m *PostgresRepositoryManager) Purchases() shop.PurchaseRepository {
	return m.purchases
}

func (m *PostgresRepositoryManager) Characters() characters.Repository {
	return m.characters
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:         db,
		accounts:   accounts.NewPostgresRepository(db),
		items:      shop.NewPostgresItemRepository(db),
		purchases:  shop.NewPostgresPurchaseRepository(db),
		characters: characters.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
