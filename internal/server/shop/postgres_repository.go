package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dkosarev/acportal/internal/dbx"
	"github.com/dkosarev/acportal/internal/shared"
)

type PostgresItemRepository struct {
	db dbx.DBTX
}

func NewPostgresItemRepository(db dbx.DBTX) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

func (r *PostgresItemRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	query :=
		`SELECT id, name, item_id, description, price, image, category FROM shop_item
		 WHERE id = $1
		 `

	item := &Item{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.Name, &item.ItemID, &item.Description, &item.Price, &item.Image, &item.Category)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorItemNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return item, nil
}

func (r *PostgresItemRepository) List(ctx context.Context) ([]*Item, error) {
	query :=
		`SELECT id, name, item_id, description, price, image, category FROM shop_item
		 ORDER BY id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.Name, &item.ItemID, &item.Description,
			&item.Price, &item.Image, &item.Category); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

func (r *PostgresItemRepository) Create(ctx context.Context, item *Item) (*Item, error) {
	query :=
		`INSERT INTO shop_item (name, item_id, description, price, image, category)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		item.Name, item.ItemID, item.Description, item.Price, item.Image, item.Category).
		Scan(&item.ID)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return item, nil
}

func (r *PostgresItemRepository) Update(ctx context.Context, item *Item) error {
	query :=
		`UPDATE shop_item SET name = $1, item_id = $2, description = $3, price = $4, image = $5, category = $6
		 WHERE id = $7
		 `

	res, err := r.db.ExecContext(ctx, query,
		item.Name, item.ItemID, item.Description, item.Price, item.Image, item.Category, item.ID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.ErrorItemNotFound
	}
	return nil
}

func (r *PostgresItemRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shop_item WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.ErrorItemNotFound
	}
	return nil
}

type PostgresPurchaseRepository struct {
	db dbx.DBTX
}

func NewPostgresPurchaseRepository(db dbx.DBTX) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{db: db}
}

func (r *PostgresPurchaseRepository) Create(ctx context.Context, purchase *Purchase) (*Purchase, error) {
	query :=
		`INSERT INTO shop_purchase (username, character_name, item_id, item_name, price, amount, command, delivered, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		strings.ToUpper(purchase.Username), purchase.CharacterName, purchase.ItemID, purchase.ItemName,
		purchase.Price, purchase.Amount, purchase.Command, purchase.Delivered, purchase.ErrorMessage).
		Scan(&purchase.ID, &purchase.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return purchase, nil
}

func (r *PostgresPurchaseRepository) ListByUsername(ctx context.Context, username string, limit, offset int) ([]*Purchase, error) {
	query :=
		`SELECT id, username, character_name, item_id, item_name, price, amount, command, delivered, error_message, created_at
		 FROM shop_purchase
		 WHERE username = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, strings.ToUpper(username), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var purchases []*Purchase
	for rows.Next() {
		p := &Purchase{}
		if err := rows.Scan(&p.ID, &p.Username, &p.CharacterName, &p.ItemID, &p.ItemName,
			&p.Price, &p.Amount, &p.Command, &p.Delivered, &p.ErrorMessage, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return purchases, nil
}

func (r *PostgresPurchaseRepository) CountByUsername(ctx context.Context, username string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shop_purchase WHERE username = $1`, strings.ToUpper(username)).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return total, nil
}
