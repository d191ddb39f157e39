package characters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkosarev/acportal/internal/dbx"
	"github.com/dkosarev/acportal/internal/shared"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByAccountID(ctx context.Context, accountID int64) ([]*Character, error) {
	query :=
		`SELECT guid, account, name, race, class, level, money, online FROM characters
		 WHERE account = $1
		 ORDER BY level DESC, name ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var chars []*Character
	for rows.Next() {
		c := &Character{}
		if err := rows.Scan(&c.GUID, &c.AccountID, &c.Name, &c.RaceID, &c.ClassID,
			&c.Level, &c.Money, &c.Online); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		chars = append(chars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return chars, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*Character, error) {
	query :=
		`SELECT guid, account, name, race, class, level, money, online FROM characters
		 WHERE name = $1
		 `

	c := &Character{}
	err := r.db.QueryRowContext(ctx, query, name).
		Scan(&c.GUID, &c.AccountID, &c.Name, &c.RaceID, &c.ClassID,
			&c.Level, &c.Money, &c.Online)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) UpdatePosition(ctx context.Context, name string, x, y, z float64, mapID int) error {
	query := `UPDATE characters SET position_x = $1, position_y = $2, position_z = $3, map = $4 WHERE name = $5`

	res, err := r.db.ExecContext(ctx, query, x, y, z, mapID, name)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}
