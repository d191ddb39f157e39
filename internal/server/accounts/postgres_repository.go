package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dkosarev/acportal/internal/dbx"
	"github.com/dkosarev/acportal/internal/shared"
)

// PostgresRepository runs account queries against any dbx.DBTX, so the same
// repository works on the pool and inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *Account) (*Account, error) {

	query :=
		`INSERT INTO account (username, salt, verifier, email, reg_mail, points, gmlevel, joindate)
		 VALUES ($1, $2, $3, $4, $4, 0, 0, now())
		 RETURNING id, joindate
		 `

	err := r.db.QueryRowContext(ctx, query,
		strings.ToUpper(account.Username), account.Salt, account.Verifier, account.Email).
		Scan(&account.ID, &account.JoinDate)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	query :=
		`SELECT id, username, salt, verifier, email, points, gmlevel, joindate FROM account
		 WHERE username = $1
		 `

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, strings.ToUpper(username)).
		Scan(&account.ID, &account.Username, &account.Salt, &account.Verifier,
			&account.Email, &account.Points, &account.GMLevel, &account.JoinDate)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM account WHERE username = $1)`, strings.ToUpper(username))
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM account WHERE email = $1)`, email)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdateVerifier(ctx context.Context, username string, verifier []byte) error {
	query := `UPDATE account SET verifier = $1 WHERE username = $2`

	res, err := r.db.ExecContext(ctx, query, verifier, strings.ToUpper(username))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetPoints(ctx context.Context, username string) (int64, error) {
	return r.points(ctx, `SELECT points FROM account WHERE username = $1`, username)
}

func (r *PostgresRepository) GetPointsForUpdate(ctx context.Context, username string) (int64, error) {
	return r.points(ctx, `SELECT points FROM account WHERE username = $1 FOR UPDATE`, username)
}

func (r *PostgresRepository) points(ctx context.Context, query, username string) (int64, error) {
	var points int64
	err := r.db.QueryRowContext(ctx, query, strings.ToUpper(username)).Scan(&points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, shared.ErrorNotFound
		}
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return points, nil
}

func (r *PostgresRepository) DeductPoints(ctx context.Context, username string, amount int64) error {
	return r.adjustPoints(ctx, username, -amount)
}

func (r *PostgresRepository) AddPoints(ctx context.Context, username string, amount int64) error {
	return r.adjustPoints(ctx, username, amount)
}

func (r *PostgresRepository) adjustPoints(ctx context.Context, username string, delta int64) error {
	query := `UPDATE account SET points = points + $1 WHERE username = $2`

	res, err := r.db.ExecContext(ctx, query, delta, strings.ToUpper(username))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}
