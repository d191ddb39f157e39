package characters

import (
	"context"

	"github.com/dkosarev/acportal/internal/server/accounts"
	"github.com/dkosarev/acportal/internal/shared"
)

// Service resolves an account name to its character roster. Read-only; no
// locking beyond normal read-committed isolation.
type Service struct {
	repo     Repository
	accounts accounts.Repository
}

func NewService(repo Repository, accountRepo accounts.Repository) *Service {
	return &Service{repo: repo, accounts: accountRepo}
}

func (s *Service) ListByUsername(ctx context.Context, username string) ([]*Character, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByAccountID(ctx, account.ID)
}

// Unblock rewrites a stuck character's saved position so it respawns at the
// given coordinates. The worldserver only reads the row on login, so the
// character must be offline or the rewrite would be overwritten on save.
func (s *Service) Unblock(ctx context.Context, name string, x, y, z float64, mapID int) error {
	if name == "" {
		return shared.ErrorValidation
	}

	character, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if character.Online {
		return shared.ErrorCharacterOnline
	}

	return s.repo.UpdatePosition(ctx, name, x, y, z, mapID)
}
