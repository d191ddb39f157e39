package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkosarev/acportal/internal/logging"
	"github.com/dkosarev/acportal/internal/server/auth"
	"github.com/dkosarev/acportal/internal/server/config"
	"github.com/dkosarev/acportal/internal/shared"
	"github.com/dkosarev/acportal/internal/srp6"
)

// LoginResult is returned to the REST layer on successful authentication.
type LoginResult struct {
	Token    string
	Username string
	IsGM     bool
}

type Service struct {
	repo          Repository
	jwtSecret     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

func NewService(repo Repository, cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		repo:          repo,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		logger:        logger.With("module", "accounts"),
	}
}

// Register creates an account with a fresh salt and a verifier derived from
// it. The plaintext password never leaves this call.
func (s *Service) Register(ctx context.Context, username, password, email string) (int64, error) {

	if username == "" || password == "" || email == "" {
		return 0, shared.ErrorValidation
	}

	if taken, err := s.repo.UsernameExists(ctx, username); err != nil {
		return 0, fmt.Errorf("error checking username: %w", err)
	} else if taken {
		return 0, shared.ErrorUsernameAlreadyExists
	}

	if taken, err := s.repo.EmailExists(ctx, email); err != nil {
		return 0, fmt.Errorf("error checking email: %w", err)
	} else if taken {
		return 0, shared.ErrorEmailAlreadyExists
	}

	salt, err := srp6.GenerateSalt()
	if err != nil {
		return 0, fmt.Errorf("error generating salt: %w", err)
	}

	verifier, err := srp6.CalculateVerifier(username, password, salt)
	if err != nil {
		return 0, fmt.Errorf("error calculating verifier: %w", err)
	}

	account := &Account{
		Username: strings.ToUpper(username),
		Salt:     salt,
		Verifier: verifier,
		Email:    email,
	}

	account, err = s.repo.Create(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "username", account.Username, "id", account.ID)
	return account.ID, nil
}

// Login checks the password against the stored verifier and issues a session
// token. A missing account and a wrong password are indistinguishable to the
// caller; the difference is logged only.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {

	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			s.logger.Info(ctx, "login failed: unknown account", "username", strings.ToUpper(username))
			return nil, shared.ErrorUnauthorized
		}
		return nil, shared.ErrorInternal
	}

	if !srp6.Verify(username, password, account.Salt, account.Verifier) {
		s.logger.Info(ctx, "login failed: verifier mismatch", "username", account.Username)
		return nil, shared.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(account.Username, account.IsGM(), s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	s.logger.Info(ctx, "login ok", "username", account.Username, "is_gm", account.IsGM())
	return &LoginResult{Token: token, Username: account.Username, IsGM: account.IsGM()}, nil
}

// ChangePassword re-verifies the old password and the registration email,
// then overwrites the verifier. The existing salt is reused: regenerating it
// would break the derivation for the stored verifier format, so only the
// verifier changes.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, email, newPassword string) error {

	if newPassword == "" {
		return shared.ErrorValidation
	}

	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return shared.ErrorUnauthorized
		}
		return shared.ErrorInternal
	}

	if !srp6.Verify(username, oldPassword, account.Salt, account.Verifier) {
		s.logger.Info(ctx, "password change rejected: verifier mismatch", "username", account.Username)
		return shared.ErrorUnauthorized
	}

	if !strings.EqualFold(account.Email, email) {
		s.logger.Info(ctx, "password change rejected: email mismatch", "username", account.Username)
		return shared.ErrorEmailMismatch
	}

	verifier, err := srp6.CalculateVerifier(username, newPassword, account.Salt)
	if err != nil {
		return fmt.Errorf("error calculating verifier: %w", err)
	}

	if err := s.repo.UpdateVerifier(ctx, username, verifier); err != nil {
		return fmt.Errorf("error updating verifier: %w", err)
	}

	s.logger.Info(ctx, "password changed", "username", account.Username)
	return nil
}

// GetPoints returns the current spendable balance.
func (s *Service) GetPoints(ctx context.Context, username string) (int64, error) {
	return s.repo.GetPoints(ctx, username)
}
