package shop

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dkosarev/acportal/internal/dbx"
	"github.com/dkosarev/acportal/internal/logging"
	"github.com/dkosarev/acportal/internal/server/accounts"
	"github.com/dkosarev/acportal/internal/shared"
	"github.com/dkosarev/acportal/internal/soap"
)

// Executor runs one remote command against the game server. Implemented by
// *soap.Client; faked in tests.
type Executor interface {
	Execute(ctx context.Context, command string) soap.Result
}

// AccountStore is the slice of the accounts repository the purchase engine
// needs: the locked balance read and the debit, both on a transactional
// handle.
type AccountStore interface {
	GetPointsForUpdate(ctx context.Context, username string) (int64, error)
	DeductPoints(ctx context.Context, username string, amount int64) error
}

// Service coordinates the purchase saga: a local transactional balance
// mutation gated by an external delivery command whose result is trusted but
// not undoable. The repositories are created per transaction handle so the
// whole flow shares one row lock.
type Service struct {
	db        *sql.DB
	executor  Executor
	items     func(dbx.DBTX) ItemRepository
	purchases func(dbx.DBTX) PurchaseRepository
	accounts  func(dbx.DBTX) AccountStore
	logger    logging.Logger
}

func NewService(db *sql.DB, executor Executor, logger logging.Logger) *Service {
	return &Service{
		db:       db,
		executor: executor,
		items: func(q dbx.DBTX) ItemRepository {
			return NewPostgresItemRepository(q)
		},
		purchases: func(q dbx.DBTX) PurchaseRepository {
			return NewPostgresPurchaseRepository(q)
		},
		accounts: func(q dbx.DBTX) AccountStore {
			return accounts.NewPostgresRepository(q)
		},
		logger: logger.With("module", "shop"),
	}
}

// deliveryCommand builds the worldserver mail command. Values are
// interpolated verbatim; the command protocol defines no escaping rules.
func deliveryCommand(characterName, subject, text string, itemID int32, amount int64) string {
	return fmt.Sprintf(`.send items %s "%s" "%s" %d:%d`, characterName, subject, text, itemID, amount)
}

// maxAmountPerOrder caps one order. One mail carries at most 12 item
// stacks, so anything past a thousand units is garbage input anyway.
const maxAmountPerOrder = 1000

// Purchase runs one purchase attempt, stages strictly ordered: catalog
// lookup, locked balance check, fulfillment, history record, debit.
//
// The balance mutation is all-or-nothing: it commits only when fulfillment
// succeeded. The history record is written for every attempted fulfillment,
// success or failure, and reflects the true external outcome. It is written
// on the connection pool rather than the balance transaction, so it survives
// even when the debit is rolled back afterwards. A fulfillment failure
// leaves the balance untouched and returns the diagnostic wrapped in
// shared.ErrorFulfillmentFailed. A failed balance check writes nothing.
//
// The row lock taken by the balance check is held across the fulfillment
// call, so two concurrent purchases by one account can never jointly
// overdraw. The external delivery, once sent, is not undone on any path.
func (s *Service) Purchase(ctx context.Context, username, characterName string, itemID, amount int64, subject, text string) (*PurchaseResult, error) {

	if username == "" || characterName == "" || amount <= 0 || amount > maxAmountPerOrder {
		return nil, shared.ErrorValidation
	}

	var result *PurchaseResult
	var fulfillmentErr error

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		item, err := s.items(tx).GetByID(ctx, itemID)
		if err != nil {
			return err
		}

		totalCost := item.Price * amount
		// int64 wrap would turn the balance check into a credit.
		if item.Price > 0 && totalCost/amount != item.Price {
			return shared.ErrorValidation
		}

		points, err := s.accounts(tx).GetPointsForUpdate(ctx, username)
		if err != nil {
			return err
		}

		if points < totalCost {
			s.logger.Info(ctx, "purchase rejected", "username", strings.ToUpper(username),
				"item_id", item.ID, "total_cost", totalCost, "points", points)
			return shared.ErrorInsufficientFunds
		}

		command := deliveryCommand(characterName, subject, text, item.ItemID, amount)
		res := s.executor.Execute(ctx, command)

		purchase := &Purchase{
			Username:      strings.ToUpper(username),
			CharacterName: characterName,
			ItemID:        item.ID,
			ItemName:      item.Name,
			Price:         totalCost,
			Amount:        amount,
			Command:       command,
			Delivered:     res.Success,
		}
		if !res.Success {
			purchase.ErrorMessage = res.Output
		}

		// The record is written on the pool, not the transaction handle:
		// it describes a fulfillment attempt that really happened and must
		// survive a rollback of the balance work.
		if _, err := s.purchases(s.db).Create(ctx, purchase); err != nil {
			return fmt.Errorf("error recording purchase: %w", err)
		}

		if !res.Success {
			// The record already stands; the balance is untouched. The
			// error is handed to the caller outside the transaction.
			fulfillmentErr = fmt.Errorf("%w: %s", shared.ErrorFulfillmentFailed, res.Output)
			return nil
		}

		if err := s.accounts(tx).DeductPoints(ctx, username, totalCost); err != nil {
			return fmt.Errorf("error deducting points: %w", err)
		}

		result = &PurchaseResult{RemainingPoints: points - totalCost}
		return nil
	})

	if err != nil {
		return nil, err
	}
	if fulfillmentErr != nil {
		return nil, fulfillmentErr
	}

	s.logger.Info(ctx, "purchase completed", "username", strings.ToUpper(username),
		"character", characterName, "item_id", itemID, "amount", amount,
		"remaining_points", result.RemainingPoints)
	return result, nil
}

// History returns one page of the account's purchase records, newest first.
// Read-only: calling it repeatedly with no intervening purchase returns
// identical results.
func (s *Service) History(ctx context.Context, username string, page, pageSize int) (*History, error) {

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	repo := s.purchases(s.db)

	total, err := repo.CountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	records, err := repo.ListByUsername(ctx, username, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &History{
		Records:    records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Items lists the catalog for the storefront.
func (s *Service) Items(ctx context.Context) ([]*Item, error) {
	return s.items(s.db).List(ctx)
}

// AddItem, UpdateItem and DeleteItem manage the catalog (GM only; enforced
// at the HTTP layer).
func (s *Service) AddItem(ctx context.Context, item *Item) (*Item, error) {
	if item.Name == "" || item.ItemID <= 0 || item.Price < 0 {
		return nil, shared.ErrorValidation
	}
	return s.items(s.db).Create(ctx, item)
}

func (s *Service) UpdateItem(ctx context.Context, item *Item) error {
	if item.ID <= 0 || item.Name == "" || item.ItemID <= 0 || item.Price < 0 {
		return shared.ErrorValidation
	}
	return s.items(s.db).Update(ctx, item)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.items(s.db).Delete(ctx, id)
}
