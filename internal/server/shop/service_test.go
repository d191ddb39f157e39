package shop

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dkosarev/acportal/internal/dbx"
	"github.com/dkosarev/acportal/internal/logging"
	"github.com/dkosarev/acportal/internal/shared"
	"github.com/dkosarev/acportal/internal/soap"
)

// --- helpers ---

type fakeExecutor struct {
	result   soap.Result
	commands []string
}

func (f *fakeExecutor) Execute(ctx context.Context, command string) soap.Result {
	f.commands = append(f.commands, command)
	return f.result
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newShopService(t *testing.T, executor Executor) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewService(db, executor, testLogger()), mock, db
}

func itemRows(price int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "item_id", "description", "price", "image", "category"}).
		AddRow(int64(7), "Swift Reins", int32(49623), "mount", price, "", "mounts")
}

func expectItemLookup(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT id, name, item_id, description, price, image, category FROM shop_item`).
		WithArgs(int64(7)).
		WillReturnRows(rows)
}

func expectLockedBalance(mock sqlmock.Sqlmock, points int64) {
	mock.ExpectQuery(`SELECT points FROM account WHERE username = \$1 FOR UPDATE`).
		WithArgs("TESTUSER").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(points))
}

// --- tests ---

// Balance 500, price 100, quantity 3: fulfillment succeeds, 300 points are
// debited inside the same transaction and 200 remain.
func TestPurchase_Success(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true, Output: "Mail sent"}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	mock.ExpectBegin()
	expectItemLookup(mock, itemRows(100))
	expectLockedBalance(mock, 500)
	mock.ExpectQuery(`INSERT INTO shop_purchase`).
		WithArgs("TESTUSER", "Arthas", int64(7), "Swift Reins", int64(300), int64(3),
			`.send items Arthas "gift" "enjoy" 49623:3`, true, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectExec(`UPDATE account SET points = points \+ \$1 WHERE username = \$2`).
		WithArgs(int64(-300), "TESTUSER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 3, "gift", "enjoy")
	if err != nil {
		t.Fatalf("Purchase error: %v", err)
	}
	if res.RemainingPoints != 200 {
		t.Fatalf("expected 200 remaining points, got %d", res.RemainingPoints)
	}
	if len(executor.commands) != 1 {
		t.Fatalf("expected exactly one fulfillment attempt, got %d", len(executor.commands))
	}
	if executor.commands[0] != `.send items Arthas "gift" "enjoy" 49623:3` {
		t.Fatalf("unexpected command: %s", executor.commands[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Insufficient balance: nothing is written, the fulfillment client is never
// called, and the transaction rolls back.
func TestPurchase_InsufficientFunds(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	mock.ExpectBegin()
	expectItemLookup(mock, itemRows(100))
	expectLockedBalance(mock, 200)
	mock.ExpectRollback()

	_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 3, "gift", "enjoy")
	if !errors.Is(err, shared.ErrorInsufficientFunds) {
		t.Fatalf("expected ErrorInsufficientFunds, got %v", err)
	}
	if len(executor.commands) != 0 {
		t.Fatal("fulfillment must not be attempted when funds are insufficient")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Unknown item: fatal, nothing charged, nothing recorded.
func TestPurchase_ItemNotFound(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, name, item_id, description, price, image, category FROM shop_item`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 1, "s", "t")
	if !errors.Is(err, shared.ErrorItemNotFound) {
		t.Fatalf("expected ErrorItemNotFound, got %v", err)
	}
	if len(executor.commands) != 0 {
		t.Fatal("fulfillment must not be attempted for a missing item")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Fulfillment failure: the history row is still written (and committed) with
// the diagnostic, but no points are debited.
func TestPurchase_FulfillmentFailure_NoDebit(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: false, Output: "SOAP connection failed: connrefused"}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	mock.ExpectBegin()
	expectItemLookup(mock, itemRows(100))
	expectLockedBalance(mock, 500)
	mock.ExpectQuery(`INSERT INTO shop_purchase`).
		WithArgs("TESTUSER", "Arthas", int64(7), "Swift Reins", int64(100), int64(1),
			`.send items Arthas "s" "t" 49623:1`, false, "SOAP connection failed: connrefused").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectCommit()

	_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 1, "s", "t")
	if !errors.Is(err, shared.ErrorFulfillmentFailed) {
		t.Fatalf("expected ErrorFulfillmentFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no debit may happen on fulfillment failure: %v", err)
	}
}

type fakeItemRepo struct {
	ItemRepository
	item *Item
}

func (f *fakeItemRepo) GetByID(ctx context.Context, id int64) (*Item, error) {
	return f.item, nil
}

type fakePurchaseRepo struct {
	PurchaseRepository
	mu      sync.Mutex
	records []*Purchase
}

func (f *fakePurchaseRepo) Create(ctx context.Context, p *Purchase) (*Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, p)
	return p, nil
}

type fakeAccountStore struct {
	points    int64
	deductErr error
}

func (f *fakeAccountStore) GetPointsForUpdate(ctx context.Context, username string) (int64, error) {
	return f.points, nil
}

func (f *fakeAccountStore) DeductPoints(ctx context.Context, username string, amount int64) error {
	if f.deductErr != nil {
		return f.deductErr
	}
	f.points -= amount
	return nil
}

// A debit failure rolls back only the balance transaction. The history
// record, written on the pool, stands: the item was mailed and the record is
// the only trace of it.
func TestPurchase_DebitError_KeepsRecord(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true, Output: "ok"}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	purchases := &fakePurchaseRepo{}
	var purchaseHandle dbx.DBTX

	s.items = func(dbx.DBTX) ItemRepository {
		return &fakeItemRepo{item: &Item{ID: 7, Name: "Swift Reins", ItemID: 49623, Price: 100}}
	}
	s.accounts = func(dbx.DBTX) AccountStore {
		return &fakeAccountStore{points: 500, deductErr: errors.New("db down")}
	}
	s.purchases = func(q dbx.DBTX) PurchaseRepository {
		purchaseHandle = q
		return purchases
	}

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 1, "s", "t")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(purchases.records) != 1 {
		t.Fatalf("expected the record to survive the rollback, got %d records", len(purchases.records))
	}
	if !purchases.records[0].Delivered {
		t.Fatal("record must reflect the successful delivery")
	}
	if purchaseHandle != dbx.DBTX(db) {
		t.Fatal("record must be written on the pool, not the balance transaction")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// An amount past the per-order cap is rejected before any database work.
func TestPurchase_AmountOverCap(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 92233720368547759, "s", "t")
	if !errors.Is(err, shared.ErrorValidation) {
		t.Fatalf("expected ErrorValidation, got %v", err)
	}
	if len(executor.commands) != 0 {
		t.Fatal("fulfillment must not be attempted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A price*amount product that wraps int64 must not slip past the balance
// check as a negative (or tiny) total.
func TestPurchase_CostOverflow(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true}}
	s, mock, db := newShopService(t, executor)
	defer db.Close()

	mock.ExpectBegin()
	expectItemLookup(mock, itemRows(9223372036854775807))
	mock.ExpectRollback()

	_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 2, "s", "t")
	if !errors.Is(err, shared.ErrorValidation) {
		t.Fatalf("expected ErrorValidation, got %v", err)
	}
	if len(executor.commands) != 0 {
		t.Fatal("fulfillment must not be attempted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// rowLockedStore emulates the FOR UPDATE row lock: GetPointsForUpdate takes
// the lock and release lets it go when the purchase has fully finished, the
// way the real lock is held to transaction end.
type rowLockedStore struct {
	mu     sync.Mutex
	points int64
}

func (s *rowLockedStore) GetPointsForUpdate(ctx context.Context, username string) (int64, error) {
	s.mu.Lock()
	return s.points, nil
}

func (s *rowLockedStore) DeductPoints(ctx context.Context, username string, amount int64) error {
	s.points -= amount
	return nil
}

func (s *rowLockedStore) release() { s.mu.Unlock() }

// Two concurrent purchases against a balance that covers exactly one:
// exactly one wins, the balance ends at zero and never goes negative.
func TestPurchase_ConcurrentSingleWinner(t *testing.T) {
	executor := &fakeExecutor{result: soap.Result{Success: true, Output: "Mail sent"}}

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectRollback()

	s := NewService(db, executor, testLogger())

	store := &rowLockedStore{points: 300}
	purchases := &fakePurchaseRepo{}
	s.items = func(dbx.DBTX) ItemRepository {
		return &fakeItemRepo{item: &Item{ID: 7, Name: "Swift Reins", ItemID: 49623, Price: 300}}
	}
	s.accounts = func(dbx.DBTX) AccountStore { return store }
	s.purchases = func(dbx.DBTX) PurchaseRepository { return purchases }

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Purchase(context.Background(), "testuser", "Arthas", 7, 1, "s", "t")
			store.release()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, rejected int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, shared.ErrorInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || rejected != 1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d rejections", won, rejected)
	}
	if store.points != 0 {
		t.Fatalf("expected a zero final balance, got %d", store.points)
	}
	if len(purchases.records) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(purchases.records))
	}
	if len(executor.commands) != 1 {
		t.Fatalf("expected exactly one fulfillment attempt, got %d", len(executor.commands))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchase_Validation(t *testing.T) {
	s, _, db := newShopService(t, &fakeExecutor{})
	defer db.Close()

	tests := []struct {
		name          string
		username      string
		characterName string
		amount        int64
	}{
		{"empty username", "", "Arthas", 1},
		{"empty character", "testuser", "", 1},
		{"zero amount", "testuser", "Arthas", 0},
		{"negative amount", "testuser", "Arthas", -2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Purchase(context.Background(), tc.username, tc.characterName, 7, tc.amount, "s", "t")
			if !errors.Is(err, shared.ErrorValidation) {
				t.Fatalf("expected ErrorValidation, got %v", err)
			}
		})
	}
}

func TestHistory_Pagination(t *testing.T) {
	s, mock, db := newShopService(t, &fakeExecutor{})
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM shop_purchase`).
		WithArgs("TESTUSER").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`SELECT id, username, character_name, item_id, item_name, price, amount, command, delivered, error_message, created_at`).
		WithArgs("TESTUSER", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "character_name", "item_id", "item_name",
			"price", "amount", "command", "delivered", "error_message", "created_at"}).
			AddRow(int64(11), "TESTUSER", "Arthas", int64(7), "Swift Reins", int64(100), int64(1), ".send items ...", true, "", time.Now()))

	h, err := s.History(context.Background(), "testuser", 2, 10)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if h.Total != 21 || h.TotalPages != 3 || h.Page != 2 || len(h.Records) != 1 {
		t.Fatalf("unexpected history page: %+v", h)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
