package shop

import "time"

// Item is one catalog entry. ItemID is the in-game item identifier used in
// the delivery command; ID is the catalog row key the storefront references.
type Item struct {
	ID          int64
	Name        string
	ItemID      int32
	Description string
	Price       int64
	Image       string
	Category    string
}

// Purchase is one purchase-history record. It is written exactly once, after
// the fulfillment attempt completes, and never mutated afterwards. Delivered
// and ErrorMessage reflect the true external outcome.
type Purchase struct {
	ID            int64
	Username      string
	CharacterName string
	ItemID        int64
	ItemName      string
	Price         int64
	Amount        int64
	Command       string
	Delivered     bool
	ErrorMessage  string
	CreatedAt     time.Time
}

// PurchaseResult is returned to the REST layer on a successful purchase.
type PurchaseResult struct {
	RemainingPoints int64
}

// History is one page of purchase records, newest first.
type History struct {
	Records    []*Purchase
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}
