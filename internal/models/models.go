package models

import (
	"database/sql"
	"time"
)

// User represents an account with its ledger balance and login state
type User struct {
	UserID       string    `db:"user_id" json:"user_id"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Balance      int64     `db:"balance" json:"balance"`
	Token        string    `db:"token" json:"-"`
	Terminal     string    `db:"terminal" json:"-"`
	TokenIssued  time.Time `db:"token_issued_at" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Store represents a seller's store; ownership is immutable after creation
type Store struct {
	StoreID   string    `db:"store_id" json:"store_id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Book holds catalog metadata used for search and display enrichment
type Book struct {
	BookID    string `db:"book_id" json:"book_id"`
	Title     string `db:"title" json:"title"`
	Author    string `db:"author" json:"author"`
	Publisher string `db:"publisher" json:"publisher"`
	Intro     string `db:"intro" json:"intro,omitempty"`
	Tags      string `db:"tags" json:"tags,omitempty"`
}

// InventoryLine represents stock of one book in one store.
// Price is a first-class column, not part of a metadata blob.
type InventoryLine struct {
	StoreID    string    `db:"store_id" json:"store_id"`
	BookID     string    `db:"book_id" json:"book_id"`
	StockLevel int       `db:"stock_level" json:"stock_level"`
	Price      int64     `db:"price" json:"price"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a buyer's order; only the state machine writes it
type Order struct {
	OrderID      string       `db:"order_id" json:"order_id"`
	BuyerID      string       `db:"buyer_id" json:"buyer_id"`
	StoreID      string       `db:"store_id" json:"store_id"`
	Status       Status       `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	PaidAt       sql.NullTime `db:"paid_at" json:"-"`
	ShippedAt    sql.NullTime `db:"shipped_at" json:"-"`
	ReceivedAt   sql.NullTime `db:"received_at" json:"-"`
	CancelledAt  sql.NullTime `db:"cancelled_at" json:"-"`
	CancelReason string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// OrderLine captures count and unit price at order-creation time.
// Immutable after creation; later catalog price changes never touch it.
type OrderLine struct {
	OrderID   string `db:"order_id" json:"order_id"`
	BookID    string `db:"book_id" json:"book_id"`
	Count     int    `db:"count" json:"count"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}

// Status is the order lifecycle state
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusCompleted: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether the order status DAG allows from -> to
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transition is possible from s
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

// OrderLineView is an order line joined with catalog display fields
type OrderLineView struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Count     int    `json:"count"`
	UnitPrice int64  `json:"price"`
}

// OrderView is the read-side composition of an order with its lines
type OrderView struct {
	OrderID     string          `json:"order_id"`
	StoreID     string          `json:"store_id"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"create_time"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderLineView `json:"items"`
}

// BookSearchResult is one row of a keyword search, enriched with
// per-store stock and price when the search is store-scoped
type BookSearchResult struct {
	BookID     string `db:"book_id" json:"book_id"`
	Title      string `db:"title" json:"title"`
	Author     string `db:"author" json:"author"`
	Publisher  string `db:"publisher" json:"publisher"`
	Intro      string `db:"intro" json:"book_intro,omitempty"`
	Tags       string `db:"tags" json:"tags,omitempty"`
	StockLevel *int   `db:"stock_level" json:"stock_level,omitempty"`
	StorePrice *int64 `db:"store_price" json:"store_price,omitempty"`
}
