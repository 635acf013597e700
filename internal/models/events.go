package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderPaid      = "ORDER_PAID"
	EventTypeOrderShipped   = "ORDER_SHIPPED"
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypeBookUpserted   = "BOOK_UPSERTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line data carried in order events
type OrderLineData struct {
	BookID    string `json:"book_id"`
	Count     int    `json:"count"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderCreatedEvent published when an order is created with stock reserved
type OrderCreatedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	BuyerID string          `json:"buyer_id"`
	StoreID string          `json:"store_id"`
	Items   []OrderLineData `json:"items"`
}

// OrderPaidEvent published when settlement succeeds
type OrderPaidEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	BuyerID string `json:"buyer_id"`
	Total   int64  `json:"total"`
}

// OrderShippedEvent published when the store owner ships
type OrderShippedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	StoreID string `json:"store_id"`
}

// OrderCompletedEvent published when the buyer confirms receipt
type OrderCompletedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	BuyerID string `json:"buyer_id"`
}

// OrderCancelledEvent published on buyer cancellation or timeout
type OrderCancelledEvent struct {
	BaseEvent
	OrderID  string `json:"order_id"`
	Reason   string `json:"reason"`
	Refunded int64  `json:"refunded"`
}

// BookUpsertedEvent published when a seller adds or updates a book;
// consumed by the catalog cache worker
type BookUpsertedEvent struct {
	BaseEvent
	StoreID string `json:"store_id"`
	BookID  string `json:"book_id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Price   int64  `json:"price"`
}
