package service

import (
	"context"
	"fmt"
	"time"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/redisclient"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService owns the order state machine: creation with stock
// reservation, the receive and cancel transitions, and the read-side
// order query composition.
type OrderService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st *store.Store, redis *redisclient.Client, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// newOrderID derives an order identifier from buyer, store, and a
// fresh unique suffix; identifiers are never reused
func newOrderID(buyerID, storeID string) string {
	return fmt.Sprintf("%s_%s_%s", buyerID, storeID, uuid.New().String())
}

// NewOrderRequest is a purchase request for one store
type NewOrderRequest struct {
	UserID  string            `json:"user_id" binding:"required"`
	StoreID string            `json:"store_id" binding:"required"`
	Items   []OrderItemRequest `json:"books" binding:"required,min=1"`
}

// OrderItemRequest is one (book, count) pair of a purchase request
type OrderItemRequest struct {
	BookID string `json:"id" binding:"required"`
	Count  int    `json:"count" binding:"required,min=1"`
}

// NewOrder validates buyer and store, reserves stock for every line
// all-or-nothing, snapshots unit prices at this instant, and persists
// the pending order. Any reservation failure leaves no decrement
// behind and creates no order.
func (s *OrderService) NewOrder(ctx context.Context, req *NewOrderRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.NewOrder")
	defer span.End()

	exists, err := s.store.UserExists(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	if !exists {
		util.OrdersFailedTotal.WithLabelValues("unknown_user").Inc()
		return "", models.ErrNonExistUser(req.UserID)
	}

	exists, err = s.store.StoreExists(ctx, req.StoreID)
	if err != nil {
		return "", err
	}
	if !exists {
		util.OrdersFailedTotal.WithLabelValues("unknown_store").Inc()
		return "", models.ErrNonExistStore(req.StoreID)
	}

	lines := make([]store.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, store.LineRequest{BookID: item.BookID, Count: item.Count})
	}

	start := time.Now()
	prices, err := s.store.ReserveLines(ctx, req.StoreID, lines)
	util.StockReserveLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		switch models.CodeOf(err) {
		case models.CodeNonExistBook:
			util.StockReservationsFailed.WithLabelValues("unknown_book").Inc()
		case models.CodeStockLevelLow:
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
		default:
			util.StockReservationsFailed.WithLabelValues("error").Inc()
		}
		return "", err
	}

	orderID := newOrderID(req.UserID, req.StoreID)
	order := &models.Order{
		OrderID: orderID,
		BuyerID: req.UserID,
		StoreID: req.StoreID,
		Status:  models.StatusPending,
	}
	orderLines := make([]models.OrderLine, 0, len(req.Items))
	eventLines := make([]models.OrderLineData, 0, len(req.Items))
	for _, item := range req.Items {
		orderLines = append(orderLines, models.OrderLine{
			OrderID:   orderID,
			BookID:    item.BookID,
			Count:     item.Count,
			UnitPrice: prices[item.BookID],
		})
		eventLines = append(eventLines, models.OrderLineData{
			BookID:    item.BookID,
			Count:     item.Count,
			UnitPrice: prices[item.BookID],
		})
	}

	if err := s.store.CreateOrder(ctx, order, orderLines); err != nil {
		// the reservation committed; hand the stock back
		s.restituteLines(ctx, req.StoreID, lines)
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return "", err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", orderID),
		zap.String("buyer_id", req.UserID),
		zap.String("store_id", req.StoreID))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		BuyerID: req.UserID,
		StoreID: req.StoreID,
		Items:   eventLines,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return orderID, nil
}

// restituteLines puts reserved stock back after a post-reservation
// failure so the units are not stranded
func (s *OrderService) restituteLines(ctx context.Context, storeID string, lines []store.LineRequest) {
	for _, line := range lines {
		if err := s.store.AddStockLevel(ctx, storeID, line.BookID, line.Count); err != nil {
			s.logger.Error("Failed to restitute stock",
				zap.String("store_id", storeID),
				zap.String("book_id", line.BookID),
				zap.Int("count", line.Count),
				zap.Error(err))
		}
	}
}

// Receive transitions shipped -> completed; only the buyer of record
// may confirm receipt
func (s *OrderService) Receive(ctx context.Context, userID, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Receive")
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.BuyerID != userID {
		return models.ErrAuthorizationFail()
	}

	if err := s.store.ReceiveOrder(ctx, orderID); err != nil {
		return err
	}

	util.OrdersCompletedTotal.Inc()
	s.logger.Info("Order completed", zap.String("order_id", orderID))

	event := &models.OrderCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCompleted,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		BuyerID: userID,
	}
	if err := s.eventPublisher.PublishOrderCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCompleted event", zap.Error(err))
	}
	return nil
}

// Cancel cancels a pending or paid order on behalf of its buyer,
// refunding the settled amount and restoring stock
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.BuyerID != userID {
		return models.ErrAuthorizationFail()
	}

	result, err := s.store.CancelOrder(ctx, orderID, "buyer", true)
	if err != nil {
		return err
	}

	util.OrdersCancelledTotal.WithLabelValues("buyer").Inc()
	if result.Refunded > 0 {
		util.SettlementTotal.WithLabelValues("refund").Inc()
	}
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.Int64("refunded", result.Refunded))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:  orderID,
		Reason:   "buyer",
		Refunded: result.Refunded,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
	return nil
}

// QueryOrders lists a buyer's orders newest first, optionally filtered
// by status, each joined with catalog display fields and its computed
// total. Missing catalog entries render blank, never fail the query.
func (s *OrderService) QueryOrders(ctx context.Context, userID string, status models.Status) ([]models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.QueryOrders")
	defer span.End()

	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrNonExistUser(userID)
	}

	orders, err := s.store.ListOrdersByBuyer(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, order := range orders {
		view, err := s.composeOrderView(ctx, &order)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// QueryStoreOrders lists a store's orders for its owner
func (s *OrderService) QueryStoreOrders(ctx context.Context, userID, storeID string, status models.Status) ([]models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.QueryStoreOrders")
	defer span.End()

	owner, err := s.store.StoreOwner(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, models.ErrAuthorizationFail()
	}

	orders, err := s.store.ListOrdersByStore(ctx, storeID, status)
	if err != nil {
		return nil, err
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, order := range orders {
		view, err := s.composeOrderView(ctx, &order)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *OrderService) composeOrderView(ctx context.Context, order *models.Order) (*models.OrderView, error) {
	lines, err := s.store.GetOrderLines(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}

	view := &models.OrderView{
		OrderID:   order.OrderID,
		StoreID:   order.StoreID,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		Items:     make([]models.OrderLineView, 0, len(lines)),
	}
	for _, line := range lines {
		item := models.OrderLineView{
			BookID:    line.BookID,
			Count:     line.Count,
			UnitPrice: line.UnitPrice,
		}
		if book := s.displayInfo(ctx, line.BookID); book != nil {
			item.Title = book.Title
			item.Author = book.Author
		}
		view.Items = append(view.Items, item)
		view.TotalAmount += int64(line.Count) * line.UnitPrice
	}
	return view, nil
}

// displayInfo fetches catalog metadata for enrichment, cache first.
// Returns nil when the catalog has no entry; callers render blanks.
func (s *OrderService) displayInfo(ctx context.Context, bookID string) *models.Book {
	if book, err := s.redis.GetCachedBook(ctx, bookID); err == nil && book != nil {
		return book
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil
	}
	if err := s.redis.CacheBook(ctx, book, time.Hour); err != nil {
		s.logger.Debug("Failed to cache book", zap.String("book_id", bookID), zap.Error(err))
	}
	return book
}
