package service

import (
	"context"
	"time"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SellerService handles store management and the ship transition
type SellerService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewSellerService creates a new seller service
func NewSellerService(st *store.Store, eventPublisher *broker.EventPublisher) *SellerService {
	return &SellerService{
		store:          st,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateStore registers a new store owned by userID
func (s *SellerService) CreateStore(ctx context.Context, userID, storeID string) error {
	ctx, span := util.StartSpan(ctx, "SellerService.CreateStore")
	defer span.End()

	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrNonExistUser(userID)
	}

	if err := s.store.CreateStore(ctx, storeID, userID); err != nil {
		return err
	}

	s.logger.Info("Store created",
		zap.String("store_id", storeID),
		zap.String("owner_id", userID))
	return nil
}

// AddBookRequest carries catalog metadata and initial shelf state
type AddBookRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	StoreID    string `json:"store_id" binding:"required"`
	BookID     string `json:"book_id" binding:"required"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Publisher  string `json:"publisher"`
	Intro      string `json:"intro"`
	Tags       string `json:"tags"`
	Price      int64  `json:"price"`
	StockLevel int    `json:"stock_level" binding:"min=0"`
}

// AddBook puts a new book on a store's shelf with initial stock and a
// first-class price, and records catalog metadata for search
func (s *SellerService) AddBook(ctx context.Context, req *AddBookRequest) error {
	ctx, span := util.StartSpan(ctx, "SellerService.AddBook")
	defer span.End()

	if err := s.checkStoreAccess(ctx, req.UserID, req.StoreID); err != nil {
		return err
	}

	book := &models.Book{
		BookID:    req.BookID,
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
		Intro:     req.Intro,
		Tags:      req.Tags,
	}
	if err := s.store.UpsertBook(ctx, book); err != nil {
		return err
	}

	line := &models.InventoryLine{
		StoreID:    req.StoreID,
		BookID:     req.BookID,
		StockLevel: req.StockLevel,
		Price:      req.Price,
	}
	if err := s.store.CreateInventoryLine(ctx, line); err != nil {
		return err
	}

	event := &models.BookUpsertedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookUpserted,
			Timestamp: time.Now(),
		},
		StoreID: req.StoreID,
		BookID:  req.BookID,
		Title:   req.Title,
		Author:  req.Author,
		Price:   req.Price,
	}
	if err := s.eventPublisher.PublishBookUpserted(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookUpserted event", zap.Error(err))
	}

	return nil
}

// AddStockLevel increments the stock of an existing inventory line
func (s *SellerService) AddStockLevel(ctx context.Context, userID, storeID, bookID string, add int) error {
	ctx, span := util.StartSpan(ctx, "SellerService.AddStockLevel")
	defer span.End()

	if add <= 0 {
		return models.ErrInvalidParameter("add_stock_level")
	}
	if err := s.checkStoreAccess(ctx, userID, storeID); err != nil {
		return err
	}

	return s.store.AddStockLevel(ctx, storeID, bookID, add)
}

// Ship transitions a paid order to shipped; only the store owner may
// ship, and only an order belonging to their store
func (s *SellerService) Ship(ctx context.Context, userID, storeID, orderID string) error {
	ctx, span := util.StartSpan(ctx, "SellerService.Ship")
	defer span.End()

	owner, err := s.store.StoreOwner(ctx, storeID)
	if err != nil {
		return err
	}
	if owner != userID {
		return models.ErrAuthorizationFail()
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.StoreID != storeID {
		return models.ErrInvalidOrderOp(orderID)
	}

	if err := s.store.ShipOrder(ctx, orderID); err != nil {
		return err
	}

	util.OrdersShippedTotal.Inc()
	s.logger.Info("Order shipped",
		zap.String("order_id", orderID),
		zap.String("store_id", storeID))

	event := &models.OrderShippedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderShipped,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		StoreID: storeID,
	}
	if err := s.eventPublisher.PublishOrderShipped(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderShipped event", zap.Error(err))
	}
	return nil
}

func (s *SellerService) checkStoreAccess(ctx context.Context, userID, storeID string) error {
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrNonExistUser(userID)
	}

	owner, err := s.store.StoreOwner(ctx, storeID)
	if err != nil {
		return err
	}
	if owner != userID {
		return models.ErrAuthorizationFail()
	}
	return nil
}
