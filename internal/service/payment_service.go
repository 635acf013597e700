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

// PaymentService handles settlement: buyer funds and the pay
// transition. Funds transfer is an internal ledger move, no gateway.
type PaymentService struct {
	store          *store.Store
	users          *UserService
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(st *store.Store, users *UserService, eventPublisher *broker.EventPublisher) *PaymentService {
	return &PaymentService{
		store:          st,
		users:          users,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ComputeTotal sums count x unit price over an order's lines
func ComputeTotal(lines []models.OrderLine) int64 {
	var total int64
	for _, line := range lines {
		total += int64(line.Count) * line.UnitPrice
	}
	return total
}

// AddFunds credits a user's balance after a password check
func (ps *PaymentService) AddFunds(ctx context.Context, userID, password string, amount int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.AddFunds")
	defer span.End()

	if amount <= 0 {
		return models.ErrInvalidParameter("add_value")
	}
	if err := ps.users.CheckPassword(ctx, userID, password); err != nil {
		return err
	}

	if err := ps.store.AddBalance(ctx, userID, amount); err != nil {
		return err
	}

	ps.logger.Info("Funds added",
		zap.String("user_id", userID),
		zap.Int64("amount", amount))
	return nil
}

// Pay settles a pending order: the buyer of record, with the correct
// password, pays the sum of the line snapshots. Buyer debit, seller
// credit, and the pending->paid flip commit as one unit; the buyer is
// never left debited without the seller credited.
func (ps *PaymentService) Pay(ctx context.Context, userID, password, orderID string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.Pay")
	defer span.End()

	order, err := ps.store.GetOrder(ctx, orderID)
	if err != nil {
		if models.CodeOf(err) == models.CodeOrderNotFound {
			return models.ErrInvalidOrderOp(orderID)
		}
		return err
	}
	if order.BuyerID != userID {
		return models.ErrAuthorizationFail()
	}
	if err := ps.users.CheckPassword(ctx, userID, password); err != nil {
		return err
	}
	if order.Status != models.StatusPending {
		return models.ErrIllegalTransition(orderID, order.Status)
	}

	sellerID, err := ps.store.StoreOwner(ctx, order.StoreID)
	if err != nil {
		return err
	}
	exists, err := ps.store.UserExists(ctx, sellerID)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrNonExistUser(sellerID)
	}

	lines, err := ps.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return err
	}
	total := ComputeTotal(lines)

	if err := ps.store.PayOrder(ctx, orderID, userID, sellerID, total); err != nil {
		return err
	}

	util.OrdersPaidTotal.Inc()
	util.SettlementTotal.WithLabelValues("payment").Inc()
	ps.logger.Info("Order paid",
		zap.String("order_id", orderID),
		zap.Int64("total", total))

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		BuyerID: userID,
		Total:   total,
	}
	if err := ps.eventPublisher.PublishOrderPaid(ctx, event); err != nil {
		ps.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}
	return nil
}
