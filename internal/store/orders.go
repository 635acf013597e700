package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookstore-service/internal/models"
)

// CreateOrder persists an order and its lines atomically
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ErrStorage(err)
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &order.CreatedAt, `
		INSERT INTO orders (order_id, buyer_id, store_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		order.OrderID, order.BuyerID, order.StoreID, order.Status)
	if err != nil {
		return models.ErrStorage(err)
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, book_id, count, unit_price)
			VALUES ($1, $2, $3, $4)`,
			line.OrderID, line.BookID, line.Count, line.UnitPrice)
		if err != nil {
			return models.ErrStorage(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ErrStorage(err)
	}
	return nil
}

// GetOrder retrieves an order by id
func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_id = $1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound(orderID)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return &order, nil
}

// GetOrderLines retrieves the immutable lines of an order
func (s *Store) GetOrderLines(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY book_id", orderID)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return lines, nil
}

// ListOrdersByBuyer lists a buyer's orders, newest first, optionally
// filtered by status
func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID string, status models.Status) ([]models.Order, error) {
	var orders []models.Order
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	} else {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE buyer_id = $1 AND status = $2 ORDER BY created_at DESC",
			buyerID, status)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return orders, nil
}

// ListOrdersByStore lists a store's orders, newest first, optionally
// filtered by status
func (s *Store) ListOrdersByStore(ctx context.Context, storeID string, status models.Status) ([]models.Order, error) {
	var orders []models.Order
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE store_id = $1 ORDER BY created_at DESC", storeID)
	} else {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE store_id = $1 AND status = $2 ORDER BY created_at DESC",
			storeID, status)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return orders, nil
}

// PayOrder settles an order as one atomic unit: conditional buyer
// debit, seller credit, and the pending->paid flip all commit or none
// do. A buyer whose balance dropped concurrently gets the insufficient
// funds error; a vanished seller rolls the debit back instead of
// leaving the money in limbo.
func (s *Store) PayOrder(ctx context.Context, orderID, buyerID, sellerID string, total int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ErrStorage(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance - $1 WHERE user_id = $2 AND balance >= $1",
		total, buyerID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotSufficientFunds(orderID)
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE users SET balance = balance + $1 WHERE user_id = $2", total, sellerID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNonExistUser(sellerID)
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, paid_at = NOW() WHERE order_id = $2 AND status = $3",
		models.StatusPaid, orderID, models.StatusPending)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost the race to a concurrent transition (e.g. timeout cancel)
		return s.transitionError(ctx, orderID)
	}

	if err := tx.Commit(); err != nil {
		return models.ErrStorage(err)
	}
	return nil
}

// ShipOrder transitions paid -> shipped
func (s *Store) ShipOrder(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, shipped_at = NOW() WHERE order_id = $2 AND status = $3",
		models.StatusShipped, orderID, models.StatusPaid)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.transitionError(ctx, orderID)
	}
	return nil
}

// ReceiveOrder transitions shipped -> completed
func (s *Store) ReceiveOrder(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, received_at = NOW() WHERE order_id = $2 AND status = $3",
		models.StatusCompleted, orderID, models.StatusShipped)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.transitionError(ctx, orderID)
	}
	return nil
}

// CancelResult reports what a cancellation actually did
type CancelResult struct {
	Refunded int64
}

// CancelOrder cancels an order in one atomic unit: refund (when the
// order was paid), stock restitution for every line, and the status
// flip. allowPaid distinguishes buyer cancellation (pending or paid)
// from the timeout path (pending only). The row lock taken up front
// serializes racing cancellations; the final conditional flip keeps the
// state machine honest even against writers outside this transaction.
func (s *Store) CancelOrder(ctx context.Context, orderID, reason string, allowPaid bool) (*CancelResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE order_id = $1 FOR UPDATE", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound(orderID)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}

	if order.Status != models.StatusPending && !(allowPaid && order.Status == models.StatusPaid) {
		return nil, statusError(&order)
	}

	result := &CancelResult{}
	if order.Status == models.StatusPaid {
		var total int64
		err := tx.GetContext(ctx, &total,
			"SELECT COALESCE(SUM(count * unit_price), 0) FROM order_lines WHERE order_id = $1",
			orderID)
		if err != nil {
			return nil, models.ErrStorage(err)
		}

		var sellerID string
		err = tx.GetContext(ctx, &sellerID,
			"SELECT owner_id FROM stores WHERE store_id = $1", order.StoreID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNonExistStore(order.StoreID)
		}
		if err != nil {
			return nil, models.ErrStorage(err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET balance = balance + $1 WHERE user_id = $2",
			total, order.BuyerID); err != nil {
			return nil, models.ErrStorage(err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET balance = balance - $1 WHERE user_id = $2",
			total, sellerID); err != nil {
			return nil, models.ErrStorage(err)
		}
		result.Refunded = total
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory i SET stock_level = i.stock_level + l.count, updated_at = NOW()
		FROM order_lines l
		WHERE l.order_id = $1 AND i.store_id = $2 AND i.book_id = l.book_id`,
		orderID, order.StoreID); err != nil {
		return nil, models.ErrStorage(err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, cancelled_at = NOW(), cancel_reason = $2
		WHERE order_id = $3 AND status = $4`,
		models.StatusCancelled, reason, orderID, order.Status)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrIllegalTransition(orderID, order.Status)
	}

	if err := tx.Commit(); err != nil {
		return nil, models.ErrStorage(err)
	}
	return result, nil
}

// ListStalePending returns ids of pending orders created before cutoff
func (s *Store) ListStalePending(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT order_id FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at",
		models.StatusPending, cutoff)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return ids, nil
}

// transitionError re-reads the order to report why a conditional
// transition matched no row
func (s *Store) transitionError(ctx context.Context, orderID string) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return statusError(order)
}

func statusError(order *models.Order) error {
	switch order.Status {
	case models.StatusPaid:
		return &models.Error{Code: models.CodeOrderAlreadyPaid, Message: "order already paid"}
	case models.StatusShipped:
		return &models.Error{Code: models.CodeOrderShipped, Message: "order shipped"}
	case models.StatusCompleted:
		return &models.Error{Code: models.CodeOrderReceived, Message: "order received"}
	case models.StatusCancelled:
		return &models.Error{Code: models.CodeOrderCancelled, Message: "order cancelled"}
	default:
		return models.ErrIllegalTransition(order.OrderID, order.Status)
	}
}
