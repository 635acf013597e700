package worker

import (
	"context"
	"time"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/redisclient"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reaperLockKey = "order-reaper"

// Reaper force-cancels pending orders older than the timeout window,
// restoring their stock. It runs as a managed background task with an
// explicit stop signal and a join on shutdown.
type Reaper struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	timeout        time.Duration
	interval       time.Duration
	logger         *zap.Logger
	stop           chan struct{}
	done           chan struct{}
}

// NewReaper creates a new timeout reaper
func NewReaper(st *store.Store, redis *redisclient.Client, eventPublisher *broker.EventPublisher, timeout, interval time.Duration) *Reaper {
	return &Reaper{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		timeout:        timeout,
		interval:       interval,
		logger:         util.GetLogger(),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start launches the sweep loop
func (r *Reaper) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the loop and waits for the current sweep to finish,
// bounded by the given timeout
func (r *Reaper) Stop(timeout time.Duration) {
	close(r.stop)
	select {
	case <-r.done:
	case <-time.After(timeout):
		r.logger.Warn("Reaper did not stop within timeout")
	}
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Reaper started",
		zap.Duration("timeout", r.timeout),
		zap.Duration("interval", r.interval))

	for {
		select {
		case <-r.stop:
			r.logger.Info("Reaper stopped")
			return
		case <-ctx.Done():
			r.logger.Info("Reaper context cancelled")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep cancels every pending order older than the timeout window. It
// is idempotent: a re-scan of an already-cancelled order matches
// nothing because the order no longer holds pending status.
func (r *Reaper) Sweep(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "Reaper.Sweep")
	defer span.End()

	// one reaper across all processes at a time
	acquired, err := r.redis.AcquireLock(ctx, reaperLockKey, r.interval)
	if err != nil {
		r.logger.Warn("Failed to acquire reaper lock", zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := r.redis.ReleaseLock(ctx, reaperLockKey); err != nil {
			r.logger.Warn("Failed to release reaper lock", zap.Error(err))
		}
	}()

	util.ReaperRunsTotal.Inc()

	cutoff := time.Now().Add(-r.timeout)
	stale, err := r.store.ListStalePending(ctx, cutoff)
	if err != nil {
		r.logger.Error("Failed to list stale pending orders", zap.Error(err))
		return
	}

	for _, orderID := range stale {
		if _, err := r.store.CancelOrder(ctx, orderID, "timeout", false); err != nil {
			// a concurrent payment or cancel beat us to the flip
			if models.CodeOf(err) != models.CodeStorageError {
				continue
			}
			r.logger.Error("Failed to cancel stale order",
				zap.String("order_id", orderID),
				zap.Error(err))
			continue
		}

		util.ReaperCancelledTotal.Inc()
		util.OrdersCancelledTotal.WithLabelValues("timeout").Inc()
		r.logger.Info("Cancelled timeout order", zap.String("order_id", orderID))

		event := &models.OrderCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCancelled,
				Timestamp: time.Now(),
			},
			OrderID: orderID,
			Reason:  "timeout",
		}
		if err := r.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
			r.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}
}
