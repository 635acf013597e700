package worker

import (
	"context"
	"time"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/redisclient"
	"bookstore-service/internal/util"

	"go.uber.org/zap"
)

// CatalogWorker keeps the Redis catalog cache in step with seller
// writes by consuming book events
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog cache worker
func NewCatalogWorker(consumer *broker.Consumer, redis *redisclient.Client) *CatalogWorker {
	w := &CatalogWorker{
		consumer: consumer,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnBookUpserted(w.handleBookUpserted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}

func (w *CatalogWorker) handleBookUpserted(ctx context.Context, event *models.BookUpsertedEvent) error {
	book := &models.Book{
		BookID: event.BookID,
		Title:  event.Title,
		Author: event.Author,
	}
	if err := w.redis.CacheBook(ctx, book, time.Hour); err != nil {
		w.logger.Warn("Failed to refresh catalog cache",
			zap.String("book_id", event.BookID),
			zap.Error(err))
		return err
	}
	w.logger.Debug("Catalog cache refreshed", zap.String("book_id", event.BookID))
	return nil
}
