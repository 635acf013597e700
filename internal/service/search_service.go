package service

import (
	"context"

	"bookstore-service/internal/models"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"

	"go.uber.org/zap"
)

const maxPageSize = 100

// SearchService is the Catalog collaborator: keyword search for
// clients and display enrichment for the order core. Never needed for
// correctness, only for display.
type SearchService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(st *store.Store) *SearchService {
	return &SearchService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// Search runs a keyword search over title/author/publisher/tags with
// pagination, optionally scoped to one store's shelf
func (s *SearchService) Search(ctx context.Context, keyword, storeID string, page, pageSize int) ([]models.BookSearchResult, error) {
	ctx, span := util.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	util.SearchRequestsTotal.Inc()

	if keyword == "" {
		return nil, models.ErrInvalidParameter("keyword")
	}
	if page < 1 {
		return nil, models.ErrPagination("page must be >= 1")
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, models.ErrPagination("page_size out of range")
	}

	if storeID != "" {
		exists, err := s.store.StoreExists(ctx, storeID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, models.ErrNonExistStore(storeID)
		}
	}

	results, err := s.store.SearchBooks(ctx, keyword, storeID, page, pageSize)
	if err != nil {
		s.logger.Warn("Search failed",
			zap.String("keyword", keyword),
			zap.Error(err))
		return nil, err
	}
	return results, nil
}

// BookPrice returns the current shelf price of a book in a store; the
// order core uses it only at order-creation snapshot time
func (s *SearchService) BookPrice(ctx context.Context, storeID, bookID string) (int64, error) {
	line, err := s.store.GetInventoryLine(ctx, storeID, bookID)
	if err != nil {
		return 0, err
	}
	return line.Price, nil
}

// BookDisplayInfo returns title and author for query enrichment
func (s *SearchService) BookDisplayInfo(ctx context.Context, bookID string) (title, author string, err error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return "", "", err
	}
	return book.Title, book.Author, nil
}
