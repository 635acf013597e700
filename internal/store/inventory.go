package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bookstore-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateStore registers a new store owned by ownerID
func (s *Store) CreateStore(ctx context.Context, storeID, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO stores (store_id, owner_id) VALUES ($1, $2) ON CONFLICT (store_id) DO NOTHING",
		storeID, ownerID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrExistStore(storeID)
	}
	return nil
}

// StoreExists reports whether a store id is registered
func (s *Store) StoreExists(ctx context.Context, storeID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM stores WHERE store_id = $1)", storeID)
	if err != nil {
		return false, models.ErrStorage(err)
	}
	return exists, nil
}

// StoreOwner returns the owning user id of a store
func (s *Store) StoreOwner(ctx context.Context, storeID string) (string, error) {
	var ownerID string
	err := s.db.GetContext(ctx, &ownerID,
		"SELECT owner_id FROM stores WHERE store_id = $1", storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrNonExistStore(storeID)
	}
	if err != nil {
		return "", models.ErrStorage(err)
	}
	return ownerID, nil
}

// UpsertBook writes catalog metadata shared across stores
func (s *Store) UpsertBook(ctx context.Context, b *models.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (book_id, title, author, publisher, intro, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (book_id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			publisher = EXCLUDED.publisher,
			intro = EXCLUDED.intro,
			tags = EXCLUDED.tags`,
		b.BookID, b.Title, b.Author, b.Publisher, b.Intro, b.Tags)
	if err != nil {
		return models.ErrStorage(err)
	}
	return nil
}

// GetBook retrieves catalog metadata for one book
func (s *Store) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	var b models.Book
	err := s.db.GetContext(ctx, &b, "SELECT * FROM books WHERE book_id = $1", bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNonExistBook(bookID)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return &b, nil
}

// GetBooksByIDs retrieves catalog metadata for a set of books; missing
// ids are simply absent from the result
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) (map[string]models.Book, error) {
	out := make(map[string]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT * FROM books WHERE book_id IN (?)", ids)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	query = s.db.Rebind(query)

	var books []models.Book
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, models.ErrStorage(err)
	}
	for _, b := range books {
		out[b.BookID] = b
	}
	return out, nil
}

// CreateInventoryLine adds a book to a store's shelf
func (s *Store) CreateInventoryLine(ctx context.Context, line *models.InventoryLine) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (store_id, book_id, stock_level, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id, book_id) DO NOTHING`,
		line.StoreID, line.BookID, line.StockLevel, line.Price)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrExistBook(line.BookID)
	}
	return nil
}

// GetInventoryLine retrieves one store x book line
func (s *Store) GetInventoryLine(ctx context.Context, storeID, bookID string) (*models.InventoryLine, error) {
	var line models.InventoryLine
	err := s.db.GetContext(ctx, &line,
		"SELECT * FROM inventory WHERE store_id = $1 AND book_id = $2", storeID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNonExistBook(bookID)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return &line, nil
}

// AddStockLevel increments stock of an existing line
func (s *Store) AddStockLevel(ctx context.Context, storeID, bookID string, add int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory SET stock_level = stock_level + $1, updated_at = NOW()
		WHERE store_id = $2 AND book_id = $3`,
		add, storeID, bookID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNonExistBook(bookID)
	}
	return nil
}

// LineRequest is one (book, count) pair of a reservation
type LineRequest struct {
	BookID string
	Count  int
}

// ReserveLines decrements stock for every requested line, all within
// one transaction. Each decrement is conditional on stock_level still
// covering the count at apply time, which guards the check-then-mutate
// race against concurrent reservations. The first failing line aborts
// the transaction, so a failed reservation never commits a partial
// decrement. Returns the unit price snapshot per line on success.
func (s *Store) ReserveLines(ctx context.Context, storeID string, lines []LineRequest) (map[string]int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	defer tx.Rollback()

	prices := make(map[string]int64, len(lines))
	for _, line := range lines {
		var current models.InventoryLine
		err := tx.GetContext(ctx, &current,
			"SELECT * FROM inventory WHERE store_id = $1 AND book_id = $2",
			storeID, line.BookID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNonExistBook(line.BookID)
		}
		if err != nil {
			return nil, models.ErrStorage(err)
		}

		if current.StockLevel < line.Count {
			return nil, models.ErrStockLevelLow(line.BookID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE inventory SET stock_level = stock_level - $1, updated_at = NOW()
			WHERE store_id = $2 AND book_id = $3 AND stock_level >= $1`,
			line.Count, storeID, line.BookID)
		if err != nil {
			return nil, models.ErrStorage(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// lost the race to a concurrent decrement
			return nil, models.ErrStockLevelLow(line.BookID)
		}

		prices[line.BookID] = current.Price
	}

	if err := tx.Commit(); err != nil {
		return nil, models.ErrStorage(err)
	}
	return prices, nil
}

// SearchBooks runs a keyword search over catalog metadata with
// pagination; when storeID is non-empty only that store's shelf is
// searched and rows are enriched with its stock and price.
func (s *Store) SearchBooks(ctx context.Context, keyword, storeID string, page, pageSize int) ([]models.BookSearchResult, error) {
	pattern := "%" + strings.ReplaceAll(keyword, "%", `\%`) + "%"
	offset := (page - 1) * pageSize

	var results []models.BookSearchResult
	if storeID == "" {
		err := s.db.SelectContext(ctx, &results, `
			SELECT book_id, title, author, publisher, intro, tags
			FROM books
			WHERE title ILIKE $1 OR author ILIKE $1 OR publisher ILIKE $1 OR tags ILIKE $1
			ORDER BY book_id
			LIMIT $2 OFFSET $3`,
			pattern, pageSize, offset)
		if err != nil {
			return nil, models.ErrStorage(err)
		}
		return results, nil
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT b.book_id, b.title, b.author, b.publisher, b.intro, b.tags,
		       i.stock_level, i.price
		FROM books b
		JOIN inventory i ON i.book_id = b.book_id
		WHERE i.store_id = $1
		  AND (b.title ILIKE $2 OR b.author ILIKE $2 OR b.publisher ILIKE $2 OR b.tags ILIKE $2)
		ORDER BY b.book_id
		LIMIT $3 OFFSET $4`,
		storeID, pattern, pageSize, offset)
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.BookSearchResult
		var stock int
		var price int64
		if err := rows.Scan(&r.BookID, &r.Title, &r.Author, &r.Publisher, &r.Intro, &r.Tags, &stock, &price); err != nil {
			return nil, models.ErrStorage(err)
		}
		r.StockLevel = &stock
		r.StorePrice = &price
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, models.ErrStorage(err)
	}
	return results, nil
}
