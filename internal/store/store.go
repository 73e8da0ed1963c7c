package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agent-storefront/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrPaymentRefConsumed is returned when an insert collides with the
// unique index on payment_tx_reference. This is the final authority on
// replay prevention; callers must treat it as "already consumed", not as
// a storage fault.
var ErrPaymentRefConsumed = errors.New("payment reference already consumed")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetCatalogItems retrieves all active catalog items
func (s *Store) GetCatalogItems(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM catalog_items WHERE active ORDER BY sku")
	return items, err
}

// GetCatalogItemsBySKUs retrieves active catalog items by SKU
func (s *Store) GetCatalogItemsBySKUs(ctx context.Context, skus []string) (map[string]models.CatalogItem, error) {
	result := make(map[string]models.CatalogItem, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT * FROM catalog_items WHERE active AND sku IN (?)", skus)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.CatalogItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	for _, item := range items {
		result[item.SKU] = item
	}
	return result, nil
}

// GetCatalogItemBySKU retrieves a single active catalog item
func (s *Store) GetCatalogItemBySKU(ctx context.Context, sku string) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM catalog_items WHERE active AND sku = $1", sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog item %s: %w", sku, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
