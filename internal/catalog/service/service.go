// Package service provides the business logic of the catalog service.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/partsfinder/internal/catalog/sentiment"
	"github.com/abgdnv/partsfinder/internal/catalog/store"
	"github.com/abgdnv/partsfinder/internal/model"
)

// CatalogService defines the operations served to catalog clients.
type CatalogService interface {
	// Directory returns every store summary and every product listing.
	Directory(ctx context.Context) (*model.Directory, error)

	// FindStore returns the aggregate of a store.
	// Returns ErrStoreNotFound if no store exists with the given ID.
	FindStore(ctx context.Context, id int64) (*model.Store, error)

	// UpdateStore replaces the editable fields of a store.
	UpdateStore(ctx context.Context, id int64, edit model.StoreEdit) (*model.Store, error)

	// AddProduct creates a product in a store.
	AddProduct(ctx context.Context, storeID int64, product model.ProductCreate) (*model.Product, error)

	// DeleteProduct removes a product from a store.
	// Returns ErrStoreNotFound or ErrProductNotFound.
	DeleteProduct(ctx context.Context, storeID, productID int64) error

	// SubmitFeedback classifies the text and appends it to the store's feedback.
	SubmitFeedback(ctx context.Context, storeID int64, text string) (*model.Feedback, error)

	// Register signs up a new store.
	// Returns ErrEmailTaken if the email is already registered.
	Register(ctx context.Context, reg model.Registration) (*model.Store, error)
}

// Service implements CatalogService.
type Service struct {
	repository store.Catalog
	classifier sentiment.Classifier
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a new instance of CatalogService.
func NewService(repo store.Catalog, classifier sentiment.Classifier, logger *slog.Logger) *Service {
	return &Service{
		repository: repo,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With("component", "service"),
	}
}

func (s *Service) Directory(ctx context.Context) (*model.Directory, error) {
	stores, err := s.repository.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	listings, err := s.repository.ListListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &model.Directory{Stores: stores, Products: listings}, nil
}

func (s *Service) FindStore(ctx context.Context, id int64) (*model.Store, error) {
	st, err := s.repository.FindStore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store by ID %d: %w", id, err)
	}
	return st, nil
}

func (s *Service) UpdateStore(ctx context.Context, id int64, edit model.StoreEdit) (*model.Store, error) {
	st, err := s.repository.UpdateStore(ctx, id, edit)
	if err != nil {
		return nil, fmt.Errorf("failed to update store with ID %d: %w", id, err)
	}
	return st, nil
}

func (s *Service) AddProduct(ctx context.Context, storeID int64, product model.ProductCreate) (*model.Product, error) {
	p, err := s.repository.AddProduct(ctx, storeID, product)
	if err != nil {
		return nil, fmt.Errorf("failed to create product in store %d: %w", storeID, err)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, storeID, productID int64) error {
	if err := s.repository.DeleteProduct(ctx, storeID, productID); err != nil {
		return fmt.Errorf("failed to delete product %d of store %d: %w", productID, storeID, err)
	}
	return nil
}

func (s *Service) SubmitFeedback(ctx context.Context, storeID int64, text string) (*model.Feedback, error) {
	label := s.classifier.Classify(text)
	fb, err := s.repository.AddFeedback(ctx, storeID, text, label, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to add feedback to store %d: %w", storeID, err)
	}
	s.logger.DebugContext(ctx, "Feedback classified", "store_id", storeID, "sentiment", label)
	return fb, nil
}

func (s *Service) Register(ctx context.Context, reg model.Registration) (*model.Store, error) {
	st, err := s.repository.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register store: %w", err)
	}
	return st, nil
}
