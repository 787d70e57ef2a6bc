// Package store provides the storage of the catalog service.
package store

import (
	"context"
	"time"

	"github.com/abgdnv/partsfinder/internal/model"
)

// Catalog stores the store aggregates and the product listings derived from them.
type Catalog interface {
	// ListStores returns every store summary in registration order.
	ListStores(ctx context.Context) ([]model.StoreSummary, error)

	// ListListings returns every product of every store, together with its store.
	ListListings(ctx context.Context) ([]model.Listing, error)

	// FindStore returns the aggregate of one store.
	// Returns ErrStoreNotFound if no store exists with the given ID.
	FindStore(ctx context.Context, id int64) (*model.Store, error)

	// UpdateStore replaces the editable fields and returns the whole aggregate.
	// Returns ErrStoreNotFound if no store exists with the given ID.
	UpdateStore(ctx context.Context, id int64, edit model.StoreEdit) (*model.Store, error)

	// AddProduct appends a product and assigns its ID.
	// Returns ErrStoreNotFound if no store exists with the given ID.
	AddProduct(ctx context.Context, storeID int64, product model.ProductCreate) (*model.Product, error)

	// DeleteProduct removes a product.
	// Returns ErrStoreNotFound or ErrProductNotFound.
	DeleteProduct(ctx context.Context, storeID, productID int64) error

	// AddFeedback appends a classified feedback entry and assigns its ID.
	// Returns ErrStoreNotFound if no store exists with the given ID.
	AddFeedback(ctx context.Context, storeID int64, text string, sentiment model.Sentiment, at time.Time) (*model.Feedback, error)

	// Register creates a store from a sign-up form.
	// Returns ErrEmailTaken if the email is already registered.
	Register(ctx context.Context, reg model.Registration) (*model.Store, error)
}
