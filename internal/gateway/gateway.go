// Package gateway is the network boundary to the remote catalog service.
package gateway

import (
	"context"
	"io"

	"github.com/abgdnv/partsfinder/internal/model"
)

// CatalogGateway issues typed calls to the catalog service.
// Any non-2xx status or transport failure is returned as *errors.GatewayError.
// Calls are never retried.
type CatalogGateway interface {
	// FetchStore returns the aggregate of one store.
	// A 404 yields a GatewayError matching errors.ErrStoreNotFound.
	FetchStore(ctx context.Context, storeID int64) (*model.Store, error)

	// CreateProduct adds a product to the store and returns it with its server-assigned id.
	CreateProduct(ctx context.Context, storeID int64, product model.ProductCreate) (*model.Product, error)

	DeleteProduct(ctx context.Context, storeID, productID int64) error

	// UpdateStore replaces the editable store fields and returns the whole updated aggregate.
	UpdateStore(ctx context.Context, storeID int64, edit model.StoreEdit) (*model.Store, error)

	// SubmitFeedback stores a customer comment; the server classifies its sentiment.
	SubmitFeedback(ctx context.Context, storeID int64, text string) (*model.Feedback, error)

	// FetchDirectory returns every store summary and every product listing.
	FetchDirectory(ctx context.Context) (*model.Directory, error)

	// RegisterStore signs up a new store and returns the server message.
	RegisterStore(ctx context.Context, reg model.Registration) (string, error)

	// UploadImage sends one image as the multipart field "image".
	UploadImage(ctx context.Context, filename string, image io.Reader) (*model.UploadReceipt, error)

	// Ping checks that the catalog service is reachable.
	Ping(ctx context.Context) error
}
