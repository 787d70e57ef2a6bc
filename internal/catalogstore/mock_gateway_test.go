package catalogstore

import (
	"context"
	"io"
	"sync"

	"github.com/abgdnv/partsfinder/internal/model"
)

// mockGateway is a hand-written CatalogGateway. Unset funcs panic when called.
type mockGateway struct {
	mu    sync.Mutex
	calls map[string]int

	fetchStore     func(ctx context.Context, storeID int64) (*model.Store, error)
	createProduct  func(ctx context.Context, storeID int64, p model.ProductCreate) (*model.Product, error)
	deleteProduct  func(ctx context.Context, storeID, productID int64) error
	updateStore    func(ctx context.Context, storeID int64, edit model.StoreEdit) (*model.Store, error)
	submitFeedback func(ctx context.Context, storeID int64, text string) (*model.Feedback, error)
}

func (m *mockGateway) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[op]++
}

func (m *mockGateway) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockGateway) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *mockGateway) FetchStore(ctx context.Context, storeID int64) (*model.Store, error) {
	m.record("fetchStore")
	return m.fetchStore(ctx, storeID)
}

func (m *mockGateway) CreateProduct(ctx context.Context, storeID int64, p model.ProductCreate) (*model.Product, error) {
	m.record("createProduct")
	return m.createProduct(ctx, storeID, p)
}

func (m *mockGateway) DeleteProduct(ctx context.Context, storeID, productID int64) error {
	m.record("deleteProduct")
	return m.deleteProduct(ctx, storeID, productID)
}

func (m *mockGateway) UpdateStore(ctx context.Context, storeID int64, edit model.StoreEdit) (*model.Store, error) {
	m.record("updateStore")
	return m.updateStore(ctx, storeID, edit)
}

func (m *mockGateway) SubmitFeedback(ctx context.Context, storeID int64, text string) (*model.Feedback, error) {
	m.record("submitFeedback")
	return m.submitFeedback(ctx, storeID, text)
}

func (m *mockGateway) FetchDirectory(context.Context) (*model.Directory, error) {
	panic("not used")
}

func (m *mockGateway) RegisterStore(context.Context, model.Registration) (string, error) {
	panic("not used")
}

func (m *mockGateway) UploadImage(context.Context, string, io.Reader) (*model.UploadReceipt, error) {
	panic("not used")
}

func (m *mockGateway) Ping(context.Context) error {
	return nil
}
