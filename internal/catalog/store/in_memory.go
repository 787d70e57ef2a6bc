package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	catalogerrors "github.com/abgdnv/partsfinder/internal/catalog/errors"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/shopspring/decimal"
)

// record is a store with the sign-up email it was registered under, if any.
type record struct {
	store model.Store
	email string
}

// inMemory implements Catalog using an in-memory map.
type inMemory struct {
	mu             sync.RWMutex
	stores         map[int64]*record
	order          []int64
	nextStoreID    int64
	nextProductID  int64
	nextFeedbackID int64
}

// NewInMemoryStore creates an empty Catalog.
func NewInMemoryStore() Catalog {
	return newInMemory()
}

// NewSeededStore creates a Catalog holding the five demo stores and their "Filter Oil" listings.
func NewSeededStore() Catalog {
	s := newInMemory()
	seed := []model.Store{
		{Name: "Auto Parts Store 1", Location: "123 Main St, City, Country", Contact: "+1234567890", Rating: 4.5},
		{Name: "Speedy Auto Repairs", Location: "456 Elm St, City, Country", Contact: "+0987654321", Rating: 3.9},
		{Name: "Parts and Service Hub", Location: "789 Oak St, City, Country", Contact: "+1122334455", Rating: 4.7},
		{Name: "Engine Parts World", Location: "123 Industrial Rd, City, Country", Contact: "+1555555555", Rating: 4.2},
		{Name: "Quick Fix Auto Service", Location: "987 Maple St, City, Country", Contact: "+1456789876", Rating: 4.3},
	}
	for _, st := range seed {
		s.insert(&record{store: st})
	}
	oil := []struct {
		storeID int64
		price   string
		stock   bool
	}{
		{1, "45.99", true},
		{2, "12.50", false},
		{3, "25.99", true},
	}
	for _, o := range oil {
		r := s.stores[o.storeID]
		r.store.Products = append(r.store.Products, s.newProduct("Filter Oil", decimal.RequireFromString(o.price), o.stock))
	}
	return s
}

func newInMemory() *inMemory {
	return &inMemory{
		stores:         make(map[int64]*record),
		nextStoreID:    1,
		nextProductID:  1,
		nextFeedbackID: 1,
	}
}

func (s *inMemory) insert(r *record) {
	r.store.ID = s.nextStoreID
	s.nextStoreID++
	s.stores[r.store.ID] = r
	s.order = append(s.order, r.store.ID)
}

func (s *inMemory) newProduct(name string, price decimal.Decimal, stock bool) model.Product {
	p := model.Product{ID: s.nextProductID, Name: name, Price: price, InStock: stock}
	s.nextProductID++
	return p
}

// ListStores retrieves the summaries of all stores.
func (s *inMemory) ListStores(_ context.Context) ([]model.StoreSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.StoreSummary, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.stores[id].store.Summary())
	}
	return list, nil
}

// ListListings retrieves every product together with its store.
func (s *inMemory) ListListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Listing, 0)
	for _, id := range s.order {
		st := s.stores[id].store
		for _, p := range st.Products {
			list = append(list, model.Listing{Product: p, Store: st.Summary()})
		}
	}
	return list, nil
}

// FindStore retrieves a store aggregate by its ID.
func (s *inMemory) FindStore(_ context.Context, id int64) (*model.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.stores[id]
	if !ok {
		return nil, catalogerrors.ErrStoreNotFound
	}
	st := r.store.Clone()
	return &st, nil
}

// UpdateStore replaces name, location and contact of a store.
func (s *inMemory) UpdateStore(_ context.Context, id int64, edit model.StoreEdit) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.stores[id]
	if !ok {
		return nil, catalogerrors.ErrStoreNotFound
	}
	r.store.Name = edit.Name
	r.store.Location = edit.Location
	r.store.Contact = edit.Contact
	st := r.store.Clone()
	return &st, nil
}

// AddProduct creates a product in a store and returns it.
func (s *inMemory) AddProduct(_ context.Context, storeID int64, p model.ProductCreate) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.stores[storeID]
	if !ok {
		return nil, catalogerrors.ErrStoreNotFound
	}
	product := s.newProduct(p.Name, p.Price, p.Stock)
	r.store.Products = append(r.store.Products, product)
	return &product, nil
}

// DeleteProduct deletes a product of a store.
func (s *inMemory) DeleteProduct(_ context.Context, storeID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.stores[storeID]
	if !ok {
		return catalogerrors.ErrStoreNotFound
	}
	idx := slices.IndexFunc(r.store.Products, func(p model.Product) bool { return p.ID == productID })
	if idx < 0 {
		return catalogerrors.ErrProductNotFound
	}
	r.store.Products = slices.Delete(slices.Clone(r.store.Products), idx, idx+1)
	return nil
}

// AddFeedback appends a feedback entry to a store.
func (s *inMemory) AddFeedback(_ context.Context, storeID int64, text string, sentiment model.Sentiment, at time.Time) (*model.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.stores[storeID]
	if !ok {
		return nil, catalogerrors.ErrStoreNotFound
	}
	fb := model.Feedback{ID: s.nextFeedbackID, Text: text, Sentiment: sentiment, Timestamp: at}
	s.nextFeedbackID++
	r.store.Feedback = append(r.store.Feedback, fb)
	return &fb, nil
}

// Register creates a new store located at the sign-up coordinates.
// Only the email is kept from the form; the password is dropped.
func (s *inMemory) Register(_ context.Context, reg model.Registration) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(reg.Email))
	for _, r := range s.stores {
		if r.email == email {
			return nil, fmt.Errorf("register %s: %w", email, catalogerrors.ErrEmailTaken)
		}
	}
	r := &record{
		store: model.Store{
			Name:     reg.StoreName,
			Location: fmt.Sprintf("%.6f, %.6f", reg.Latitude, reg.Longitude),
			Contact:  reg.ContactNumber,
		},
		email: email,
	}
	s.insert(r)
	st := r.store.Clone()
	return &st, nil
}
