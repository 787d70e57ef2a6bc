// Package catalogstore holds the local snapshot of one store aggregate and
// applies confirmed mutations to it.
//
// Every mutation is a round trip to the catalog first. The snapshot changes
// only after the catalog confirmed it, so a failed call leaves it untouched.
// Mutations are not serialized against each other: the lock guards the
// in-memory write only, never the network call, and when two responses race
// the one applied last wins.
package catalogstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	apperrors "github.com/abgdnv/partsfinder/internal/errors"
	"github.com/abgdnv/partsfinder/internal/gateway"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/abgdnv/partsfinder/internal/rating"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// State is the observable load state. Snapshot is nil until a load succeeds
// and again after a failed load; LoadErr keeps the cause of that failure.
type State struct {
	Loading  bool
	Snapshot *model.Store
	LoadErr  error
}

// View is the store detail screen: the snapshot plus its derived rating.
type View struct {
	Store      model.Store    `json:"store"`
	Rating     rating.Summary `json:"rating"`
	RatingText string         `json:"ratingText"`
}

// ConfirmationKind names a mutation the catalog acknowledged.
type ConfirmationKind string

const (
	ProductAdded      ConfirmationKind = "product_added"
	ProductRemoved    ConfirmationKind = "product_removed"
	StoreEdited       ConfirmationKind = "store_edited"
	FeedbackSubmitted ConfirmationKind = "feedback_submitted"
)

// Confirmation reports an acknowledged mutation. StoreID is the store the call
// was issued against, even if the snapshot moved to another store meanwhile.
// Rating is set for FeedbackSubmitted when the snapshot took the entry.
type Confirmation struct {
	Kind     ConfirmationKind
	StoreID  int64
	Product  model.Product
	Store    model.Store
	Feedback model.Feedback
	Rating   rating.Summary
}

type Option func(*CatalogStore)

// WithConfirmationHook calls hook after every acknowledged mutation, on the caller's goroutine.
func WithConfirmationHook(hook func(ctx context.Context, c Confirmation)) Option {
	return func(s *CatalogStore) {
		s.onConfirmed = hook
	}
}

// CatalogStore owns the snapshot of one store. Nothing else writes it.
type CatalogStore struct {
	gateway     gateway.CatalogGateway
	validate    *validator.Validate
	logger      *slog.Logger
	onConfirmed func(ctx context.Context, c Confirmation)

	mu    sync.RWMutex
	state State
}

// New creates an empty CatalogStore. Call Load before any mutation.
func New(gw gateway.CatalogGateway, validate *validator.Validate, logger *slog.Logger, opts ...Option) *CatalogStore {
	s := &CatalogStore{
		gateway:  gw,
		validate: validate,
		logger:   logger.With("component", "catalogstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the aggregate of storeID and makes it the snapshot.
// On failure the snapshot becomes absent and the error is kept in State.LoadErr.
// A successful answer without a usable store fails with errors.ErrStoreNotFound.
func (s *CatalogStore) Load(ctx context.Context, storeID int64) error {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	store, err := s.gateway.FetchStore(ctx, storeID)
	if err == nil && (store == nil || store.ID == 0) {
		err = fmt.Errorf("fetch store %d: %w", storeID, apperrors.ErrStoreNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.logger.WarnContext(ctx, "Store load failed", "store_id", storeID, "error", err)
		s.state.Snapshot = nil
		s.state.LoadErr = err
		return err
	}
	snapshot := store.Clone()
	s.state.Snapshot = &snapshot
	s.state.LoadErr = nil
	s.logger.InfoContext(ctx, "Store loaded",
		"store_id", storeID, "products", len(snapshot.Products), "feedback", len(snapshot.Feedback))
	return nil
}

// State returns a copy of the current state; the caller may not reach the snapshot through it.
func (s *CatalogStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.Snapshot != nil {
		snapshot := st.Snapshot.Clone()
		st.Snapshot = &snapshot
	}
	return st
}

// View returns the snapshot with its rating summary, recomputed on every call.
// Without a snapshot it fails with errors.ErrStoreNotLoaded, joined with the load failure if any.
func (s *CatalogStore) View() (View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Snapshot == nil {
		if s.state.LoadErr != nil {
			return View{}, fmt.Errorf("%w: %w", apperrors.ErrStoreNotLoaded, s.state.LoadErr)
		}
		return View{}, apperrors.ErrStoreNotLoaded
	}
	store := s.state.Snapshot.Clone()
	summary := rating.Summarize(store.Feedback)
	return View{Store: store, Rating: summary, RatingText: summary.Text()}, nil
}

// AddProduct validates the draft, creates the product remotely and appends
// the server's product to the snapshot. An invalid draft never reaches the network.
func (s *CatalogStore) AddProduct(ctx context.Context, draft model.ProductDraft) (*model.Product, error) {
	create, err := s.toCreate(draft)
	if err != nil {
		s.logger.DebugContext(ctx, "Product draft rejected", "error", err)
		return nil, err
	}
	storeID, err := s.loadedID()
	if err != nil {
		return nil, err
	}

	product, err := s.gateway.CreateProduct(ctx, storeID, create)
	if err != nil {
		s.logger.WarnContext(ctx, "Product creation failed", "store_id", storeID, "error", err)
		return nil, err
	}

	s.apply(ctx, storeID, func(snapshot *model.Store) {
		for i := range snapshot.Products {
			if snapshot.Products[i].ID == product.ID {
				snapshot.Products[i] = *product
				return
			}
		}
		snapshot.Products = append(snapshot.Products, *product)
	})
	s.logger.InfoContext(ctx, "Product added", "store_id", storeID, "product_id", product.ID)
	s.confirm(ctx, Confirmation{Kind: ProductAdded, StoreID: storeID, Product: *product})
	return product, nil
}

// DeleteProduct removes the product remotely, then from the snapshot.
func (s *CatalogStore) DeleteProduct(ctx context.Context, productID int64) error {
	storeID, err := s.loadedID()
	if err != nil {
		return err
	}

	if err := s.gateway.DeleteProduct(ctx, storeID, productID); err != nil {
		s.logger.WarnContext(ctx, "Product deletion failed",
			"store_id", storeID, "product_id", productID, "error", err)
		return err
	}

	s.apply(ctx, storeID, func(snapshot *model.Store) {
		kept := snapshot.Products[:0:0]
		for _, p := range snapshot.Products {
			if p.ID != productID {
				kept = append(kept, p)
			}
		}
		snapshot.Products = kept
	})
	s.logger.InfoContext(ctx, "Product deleted", "store_id", storeID, "product_id", productID)
	s.confirm(ctx, Confirmation{Kind: ProductRemoved, StoreID: storeID, Product: model.Product{ID: productID}})
	return nil
}

// EditStore updates the store fields remotely and replaces the whole snapshot
// with the aggregate the catalog returned. Edited fields are never merged locally.
// The fields are not checked here; the catalog's rejection surfaces as a GatewayError.
func (s *CatalogStore) EditStore(ctx context.Context, edit model.StoreEdit) (*model.Store, error) {
	storeID, err := s.loadedID()
	if err != nil {
		return nil, err
	}

	updated, err := s.gateway.UpdateStore(ctx, storeID, edit)
	if err != nil {
		s.logger.WarnContext(ctx, "Store edit failed", "store_id", storeID, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, &apperrors.GatewayError{Op: "updateStore", Err: apperrors.ErrStoreNotFound}
	}

	replacement := updated.Clone()
	s.apply(ctx, storeID, func(snapshot *model.Store) {
		*snapshot = replacement
	})
	s.logger.InfoContext(ctx, "Store edited", "store_id", storeID)
	s.confirm(ctx, Confirmation{Kind: StoreEdited, StoreID: storeID, Store: replacement.Clone()})
	return updated, nil
}

// EditProduct is accepted but does nothing: product edits are not persisted anywhere.
func (s *CatalogStore) EditProduct(ctx context.Context, productID int64, _ model.ProductDraft) error {
	if _, err := s.loadedID(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Product edit ignored", "product_id", productID)
	return nil
}

// SubmitFeedback posts a comment and appends the classified feedback to the snapshot.
func (s *CatalogStore) SubmitFeedback(ctx context.Context, text string) (*model.Feedback, error) {
	draft := model.FeedbackDraft{Text: strings.TrimSpace(text)}
	if err := s.validate.Struct(draft); err != nil {
		s.logger.DebugContext(ctx, "Feedback rejected", "error", err)
		return nil, apperrors.NewValidationError(err)
	}
	storeID, err := s.loadedID()
	if err != nil {
		return nil, err
	}

	feedback, err := s.gateway.SubmitFeedback(ctx, storeID, draft.Text)
	if err != nil {
		s.logger.WarnContext(ctx, "Feedback submission failed", "store_id", storeID, "error", err)
		return nil, err
	}

	confirmation := Confirmation{Kind: FeedbackSubmitted, StoreID: storeID, Feedback: *feedback}
	s.apply(ctx, storeID, func(snapshot *model.Store) {
		snapshot.Feedback = append(snapshot.Feedback, *feedback)
		confirmation.Rating = rating.Summarize(snapshot.Feedback)
	})
	s.logger.InfoContext(ctx, "Feedback submitted",
		"store_id", storeID, "feedback_id", feedback.ID, "sentiment", feedback.Sentiment)
	s.confirm(ctx, confirmation)
	return feedback, nil
}

// toCreate checks the draft and parses its price.
func (s *CatalogStore) toCreate(draft model.ProductDraft) (model.ProductCreate, error) {
	draft.Price = strings.TrimSpace(draft.Price)
	if err := s.validate.Struct(draft); err != nil {
		return model.ProductCreate{}, apperrors.NewValidationError(err)
	}
	price, err := decimal.NewFromString(draft.Price)
	if err != nil {
		return model.ProductCreate{}, &apperrors.ValidationError{Fields: map[string]string{"Price": "failed on rule: numeric"}}
	}
	if price.IsNegative() {
		return model.ProductCreate{}, &apperrors.ValidationError{Fields: map[string]string{"Price": "failed on rule: min"}}
	}
	return model.ProductCreate{Name: draft.Name, Price: price, Stock: draft.InStock}, nil
}

func (s *CatalogStore) confirm(ctx context.Context, c Confirmation) {
	if s.onConfirmed != nil {
		s.onConfirmed(ctx, c)
	}
}

func (s *CatalogStore) loadedID() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Snapshot == nil {
		return 0, apperrors.ErrStoreNotLoaded
	}
	return s.state.Snapshot.ID, nil
}

// apply runs mutate on the snapshot of storeID. A confirmation arriving after
// the snapshot was dropped or replaced by another store is discarded.
func (s *CatalogStore) apply(ctx context.Context, storeID int64, mutate func(*model.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Snapshot == nil || s.state.Snapshot.ID != storeID {
		s.logger.WarnContext(ctx, "Confirmation discarded, snapshot changed", "store_id", storeID)
		return
	}
	mutate(s.state.Snapshot)
}
