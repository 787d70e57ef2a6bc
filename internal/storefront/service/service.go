// Package service hosts client sessions: one search index and at most one
// store detail per session, backed by the remote catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/partsfinder/internal/catalogstore"
	apperrors "github.com/abgdnv/partsfinder/internal/errors"
	"github.com/abgdnv/partsfinder/internal/gateway"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/abgdnv/partsfinder/internal/search"
	"github.com/abgdnv/partsfinder/pkg/messaging"
	"github.com/abgdnv/partsfinder/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionService defines the operations the storefront exposes per session.
type SessionService interface {
	// Open creates a session whose search index holds the current catalog directory.
	Open(ctx context.Context) (uuid.UUID, search.Result, error)

	// Close cancels the pending search of a session and forgets it.
	Close(id uuid.UUID) error

	// SubmitQuery records the query text; evaluation is debounced.
	SubmitQuery(id uuid.UUID, text string) error

	// SetSortOrder changes the direction of the store listing.
	SetSortOrder(id uuid.UUID, order search.SortOrder) error

	// Results returns the last delivered search result.
	Results(id uuid.UUID) (search.Result, error)

	// LoadStore opens the detail of a store in the session, replacing any previous one.
	LoadStore(ctx context.Context, id uuid.UUID, storeID int64) (catalogstore.View, error)

	// StoreView returns the store detail with its rating summary.
	StoreView(id uuid.UUID) (catalogstore.View, error)

	EditStore(ctx context.Context, id uuid.UUID, edit model.StoreEdit) (catalogstore.View, error)
	AddProduct(ctx context.Context, id uuid.UUID, draft model.ProductDraft) (*model.Product, error)
	EditProduct(ctx context.Context, id uuid.UUID, productID int64, draft model.ProductDraft) error
	DeleteProduct(ctx context.Context, id uuid.UUID, productID int64) error
	SubmitFeedback(ctx context.Context, id uuid.UUID, text string) (*model.Feedback, error)

	// Register validates a sign-up form and forwards it to the catalog.
	Register(ctx context.Context, reg model.Registration) (string, error)

	// UploadImage forwards an image to the catalog.
	UploadImage(ctx context.Context, filename string, image io.Reader) (*model.UploadReceipt, error)

	// Ready reports whether the catalog is reachable.
	Ready(ctx context.Context) error
}

type session struct {
	index *search.Index

	mu     sync.Mutex
	detail *catalogstore.CatalogStore
}

func (s *session) store() (*catalogstore.CatalogStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		return nil, apperrors.ErrStoreNotLoaded
	}
	return s.detail, nil
}

// Sessions implements SessionService in memory.
type Sessions struct {
	gateway   gateway.CatalogGateway
	publisher messaging.Publisher
	validate  *validator.Validate
	debounce  time.Duration
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

// NewSessions creates an empty session registry.
func NewSessions(gw gateway.CatalogGateway, publisher messaging.Publisher, debounce time.Duration, logger *slog.Logger) *Sessions {
	return &Sessions{
		gateway:   gw,
		publisher: publisher,
		validate:  validator.New(),
		debounce:  debounce,
		logger:    logger.With("component", "sessions"),
		sessions:  make(map[uuid.UUID]*session),
	}
}

func (s *Sessions) Open(ctx context.Context) (uuid.UUID, search.Result, error) {
	dir, err := s.gateway.FetchDirectory(ctx)
	if err != nil {
		return uuid.Nil, search.Result{}, fmt.Errorf("failed to fetch directory: %w", err)
	}
	id := uuid.New()
	sess := &session{
		index: search.NewIndex(*dir,
			search.WithDebounce(s.debounce),
			search.WithLogger(s.logger.With("session_id", id))),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session opened", "session_id", id, "stores", len(dir.Stores), "products", len(dir.Products))
	return id, sess.index.Current(), nil
}

func (s *Sessions) Close(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.index.Close()
	s.logger.Info("Session closed", "session_id", id)
	return nil
}

// CloseAll closes every session. Used on shutdown.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[uuid.UUID]*session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.index.Close()
	}
}

// RefreshDirectory fetches the directory once and hands it to every open session.
// Sessions showing the store listing see the new stores right away; a product search
// picks the new listings up on its next evaluation.
func (s *Sessions) RefreshDirectory(ctx context.Context) error {
	dir, err := s.gateway.FetchDirectory(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch directory: %w", err)
	}
	s.mu.RLock()
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.RUnlock()

	for _, sess := range open {
		sess.index.SetWorkingSet(*dir)
	}
	s.logger.DebugContext(ctx, "Directory refreshed", "sessions", len(open), "stores", len(dir.Stores))
	return nil
}

func (s *Sessions) get(id uuid.UUID) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Sessions) SubmitQuery(id uuid.UUID, text string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.index.SubmitQuery(text)
	return nil
}

func (s *Sessions) SetSortOrder(id uuid.UUID, order search.SortOrder) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.index.SetSortOrder(order)
	return nil
}

func (s *Sessions) Results(id uuid.UUID) (search.Result, error) {
	sess, err := s.get(id)
	if err != nil {
		return search.Result{}, err
	}
	return sess.index.Current(), nil
}

func (s *Sessions) LoadStore(ctx context.Context, id uuid.UUID, storeID int64) (catalogstore.View, error) {
	sess, err := s.get(id)
	if err != nil {
		return catalogstore.View{}, err
	}
	sess.mu.Lock()
	if sess.detail == nil {
		sess.detail = catalogstore.New(s.gateway, s.validate, s.logger.With("session_id", id),
			catalogstore.WithConfirmationHook(s.publishConfirmation))
	}
	detail := sess.detail
	sess.mu.Unlock()

	if err := detail.Load(ctx, storeID); err != nil {
		return catalogstore.View{}, err
	}
	return detail.View()
}

func (s *Sessions) StoreView(id uuid.UUID) (catalogstore.View, error) {
	detail, err := s.detail(id)
	if err != nil {
		return catalogstore.View{}, err
	}
	return detail.View()
}

func (s *Sessions) EditStore(ctx context.Context, id uuid.UUID, edit model.StoreEdit) (catalogstore.View, error) {
	detail, err := s.detail(id)
	if err != nil {
		return catalogstore.View{}, err
	}
	if _, err := detail.EditStore(ctx, edit); err != nil {
		return catalogstore.View{}, err
	}
	return detail.View()
}

func (s *Sessions) AddProduct(ctx context.Context, id uuid.UUID, draft model.ProductDraft) (*model.Product, error) {
	detail, err := s.detail(id)
	if err != nil {
		return nil, err
	}
	return detail.AddProduct(ctx, draft)
}

func (s *Sessions) EditProduct(ctx context.Context, id uuid.UUID, productID int64, draft model.ProductDraft) error {
	detail, err := s.detail(id)
	if err != nil {
		return err
	}
	return detail.EditProduct(ctx, productID, draft)
}

func (s *Sessions) DeleteProduct(ctx context.Context, id uuid.UUID, productID int64) error {
	detail, err := s.detail(id)
	if err != nil {
		return err
	}
	return detail.DeleteProduct(ctx, productID)
}

func (s *Sessions) SubmitFeedback(ctx context.Context, id uuid.UUID, text string) (*model.Feedback, error) {
	detail, err := s.detail(id)
	if err != nil {
		return nil, err
	}
	return detail.SubmitFeedback(ctx, text)
}

func (s *Sessions) Register(ctx context.Context, reg model.Registration) (string, error) {
	if err := s.validate.Struct(reg); err != nil {
		return "", apperrors.NewValidationError(err)
	}
	msg, err := s.gateway.RegisterStore(ctx, reg)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Store registered", "store_name", reg.StoreName)
	return msg, nil
}

func (s *Sessions) UploadImage(ctx context.Context, filename string, image io.Reader) (*model.UploadReceipt, error) {
	return s.gateway.UploadImage(ctx, filename, image)
}

func (s *Sessions) Ready(ctx context.Context) error {
	return s.gateway.Ping(ctx)
}

func (s *Sessions) detail(id uuid.UUID) (*catalogstore.CatalogStore, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return sess.store()
}

// publish sends a domain event. A failed publish is logged; the confirmed mutation stands.
func (s *Sessions) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

// publishConfirmation turns an acknowledged mutation into its domain event,
// keyed by the store the mutation was issued against.
func (s *Sessions) publishConfirmation(ctx context.Context, c catalogstore.Confirmation) {
	now := time.Now().UTC()
	switch c.Kind {
	case catalogstore.ProductAdded:
		s.publish(ctx, events.ProductAddedEvent{
			StoreID:    c.StoreID,
			ProductID:  c.Product.ID,
			Name:       c.Product.Name,
			Price:      c.Product.Price.String(),
			InStock:    c.Product.InStock,
			OccurredAt: now,
		})
	case catalogstore.ProductRemoved:
		s.publish(ctx, events.ProductRemovedEvent{
			StoreID:    c.StoreID,
			ProductID:  c.Product.ID,
			OccurredAt: now,
		})
	case catalogstore.StoreEdited:
		s.publish(ctx, events.StoreEditedEvent{
			StoreID:    c.StoreID,
			Name:       c.Store.Name,
			Location:   c.Store.Location,
			Contact:    c.Store.Contact,
			OccurredAt: now,
		})
	case catalogstore.FeedbackSubmitted:
		s.publish(ctx, events.FeedbackSubmittedEvent{
			StoreID:    c.StoreID,
			FeedbackID: c.Feedback.ID,
			Sentiment:  string(c.Feedback.Sentiment),
			Stars:      c.Rating.Stars,
			OccurredAt: now,
		})
	}
}
