package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/abgdnv/partsfinder/internal/errors"
	"github.com/abgdnv/partsfinder/internal/gateway"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/abgdnv/partsfinder/internal/search"
	"github.com/abgdnv/partsfinder/pkg/messaging"
	"github.com/abgdnv/partsfinder/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway serves one store and a fixed directory. failing makes every call fail.
type fakeGateway struct {
	mu      sync.Mutex
	store   model.Store
	nextID  int64
	failing bool
	calls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		store: model.Store{
			ID: 1, Name: "Auto Parts Store 1", Rating: 4.5,
			Products: []model.Product{{ID: 1, Name: "Filter Oil", Price: decimal.RequireFromString("45.99"), InStock: true}},
		},
		nextID: 10,
	}
}

var errDown = &apperrors.GatewayError{Op: "fake", StatusCode: 503}

func (g *fakeGateway) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failing {
		return errDown
	}
	return nil
}

func (g *fakeGateway) FetchStore(_ context.Context, storeID int64) (*model.Store, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	if storeID != g.store.ID {
		return nil, &apperrors.GatewayError{Op: "fetchStore", StatusCode: 404, Err: apperrors.ErrStoreNotFound}
	}
	st := g.store.Clone()
	return &st, nil
}

func (g *fakeGateway) CreateProduct(_ context.Context, _ int64, p model.ProductCreate) (*model.Product, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return &model.Product{ID: g.nextID, Name: p.Name, Price: p.Price, InStock: p.Stock}, nil
}

func (g *fakeGateway) DeleteProduct(context.Context, int64, int64) error {
	return g.begin()
}

func (g *fakeGateway) UpdateStore(_ context.Context, _ int64, edit model.StoreEdit) (*model.Store, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	st := g.store.Clone()
	st.Name, st.Location, st.Contact = edit.Name, edit.Location, edit.Contact
	return &st, nil
}

func (g *fakeGateway) SubmitFeedback(_ context.Context, _ int64, text string) (*model.Feedback, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	return &model.Feedback{ID: 7, Text: text, Sentiment: model.SentimentPositive, Timestamp: time.Now()}, nil
}

func (g *fakeGateway) FetchDirectory(context.Context) (*model.Directory, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	summary := g.store.Summary()
	return &model.Directory{
		Stores:   []model.StoreSummary{summary, {ID: 2, Name: "Low", Rating: 2.0}},
		Products: []model.Listing{{Product: g.store.Products[0], Store: summary}},
	}, nil
}

func (g *fakeGateway) RegisterStore(context.Context, model.Registration) (string, error) {
	if err := g.begin(); err != nil {
		return "", err
	}
	return "Store registered successfully", nil
}

func (g *fakeGateway) UploadImage(_ context.Context, filename string, image io.Reader) (*model.UploadReceipt, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	data, _ := io.ReadAll(image)
	return &model.UploadReceipt{Message: "ok", Filename: filename, Size: int64(len(data))}, nil
}

func (g *fakeGateway) Ping(context.Context) error {
	return g.begin()
}

// recordingPublisher keeps published events; err is returned from every Publish.
type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Subject()
	}
	return out
}

func newTestSessions(gw gateway.CatalogGateway, pub messaging.Publisher) *Sessions {
	return NewSessions(gw, pub, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_Sessions_OpenListsStores(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})

	// when
	id, res, err := sessions.Open(context.Background())

	// then
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, search.ModeStores, res.Mode)
	require.Len(t, res.Stores, 1, "store rated below 3 is not listed")
}

func Test_Sessions_OpenFailsWhenCatalogDown(t *testing.T) {
	// given
	gw := newFakeGateway()
	gw.failing = true
	sessions := newTestSessions(gw, messaging.NopPublisher{})

	// when
	_, _, err := sessions.Open(context.Background())

	// then
	assert.ErrorIs(t, err, apperrors.ErrGateway)
}

func Test_Sessions_QueryIsDebounced(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})
	id, _, err := sessions.Open(context.Background())
	require.NoError(t, err)

	// when
	require.NoError(t, sessions.SubmitQuery(id, "fil"))
	require.NoError(t, sessions.SubmitQuery(id, "filter"))

	// then
	require.Eventually(t, func() bool {
		res, err := sessions.Results(id)
		return err == nil && res.Mode == search.ModeProducts
	}, time.Second, 5*time.Millisecond)
	res, err := sessions.Results(id)
	require.NoError(t, err)
	assert.Equal(t, "filter", res.Query)
	assert.Len(t, res.Products, 1)
}

func Test_Sessions_UnknownSession(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})
	id := uuid.New()

	// then
	assert.ErrorIs(t, sessions.SubmitQuery(id, "x"), ErrSessionNotFound)
	assert.ErrorIs(t, sessions.SetSortOrder(id, search.SortDescending), ErrSessionNotFound)
	assert.ErrorIs(t, sessions.Close(id), ErrSessionNotFound)
	_, err := sessions.StoreView(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func Test_Sessions_CloseForgetsSession(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})
	id, _, err := sessions.Open(context.Background())
	require.NoError(t, err)

	// when
	require.NoError(t, sessions.Close(id))

	// then
	_, err = sessions.Results(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func Test_Sessions_StoreDetailBeforeLoad(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})
	id, _, err := sessions.Open(context.Background())
	require.NoError(t, err)

	// when
	_, err = sessions.AddProduct(context.Background(), id, model.ProductDraft{Name: "Bulb", Price: "10"})

	// then
	assert.ErrorIs(t, err, apperrors.ErrStoreNotLoaded)
}

func Test_Sessions_MutationsPublishEvents(t *testing.T) {
	// given
	gw := newFakeGateway()
	pub := &recordingPublisher{}
	sessions := newTestSessions(gw, pub)
	ctx := context.Background()
	id, _, err := sessions.Open(ctx)
	require.NoError(t, err)
	view, err := sessions.LoadStore(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, view.Store.Products, 1)

	// when
	product, err := sessions.AddProduct(ctx, id, model.ProductDraft{Name: "Bulb", Price: "10"})
	require.NoError(t, err)
	require.NoError(t, sessions.DeleteProduct(ctx, id, 1))
	_, err = sessions.EditStore(ctx, id, model.StoreEdit{Name: "Renamed", Location: "x", Contact: "y"})
	require.NoError(t, err)
	_, err = sessions.SubmitFeedback(ctx, id, "great")
	require.NoError(t, err)
	require.NoError(t, sessions.EditProduct(ctx, id, product.ID, model.ProductDraft{}))

	// then
	assert.Equal(t, []string{
		messaging.ProductAddedSubject,
		messaging.ProductRemovedSubject,
		messaging.StoreEditedSubject,
		messaging.FeedbackSubmittedSubject,
	}, pub.subjects())
	added, ok := pub.events[0].(events.ProductAddedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), added.StoreID)
	assert.Equal(t, "10", added.Price)
	feedback, ok := pub.events[3].(events.FeedbackSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, 5, feedback.Stars)
}

// switchingGateway holds CreateProduct until release closes and serves a second store.
type switchingGateway struct {
	*fakeGateway
	started chan struct{}
	release chan struct{}
}

func (g *switchingGateway) FetchStore(ctx context.Context, storeID int64) (*model.Store, error) {
	if storeID == 2 {
		return &model.Store{ID: 2, Name: "Speedy Auto Repairs"}, nil
	}
	return g.fakeGateway.FetchStore(ctx, storeID)
}

func (g *switchingGateway) CreateProduct(ctx context.Context, storeID int64, p model.ProductCreate) (*model.Product, error) {
	close(g.started)
	<-g.release
	return g.fakeGateway.CreateProduct(ctx, storeID, p)
}

func Test_Sessions_EventKeepsIssuingStoreAfterSwitch(t *testing.T) {
	// given
	gw := &switchingGateway{fakeGateway: newFakeGateway(), started: make(chan struct{}), release: make(chan struct{})}
	pub := &recordingPublisher{}
	sessions := newTestSessions(gw, pub)
	ctx := context.Background()
	id, _, err := sessions.Open(ctx)
	require.NoError(t, err)
	_, err = sessions.LoadStore(ctx, id, 1)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := sessions.AddProduct(ctx, id, model.ProductDraft{Name: "Bulb", Price: "10"})
		done <- err
	}()
	<-gw.started

	// when
	view, err := sessions.LoadStore(ctx, id, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), view.Store.ID)
	close(gw.release)

	// then
	require.NoError(t, <-done)
	require.Equal(t, []string{messaging.ProductAddedSubject}, pub.subjects())
	added, ok := pub.events[0].(events.ProductAddedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), added.StoreID)
	after, err := sessions.StoreView(id)
	require.NoError(t, err)
	assert.Empty(t, after.Store.Products, "late confirmation does not touch the newly loaded store")
}

func Test_Sessions_FailedMutationPublishesNothing(t *testing.T) {
	// given
	gw := newFakeGateway()
	pub := &recordingPublisher{}
	sessions := newTestSessions(gw, pub)
	ctx := context.Background()
	id, _, err := sessions.Open(ctx)
	require.NoError(t, err)
	_, err = sessions.LoadStore(ctx, id, 1)
	require.NoError(t, err)
	gw.mu.Lock()
	gw.failing = true
	gw.mu.Unlock()

	// when
	err = sessions.DeleteProduct(ctx, id, 1)

	// then
	assert.ErrorIs(t, err, apperrors.ErrGateway)
	assert.Empty(t, pub.subjects())
	view, err := sessions.StoreView(id)
	require.NoError(t, err)
	assert.Len(t, view.Store.Products, 1)
}

func Test_Sessions_PublishFailureKeepsMutation(t *testing.T) {
	// given
	pub := &recordingPublisher{err: errors.New("broker down")}
	sessions := newTestSessions(newFakeGateway(), pub)
	ctx := context.Background()
	id, _, err := sessions.Open(ctx)
	require.NoError(t, err)
	_, err = sessions.LoadStore(ctx, id, 1)
	require.NoError(t, err)

	// when
	_, err = sessions.AddProduct(ctx, id, model.ProductDraft{Name: "Bulb", Price: "10"})

	// then
	require.NoError(t, err)
	view, err := sessions.StoreView(id)
	require.NoError(t, err)
	assert.Len(t, view.Store.Products, 2)
}

func Test_Sessions_LoadMissingStore(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})
	ctx := context.Background()
	id, _, err := sessions.Open(ctx)
	require.NoError(t, err)

	// when
	_, err = sessions.LoadStore(ctx, id, 42)

	// then
	assert.ErrorIs(t, err, apperrors.ErrStoreNotFound)
	_, err = sessions.StoreView(id)
	assert.ErrorIs(t, err, apperrors.ErrStoreNotLoaded)
	assert.ErrorIs(t, err, apperrors.ErrStoreNotFound)
}

func Test_Sessions_RegisterValidatesFirst(t *testing.T) {
	// given
	gw := newFakeGateway()
	sessions := newTestSessions(gw, messaging.NopPublisher{})

	// when
	_, err := sessions.Register(context.Background(), model.Registration{StoreName: "x"})
	msg, okErr := sessions.Register(context.Background(), model.Registration{
		StoreName: "Brake Masters", StoreType: "parts", ContactNumber: "+1555", Email: "o@b.example",
		Password: "secret1", Latitude: 6.9, Longitude: 79.8,
	})

	// then
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	require.NoError(t, okErr)
	assert.Equal(t, "Store registered successfully", msg)
	assert.Equal(t, 1, gw.calls)
}

func Test_Sessions_UploadImage(t *testing.T) {
	// given
	sessions := newTestSessions(newFakeGateway(), messaging.NopPublisher{})

	// when
	receipt, err := sessions.UploadImage(context.Background(), "a.png", strings.NewReader("png"))

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(3), receipt.Size)
}

func Test_Sessions_RefreshDirectory(t *testing.T) {
	// given
	gw := newFakeGateway()
	sessions := newTestSessions(gw, messaging.NopPublisher{})
	id, _, err := sessions.Open(context.Background())
	require.NoError(t, err)
	gw.mu.Lock()
	gw.store.Name = "Auto Parts Store Renamed"
	gw.mu.Unlock()

	// when
	err = sessions.RefreshDirectory(context.Background())

	// then
	require.NoError(t, err)
	res, err := sessions.Results(id)
	require.NoError(t, err)
	require.Len(t, res.Stores, 1)
	assert.Equal(t, "Auto Parts Store Renamed", res.Stores[0].Name)
}

func Test_Sessions_RefreshDirectoryCatalogDown(t *testing.T) {
	// given
	gw := newFakeGateway()
	sessions := newTestSessions(gw, messaging.NopPublisher{})
	id, _, err := sessions.Open(context.Background())
	require.NoError(t, err)
	gw.failing = true

	// when
	err = sessions.RefreshDirectory(context.Background())

	// then
	assert.ErrorIs(t, err, apperrors.ErrGateway)
	res, err := sessions.Results(id)
	require.NoError(t, err)
	assert.Equal(t, "Auto Parts Store 1", res.Stores[0].Name)
}
