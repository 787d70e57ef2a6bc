// Package rest exposes the storefront sessions over HTTP.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/abgdnv/partsfinder/internal/errors"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/abgdnv/partsfinder/internal/search"
	"github.com/abgdnv/partsfinder/internal/storefront/service"
	"github.com/abgdnv/partsfinder/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MaxUploadBytes bounds the multipart body of an image upload.
const MaxUploadBytes = 10 << 20

const readinessTimeout = 2 * time.Second

type Handler struct {
	service service.SessionService
	checks  []ReadinessCheck
	logger  *slog.Logger
}

type queryRequest struct {
	Text string `json:"text"`
}

type sortRequest struct {
	Direction string `json:"direction"`
}

type feedbackRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	ID      uuid.UUID     `json:"id"`
	Results search.Result `json:"results"`
}

type resultsResponse struct {
	search.Result
	NoResults bool `json:"empty"`
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewHandler creates a new Handler with the provided service.
// Readiness always probes the catalog; extra checks are probed alongside it.
func NewHandler(service service.SessionService, logger *slog.Logger, extra ...ReadinessCheck) *Handler {
	checks := append([]ReadinessCheck{{Name: "catalog", Check: service.Ready}}, extra...)
	return &Handler{
		service: service,
		checks:  checks,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Delete("/", h.CloseSession)
			r.Put("/query", h.SubmitQuery)
			r.Put("/sort", h.SetSortOrder)
			r.Get("/results", h.Results)

			r.Route("/store", func(r chi.Router) {
				r.Post("/{storeId}", h.LoadStore)
				r.Get("/", h.StoreView)
				r.Put("/", h.EditStore)
				r.Post("/products", h.AddProduct)
				r.Put("/products/{pid}", h.EditProduct)
				r.Delete("/products/{pid}", h.DeleteProduct)
				r.Post("/feedback", h.SubmitFeedback)
			})
		})
	})
	r.Post("/api/v1/registrations", h.Register)
	r.Post("/api/v1/images", h.UploadImage)

	r.Get("/livez", h.Livez)
	r.Get("/readyz", h.Readyz)
}

// OpenSession creates a session showing the store listing.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, res, err := h.service.Open(r.Context())
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Session opened", "session_id", id)
	web.RespondJSON(w, mLogger, http.StatusCreated, sessionResponse{ID: id, Results: res})
}

// CloseSession closes a session and cancels its pending search.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.service.Close(sid); err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitQuery records the query text. The result is delivered after the debounce period.
func (h *Handler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	var req queryRequest
	if !web.DecodeJSON(w, r, mLogger, &req) {
		return
	}
	if err := h.service.SubmitQuery(sid, req.Text); err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// SetSortOrder changes the direction of the store listing.
func (h *Handler) SetSortOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	var req sortRequest
	if !web.DecodeJSON(w, r, mLogger, &req) {
		return
	}
	order, err := search.ParseSortOrder(req.Direction)
	if err != nil {
		web.RespondValidation(w, mLogger, map[string]string{"Direction": "failed on rule: oneof"})
		return
	}
	if err := h.service.SetSortOrder(sid, order); err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Results returns the last delivered search result.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	res, err := h.service.Results(sid)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, resultsResponse{Result: res, NoResults: res.Empty()})
}

// LoadStore opens the detail of a store in the session.
func (h *Handler) LoadStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	storeID, ok := web.ParseIntParam(w, r, mLogger, "storeId")
	if !ok {
		return
	}
	view, err := h.service.LoadStore(r.Context(), sid, storeID)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// StoreView returns the loaded store with its rating summary.
func (h *Handler) StoreView(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	view, err := h.service.StoreView(sid)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// EditStore updates name, location and contact of the loaded store.
func (h *Handler) EditStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	var edit model.StoreEdit
	if !web.DecodeJSON(w, r, mLogger, &edit) {
		return
	}
	view, err := h.service.EditStore(r.Context(), sid, edit)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// AddProduct adds a product to the loaded store.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	var draft model.ProductDraft
	if !web.DecodeJSON(w, r, mLogger, &draft) {
		return
	}
	product, err := h.service.AddProduct(r.Context(), sid, draft)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusCreated, product)
}

// EditProduct is accepted and ignored.
func (h *Handler) EditProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	pid, ok := web.ParseIntParam(w, r, mLogger, "pid")
	if !ok {
		return
	}
	var draft model.ProductDraft
	if !web.DecodeJSON(w, r, mLogger, &draft) {
		return
	}
	if err := h.service.EditProduct(r.Context(), sid, pid, draft); err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// DeleteProduct removes a product from the loaded store.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	pid, ok := web.ParseIntParam(w, r, mLogger, "pid")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), sid, pid); err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitFeedback posts a comment about the loaded store.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sid, ok := h.parseSessionID(w, r, mLogger)
	if !ok {
		return
	}
	var req feedbackRequest
	if !web.DecodeJSON(w, r, mLogger, &req) {
		return
	}
	fb, err := h.service.SubmitFeedback(r.Context(), sid, req.Text)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusCreated, fb)
}

// Register forwards a store sign-up to the catalog.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var reg model.Registration
	if !web.DecodeJSON(w, r, mLogger, &reg) {
		return
	}
	msg, err := h.service.Register(r.Context(), reg)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusCreated, map[string]string{"message": msg})
}

// UploadImage forwards the multipart field "image" to the catalog.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		mLogger.WarnContext(r.Context(), "Upload without image", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "No image provided")
		return
	}
	defer func() { _ = file.Close() }()

	receipt, err := h.service.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		h.respondError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusCreated, receipt)
}

// Livez reports that the process is up.
func (h *Handler) Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Readyz probes every dependency concurrently and answers 503 if any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		status = make(map[string]string, len(h.checks))
		g      errgroup.Group
	)
	for _, c := range h.checks {
		g.Go(func() error {
			err := c.Check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				mLogger.WarnContext(r.Context(), "Readiness check failed", "check", c.Name, "error", err)
				status[c.Name] = "unavailable"
				return err
			}
			status[c.Name] = "ok"
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		web.RespondJSON(w, mLogger, http.StatusServiceUnavailable, status)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, status)
}

// respondError maps the error taxonomy onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErr *apperrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.DebugContext(r.Context(), "Validation errors occurred", "errors", validationErr.Fields)
		web.RespondValidation(w, logger, validationErr.Fields)
	case errors.Is(err, apperrors.ErrValidation):
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		web.RespondError(w, logger, http.StatusNotFound, "Session not found")
	case errors.Is(err, apperrors.ErrStoreNotFound):
		logger.WarnContext(r.Context(), "Store not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Store not found")
	case errors.Is(err, apperrors.ErrStoreNotLoaded):
		web.RespondError(w, logger, http.StatusConflict, "No store is loaded in this session")
	case errors.Is(err, apperrors.ErrGateway):
		logger.WarnContext(r.Context(), "Catalog request failed", "error", err)
		web.RespondError(w, logger, http.StatusBadGateway, "Catalog request failed")
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal error")
	}
}

func (h *Handler) parseSessionID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "sid")
	id, err := uuid.Parse(raw)
	if err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid session id: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
