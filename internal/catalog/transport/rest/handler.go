// Package rest provides the HTTP handlers of the catalog service.
package rest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	catalogerrors "github.com/abgdnv/partsfinder/internal/catalog/errors"
	"github.com/abgdnv/partsfinder/internal/catalog/service"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/abgdnv/partsfinder/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxUploadBytes bounds the multipart body of an image upload.
const MaxUploadBytes = 10 << 20

type Handler struct {
	service  service.CatalogService
	validate *validator.Validate
	logger   *slog.Logger
}

// storeEditRequest is the wire body of a store edit. Every field is required.
type storeEditRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=200"`
	Contact  string `json:"contact"  validate:"required,max=30"`
}

// productCreateRequest is the wire body of a product creation. Stock defaults to true.
type productCreateRequest struct {
	Name  string           `json:"name"  validate:"required,max=100"`
	Price *decimal.Decimal `json:"price" validate:"required"`
	Stock *bool            `json:"stock"`
}

// NewHandler creates a new Handler with the provided service.
func NewHandler(service service.CatalogService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the catalog service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/stores", h.Directory)
	r.Route("/store/{id}", func(r chi.Router) {
		r.Get("/", h.FindStore)
		r.Put("/", h.UpdateStore)
		r.Post("/products", h.AddProduct)
		r.Delete("/products/{pid}", h.DeleteProduct)
		r.Post("/feedback", h.SubmitFeedback)
	})
	r.Post("/register", h.Register)
	r.Post("/upload", h.Upload)

	r.Get("/healthz", h.HealthCheck)
}

// Directory returns all store summaries and product listings.
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dir, err := h.service.Directory(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving directory", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch stores")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved directory", "stores", len(dir.Stores), "products", len(dir.Products))
	web.RespondJSON(w, mLogger, http.StatusOK, dir)
}

// FindStore returns the aggregate of one store.
func (h *Handler) FindStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseIntParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	st, err := h.service.FindStore(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve store with ID %d", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, st)
}

// UpdateStore replaces name, location and contact of a store.
func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseIntParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	var req storeEditRequest
	if !web.DecodeJSON(w, r, mLogger, &req) || !h.validBody(w, r, mLogger, req) {
		return
	}
	edit := model.StoreEdit{Name: req.Name, Location: req.Location, Contact: req.Contact}
	st, err := h.service.UpdateStore(r.Context(), id, edit)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update store with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Store updated successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, st)
}

// AddProduct creates a product in a store.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseIntParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	var req productCreateRequest
	if !web.DecodeJSON(w, r, mLogger, &req) || !h.validBody(w, r, mLogger, req) {
		return
	}
	if req.Price.IsNegative() {
		web.RespondValidation(w, mLogger, map[string]string{"Price": "failed on rule: min"})
		return
	}
	create := model.ProductCreate{Name: req.Name, Price: *req.Price, Stock: true}
	if req.Stock != nil {
		create.Stock = *req.Stock
	}
	p, err := h.service.AddProduct(r.Context(), id, create)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "store_id", id, "ID", p.ID, "Name", p.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, p)
}

// DeleteProduct removes a product from a store.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseIntParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	pid, ok := web.ParseIntParam(w, r, mLogger, "pid")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id, pid); err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product with ID %d", pid))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "store_id", id, "ID", pid)
	w.WriteHeader(http.StatusNoContent)
}

// SubmitFeedback classifies and stores a customer comment.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseIntParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	var draft model.FeedbackDraft
	if !web.DecodeJSON(w, r, mLogger, &draft) {
		return
	}
	draft.Text = strings.TrimSpace(draft.Text)
	if !h.validBody(w, r, mLogger, draft) {
		return
	}
	fb, err := h.service.SubmitFeedback(r.Context(), id, draft.Text)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to submit feedback")
		return
	}
	mLogger.InfoContext(r.Context(), "Feedback stored", "store_id", id, "ID", fb.ID, "sentiment", fb.Sentiment)
	web.RespondJSON(w, mLogger, http.StatusCreated, fb)
}

// Register signs up a new store.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var reg model.Registration
	if !web.DecodeJSON(w, r, mLogger, &reg) || !h.validBody(w, r, mLogger, reg) {
		return
	}
	st, err := h.service.Register(r.Context(), reg)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrEmailTaken) {
			mLogger.WarnContext(r.Context(), "Registration rejected, email taken")
			web.RespondError(w, mLogger, http.StatusConflict, "Email already registered")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error registering store", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to register store")
		return
	}
	mLogger.InfoContext(r.Context(), "Store registered successfully", "ID", st.ID)
	web.RespondJSON(w, mLogger, http.StatusCreated, map[string]string{"message": "Store registered successfully"})
}

// Upload accepts one image in the multipart field "image". The content is not inspected.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		mLogger.WarnContext(r.Context(), "Upload without image", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "No image provided")
		return
	}
	defer func() { _ = file.Close() }()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error reading upload", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Failed to read image")
		return
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	mLogger.InfoContext(r.Context(), "Image uploaded", "filename", name, "size", size)
	web.RespondJSON(w, mLogger, http.StatusCreated, model.UploadReceipt{
		Message:  "Image uploaded successfully",
		Filename: name,
		Size:     size,
	})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// validBody runs the struct validation and answers 400 with the failed rules.
func (h *Handler) validBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, body any) bool {
	err := h.validate.Struct(body)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondValidation(w, logger, errorResponse)
		return false
	}
	logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
	return false
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, catalogerrors.ErrStoreNotFound):
		logger.WarnContext(r.Context(), "Store not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Store not found")
	case errors.Is(err, catalogerrors.ErrProductNotFound):
		logger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Product not found")
	default:
		logger.ErrorContext(r.Context(), fallback, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, fallback)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
