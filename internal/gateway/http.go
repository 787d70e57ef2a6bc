package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/abgdnv/partsfinder/internal/errors"
	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/abgdnv/partsfinder/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 4 << 10

// HTTPClient implements CatalogGateway over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
}

// NewHTTPClient creates a gateway client for cfg.BaseURL.
// Round trips are traced with otelhttp and guarded by a circuit breaker.
func NewHTTPClient(cfg config.GatewayConfig, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: newCircuitBreaker("catalog-gateway-cb", cfg.CircuitBreaker),
		logger:  logger.With("component", "gateway"),
	}
}

// request describes one call. notFound, when set, becomes the Err of a 404 GatewayError.
type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	notFound    error
}

func jsonRequest(op, method, path string, body any) (request, error) {
	r := request{op: op, method: method, path: path}
	if body == nil {
		return r, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return r, &apperrors.GatewayError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}
	r.body = bytes.NewReader(data)
	r.contentType = "application/json"
	return r, nil
}

// do sends r and decodes a 2xx JSON body into out, when out is not nil.
func (c *HTTPClient) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return &apperrors.GatewayError{Op: r.op, Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := roundTrip(c.breaker, c.client, req)
	if err != nil {
		var statusErr *serverStatusError
		if errors.As(err, &statusErr) {
			c.logger.WarnContext(ctx, "Catalog call failed", "op", r.op, "status", statusErr.code)
			return &apperrors.GatewayError{Op: r.op, StatusCode: statusErr.code}
		}
		c.logger.WarnContext(ctx, "Catalog call failed", "op", r.op, "error", err)
		return &apperrors.GatewayError{Op: r.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "Catalog call rejected",
			"op", r.op, "status", resp.StatusCode, "body", string(detail))
		gwErr := &apperrors.GatewayError{Op: r.op, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound && r.notFound != nil {
			gwErr.Err = r.notFound
		}
		return gwErr
	}
	c.logger.DebugContext(ctx, "Catalog call succeeded",
		"op", r.op, "status", resp.StatusCode, "duration", time.Since(start))

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperrors.GatewayError{Op: r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func storePath(storeID int64) string {
	return fmt.Sprintf("/store/%d", storeID)
}

func (c *HTTPClient) FetchStore(ctx context.Context, storeID int64) (*model.Store, error) {
	r, _ := jsonRequest("fetchStore", http.MethodGet, storePath(storeID), nil)
	r.notFound = apperrors.ErrStoreNotFound
	var store model.Store
	if err := c.do(ctx, r, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

func (c *HTTPClient) CreateProduct(ctx context.Context, storeID int64, product model.ProductCreate) (*model.Product, error) {
	r, err := jsonRequest("createProduct", http.MethodPost, storePath(storeID)+"/products", product)
	if err != nil {
		return nil, err
	}
	r.notFound = apperrors.ErrStoreNotFound
	var created model.Product
	if err := c.do(ctx, r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPClient) DeleteProduct(ctx context.Context, storeID, productID int64) error {
	r, _ := jsonRequest("deleteProduct", http.MethodDelete, fmt.Sprintf("%s/products/%d", storePath(storeID), productID), nil)
	return c.do(ctx, r, nil)
}

func (c *HTTPClient) UpdateStore(ctx context.Context, storeID int64, edit model.StoreEdit) (*model.Store, error) {
	r, err := jsonRequest("updateStore", http.MethodPut, storePath(storeID), edit)
	if err != nil {
		return nil, err
	}
	r.notFound = apperrors.ErrStoreNotFound
	var store model.Store
	if err := c.do(ctx, r, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

func (c *HTTPClient) SubmitFeedback(ctx context.Context, storeID int64, text string) (*model.Feedback, error) {
	r, err := jsonRequest("submitFeedback", http.MethodPost, storePath(storeID)+"/feedback", model.FeedbackDraft{Text: text})
	if err != nil {
		return nil, err
	}
	r.notFound = apperrors.ErrStoreNotFound
	var feedback model.Feedback
	if err := c.do(ctx, r, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (c *HTTPClient) FetchDirectory(ctx context.Context) (*model.Directory, error) {
	r, _ := jsonRequest("fetchDirectory", http.MethodGet, "/stores", nil)
	var dir model.Directory
	if err := c.do(ctx, r, &dir); err != nil {
		return nil, err
	}
	return &dir, nil
}

func (c *HTTPClient) RegisterStore(ctx context.Context, reg model.Registration) (string, error) {
	r, err := jsonRequest("registerStore", http.MethodPost, "/register", reg)
	if err != nil {
		return "", err
	}
	var ack struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, r, &ack); err != nil {
		return "", err
	}
	return ack.Message, nil
}

func (c *HTTPClient) UploadImage(ctx context.Context, filename string, image io.Reader) (*model.UploadReceipt, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, &apperrors.GatewayError{Op: "uploadImage", Err: err}
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, &apperrors.GatewayError{Op: "uploadImage", Err: fmt.Errorf("read image: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &apperrors.GatewayError{Op: "uploadImage", Err: err}
	}
	r := request{
		op:          "uploadImage",
		method:      http.MethodPost,
		path:        "/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}
	var receipt model.UploadReceipt
	if err := c.do(ctx, r, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	r, _ := jsonRequest("ping", http.MethodGet, "/healthz", nil)
	return c.do(ctx, r, nil)
}

