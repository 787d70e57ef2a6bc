// Package search selects the stores or products to display for a query.
//
// A non-empty query runs the product pipeline: a case-insensitive substring
// match on product names, evaluated only after the caller has been quiet for
// the debounce period. An empty query runs the store pipeline instead: stores
// rated at least MinListedRating, stably sorted by rating.
package search

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/abgdnv/partsfinder/internal/model"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	MinListedRating = 3.0
)

// SortOrder is the direction of the store listing.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder accepts "asc" or "desc".
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortAscending, SortDescending:
		return SortOrder(s), nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Mode tells which pipeline produced a Result.
type Mode string

const (
	ModeStores   Mode = "stores"
	ModeProducts Mode = "products"
)

// Result is one delivered evaluation. Exactly one of Stores and Products is meaningful, depending on Mode.
type Result struct {
	Mode     Mode                 `json:"mode"`
	Query    string               `json:"query"`
	Order    SortOrder            `json:"order"`
	Stores   []model.StoreSummary `json:"stores"`
	Products []model.Listing      `json:"products"`
}

// Empty reports whether there is nothing to show ("no results").
func (r Result) Empty() bool {
	if r.Mode == ModeProducts {
		return len(r.Products) == 0
	}
	return len(r.Stores) == 0
}

type Option func(*Index)

// WithDebounce sets the quiet period that must elapse before a query is evaluated.
func WithDebounce(d time.Duration) Option {
	return func(ix *Index) { ix.debounce = d }
}

// WithListener registers a callback receiving every delivered Result, in delivery order.
// It runs while the Index is locked and must not call back into the Index.
func WithListener(fn func(Result)) Option {
	return func(ix *Index) { ix.listener = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) { ix.logger = logger }
}

// Index holds the working set and at most one pending evaluation.
type Index struct {
	mu       sync.Mutex
	debounce time.Duration
	listener func(Result)
	logger   *slog.Logger

	stores   []model.StoreSummary
	listings []model.Listing
	query    string
	order    SortOrder
	current  Result
	pending  *time.Timer
	armed    uint64
	closed   bool
}

// NewIndex creates an Index showing the ascending store listing of the given working set.
func NewIndex(dir model.Directory, opts ...Option) *Index {
	ix := &Index{
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		order:    SortAscending,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = ix.logger.With("component", "search")
	ix.stores = slices.Clone(dir.Stores)
	ix.listings = slices.Clone(dir.Products)
	ix.current = ix.listStoresLocked()
	return ix
}

// SubmitQuery records the latest query text.
// A non-empty text (re)arms the debounce task: any pending evaluation is canceled
// and only the text present when the quiet period ends is evaluated.
// An empty text cancels any pending evaluation and switches to the store listing at once.
func (ix *Index) SubmitQuery(text string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return
	}
	ix.query = text
	ix.cancelLocked()
	if text == "" {
		ix.deliverLocked(ix.listStoresLocked())
		return
	}
	ix.armed++
	seq := ix.armed
	ix.pending = time.AfterFunc(ix.debounce, func() { ix.fire(seq) })
}

// SetSortOrder changes the store listing direction. The product pipeline is unaffected.
func (ix *Index) SetSortOrder(order SortOrder) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return
	}
	ix.order = order
	if ix.query == "" {
		ix.deliverLocked(ix.listStoresLocked())
	}
}

// SetWorkingSet replaces the stores and listings searched over.
// The store listing is refreshed right away when it is the active pipeline.
func (ix *Index) SetWorkingSet(dir model.Directory) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.stores = slices.Clone(dir.Stores)
	ix.listings = slices.Clone(dir.Products)
	if !ix.closed && ix.query == "" {
		ix.deliverLocked(ix.listStoresLocked())
	}
}

// Current returns the last delivered Result.
func (ix *Index) Current() Result {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.current
}

// Pending reports whether an evaluation is armed and has not fired yet.
func (ix *Index) Pending() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.pending != nil
}

// Close cancels the pending evaluation. Later calls are ignored.
func (ix *Index) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cancelLocked()
	ix.closed = true
}

// fire runs the evaluation armed as seq, unless a later call superseded it.
func (ix *Index) fire(seq uint64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed || ix.pending == nil || seq != ix.armed {
		return
	}
	ix.pending = nil
	ix.deliverLocked(ix.searchProductsLocked(ix.query))
}

func (ix *Index) cancelLocked() {
	if ix.pending != nil {
		ix.pending.Stop()
		ix.pending = nil
	}
}

func (ix *Index) deliverLocked(res Result) {
	ix.current = res
	ix.logger.Debug("Search evaluated", "mode", res.Mode, "query", res.Query, "empty", res.Empty())
	if ix.listener != nil {
		ix.listener(res)
	}
}

func (ix *Index) searchProductsLocked(query string) Result {
	needle := strings.ToLower(query)
	matches := make([]model.Listing, 0)
	for _, l := range ix.listings {
		if strings.Contains(strings.ToLower(l.Name), needle) {
			matches = append(matches, l)
		}
	}
	return Result{Mode: ModeProducts, Query: query, Order: ix.order, Products: matches}
}

func (ix *Index) listStoresLocked() Result {
	return Result{Mode: ModeStores, Order: ix.order, Stores: ListStores(ix.stores, ix.order)}
}

// ListStores keeps the stores rated at least MinListedRating and sorts them by rating.
// Stores with equal ratings keep their relative order in both directions.
func ListStores(stores []model.StoreSummary, order SortOrder) []model.StoreSummary {
	listed := make([]model.StoreSummary, 0, len(stores))
	for _, s := range stores {
		if s.Rating >= MinListedRating {
			listed = append(listed, s)
		}
	}
	slices.SortStableFunc(listed, func(a, b model.StoreSummary) int {
		if order == SortDescending {
			return cmp.Compare(b.Rating, a.Rating)
		}
		return cmp.Compare(a.Rating, b.Rating)
	})
	return listed
}
