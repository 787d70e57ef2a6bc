// Package model holds the catalog aggregate exchanged with the remote catalog service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sentiment is the classification attached to a feedback entry.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

// Store is the aggregate of one store: its fields, products and feedback.
// Rating is the store's published rating in [0,5].
type Store struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Location string     `json:"location"`
	Contact  string     `json:"contact"`
	Rating   float64    `json:"rating"`
	Products []Product  `json:"products"`
	Feedback []Feedback `json:"feedback"`
}

// Summary returns the store fields without products and feedback.
func (s Store) Summary() StoreSummary {
	return StoreSummary{ID: s.ID, Name: s.Name, Location: s.Location, Contact: s.Contact, Rating: s.Rating}
}

// Clone returns a copy that shares no slices with s.
func (s Store) Clone() Store {
	c := s
	c.Products = append([]Product(nil), s.Products...)
	c.Feedback = append([]Feedback(nil), s.Feedback...)
	return c
}

// StoreSummary is a store as shown in listings.
type StoreSummary struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Contact  string  `json:"contact"`
	Rating   float64 `json:"rating"`
}

// Product is a catalog entry. ID is unique within its store.
type Product struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	InStock bool            `json:"stock"`
}

// Feedback is a customer comment. Entries are never edited or removed once created.
type Feedback struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sentiment Sentiment `json:"sentiment"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductDraft is a product as typed in by the store owner, before the server assigns an id.
type ProductDraft struct {
	Name    string `json:"name"    validate:"required,max=100"`
	Price   string `json:"price"   validate:"required,numeric"`
	InStock bool   `json:"inStock"`
}

// ProductCreate is the body sent to create a product.
type ProductCreate struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock bool            `json:"stock"`
}

// StoreEdit carries the editable store fields. The catalog decides whether they are acceptable.
type StoreEdit struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Contact  string `json:"contact"`
}

// FeedbackDraft is the text of a feedback entry before classification.
type FeedbackDraft struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Registration is the sign-up form of a new store.
type Registration struct {
	StoreName        string  `json:"store_name"        validate:"required,max=100"`
	StoreType        string  `json:"store_type"        validate:"required,max=50"`
	StoreDescription string  `json:"store_description"`
	ContactNumber    string  `json:"contact_number"    validate:"required,max=15"`
	Email            string  `json:"email"             validate:"required,email"`
	Password         string  `json:"password"          validate:"required,min=6"`
	Latitude         float64 `json:"latitude"          validate:"required,latitude"`
	Longitude        float64 `json:"longitude"         validate:"required,longitude"`
}

// Listing is a product offered by a store, as matched by product search.
type Listing struct {
	Product
	Store StoreSummary `json:"store"`
}

// Directory is the searchable working set: every listed store and every product listing.
type Directory struct {
	Stores   []StoreSummary `json:"stores"`
	Products []Listing      `json:"products"`
}

// UploadReceipt is the catalog's acknowledgement of an uploaded image.
type UploadReceipt struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
