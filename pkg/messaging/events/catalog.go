// Package events contains the domain events emitted after confirmed catalog mutations.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/partsfinder/pkg/messaging"
)

type ProductAddedEvent struct {
	StoreID    int64     `json:"store_id"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	InStock    bool      `json:"in_stock"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ProductAddedEvent) Subject() string { return messaging.ProductAddedSubject }

func (e ProductAddedEvent) Payload() ([]byte, error) { return json.Marshal(e) }

type ProductRemovedEvent struct {
	StoreID    int64     `json:"store_id"`
	ProductID  int64     `json:"product_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ProductRemovedEvent) Subject() string { return messaging.ProductRemovedSubject }

func (e ProductRemovedEvent) Payload() ([]byte, error) { return json.Marshal(e) }

type StoreEditedEvent struct {
	StoreID    int64     `json:"store_id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Contact    string    `json:"contact"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e StoreEditedEvent) Subject() string { return messaging.StoreEditedSubject }

func (e StoreEditedEvent) Payload() ([]byte, error) { return json.Marshal(e) }

type FeedbackSubmittedEvent struct {
	StoreID    int64     `json:"store_id"`
	FeedbackID int64     `json:"feedback_id"`
	Sentiment  string    `json:"sentiment"`
	Stars      int       `json:"stars"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e FeedbackSubmittedEvent) Subject() string { return messaging.FeedbackSubmittedSubject }

func (e FeedbackSubmittedEvent) Payload() ([]byte, error) { return json.Marshal(e) }
