// Package messaging defines the domain event contract and the publisher abstraction.
package messaging

import (
	"context"
)

const (
	CatalogSubjects          = "catalog.>"
	ProductAddedSubject      = "catalog.product.added"
	ProductRemovedSubject    = "catalog.product.removed"
	StoreEditedSubject       = "catalog.store.edited"
	FeedbackSubmittedSubject = "catalog.feedback.submitted"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
