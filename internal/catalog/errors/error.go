// Package errors provides the errors of the catalog service.
package errors

import "errors"

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmailTaken      = errors.New("email already registered")
)
