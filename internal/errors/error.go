// Package errors provides the error taxonomy of the catalog client.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks a local precondition failure. No network call was made.
var ErrValidation = errors.New("validation failed")

// ErrGateway marks a non-2xx response or a transport failure of the catalog service.
var ErrGateway = errors.New("catalog gateway request failed")

// ErrStoreNotFound is matched by a gateway failure caused by a missing store,
// and by a successful fetch that returned no usable store.
var ErrStoreNotFound = errors.New("store not found")

// ErrStoreNotLoaded is returned by mutations issued before a store snapshot exists.
var ErrStoreNotLoaded = errors.New("store is not loaded")

// ValidationError lists the failed rule per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError converts the error returned by validator.Struct.
func NewValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return &ValidationError{Fields: fields}
}

// GatewayError describes a failed catalog call. StatusCode is zero for transport failures.
// Err is ErrStoreNotFound when the service answered 404 for a store.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: status %d: %v", ErrGateway, e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: status %d", ErrGateway, e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s: %v", ErrGateway, e.Op, e.Err)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }
