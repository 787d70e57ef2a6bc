package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/abgdnv/partsfinder/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// serverStatusError reports a 5xx answer. It trips the breaker; 4xx answers do not.
type serverStatusError struct {
	code int
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("server answered %d", e.code)
}

// newCircuitBreaker creates the breaker guarding every round trip to the catalog.
// Transport failures and 5xx answers count as failures. A canceled caller does not.
func newCircuitBreaker(name string, cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	}
	return gobreaker.NewCircuitBreaker[*http.Response](st)
}

// roundTrip sends req through the breaker. A 5xx response is closed and reported as *serverStatusError.
func roundTrip(cb *gobreaker.CircuitBreaker[*http.Response], client *http.Client, req *http.Request) (*http.Response, error) {
	return cb.Execute(func() (*http.Response, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			return nil, &serverStatusError{code: resp.StatusCode}
		}
		return resp, nil
	})
}
