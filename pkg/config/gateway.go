package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// GatewayConfig points the storefront at the remote catalog service.
type GatewayConfig struct {
	BaseURL        string               `koanf:"baseurl"`
	Timeout        time.Duration        `koanf:"timeout"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// String returns a string representation of the GatewayConfig.
func (c *GatewayConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Catalog Gateway ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

func (c *GatewayConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("catalog gateway base URL is not configured")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog gateway base URL is invalid: %s", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("catalog gateway timeout must not be negative")
	}
	return c.CircuitBreaker.Validate()
}
