package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultDebounce = 300 * time.Millisecond

type SearchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// String returns a string representation of the SearchConfig.
func (c *SearchConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Search ---\n")
	b.WriteString(fmt.Sprintf("  debounce: %s\n", c.Debounce))
	return b.String()
}

// Validate falls back to the default quiet period when none is configured.
func (c *SearchConfig) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("search debounce must not be negative")
	}
	if c.Debounce == 0 {
		c.Debounce = defaultDebounce
	}
	return nil
}
