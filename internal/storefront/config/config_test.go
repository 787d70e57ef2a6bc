package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/partsfinder/pkg/config/configloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Config_LoadsShippedYAML(t *testing.T) {
	// given
	path := filepath.Join("..", "..", "..", "cmd", "storefront", "config.yaml")
	_, err := os.Stat(path)
	require.NoError(t, err)

	// when
	cfg, err := configloader.LoadFrom[*Config]("storefront", path, filepath.Join(t.TempDir(), ".env"))

	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPServer.Port)
	assert.Equal(t, "http://localhost:5001", cfg.Gateway.BaseURL)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, uint32(5), cfg.Gateway.CircuitBreaker.ConsecutiveFailures)
	assert.False(t, cfg.NATS.Enabled)
	assert.Contains(t, cfg.String(), "baseurl: http://localhost:5001")
}

func Test_Config_ValidateRejectsMissingGateway(t *testing.T) {
	// given
	cfg := &Config{}
	cfg.HTTPServer.Port = 8080
	cfg.HTTPServer.Timeout.Read = time.Second
	cfg.HTTPServer.Timeout.Write = time.Second
	cfg.HTTPServer.Timeout.Idle = time.Second
	cfg.HTTPServer.Timeout.ReadHeader = time.Second

	// when
	err := cfg.Validate()

	// then
	assert.ErrorContains(t, err, "base URL")
}
