package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`
	Gateway struct {
		BaseURL string        `koanf:"baseurl"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"gateway"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_LoadFrom_YamlOnly(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlFile := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\ngateway:\n  baseurl: http://catalog:5001\n  timeout: 2s\n")

	// when
	cfg, err := LoadFrom[*testConfig]("loadertest", yamlFile, filepath.Join(dir, ".env"))

	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://catalog:5001", cfg.Gateway.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Gateway.Timeout)
}

func Test_LoadFrom_EnvOverridesFiles(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlFile := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\n")
	envFile := writeFile(t, dir, ".env", "LOADERTEST_GATEWAY_BASEURL=http://from-dotenv\nOTHER_SERVER_PORT=1\n")
	t.Setenv("LOADERTEST_SERVER_PORT", "9090")

	// when
	cfg, err := LoadFrom[*testConfig]("loadertest", yamlFile, envFile)

	// then
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://from-dotenv", cfg.Gateway.BaseURL)
}

func Test_LoadFrom_ValidationFails(t *testing.T) {
	// given
	dir := t.TempDir()

	// when
	_, err := LoadFrom[*testConfig]("loadertest", filepath.Join(dir, "missing.yaml"), filepath.Join(dir, ".env"))

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
