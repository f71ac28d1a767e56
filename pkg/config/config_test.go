package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "redmine.yaml", `
server:
  url: https://redmine.example.com
  api_key: abc123
  format: xml
  timeout: 10s
pagination:
  page_size: 100
  max_concurrency: 5
redis:
  addr: localhost:6379
  db: 2
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://redmine.example.com", cfg.Server.URL)
	assert.Equal(t, "abc123", cfg.Server.APIKey)
	assert.Equal(t, "xml", cfg.Server.Format)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 100, cfg.Pagination.PageSize)
	assert.Equal(t, 5, cfg.Pagination.MaxConcurrency)
	assert.Equal(t, "console", cfg.Log.Format)

	opts := cfg.RedisOptions()
	require.NotNil(t, opts)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "redmine.json", `{"server": {"url": "http://localhost:3000"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Server.Format)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.NotEmpty(t, cfg.Server.UserAgent)
	assert.Equal(t, 25, cfg.Pagination.PageSize)
	assert.Equal(t, 3, cfg.Pagination.MaxConcurrency)
	assert.Equal(t, "info", string(cfg.Log.Level))
	assert.Nil(t, cfg.RedisOptions())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDMINE_SERVER_URL", "https://env.example.com")
	t.Setenv("REDMINE_SERVER_API_KEY", "from-env")
	t.Setenv("REDMINE_PAGINATION_PAGE_SIZE", "50")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.URL)
	assert.Equal(t, "from-env", cfg.Server.APIKey)
	assert.Equal(t, 50, cfg.Pagination.PageSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing url", content: `server: {format: json}`},
		{name: "bad format", content: "server: {url: 'http://x.example', format: yaml}"},
		{name: "page size above redmine cap", content: "server: {url: 'http://x.example'}\npagination: {page_size: 500}"},
		{name: "zero concurrency", content: "server: {url: 'http://x.example'}\npagination: {max_concurrency: 0}"},
		{name: "bad log level", content: "server: {url: 'http://x.example'}\nlog: {level: loud}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "redmine.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestProjections(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			URL:        "https://redmine.example.com",
			APIKey:     "k",
			SwitchUser: "jsmith",
			Format:     "json",
			UserAgent:  "ua",
			Timeout:    time.Second,
		},
		Pagination: PaginationConfig{PageSize: 40, MaxConcurrency: 2, PageTimeout: 5 * time.Second},
	}

	clientCfg := cfg.ClientConfig(nil)
	assert.Equal(t, "https://redmine.example.com", clientCfg.BaseURL)
	assert.Equal(t, "jsmith", clientCfg.SwitchUser)
	assert.Nil(t, clientCfg.Redis)

	pagingCfg := cfg.PaginationConfig()
	assert.Equal(t, 40, pagingCfg.PageSize)
	assert.Equal(t, 2, pagingCfg.MaxConcurrency)
	assert.Equal(t, 5*time.Second, pagingCfg.Timeout)
}
