package service

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/config"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html></html>"), 0644))
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store:    config.StoreConfig{Dir: t.TempDir(), Backend: backend},
		Static:   config.StaticConfig{Dir: staticDir},
		Logger:   config.LoggerConfig{Level: "error", Format: "json"},
		Security: config.SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 100},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
}

func TestServerLifecycle(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			srv, err := NewServer(cfg, nil)
			require.NoError(t, err)

			addr, err := srv.Start()
			require.NoError(t, err)
			base := "http://" + addr

			resp, err := http.Get(base + "/health")
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"ok":true}`, string(body))

			resp, err = http.Post(base+"/api/posts", "application/json", strings.NewReader(`{"title":"Hi","body":"World"}`))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusCreated, resp.StatusCode)

			resp, err = http.Get(base + "/health/detailed")
			require.NoError(t, err)
			body, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.JSONEq(t, `{"ok":true,"store":{"backend":"`+backend+`","degraded":false}}`, string(body))

			require.NoError(t, srv.Stop(context.Background()))

			_, err = http.Get(base + "/health")
			assert.Error(t, err)
		})
	}
}

func TestServerCreatesStoreOnStartup(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	srv, err := NewServer(cfg, nil)
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	assert.FileExists(t, cfg.Store.PostsFile())
}

func TestServerStartFailsOnBusyPort(t *testing.T) {
	first, err := NewServer(testConfig(t, config.BackendFile), nil)
	require.NoError(t, err)
	addr, err := first.Start()
	require.NoError(t, err)
	defer first.Stop(context.Background())

	cfg := testConfig(t, config.BackendFile)
	host, port := splitAddr(t, addr)
	cfg.Server.Host = host
	cfg.Server.Port = port

	second, err := NewServer(cfg, nil)
	require.NoError(t, err)
	defer second.Stop(context.Background())
	_, err = second.Start()
	assert.Error(t, err)
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, err := OpenStore(config.StoreConfig{Dir: t.TempDir(), Backend: "sqlite"}, nil, nil)
	assert.Error(t, err)
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
