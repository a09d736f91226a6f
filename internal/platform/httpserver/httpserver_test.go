package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollgate/internal/platform/config"
)

func TestNewAppliesConfiguredTimeouts(t *testing.T) {
	cfg := config.Config{
		Addr: ":9090",
		HTTP: config.HTTPTimeouts{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 20 * time.Second,
			IdleTimeout:  45 * time.Second,
		},
	}
	mux := http.NewServeMux()

	srv := New(cfg, mux)
	require.NotNil(t, srv)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 20*time.Second, srv.WriteTimeout)
	assert.Equal(t, 45*time.Second, srv.IdleTimeout)
}
