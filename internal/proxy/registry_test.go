// File: internal/proxy/registry_test.go
package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackvectorops/ytghost/internal/config"
)

func TestNewRegistryDropsMalformedSeeds(t *testing.T) {
	r := NewRegistry(config.ProxyConfig{
		Endpoints: []string{"10.0.0.1:8080", "not-a-proxy", "10.0.0.2:3128", ":99999", "10.0.0.3:0"},
	}, zaptest.NewLogger(t))

	assert.Equal(t, 2, r.PoolSize())
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://10.0.0.1:8080", Endpoint{Host: "10.0.0.1", Port: 8080}.URL())
	assert.Equal(t, "socks5://u:p@10.0.0.1:1080",
		Endpoint{Host: "10.0.0.1", Port: 1080, Protocol: "socks5", Username: "u", Password: "p"}.URL())
}

func TestRefreshAddsFetchedEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("10.1.1.1:8080\n\nbogus line\n10.1.1.2:8080\n10.1.1.3:8080\n"))
	}))
	defer srv.Close()

	r := NewRegistry(config.ProxyConfig{
		ListURL:        srv.URL,
		RefreshTimeout: 2 * time.Second,
		MaxFetched:     2,
	}, zaptest.NewLogger(t))
	require.True(t, r.ShouldRefresh())

	r.Refresh(context.Background())

	// MaxFetched caps the haul and the bogus line is skipped.
	assert.Equal(t, 2, r.PoolSize())
	assert.False(t, r.ShouldRefresh())
}

func TestRefreshFailuresLeavePoolUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewRegistry(config.ProxyConfig{
		Endpoints:      []string{"10.0.0.1:8080"},
		ListURL:        srv.URL,
		RefreshTimeout: 2 * time.Second,
	}, zaptest.NewLogger(t))

	r.Refresh(context.Background())
	assert.Equal(t, 1, r.PoolSize())

	// An unreachable source is equally non-fatal.
	r2 := NewRegistry(config.ProxyConfig{
		ListURL:        "http://127.0.0.1:1",
		RefreshTimeout: time.Second,
	}, zaptest.NewLogger(t))
	r2.Refresh(context.Background())
	assert.Zero(t, r2.PoolSize())
}

func TestSelectEmptyPoolMeansDirect(t *testing.T) {
	r := NewRegistry(config.ProxyConfig{}, zaptest.NewLogger(t))

	assert.Nil(t, r.Select())
	assert.Nil(t, r.Current())
}

func TestSelectDrawsFromPool(t *testing.T) {
	r := NewRegistry(config.ProxyConfig{
		Endpoints: []string{"10.0.0.1:8080", "10.0.0.2:8080"},
	}, zaptest.NewLogger(t))

	ep := r.Select()
	require.NotNil(t, ep)
	assert.Contains(t, []string{"10.0.0.1", "10.0.0.2"}, ep.Host)
	assert.Equal(t, ep, r.Current())
}
