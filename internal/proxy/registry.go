// Package proxy holds the known egress proxies and selects the active one.
// Refreshing the pool from an external list source is strictly best-effort:
// the engine must keep working on a direct connection when no proxy can be
// obtained.
package proxy

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blackvectorops/ytghost/internal/config"
	"go.uber.org/zap"
)

// Endpoint is a single egress proxy.
type Endpoint struct {
	Host     string
	Port     int
	Protocol string // defaults to "http"
	Username string
	Password string
}

// URL renders the endpoint in the form the browser's --proxy-server flag and
// the downloader expect.
func (e Endpoint) URL() string {
	scheme := e.Protocol
	if scheme == "" {
		scheme = "http"
	}
	if e.Username != "" && e.Password != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", scheme, e.Username, e.Password, e.Host, e.Port)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, e.Host, e.Port)
}

// Registry manages the proxy pool and the active selection. An empty pool is
// a valid state meaning "direct connection".
type Registry struct {
	cfg    config.ProxyConfig
	logger *zap.Logger
	client *http.Client

	mu      sync.Mutex
	pool    []Endpoint
	current *Endpoint
	rng     *rand.Rand
}

// NewRegistry seeds the pool from the static config list. Malformed seed
// entries are logged and dropped.
func NewRegistry(cfg config.ProxyConfig, logger *zap.Logger) *Registry {
	r := &Registry{
		cfg:    cfg,
		logger: logger.Named("proxy_registry"),
		client: &http.Client{Timeout: cfg.RefreshTimeout},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, raw := range cfg.Endpoints {
		ep, err := parseEndpoint(raw)
		if err != nil {
			r.logger.Warn("Dropping malformed proxy seed entry", zap.String("entry", raw), zap.Error(err))
			continue
		}
		r.pool = append(r.pool, ep)
	}
	return r
}

// Current returns the active endpoint, or nil for a direct connection.
func (r *Registry) Current() *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ShouldRefresh reports whether the pool is empty and a refresh source is
// configured.
func (r *Registry) ShouldRefresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool) == 0 && r.cfg.ListURL != ""
}

// Refresh fetches candidate endpoints from the configured list source. Every
// failure mode (timeout, non-200, malformed body) leaves the pool unchanged;
// proxy refresh is never fatal.
func (r *Registry) Refresh(ctx context.Context) {
	if r.cfg.ListURL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.ListURL, nil)
	if err != nil {
		r.logger.Debug("Proxy list request construction failed", zap.Error(err))
		return
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("Proxy list fetch failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("Proxy list source returned non-200", zap.Int("status", resp.StatusCode))
		return
	}

	var fetched []Endpoint
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if r.cfg.MaxFetched > 0 && len(fetched) >= r.cfg.MaxFetched {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ep, err := parseEndpoint(line)
		if err != nil {
			continue
		}
		fetched = append(fetched, ep)
	}
	if err := scanner.Err(); err != nil {
		r.logger.Debug("Proxy list read failed", zap.Error(err))
		return
	}
	if len(fetched) == 0 {
		return
	}

	r.mu.Lock()
	r.pool = append(r.pool, fetched...)
	r.mu.Unlock()
	r.logger.Info("Proxy pool refreshed", zap.Int("added", len(fetched)))
}

// Select draws a uniformly random endpoint from the pool and makes it the
// active one. With an empty pool the active endpoint is cleared, which means
// direct connection.
func (r *Registry) Select() *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) == 0 {
		r.current = nil
		return nil
	}
	ep := r.pool[r.rng.Intn(len(r.pool))]
	r.current = &ep
	return r.current
}

// PoolSize reports the number of known endpoints.
func (r *Registry) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}

func parseEndpoint(raw string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid host:port %q: %w", raw, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in %q", raw)
	}
	return Endpoint{Host: host, Port: port, Protocol: "http"}, nil
}
