package httpclient

import (
	"net/http"
	"sync"
	"time"
)

// HTTPClientPool manages a pool of HTTP clients for outbound provider calls
type HTTPClientPool struct {
	clients chan *http.Client
	factory func() *http.Client
	mu      sync.RWMutex
	closed  bool
}

// NewHTTPClientPool creates a new HTTP client pool
func NewHTTPClientPool(maxClients int) *HTTPClientPool {
	pool := &HTTPClientPool{
		clients: make(chan *http.Client, maxClients),
		factory: newProviderHTTPClient,
	}

	for i := 0; i < maxClients; i++ {
		pool.clients <- pool.factory()
	}

	return pool
}

// newProviderHTTPClient creates an HTTP client with a bounded timeout. SMS
// provider calls must never block a request past this deadline.
func newProviderHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Get retrieves an HTTP client from the pool
func (p *HTTPClientPool) Get() *http.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return p.factory()
	}

	select {
	case client := <-p.clients:
		return client
	default:
		return p.factory()
	}
}

// Put returns an HTTP client to the pool
func (p *HTTPClientPool) Put(client *http.Client) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.clients <- client:
	default:
	}
}

// Close closes the pool and cleans up resources
func (p *HTTPClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	close(p.clients)
}

// Global pool instance
var (
	globalPool *HTTPClientPool
	once       sync.Once
)

// GetGlobalPool returns the global HTTP client pool
func GetGlobalPool() *HTTPClientPool {
	once.Do(func() {
		globalPool = NewHTTPClientPool(20)
	})
	return globalPool
}
