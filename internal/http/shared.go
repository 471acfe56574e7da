package http

import (
	nethttp "net/http"
	"sync"
)

// Process-wide transfer client. Providers, SDK constructors and the REST
// layer all share one pool so connections are reused across batch items.
var (
	sharedClient *nethttp.Client
	sharedMu     sync.Mutex
)

// GetClient returns the shared outbound client, building one from the
// environment (HTTP_PROXY et al.) on first use when SetClient was never
// called.
func GetClient() *nethttp.Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient == nil {
		c, err := CreateOptimizedClient(nil)
		if err != nil {
			c = &nethttp.Client{}
		}
		sharedClient = c
	}
	return sharedClient
}

// SetClient installs the shared client. The CLI calls this once after the
// config (proxy mode, credentials) is loaded, before any transfer starts.
func SetClient(c *nethttp.Client) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedClient = c
}
