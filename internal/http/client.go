// Package http provides the shared outbound HTTP layer: a pooled transport
// tuned for large media payloads, proxy support (system, basic, NTLM), and a
// classify-and-backoff retry executor used around provider calls.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/mediasink/mediasink/internal/config"
	"github.com/mediasink/mediasink/internal/constants"
)

// CreateOptimizedClient creates an HTTP client for large file transfers with
// proxy support.
//
// Key features:
//   - Proxy support (uses ConfigureHTTPClient as base)
//   - Large connection pool for repeated per-item calls
//   - No overall timeout; operations set their own via context
//   - HTTP/2 with a runtime toggle (DISABLE_HTTP2 env var)
//   - Disabled compression (media payloads are already compressed)
//
// The same client is shared between upload and download paths. If cfg is
// nil, proxy settings come from the environment (HTTP_PROXY, HTTPS_PROXY,
// NO_PROXY).
func CreateOptimizedClient(cfg *config.Config) (*nethttp.Client, error) {
	var baseClient *nethttp.Client
	var err error

	if cfg != nil {
		baseClient, err = ConfigureHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		baseClient = &nethttp.Client{
			Transport: &nethttp.Transport{
				Proxy: nethttp.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   constants.HTTPDialTimeout,
					KeepAlive: constants.HTTPDialKeepAlive,
				}).DialContext,
			},
		}
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// Transport wrapped by the NTLM negotiator; the pool settings can't
		// be applied through the wrapper. Clear the timeout and use as-is.
		baseClient.Timeout = 0
		return baseClient, nil
	}

	// Connection pooling sized for several concurrent provider endpoints.
	tr.MaxIdleConns = 512
	tr.MaxIdleConnsPerHost = 100
	tr.MaxConnsPerHost = 100
	tr.IdleConnTimeout = constants.HTTPIdleConnTimeout

	tr.TLSHandshakeTimeout = constants.HTTPTLSHandshakeTimeout
	tr.ExpectContinueTimeout = constants.HTTPExpectContinueTimeout

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	// Runtime toggle: DISABLE_HTTP2=true forces HTTP/1.1.
	if os.Getenv("DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	// Proxies often mishandle HTTP/2 multiplexing mid-transfer, so HTTP/2 is
	// disabled whenever a proxy is active. Trust the configured mode first;
	// only consult env vars for "system" mode or when no config was given.
	var proxyActive bool
	if cfg != nil {
		switch cfg.Proxy.Mode {
		case "no-proxy", "":
			proxyActive = false
		case "system":
			proxyActive = os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
				os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
		default:
			proxyActive = true
		}
	} else {
		proxyActive = os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	}

	// FORCE_HTTP2=true keeps HTTP/2 on even through a proxy.
	if proxyActive && os.Getenv("FORCE_HTTP2") != "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0

	return baseClient, nil
}
