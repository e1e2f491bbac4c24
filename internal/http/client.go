package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/rescale/imghub/internal/config"
)

// CreateUploadClient creates the HTTP client used for multipart submissions.
//
// It starts from ConfigureHTTPClient (proxy support) and then:
//   - enables HTTP/2 unless a proxy is active or DISABLE_HTTP2=true
//   - disables transport compression (image payloads are already compressed)
//   - clears the client-wide timeout; each submission carries its own deadline
//     through its context
//
// If cfg is nil, proxy settings are read from the environment.
func CreateUploadClient(cfg *config.Config) (*nethttp.Client, error) {
	var baseClient *nethttp.Client
	var err error

	if cfg != nil {
		baseClient, err = ConfigureHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		baseClient = &nethttp.Client{Transport: newTransport()}
		baseClient.Transport.(*nethttp.Transport).Proxy = nethttp.ProxyFromEnvironment
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport; leave it alone.
		baseClient.Timeout = 0
		return baseClient, nil
	}

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || (proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true") {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0
	return baseClient, nil
}

// proxyActive reports whether requests will go through a proxy.
// Config mode wins; environment variables only matter in "system" mode.
func proxyActive(cfg *config.Config) bool {
	envProxy := os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
		os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	if cfg == nil {
		return envProxy
	}
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return envProxy
	default:
		return true
	}
}
