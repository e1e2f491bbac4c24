package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http/httpproxy"

	"github.com/rescale/imghub/internal/config"
	"github.com/rescale/imghub/internal/constants"
)

// ConfigureHTTPClient builds a client for cfg's proxy mode:
//   - no-proxy: direct connections, environment proxies ignored
//   - system: HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment
//   - basic: the configured proxy, credentials embedded in the proxy URL
//   - ntlm: the configured proxy behind an NTLM negotiator
//
// A basic or NTLM mode without a host falls back to direct connections so a
// half-written config can still reach a local endpoint.
func ConfigureHTTPClient(cfg *config.Config) (*nethttp.Client, error) {
	transport := newTransport()
	mode := strings.ToLower(cfg.ProxyMode)

	var rt nethttp.RoundTripper = transport
	switch mode {
	case "no-proxy", "":
		transport.Proxy = nil
		return newClient(transport), nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "basic", "ntlm":
		if cfg.ProxyHost == "" {
			log.Warn().Str("mode", mode).Msg("Proxy host is missing, connecting directly")
			return newClient(transport), nil
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		if cfg.ProxyUser != "" && cfg.ProxyPassword == "" {
			log.Warn().Str("user", cfg.ProxyUser).Msg("Proxy password is missing, proxy auth disabled")
		}
		if mode == "ntlm" {
			rt = ntlmssp.Negotiator{RoundTripper: transport}
		}

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	client := newClient(rt)
	if err := maybeWarmup(client, cfg); err != nil {
		return nil, err
	}
	return client, nil
}

func newClient(rt nethttp.RoundTripper) *nethttp.Client {
	return &nethttp.Client{Transport: rt, Timeout: constants.HTTPClientTimeout}
}

func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}

// buildProxyURL constructs a proxy URL from config
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, port),
	}

	// Empty password in URL can cause auth failures with some proxies
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyURL
}

func maybeWarmup(client *nethttp.Client, cfg *config.Config) error {
	if !cfg.ProxyWarmup {
		return nil
	}
	if (cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm") && (cfg.ProxyUser == "" || cfg.ProxyPassword == "") {
		return nil
	}
	if err := warmupProxy(client, cfg); err != nil {
		return fmt.Errorf("proxy warmup failed: %w", err)
	}
	return nil
}

// warmupProxy opens the proxy tunnel with a HEAD to the upload base URL so
// NTLM negotiation does not happen on the first multipart body.
func warmupProxy(client *nethttp.Client, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ProxyWarmupTimeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodHead, cfg.UploadBaseURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("warmup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("warmup request returned server error: %d", resp.StatusCode)
	}

	return nil
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// If noProxy is empty, behaves identically to nethttp.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	pc := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := pc.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}

// NeedsProxyPassword returns true if the proxy configuration requires a password
// but one has not been provided. Used by the CLI to decide whether to prompt.
func NeedsProxyPassword(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
}
