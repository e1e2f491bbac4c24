package http

import (
	nethttp "net/http"
	"net/url"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/rescale/imghub/internal/config"
)

func proxyConfig(mode, host string) *config.Config {
	cfg := config.NewConfig()
	cfg.ProxyMode = mode
	cfg.ProxyHost = host
	cfg.ProxyPort = 3128
	return cfg
}

func TestConfigureHTTPClientModes(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantProxy bool
		wantNTLM  bool
	}{
		{"no-proxy", proxyConfig("no-proxy", ""), false, false},
		{"empty mode", proxyConfig("", ""), false, false},
		{"basic", proxyConfig("basic", "proxy.corp"), true, false},
		{"basic without host falls back", proxyConfig("basic", ""), false, false},
		{"ntlm", proxyConfig("ntlm", "proxy.corp"), true, true},
		{"ntlm without host falls back", proxyConfig("ntlm", ""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := ConfigureHTTPClient(tt.cfg)
			if err != nil {
				t.Fatalf("ConfigureHTTPClient failed: %v", err)
			}

			var tr *nethttp.Transport
			switch rt := client.Transport.(type) {
			case ntlmssp.Negotiator:
				if !tt.wantNTLM {
					t.Fatal("unexpected NTLM negotiator")
				}
				tr = rt.RoundTripper.(*nethttp.Transport)
			case *nethttp.Transport:
				if tt.wantNTLM {
					t.Fatal("expected NTLM negotiator")
				}
				tr = rt
			default:
				t.Fatalf("unexpected transport %T", rt)
			}

			if tr.TLSClientConfig == nil || tr.TLSClientConfig.MinVersion == 0 {
				t.Error("transport should pin a minimum TLS version")
			}
			if !tt.wantProxy {
				if tr.Proxy != nil {
					t.Error("expected a direct transport")
				}
				return
			}
			req, _ := nethttp.NewRequest(nethttp.MethodPost, "https://analysis.example.com/api/upload", nil)
			u, err := tr.Proxy(req)
			if err != nil || u == nil || u.Host != "proxy.corp:3128" {
				t.Errorf("proxy for request = %v, %v; want proxy.corp:3128", u, err)
			}
		})
	}
}

func TestConfigureHTTPClientUnsupportedMode(t *testing.T) {
	if _, err := ConfigureHTTPClient(proxyConfig("socks", "proxy.corp")); err == nil {
		t.Error("expected error for unsupported proxy mode")
	}
}

func TestBuildProxyURL(t *testing.T) {
	cfg := proxyConfig("basic", "proxy.corp")
	cfg.ProxyPort = 0
	cfg.ProxyUser = "alice"

	u := buildProxyURL(cfg)
	if u.Host != "proxy.corp:8080" {
		t.Errorf("Host = %s, want default port 8080", u.Host)
	}
	if u.User != nil {
		t.Error("credentials without a password should not be embedded")
	}

	cfg.ProxyPassword = "pw"
	u = buildProxyURL(cfg)
	if pw, ok := u.User.Password(); !ok || pw != "pw" || u.User.Username() != "alice" {
		t.Errorf("User = %v, want alice:pw", u.User)
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		mode, user, password string
		want                 bool
	}{
		{"basic", "alice", "", true},
		{"NTLM", "alice", "", true},
		{"basic", "alice", "pw", false},
		{"basic", "", "", false},
		{"system", "alice", "", false},
		{"no-proxy", "alice", "", false},
	}
	for _, tt := range tests {
		cfg := proxyConfig(tt.mode, "proxy.corp")
		cfg.ProxyUser = tt.user
		cfg.ProxyPassword = tt.password
		if got := NeedsProxyPassword(cfg); got != tt.want {
			t.Errorf("NeedsProxyPassword(%s, %q, %q) = %v, want %v", tt.mode, tt.user, tt.password, got, tt.want)
		}
	}
}

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name       string
		noProxy    string
		target     string
		wantBypass bool
	}{
		{"empty list proxies everything", "", "https://analysis.example.com/api/upload", false},
		{"wildcard domain", "*.example.com", "https://analysis.example.com/api/upload", true},
		{"exact domain", "internal.corp", "https://internal.corp/api/upload", true},
		{"exact domain does not leak to others", "internal.corp", "https://analysis.vendor.io/api/upload", false},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3/api/upload", true},
		{"list with spaces", "*.example.com, 192.168.0.0/16, internal.corp", "http://192.168.1.100/api", true},
		{"list non-match", "*.example.com, 192.168.0.0/16, internal.corp", "https://analysis.vendor.io/api/upload", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := nethttp.NewRequest(nethttp.MethodPost, tt.target, nil)
			got, err := proxyFuncWithBypass(proxyURL, tt.noProxy)(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBypass && got != nil {
				t.Errorf("expected direct connection, got proxy %v", got)
			}
			if !tt.wantBypass && (got == nil || got.Host != "proxy.corp:8080") {
				t.Errorf("expected proxy.corp:8080, got %v", got)
			}
		})
	}
}

func TestCreateUploadClient(t *testing.T) {
	t.Setenv("DISABLE_HTTP2", "")
	t.Setenv("FORCE_HTTP2", "")

	client, err := CreateUploadClient(proxyConfig("no-proxy", ""))
	if err != nil {
		t.Fatal(err)
	}
	if client.Timeout != 0 {
		t.Errorf("Timeout = %v, submissions carry their own deadline", client.Timeout)
	}
	tr := client.Transport.(*nethttp.Transport)
	if !tr.DisableCompression || !tr.ForceAttemptHTTP2 {
		t.Error("direct upload transport should disable compression and try HTTP/2")
	}

	client, err = CreateUploadClient(proxyConfig("basic", "proxy.corp"))
	if err != nil {
		t.Fatal(err)
	}
	if tr := client.Transport.(*nethttp.Transport); tr.ForceAttemptHTTP2 {
		t.Error("HTTP/2 should be off behind a proxy")
	}
}
