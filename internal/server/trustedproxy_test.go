package server

import (
	"net"
	"net/http/httptest"
	"testing"
)

func TestTrustedProxiesIsTrusted(t *testing.T) {
	tp := NewTrustedProxies([]string{"127.0.0.0/8", "::1/128", "10.0.0.0/8"})

	tests := []struct {
		ip      string
		trusted bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.255", true},
		{"10.0.0.1", true},
		{"192.168.1.1", false},
		{"8.8.8.8", false},
		{"::1", true},
		{"::2", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP: %s", tt.ip)
			}
			if got := tp.IsTrusted(ip); got != tt.trusted {
				t.Errorf("IsTrusted(%s) = %v, want %v", tt.ip, got, tt.trusted)
			}
		})
	}
}

func TestGetClientIPDirect(t *testing.T) {
	// No trusted proxies, forwarding headers are ignored
	tp := NewTrustedProxies(nil)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	req.Header.Set("X-Forwarded-For", "8.8.8.8")

	if ip := tp.GetClientIP(req); ip.String() != "192.168.1.100" {
		t.Errorf("got %s, want 192.168.1.100", ip)
	}
}

func TestGetClientIPTrustedProxy(t *testing.T) {
	tp := NewTrustedProxies([]string{"127.0.0.0/8"})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "8.8.8.8, 10.0.0.1")

	if ip := tp.GetClientIP(req); ip.String() != "8.8.8.8" {
		t.Errorf("got %s, want 8.8.8.8", ip)
	}
}

func TestGetClientIPXRealIP(t *testing.T) {
	tp := NewTrustedProxies([]string{"127.0.0.0/8"})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("X-Real-IP", "1.2.3.4")

	if ip := tp.GetClientIP(req); ip.String() != "1.2.3.4" {
		t.Errorf("got %s, want 1.2.3.4", ip)
	}
}

func TestGetClientIPUntrustedIgnoresHeader(t *testing.T) {
	tp := NewTrustedProxies([]string{"127.0.0.0/8"})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	req.Header.Set("X-Forwarded-For", "8.8.8.8")

	if ip := tp.GetClientIP(req); ip.String() != "192.168.1.100" {
		t.Errorf("got %s, want 192.168.1.100 (direct IP, not XFF)", ip)
	}
}

func TestGetClientIPIPv6(t *testing.T) {
	tp := NewTrustedProxies([]string{"::1/128"})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:12345"
	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	if ip := tp.GetClientIP(req); ip.String() != "2001:db8::1" {
		t.Errorf("got %s, want 2001:db8::1", ip)
	}
}

func TestParseRemoteAddr(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.1:8080", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			ip := parseRemoteAddr(tt.addr)
			if ip == nil {
				t.Fatalf("parseRemoteAddr returned nil for %s", tt.addr)
			}
			if ip.String() != tt.want {
				t.Errorf("got %s, want %s", ip, tt.want)
			}
		})
	}
}

func TestNewTrustedProxiesSingleIP(t *testing.T) {
	tp := NewTrustedProxies([]string{"192.168.1.1"})

	if !tp.IsTrusted(net.ParseIP("192.168.1.1")) {
		t.Error("expected 192.168.1.1 to be trusted")
	}
	if tp.IsTrusted(net.ParseIP("192.168.1.2")) {
		t.Error("expected 192.168.1.2 to not be trusted")
	}
}
