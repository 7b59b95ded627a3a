package server

import "testing"

func TestIsAuthRequired(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/healthz", false},
		{"/api/auth/login", false},
		{"/api/auth/register", false},
		{"/api/auth/logout", true},
		{"/api/auth/me", true},
		{"/api/lists", true},
		{"/api/lists/list-1/items", true},
		{"/.well-known/acme-challenge/token123", false},
		{"/unknown", true},
		{"/", true},
		// Prefix matching must not leak onto sibling paths.
		{"/api/healthz-extra", true},
		{"/api/auth/loginx", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsAuthRequired(tt.path); got != tt.want {
				t.Errorf("IsAuthRequired(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractHostname(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://example.com:8580", "example.com"},
		{"https://example.com", "example.com"},
		{"http://localhost:8580/", "localhost"},
		{"https://[::1]:8580", "[::1]"},
	}

	for _, tt := range tests {
		if got := extractHostname(tt.origin); got != tt.want {
			t.Errorf("extractHostname(%q) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestTrustedProxies(t *testing.T) {
	tp := NewTrustedProxies([]string{"127.0.0.0/8", "10.0.0.1", "bogus"})

	if !tp.IsTrusted(parseRemoteAddr("127.0.0.1:1234")) {
		t.Error("127.0.0.1 should be trusted")
	}
	if !tp.IsTrusted(parseRemoteAddr("10.0.0.1:1234")) {
		t.Error("single-IP entry should be trusted")
	}
	if tp.IsTrusted(parseRemoteAddr("192.168.1.1:1234")) {
		t.Error("192.168.1.1 should not be trusted")
	}
}
