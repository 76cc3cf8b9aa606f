package server

import (
	"testing"
)

func TestRouteGroups(t *testing.T) {
	groups := GetRouteGroups()

	if len(groups) == 0 {
		t.Fatal("expected at least one route group")
	}

	foundAPI := false
	for _, rg := range groups {
		if rg.PathPrefix == "/api" && rg.RequiresAuth {
			foundAPI = true
		}
	}
	if !foundAPI {
		t.Error("expected /api to be a protected route group")
	}
}

func TestIsAuthRequired(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		// Public exceptions
		{
			name: "healthz is public",
			path: "/api/healthz",
			want: false,
		},
		{
			name: "auth/login is public",
			path: "/api/auth/login",
			want: false,
		},
		{
			name: "auth/token is public",
			path: "/api/auth/token",
			want: false,
		},
		{
			name: "invitation resolve is public",
			path: "/api/invitations/resolve/some-opaque-token",
			want: false,
		},

		// Protected endpoints
		{
			name: "auth/me requires auth",
			path: "/api/auth/me",
			want: true,
		},
		{
			name: "invitation create requires auth",
			path: "/api/invitations",
			want: true,
		},
		{
			name: "invitation accept requires auth",
			path: "/api/invitations/inv-1/accept",
			want: true,
		},
		{
			name: "document collaborators require auth",
			path: "/api/documents/doc-1/collaborators",
			want: true,
		},
		{
			name: "teams require auth",
			path: "/api/teams",
			want: true,
		},
		{
			name: "access queries require auth",
			path: "/api/access/document/doc-1",
			want: true,
		},
		{
			name: "unknown path requires auth",
			path: "/unknown/path",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsAuthRequired(tt.path)
			if got != tt.want {
				t.Errorf("IsAuthRequired(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathMatchesPrefix(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		want   bool
	}{
		{"/api/healthz", "/api/healthz", true},
		{"/api/healthz/", "/api/healthz", true},
		{"/api/healthz/extra", "/api/healthz", true},
		{"/api/health", "/api/healthz", false},
		{"/api", "/api", true},
		{"/api/", "/api", true},
		{"/apiextra", "/api", false}, // not a subpath
	}

	for _, tt := range tests {
		t.Run(tt.path+"_"+tt.prefix, func(t *testing.T) {
			got := pathMatchesPrefix(tt.path, tt.prefix)
			if got != tt.want {
				t.Errorf("pathMatchesPrefix(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
			}
		})
	}
}
