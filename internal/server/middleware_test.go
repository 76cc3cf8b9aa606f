package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/draftdeck/draftdeck/internal/api"
	cachemem "github.com/draftdeck/draftdeck/internal/cache/memory"
	"github.com/draftdeck/draftdeck/internal/config"
	"github.com/draftdeck/draftdeck/internal/ratelimit"
)

// newTestServer stands up the full router over httptest.
func newTestServer(t *testing.T, deps *Deps) *httptest.Server {
	t.Helper()
	srv, err := New(config.Default(), testLogger(), deps)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthzIsPublic(t *testing.T) {
	ts := newTestServer(t, newTestDeps(t))

	resp, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestProtectedPathRejectsAnonymous(t *testing.T) {
	ts := newTestServer(t, newTestDeps(t))

	resp, err := http.Get(ts.URL + "/api/auth/me")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginThenSessionToken(t *testing.T) {
	ts := newTestServer(t, newTestDeps(t))

	body, _ := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret",
	})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed with status %d", resp.StatusCode)
	}

	var login api.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatal(err)
	}
	if login.Token == "" {
		t.Fatal("expected a session token")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	meResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer meResp.Body.Close()
	if meResp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with session token, got %d", meResp.StatusCode)
	}
}

func TestBearerJWTAuthenticates(t *testing.T) {
	deps := newTestDeps(t)
	ts := newTestServer(t, deps)

	token, err := deps.Tokens.Issue("user-alice")
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with JWT, got %d", resp.StatusCode)
	}
}

func TestGarbageBearerRejected(t *testing.T) {
	ts := newTestServer(t, newTestDeps(t))

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestResolveIsRateLimited(t *testing.T) {
	deps := newTestDeps(t)
	deps.InviteLimiter = ratelimit.New(cachemem.New(time.Minute, 0), &ratelimit.Config{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		KeyPrefix:         "invite:",
	})
	ts := newTestServer(t, deps)

	// Unknown tokens 404 while the window is open
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/api/invitations/resolve/no-such-token")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("request %d: expected 404, got %d", i+1, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/api/invitations/resolve/no-such-token")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 once over the limit, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}

	// Other endpoints do not count against the invitation limiter
	healthResp, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Errorf("expected healthz to stay reachable, got %d", healthResp.StatusCode)
	}
}
