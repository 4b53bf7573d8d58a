package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/requestline/internal/store"
)

func createTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

// tokenServer issues access-N tokens, counting requests
func tokenServer(t *testing.T, issued *int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		n := atomic.AddInt32(issued, 1)

		w.Header().Set("Content-Type", "application/json")
		refresh := ""
		if r.Form.Get("grant_type") == "authorization_code" {
			refresh = `,"refresh_token":"refresh-1"`
		}
		fmt.Fprintf(w, `{"access_token":"access-%d","token_type":"Bearer","expires_in":3600%s}`, n, refresh)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestAuthURL(t *testing.T) {
	a := NewAuth(AuthConfig{
		ClientID:    "client",
		RedirectURL: "http://localhost:8080/callback",
	}, createTestStore(t), zerolog.Nop())

	u := a.AuthURL("state-123")
	for _, want := range []string{"client_id=client", "state=state-123", "user-modify-playback-state"} {
		if !strings.Contains(u, want) {
			t.Errorf("auth url %q missing %q", u, want)
		}
	}
}

func TestExchange(t *testing.T) {
	var issued int32
	server := tokenServer(t, &issued)
	st := createTestStore(t)

	a := NewAuth(AuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		TokenURL:     server.URL,
	}, st, zerolog.Nop())

	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{name: "denied", query: "error=access_denied&state=s", wantErr: true},
		{name: "state mismatch", query: "code=abc&state=other", wantErr: true},
		{name: "missing code", query: "state=s", wantErr: true},
		{name: "success", query: "code=abc&state=s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil)
			err := a.Exchange(context.Background(), "s", req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}

	cred, err := st.Credential(context.Background())
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred.AccessToken != "access-1" || cred.RefreshToken != "refresh-1" {
		t.Errorf("unexpected stored credential: %+v", cred)
	}
}

func TestHTTPClientNotAuthenticated(t *testing.T) {
	a := NewAuth(AuthConfig{ClientID: "client"}, createTestStore(t), zerolog.Nop())

	if _, err := a.HTTPClient(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestRefreshedTokenIsPersisted(t *testing.T) {
	var issued int32
	tokens := tokenServer(t, &issued)
	st := createTestStore(t)
	ctx := context.Background()

	// Expired credential forces a refresh on first use
	err := st.SaveCredential(ctx, store.Credential{
		AccessToken:  "stale",
		RefreshToken: "refresh-0",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	a := NewAuth(AuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     tokens.URL,
	}, st, zerolog.Nop())

	client, err := a.HTTPClient(ctx)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	resp, err := client.Get(api.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if gotAuth != "Bearer access-1" {
		t.Errorf("expected refreshed bearer token, got %q", gotAuth)
	}

	cred, err := st.Credential(ctx)
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred.AccessToken != "access-1" {
		t.Errorf("expected refreshed token to be stored, got %q", cred.AccessToken)
	}
	if cred.RefreshToken != "refresh-0" {
		t.Errorf("expected refresh token to be kept, got %q", cred.RefreshToken)
	}
}
