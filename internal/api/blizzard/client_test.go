package blizzard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/api"
	"github.com/dgnsrekt/charsync/internal/throttle"
)

func newTestServer(t *testing.T, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 3600})
	})
	mux.HandleFunc("/profile/wow/character/defias-pillager/grom", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if ns := r.URL.Query().Get("namespace"); ns != "profile-classic1x-eu" {
			t.Errorf("unexpected namespace %q", ns)
		}
		_, _ = w.Write([]byte(`{"id":1,"name":"Grom","level":42,"is_ghost":false}`))
	})
	mux.HandleFunc("/data/wow/item/19019", func(w http.ResponseWriter, r *http.Request) {
		if ns := r.URL.Query().Get("namespace"); ns != "static-classic1x-eu" {
			t.Errorf("unexpected namespace %q", ns)
		}
		_, _ = w.Write([]byte(`{"id":19019,"name":"Thunderfury","quality":{"type":"LEGENDARY","name":"Legendary"},"level":80}`))
	})
	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) *HTTPClient {
	th := throttle.New("blizzard", 100, time.Second, time.Second)
	doer := api.NewDoer("blizzard", 5*time.Second, th, nil, zap.NewNop())
	return NewClient(doer, Options{
		BaseURL:      serverURL,
		TokenURL:     serverURL + "/token",
		ClientID:     "id",
		ClientSecret: "secret",
	})
}

func TestCharacterAndItem_ReuseToken(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newTestServer(t, &tokenCalls)
	defer server.Close()

	c := newTestClient(server.URL)

	ch, err := c.Character(context.Background(), "EU", "Defias Pillager", "Grom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Name != "Grom" || ch.Level != 42 {
		t.Errorf("unexpected character: %+v", ch)
	}

	item, err := c.Item(context.Background(), "eu", 19019)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.QualityName() != "Legendary" {
		t.Errorf("unexpected quality %q", item.QualityName())
	}

	if tokenCalls.Load() != 1 {
		t.Errorf("expected a single token request, got %d", tokenCalls.Load())
	}
}

func TestCharacter_NotFound(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newTestServer(t, &tokenCalls)
	defer server.Close()

	_, err := newTestClient(server.URL).Character(context.Background(), "eu", "Defias Pillager", "Nobody")
	if !api.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Doomhowl":        "doomhowl",
		"Defias Pillager": "defias-pillager",
		"Kel'Thuzad":      "kelthuzad",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
