package riot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/api"
	"github.com/dgnsrekt/charsync/internal/throttle"
)

func newTestClient(serverURL string) *HTTPClient {
	th := throttle.New("riot", 100, time.Second, time.Second)
	doer := api.NewDoer("riot", 5*time.Second, th, nil, zap.NewNop())
	return NewClient(doer, serverURL, "test-key")
}

func TestMatchIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "test-key" {
			t.Errorf("expected X-Riot-Token test-key, got %s", r.Header.Get("X-Riot-Token"))
		}
		expectedPath := "/lol/match/v5/matches/by-puuid/p-1/ids"
		if r.URL.Path != expectedPath {
			t.Errorf("expected path %s, got %s", expectedPath, r.URL.Path)
		}
		if r.URL.Query().Get("count") != "5" {
			t.Errorf("expected count=5, got %s", r.URL.Query().Get("count"))
		}
		_ = json.NewEncoder(w).Encode([]string{"EUW1_2", "EUW1_1"})
	}))
	defer server.Close()

	ids, err := newTestClient(server.URL).MatchIDs(context.Background(), "euw1", "p-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "EUW1_2" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestAccountByRiotID_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).AccountByRiotID(context.Background(), "euw1", "Faker", "KR1")
	if !api.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHostURL(t *testing.T) {
	c := NewClient(nil, "", "k")
	if got := c.hostURL(RegionalRoute("EUW1")); got != "https://europe.api.riotgames.com" {
		t.Errorf("unexpected host url %s", got)
	}
	if got := c.hostURL("kr"); got != "https://kr.api.riotgames.com" {
		t.Errorf("unexpected host url %s", got)
	}
}
