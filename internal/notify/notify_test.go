package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/config"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/subscription"
	"github.com/dgnsrekt/charsync/internal/synchronizer"
)

type captured struct {
	path, title, priority, tags, body string
}

func ntfyServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			path:     r.URL.Path,
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			tags:     r.Header.Get("Tags"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSendSyncReport(t *testing.T) {
	srv, got := ntfyServer(t, http.StatusOK)
	c := NewClient(config.NotifyConfig{Enabled: true, Server: srv.URL, Topic: "charsync", Priority: "default", Tags: "video_game"}, zap.NewNop())

	clean := &synchronizer.Summary{Game: game.LeagueOfLegends, Total: 3, Succeeded: 3}
	if err := c.SendSyncReport(context.Background(), clean, 2*time.Second); err != nil {
		t.Fatalf("SendSyncReport: %v", err)
	}
	partial := &synchronizer.Summary{Game: game.WowHardcore, Total: 3, Succeeded: 2, Failed: 1, Errors: []string{"e1: transient: boom"}}
	if err := c.SendSyncReport(context.Background(), partial, time.Second); err != nil {
		t.Fatalf("SendSyncReport: %v", err)
	}

	if len(*got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(*got))
	}
	first, second := (*got)[0], (*got)[1]
	if first.path != "/charsync" || first.priority != "default" || !strings.Contains(first.title, "lol") {
		t.Errorf("unexpected clean notification %+v", first)
	}
	if second.priority != "high" || !strings.Contains(second.body, "e1: transient: boom") {
		t.Errorf("unexpected partial notification %+v", second)
	}
}

func TestSendSubscriptionHalted(t *testing.T) {
	srv, got := ntfyServer(t, http.StatusOK)
	c := NewClient(config.NotifyConfig{Enabled: true, Server: srv.URL, Topic: "charsync", Tags: "video_game"}, zap.NewNop())

	st := subscription.State{Name: "entity-sync", Status: subscription.StatusFailed, Version: 7, Time: time.Now()}
	if err := c.SendSubscriptionHalted(context.Background(), st, errors.New("event 8 failed")); err != nil {
		t.Fatalf("SendSubscriptionHalted: %v", err)
	}
	if len(*got) != 1 || (*got)[0].priority != "urgent" || !strings.Contains((*got)[0].body, "version: 7") {
		t.Errorf("unexpected notification %+v", *got)
	}
}

func TestSendFailsOnErrorStatus(t *testing.T) {
	srv, _ := ntfyServer(t, http.StatusForbidden)
	c := NewClient(config.NotifyConfig{Enabled: true, Server: srv.URL, Topic: "charsync"}, zap.NewNop())

	err := c.SendSyncReport(context.Background(), &synchronizer.Summary{Game: game.LeagueOfLegends}, time.Second)
	if err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	if _, ok := New(config.NotifyConfig{Enabled: false}, zap.NewNop()).(*NoopNotifier); !ok {
		t.Error("expected NoopNotifier when disabled")
	}
}

func TestSendUsesConfiguredPriorities(t *testing.T) {
	srv, got := ntfyServer(t, http.StatusOK)
	c := NewClient(config.NotifyConfig{
		Enabled:         true,
		Server:          srv.URL + "/",
		Topic:           "charsync",
		Tags:            "video_game",
		FailurePriority: "default",
		HaltPriority:    "high",
	}, zap.NewNop())

	partial := &synchronizer.Summary{Game: game.LeagueOfLegends, Total: 2, Succeeded: 1, Failed: 1}
	if err := c.SendSyncReport(context.Background(), partial, time.Second); err != nil {
		t.Fatalf("SendSyncReport: %v", err)
	}
	st := subscription.State{Name: "entity-sync", Status: subscription.StatusFailed, Version: 2}
	if err := c.SendSubscriptionHalted(context.Background(), st, errors.New("boom")); err != nil {
		t.Fatalf("SendSubscriptionHalted: %v", err)
	}

	if len(*got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(*got))
	}
	if (*got)[0].priority != "default" || (*got)[1].priority != "high" {
		t.Errorf("expected configured priorities, got %q and %q", (*got)[0].priority, (*got)[1].priority)
	}
	if (*got)[0].path != "/charsync" {
		t.Errorf("expected trailing slash trimmed, got path %q", (*got)[0].path)
	}
}
