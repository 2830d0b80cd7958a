package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"
)

func TestNewSlackNotifierUnconfigured(t *testing.T) {
	if n := NewSlackNotifier("", "#reports"); n != nil {
		t.Fatal("expected nil notifier without token")
	}
	var n *SlackNotifier
	if err := n.NotifyFailure(context.Background(), 1, "a@example.com", errors.New("boom")); err != nil {
		t.Fatalf("nil notifier returned %v", err)
	}
}

func TestNotifyFailurePostsMessage(t *testing.T) {
	var (
		mu      sync.Mutex
		channel string
		payload string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat.postMessage") {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		mu.Lock()
		channel = r.Form.Get("channel")
		payload = r.Form.Get("attachments")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1"}`))
	}))
	defer srv.Close()

	n := NewSlackNotifier("xoxb-test", "#reports", slack.OptionAPIURL(srv.URL+"/"))
	if err := n.NotifyFailure(context.Background(), 42, "a@example.com", errors.New("smtp down")); err != nil {
		t.Fatalf("NotifyFailure: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if channel != "#reports" {
		t.Errorf("channel = %q", channel)
	}
	for _, want := range []string{"smtp down", "42", "a@example.com"} {
		if !strings.Contains(payload, want) {
			t.Errorf("attachments %q missing %q", payload, want)
		}
	}
}

func TestNotifyFailureAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	n := NewSlackNotifier("xoxb-test", "#missing", slack.OptionAPIURL(srv.URL+"/"))
	if err := n.NotifyFailure(context.Background(), 1, "a@example.com", errors.New("x")); err == nil {
		t.Fatal("expected error")
	}
}
