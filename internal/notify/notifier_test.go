package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWebhookChannelPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	notifier, err := NewNotifier(channel, nil, log.Default())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	if err := notifier.Send(context.Background(), 42, KindWelcome); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case payload := <-payloadCh:
		if payload.ChatID != 42 {
			t.Fatalf("expected chat id 42, got %d", payload.ChatID)
		}
		if !strings.Contains(payload.Text, "approved") {
			t.Fatalf("expected welcome text, got %q", payload.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for webhook payload")
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	if err := channel.Send(context.Background(), 42, "hello"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

type recordingChannel struct {
	mu    sync.Mutex
	sends []webhookPayload
	fail  map[int64]bool
}

func (r *recordingChannel) Send(_ context.Context, chatID int64, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[chatID] {
		return errors.New("recording channel: send failed")
	}
	r.sends = append(r.sends, webhookPayload{ChatID: chatID, Text: content})
	return nil
}

func TestNotifyAdminsContinuesPastFailures(t *testing.T) {
	channel := &recordingChannel{fail: map[int64]bool{900: true}}
	notifier, err := NewNotifier(channel, nil, log.Default(), WithAdmins([]int64{900, 901}))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	err = notifier.NotifyAdmins(context.Background(), KindAdminNewRequest, 42)
	if err == nil {
		t.Fatal("expected the failed send to surface")
	}
	channel.mu.Lock()
	defer channel.mu.Unlock()
	if len(channel.sends) != 1 || channel.sends[0].ChatID != 901 {
		t.Fatalf("expected the remaining admin to still receive the message, got %+v", channel.sends)
	}
	if !strings.Contains(channel.sends[0].Text, "42") {
		t.Fatalf("expected requester id in admin message, got %q", channel.sends[0].Text)
	}
}

func TestTemplateOverrides(t *testing.T) {
	set, err := NewTemplateSet(map[MessageKind]string{
		KindWelcome: "Hi there!",
	})
	if err != nil {
		t.Fatalf("new template set: %v", err)
	}
	content, err := set.Render(KindWelcome, TemplateData{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if content != "Hi there!" {
		t.Fatalf("expected override, got %q", content)
	}
	if _, err := set.Render(KindRejection, TemplateData{}); err != nil {
		t.Fatalf("render default: %v", err)
	}
}
