package telegram

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClientReconnectsAfterFailedStart(t *testing.T) {
	cfg, api := newTestConfig(t, "42")
	api.getMeFailures = 1

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}

	err = client.Notify(context.Background(), "first")
	var notifyErr *NotifyError
	if !errors.As(err, &notifyErr) || notifyErr.ChatID != "42" {
		t.Fatalf("err = %v, want NotifyError while Telegram is down", err)
	}
	if calls := api.sent("sendMessage"); len(calls) != 0 {
		t.Fatalf("sent %d messages without a connection", len(calls))
	}

	if err := client.Notify(context.Background(), "second"); err != nil {
		t.Fatalf("Notify after recovery = %v", err)
	}
	if err := client.SendPhoto(context.Background(), []byte("\x89PNG"), "status"); err != nil {
		t.Fatalf("SendPhoto after recovery = %v", err)
	}
	if calls := api.sent("sendMessage"); len(calls) != 1 || calls[0].text != "second" {
		t.Errorf("sendMessage calls = %+v", calls)
	}
	if calls := api.sent("getMe"); len(calls) != 2 {
		t.Errorf("getMe called %d times, want 2", len(calls))
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(BotConfig{ChatID: "42"}); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewClient(BotConfig{Token: "123:abc"}); err == nil {
		t.Error("expected error without chat id")
	}
}

func TestClientListenStopsWhileDisconnected(t *testing.T) {
	cfg, api := newTestConfig(t, "42")
	api.getMeFailures = 1 << 20

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		client.Listen(ctx, &stubTracker{}, nil, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
	if calls := api.sent("getMe"); len(calls) < 2 {
		t.Errorf("getMe called %d times, want retries", len(calls))
	}
}
