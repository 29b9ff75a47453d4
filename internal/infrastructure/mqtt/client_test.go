package mqtt

import (
	"context"
	"errors"
	"testing"
)

// disconnectedClient returns a client that was never connected,
// exercising the validation paths that run before any broker I/O.
func disconnectedClient() *Client {
	return &Client{
		subscriptions: make(map[string]subscription),
	}
}

// =============================================================================
// Publish Validation Tests
// =============================================================================

func TestPublish_EmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublish_InvalidQoS(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("lumen/events/test", []byte("payload"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublish_PayloadTooLarge(t *testing.T) {
	c := disconnectedClient()

	payload := make([]byte, maxPayloadSize+1)
	err := c.Publish("lumen/events/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("lumen/events/test", []byte("payload"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Subscribe Validation Tests
// =============================================================================

func TestSubscribe_EmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("lumen/events/#", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribe_NotConnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("lumen/events/#", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribe_EmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on never-connected client error = %v, want nil", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := disconnectedClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "notification channel",
			got:  Topics{}.Notification("bridge_abc123"),
			want: "lumen/events/bridge_abc123",
		},
		{
			name: "global notification channel",
			got:  Topics{}.Notification("bridge_globalResourceUpdates"),
			want: "lumen/events/bridge_globalResourceUpdates",
		},
		{
			name: "all notifications pattern",
			got:  Topics{}.AllNotifications(),
			want: "lumen/events/#",
		},
		{
			name: "system status",
			got:  Topics{}.SystemStatus(),
			want: "lumen/system/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
