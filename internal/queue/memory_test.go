package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	received := make(chan string, 4)
	err := q.Subscribe("aqi.forecast.>", func(subject string, data []byte) error {
		received <- subject + "=" + string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	ctx := context.Background()
	if err := q.Publish(ctx, "aqi.forecast.India", []byte("a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := q.Publish(ctx, "aqi.other", []byte("b")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, received, "aqi.forecast.India=a")
	if q.PendingCount() != 1 {
		t.Errorf("expected unmatched message in backlog, got %d", q.PendingCount())
	}
}

func TestMemoryQueue_BacklogReplayedOnSubscribe(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	ctx := context.Background()
	for _, c := range []string{"Chile", "Peru"} {
		if err := q.Publish(ctx, "aqi.forecast."+c, []byte(c)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if q.PendingCount() != 2 {
		t.Fatalf("expected 2 pending, got %d", q.PendingCount())
	}

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	err := q.Subscribe("aqi.forecast.*", func(_ string, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(data))
		if len(got) == 2 {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backlog not delivered")
	}
	if got[0] != "Chile" || got[1] != "Peru" {
		t.Errorf("expected publish order, got %v", got)
	}
	if q.PendingCount() != 0 {
		t.Errorf("expected empty backlog, got %d", q.PendingCount())
	}
}

func TestMemoryQueue_DoubleSubscribeAndUnsubscribe(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	noop := func(string, []byte) error { return nil }
	if err := q.Subscribe("a.b", noop); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Subscribe("a.b", noop); err == nil {
		t.Error("expected error on double subscribe")
	}
	if err := q.Unsubscribe("a.b"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("a.b"); err == nil {
		t.Error("expected error when not subscribed")
	}
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue()
	_ = q.Close()

	if err := q.Publish(context.Background(), "x", nil); err == nil {
		t.Error("expected publish on closed queue to fail")
	}
}

func TestMemoryQueue_CancelledContext(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, "x", nil); err == nil {
		t.Error("expected context error")
	}
}
