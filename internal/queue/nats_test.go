package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// setupTestNATS starts an embedded JetStream server
func setupTestNATS(t *testing.T) (*server.Server, string, func()) {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	return ns, ns.ClientURL(), func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}
}

func TestNewNATSQueue_CreatesStream(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	q, err := NewNATSQueue(url, "", "aqi.forecast")
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	info, err := q.js.StreamInfo("aqi-aqi_forecast")
	if err != nil {
		t.Fatalf("stream not created: %v", err)
	}
	if len(info.Config.Subjects) != 2 {
		t.Errorf("expected root and wildcard subjects, got %v", info.Config.Subjects)
	}
}

func TestNewNATSQueue_InvalidURL(t *testing.T) {
	if _, err := NewNATSQueue("nats://127.0.0.1:1", "", "aqi.forecast"); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestNATSQueue_PublishBeforeSubscribe(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	conn, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	q, err := NewNATSQueueWithConn(conn, "aqi.forecast")
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// the stream retains events until a consumer attaches
	if err := q.Publish(ctx, "aqi.forecast.India", []byte("one")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	received := make(chan string, 1)
	err = q.Subscribe("aqi.forecast.>", func(subject string, data []byte) error {
		received <- subject + "=" + string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case got := <-received:
		if got != "aqi.forecast.India=one" {
			t.Errorf("unexpected message %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestNATSQueue_RedeliversAfterHandlerError(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	q, err := NewNATSQueue(url, "", "aqi.forecast")
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	var attempts atomic.Int32
	done := make(chan struct{})
	err = q.Subscribe("aqi.forecast.*", func(string, []byte) error {
		if attempts.Add(1) == 1 {
			return context.DeadlineExceeded
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := q.Publish(context.Background(), "aqi.forecast.Chile", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("message not redelivered")
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestNATSQueue_EventPublisher(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	cfg := config.QueueConfig{Type: "nats", URL: url, Subject: "aqi.forecast", Compress: true}
	q, err := NewQueue(cfg)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	p := NewEventPublisher(q, cfg, logging.NewNop())
	defer func() { _ = p.Close() }()

	got := make(chan *ForecastEvent, 1)
	if err := q.Subscribe(p.Pattern(), func(_ string, data []byte) error {
		ev, err := DecodeEvent(data)
		if err != nil {
			return err
		}
		got <- ev
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := p.PublishForecast(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("PublishForecast failed: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Country != "United States" || ev.Points != 180 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestNATSQueue_UnsubscribeUnknown(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	q, err := NewNATSQueue(url, "", "aqi.forecast")
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if err := q.Unsubscribe("aqi.forecast.>"); err == nil {
		t.Error("expected error for unknown subscription")
	}
}
