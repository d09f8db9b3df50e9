package queue

import (
	"context"
	"testing"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() ForecastEvent {
	return ForecastEvent{
		RunID:     "run-1",
		Kind:      KindBatch,
		Country:   "United States",
		Status:    StatusCompleted,
		Metrics:   &analytics.RegressionMetrics{R2: 0.8, MAE: 3.5, RMSE: 4.25},
		Points:    180,
		StartDate: "2024-01-01",
		EndDate:   "2024-06-28",
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	for _, compress := range []bool{false, true} {
		data, err := EncodeEvent(sampleEvent(), compress)
		require.NoError(t, err)
		if compress {
			assert.Equal(t, encodingSnappy, data[0])
		} else {
			assert.Equal(t, encodingJSON, data[0])
		}

		ev, err := DecodeEvent(data)
		require.NoError(t, err)
		assert.Equal(t, sampleEvent(), *ev)
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	_, err := DecodeEvent(nil)
	assert.Error(t, err)

	_, err = DecodeEvent([]byte{9, '{', '}'})
	assert.Error(t, err)

	_, err = DecodeEvent([]byte{encodingSnappy, 0xff, 0xff})
	assert.Error(t, err)
}

func TestEventPublisher_SubjectPerCountry(t *testing.T) {
	q := NewMemoryQueue()
	p := NewEventPublisher(q, config.QueueConfig{Subject: "aqi.forecast", Compress: true}, logging.NewNop())
	defer func() { _ = p.Close() }()

	got := make(chan *ForecastEvent, 1)
	subjects := make(chan string, 1)
	require.NoError(t, q.Subscribe(p.Pattern(), func(subject string, data []byte) error {
		ev, err := DecodeEvent(data)
		if err != nil {
			return err
		}
		subjects <- subject
		got <- ev
		return nil
	}))

	ev := sampleEvent()
	ev.CreatedAt = time.Time{}
	require.NoError(t, p.PublishForecast(context.Background(), ev))

	select {
	case subject := <-subjects:
		assert.Equal(t, "aqi.forecast.United_States", subject)
		received := <-got
		assert.Equal(t, "United States", received.Country)
		assert.False(t, received.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventPublisher_Nil(t *testing.T) {
	var p *EventPublisher
	assert.NoError(t, p.PublishForecast(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}

func TestNewQueue_Types(t *testing.T) {
	_, err := NewQueue(config.QueueConfig{Type: "none"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewQueue(config.QueueConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	q, err := NewQueue(config.QueueConfig{Type: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)
	_ = q.Close()

	_, err = NewQueue(config.QueueConfig{Type: "kafka"})
	assert.Error(t, err, "kafka needs brokers")

	q, err = NewQueue(config.QueueConfig{Type: "kafka", KafkaBrokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, "aqi.forecast", q.(*KafkaQueue).topicFor("aqi.forecast.India"))
	assert.Equal(t, "other", q.(*KafkaQueue).topicFor("other"))
	_ = q.Close()

	_, err = NewQueue(config.QueueConfig{Type: "rabbitmq"})
	assert.Error(t, err)
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := NewRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
}
