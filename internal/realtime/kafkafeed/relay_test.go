package kafkafeed

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/realtime"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

type MockReader struct {
	mock.Mock
}

func (m *MockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockReader) Close() error {
	return m.Called().Error(0)
}

func remoteMessage(t *testing.T, source string) kafka.Message {
	t.Helper()
	order := domain.Order{
		ID:         "order-1",
		VendorID:   "vendor-1",
		CustomerID: "customer-1",
		Status:     domain.StatusPreparing,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := realtime.EncodeEvent(realtime.ChangeEvent{
		Type:        realtime.EventUpdate,
		Record:      &order,
		Source:      source,
		CommittedAt: time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(order.ID), Value: data, Offset: 7}
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestGroupID(t *testing.T) {
	assert.Equal(t, "orders", GroupID("orders", "node-1"))
	assert.Equal(t, "tiffin-node-1", GroupID("", "node-1"))
}

func TestHandle_PublishesRemoteEvents(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	var got []domain.Order
	hub.Subscribe(domain.Filter{VendorID: "vendor-1"}, realtime.Handlers{
		OnUpdate: func(o domain.Order) { got = append(got, o) },
	})

	relay := NewRelay(hub, &MockWriter{}, &MockReader{}, metrics.New(), zap.NewNop())
	relay.Handle(remoteMessage(t, "node-other"))

	require.Len(t, got, 1)
	assert.Equal(t, domain.StatusPreparing, got[0].Status)
}

func TestHandle_SkipsOwnEchoAndMalformed(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	var got int
	hub.Subscribe(domain.Filter{}, realtime.Handlers{
		OnUpdate: func(domain.Order) { got++ },
	})

	relay := NewRelay(hub, &MockWriter{}, &MockReader{}, metrics.New(), zap.NewNop())
	relay.Handle(remoteMessage(t, hub.NodeID()))
	relay.Handle(kafka.Message{Value: []byte(`{"type":"UPDATE"}`)})

	assert.Zero(t, got)
}

func TestRun_ForwardsLocalEventsOnly(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	writer := &MockWriter{}
	reader := &MockReader{}

	written := make(chan kafka.Message, 16)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		msgs := args.Get(1).([]kafka.Message)
		select {
		case written <- msgs[0]:
		default:
		}
	})
	writer.On("Close").Return(nil)
	reader.On("FetchMessage", mock.Anything).Return(kafka.Message{}, context.Canceled).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	})
	reader.On("Close").Return(nil)

	relay := NewRelay(hub, writer, reader, metrics.New(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	// Run subscribes asynchronously; wait until the tap is registered.
	require.Eventually(t, func() bool {
		order := domain.Order{ID: "probe", Status: domain.StatusCreated}
		hub.Publish(realtime.ChangeEvent{Type: realtime.EventInsert, Record: &order, Source: "node-other"})
		order.ID = "order-local"
		hub.Publish(realtime.ChangeEvent{Type: realtime.EventInsert, Record: &order})
		select {
		case msg := <-written:
			assert.Equal(t, "order-local", string(msg.Key))
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	writer.AssertExpectations(t)
	reader.AssertCalled(t, "Close")
	for len(written) > 0 {
		assert.Equal(t, "order-local", string((<-written).Key))
	}
}
