// Package kafkafeed shares order change events between service instances over a
// kafka topic.
package kafkafeed

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/realtime"
)

const defaultBuffer = 256

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

// GroupID returns the consumer group for this node. Every node must see every
// event, so without a configured group each node gets its own.
func GroupID(configured, nodeID string) string {
	if configured != "" {
		return configured
	}
	return "tiffin-" + nodeID
}

// Relay forwards events that originated on this node to kafka and publishes
// events from other nodes into the local hub.
type Relay struct {
	hub     *realtime.Hub
	writer  MessageWriter
	reader  MessageReader
	metrics *metrics.Metrics
	logger  *zap.Logger
	outbox  chan realtime.ChangeEvent
}

func NewRelay(hub *realtime.Hub, writer MessageWriter, reader MessageReader, m *metrics.Metrics, logger *zap.Logger) *Relay {
	return &Relay{
		hub:     hub,
		writer:  writer,
		reader:  reader,
		metrics: m,
		logger:  logger,
		outbox:  make(chan realtime.ChangeEvent, defaultBuffer),
	}
}

// Run relays in both directions until ctx is cancelled, then closes the reader
// and writer.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.hub.SubscribeAll(r.enqueue)
	defer sub.Close()
	defer r.closeClients()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.forward(gctx) })
	g.Go(func() error { return r.consume(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (r *Relay) enqueue(ev realtime.ChangeEvent) {
	if ev.Source != r.hub.NodeID() {
		return
	}
	if ev.Record != nil {
		record := ev.Record.Clone()
		ev.Record = &record
	}
	if ev.Old != nil {
		old := ev.Old.Clone()
		ev.Old = &old
	}
	select {
	case r.outbox <- ev:
	default:
		r.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "relay_dropped").Inc()
		r.logger.Warn("relay outbox full, dropping event", zap.String("orderId", ev.OrderID()))
	}
}

func (r *Relay) forward(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.outbox:
			r.send(ctx, ev)
		}
	}
}

func (r *Relay) send(ctx context.Context, ev realtime.ChangeEvent) {
	data, err := realtime.EncodeEvent(ev)
	if err != nil {
		r.logger.Error("encoding change event failed", zap.String("orderId", ev.OrderID()), zap.Error(err))
		return
	}

	msg := kafka.Message{Key: []byte(ev.OrderID()), Value: data, Time: ev.CommittedAt}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "relay_failed").Inc()
		r.logger.Warn("publishing change event failed", zap.String("orderId", ev.OrderID()), zap.Error(err))
		return
	}
	r.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "relayed").Inc()
}

func (r *Relay) consume(ctx context.Context) error {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		r.Handle(msg)

		if err := r.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			r.logger.Warn("kafka commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Handle publishes one consumed message into the hub. Echoes of this node's own
// events and malformed messages are dropped.
func (r *Relay) Handle(msg kafka.Message) {
	n, err := realtime.DecodeEvent(msg.Value)
	if err != nil {
		r.metrics.RealtimeEvents.WithLabelValues("unknown", "malformed").Inc()
		r.logger.Warn("dropping malformed kafka event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}
	ev := n.Event
	if ev.Source == r.hub.NodeID() {
		return
	}
	if ev.Record == nil && ev.Old == nil {
		r.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "malformed").Inc()
		return
	}

	r.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "received").Inc()
	r.hub.Publish(ev)
}

func (r *Relay) closeClients() {
	if err := r.reader.Close(); err != nil {
		r.logger.Warn("closing kafka reader", zap.Error(err))
	}
	if err := r.writer.Close(); err != nil {
		r.logger.Warn("closing kafka writer", zap.Error(err))
	}
}
