// Package pgnotify turns postgres NOTIFY messages from the orders trigger into
// hub events.
package pgnotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/realtime"
)

const reconnectDelay = 2 * time.Second

type OrderReader interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

// Listener holds one pooled connection in LISTEN mode and republishes every
// notification on the hub with the full row read back from the store.
type Listener struct {
	pool      *pgxpool.Pool
	channel   string
	reader    OrderReader
	publisher realtime.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewListener(
	pool *pgxpool.Pool,
	channel string,
	reader OrderReader,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Listener {
	return &Listener{
		pool:      pool,
		channel:   channel,
		reader:    reader,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection loss.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("postgres listener disconnected", zap.String("channel", l.channel), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}
	l.logger.Info("postgres listener started", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}
		l.Handle(ctx, []byte(n.Payload))
	}
}

// Handle decodes one trigger payload and publishes it. Malformed payloads and
// rows that vanished before the read are dropped.
func (l *Listener) Handle(ctx context.Context, payload []byte) {
	n, err := realtime.DecodeEvent(payload)
	if err != nil {
		l.metrics.RealtimeEvents.WithLabelValues("unknown", "malformed").Inc()
		l.logger.Warn("dropping malformed notification", zap.Error(err))
		return
	}

	ev := n.Event
	if ev.Type != realtime.EventDelete {
		record, err := l.reader.FindByID(ctx, n.ID)
		if err != nil {
			if _, ok := errors.IsNotFoundError(err); ok {
				l.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "vanished").Inc()
				return
			}
			l.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "read_failed").Inc()
			l.logger.Warn("reading notified order failed", zap.String("orderId", n.ID), zap.Error(err))
			return
		}
		ev.Record = record
	} else if ev.Old == nil {
		l.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "malformed").Inc()
		return
	}

	l.metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "received").Inc()
	l.publisher.Publish(ev)
}

const triggerFunction = `
CREATE OR REPLACE FUNCTION notify_order_change() RETURNS trigger AS $$
DECLARE
	payload jsonb;
BEGIN
	IF TG_OP = 'DELETE' THEN
		payload := jsonb_build_object('type', TG_OP, 'id', OLD.id, 'old_record', row_to_json(OLD));
	ELSIF TG_OP = 'UPDATE' THEN
		payload := jsonb_build_object('type', TG_OP, 'id', NEW.id, 'old_record', row_to_json(OLD));
	ELSE
		payload := jsonb_build_object('type', TG_OP, 'id', NEW.id);
	END IF;
	payload := payload || jsonb_build_object('commit_timestamp', clock_timestamp());
	PERFORM pg_notify(TG_ARGV[0], payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

// TriggerSQL returns the statements installing the orders change trigger for
// channel. Payloads carry the id and old row only; NOTIFY caps them at 8000 bytes.
func TriggerSQL(channel string) []string {
	quoted := "'" + strings.ReplaceAll(channel, "'", "''") + "'"
	return []string{
		triggerFunction,
		`DROP TRIGGER IF EXISTS orders_notify ON orders`,
		`CREATE TRIGGER orders_notify AFTER INSERT OR UPDATE OR DELETE ON orders
			FOR EACH ROW EXECUTE FUNCTION notify_order_change(` + quoted + `)`,
	}
}

func EnsureTrigger(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	for _, stmt := range TriggerSQL(channel) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("installing order change trigger: %w", err)
		}
	}
	return nil
}
