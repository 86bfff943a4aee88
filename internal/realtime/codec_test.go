package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin/internal/domain"
)

func TestEncodeDecode_UpdateEvent(t *testing.T) {
	old := testOrder("order-1", "vendor-1", domain.StatusReadyForPickup)
	old.Items = []domain.OrderItem{{ProductID: "p-1", Name: "Dal", UnitPrice: 50, Quantity: 2}}
	record := old.Clone()
	record.Status = domain.StatusDelivererAssigned
	record.DelivererID = domain.StringPtr("deliverer-1")

	data, err := EncodeEvent(ChangeEvent{
		Type:        EventUpdate,
		Record:      &record,
		Old:         &old,
		Source:      "node-a",
		CommittedAt: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	n, err := DecodeEvent(data)
	require.NoError(t, err)

	assert.Equal(t, "order-1", n.ID)
	assert.Equal(t, EventUpdate, n.Event.Type)
	assert.Equal(t, "node-a", n.Event.Source)
	require.NotNil(t, n.Event.Record)
	assert.True(t, record.Equal(*n.Event.Record))
	require.NotNil(t, n.Event.Old)
	assert.Nil(t, n.Event.Old.DelivererID)
}

func TestDecodeEvent_TriggerPayloadWithLegacyStatus(t *testing.T) {
	payload := []byte(`{
		"type": "update",
		"id": "order-7",
		"old_record": {
			"id": "order-7",
			"customer_id": "customer-1",
			"vendor_id": "vendor-1",
			"deliverer_id": null,
			"status": "Ready",
			"total_price": 250,
			"delivery_fee": 30,
			"created_at": "2026-03-01T12:00:00+00:00",
			"updated_at": "2026-03-01T12:00:00+00:00"
		},
		"commit_timestamp": "2026-03-01T12:01:00.123456+00:00"
	}`)

	n, err := DecodeEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, "order-7", n.ID)
	assert.Equal(t, EventUpdate, n.Event.Type)
	assert.Nil(t, n.Event.Record)
	require.NotNil(t, n.Event.Old)
	assert.Equal(t, domain.StatusReadyForPickup, n.Event.Old.Status)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{oops`},
		{name: "unknown type", payload: `{"type":"TRUNCATE","id":"order-1"}`},
		{name: "no id", payload: `{"type":"UPDATE"}`},
		{name: "unknown status", payload: `{"type":"UPDATE","record":{"id":"order-1","status":"teleported"}}`},
		{name: "row without id", payload: `{"type":"UPDATE","id":"order-1","record":{"status":"ready"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestDecodeEvent_EmptyDelivererIsUnassigned(t *testing.T) {
	n, err := DecodeEvent([]byte(`{"type":"INSERT","record":{"id":"order-1","status":"ready","deliverer_id":""}}`))
	require.NoError(t, err)

	assert.False(t, n.Event.Record.HasDeliverer())
	assert.Nil(t, n.Event.Record.DelivererID)
}
