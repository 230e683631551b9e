package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	type payload struct {
		SaleID string `json:"sale_id"`
		Total  int64  `json:"total"`
	}

	evt, err := NewEvent("sale.completed", "sale-123", "sale", "sale-workflow", payload{
		SaleID: "sale-123",
		Total:  45000,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, "sale.completed", evt.EventType)
	assert.Equal(t, "sale-123", evt.AggregateID)
	assert.Equal(t, "sale", evt.AggregateType)
	assert.Equal(t, "sale-workflow", evt.Source)
	assert.Equal(t, 1, evt.Version)
	assert.False(t, evt.Timestamp.IsZero())

	var decoded payload
	require.NoError(t, evt.UnmarshalData(&decoded))
	assert.Equal(t, "sale-123", decoded.SaleID)
	assert.Equal(t, int64(45000), decoded.Total)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	evt, err := NewEvent("sale.failed", "sale-9", "sale", "sale-workflow", nil)
	require.NoError(t, err)

	evt.WithCorrelationID("corr-42")
	assert.Equal(t, "corr-42", evt.CorrelationID)

	data, err := evt.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "corr-42")
}
