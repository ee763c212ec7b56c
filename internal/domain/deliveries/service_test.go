package deliveries_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
)

func TestTransitionEvent(t *testing.T) {
	cases := []struct {
		from, to deliveries.Status
		want     auditlog.Event
		ok       bool
	}{
		{deliveries.StatusToBeBooked, deliveries.StatusBooked, auditlog.DeliveryBooked, true},
		{deliveries.StatusBooked, deliveries.StatusCompleted, auditlog.OrderDispatched, true},
		{deliveries.StatusToBeBooked, deliveries.StatusCompleted, auditlog.OrderDispatched, true},
		{deliveries.StatusBooked, deliveries.StatusBooked, "", false},
		{deliveries.StatusBooked, deliveries.StatusToBeBooked, "", false},
	}
	for _, tc := range cases {
		ev, ok := deliveries.TransitionEvent(tc.from, tc.to)
		assert.Equal(t, tc.ok, ok, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.want, ev)
	}
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{"invoice_id", "customer_id"}, deliveries.Delivery{}.Missing())
	assert.Empty(t, deliveries.Delivery{InvoiceID: "INV-1", CustomerID: 2, Charged: decimal.Zero}.Missing())
	assert.False(t, deliveries.Status("Lost").Valid())
}
