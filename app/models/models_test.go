package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/models"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]models.OrderStatus]bool{
		{models.StatusPending, models.StatusPaid}:      true,
		{models.StatusPending, models.StatusCancelled}: true,
		{models.StatusPaid, models.StatusShipped}:      true,
		{models.StatusPaid, models.StatusCancelled}:    true,
		{models.StatusShipped, models.StatusDelivered}: true,
	}

	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			want := allowed[[2]models.OrderStatus{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, models.StatusDelivered.IsTerminal())
	assert.True(t, models.StatusCancelled.IsTerminal())
	assert.False(t, models.StatusShipped.IsTerminal())
	assert.Equal(t, []models.OrderStatus{models.StatusPaid, models.StatusCancelled}, models.StatusPending.AllowedTransitions())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := models.ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, st)

	_, err = models.ParseOrderStatus("Refunded")
	assert.Error(t, err)
	_, err = models.ParseOrderStatus("")
	assert.Error(t, err)
}

func TestOrderStatusValidIsExact(t *testing.T) {
	for _, st := range models.Statuses {
		assert.True(t, st.Valid(), st)
	}
	for _, raw := range []string{"paid", "PENDING", " Shipped", "", "Lost"} {
		assert.False(t, models.OrderStatus(raw).Valid(), raw)
	}

	_, err := models.OrderStatus("paid").Value()
	assert.Error(t, err)
}

func TestOrderStatusJSON(t *testing.T) {
	var body struct {
		Status models.OrderStatus `json:"status"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"status":"paid"}`), &body))
	assert.Equal(t, models.StatusPaid, body.Status)

	assert.Error(t, json.Unmarshal([]byte(`{"status":7}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"status":"Lost"}`), &body))

	out, err := json.Marshal(models.StatusDelivered)
	require.NoError(t, err)
	assert.JSONEq(t, `"Delivered"`, string(out))
}

func TestOrderStatusScanRejectsUnknown(t *testing.T) {
	var st models.OrderStatus
	assert.NoError(t, st.Scan("Cancelled"))
	assert.Equal(t, models.StatusCancelled, st)
	assert.Error(t, st.Scan("Lost"))
	assert.Error(t, st.Scan(3))

	_, err := models.OrderStatus("Lost").Value()
	assert.Error(t, err)
}

func TestNewEmail(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"ana@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"   ", false},
		{"not-an-email", false},
		{"Ana <ana@example.com>", false},
		{" ana@example.com", false},
		{strings.Repeat("a", 315) + "@x.com", false},
	}

	for _, tc := range cases {
		e, err := models.NewEmail(tc.in)
		if tc.ok {
			assert.NoError(t, err, tc.in)
			assert.Equal(t, tc.in, e.String())
			continue
		}
		assert.Error(t, err, tc.in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), tc.in)
	}
}

func TestEmailJSONRoundTrip(t *testing.T) {
	var e models.Email
	require.NoError(t, json.Unmarshal([]byte(`"bo@example.com"`), &e))
	assert.Equal(t, "bo@example.com", e.String())
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &e))
}

func TestOrderTotal(t *testing.T) {
	o := models.Order{
		ID: uuid.New(),
		Items: []models.OrderItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{Quantity: 3, UnitPrice: decimal.RequireFromString("15.00")},
		},
	}
	assert.True(t, o.Total().Equal(decimal.RequireFromString("65.00")))
}
