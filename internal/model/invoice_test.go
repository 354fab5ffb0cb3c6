package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceTotals(t *testing.T) {
	inv := Invoice{
		TaxRate: decimal.NewFromInt(10),
		LineItems: []LineItem{
			{Description: "Consulting", Quantity: 40, UnitPrice: decimal.RequireFromString("150.00")},
			{Description: "Support", Quantity: 20, UnitPrice: decimal.RequireFromString("100.00")},
		},
	}

	assert.True(t, inv.Subtotal().Equal(decimal.RequireFromString("8000.00")), "subtotal %s", inv.Subtotal())
	assert.True(t, inv.TaxAmount().Equal(decimal.RequireFromString("800.00")), "tax %s", inv.TaxAmount())
	assert.True(t, inv.Total().Equal(decimal.RequireFromString("8800.00")), "total %s", inv.Total())
}

func TestInvoiceTotals_FollowLineItems(t *testing.T) {
	inv := Invoice{
		TaxRate:   decimal.RequireFromString("7.5"),
		LineItems: []LineItem{{Description: "Widget", Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")}},
	}
	assert.Equal(t, "59.97", inv.Subtotal().StringFixed(2))

	inv.LineItems = append(inv.LineItems, LineItem{Description: "Shipping", Quantity: 1, UnitPrice: decimal.RequireFromString("5.03")})
	assert.Equal(t, "65.00", inv.Subtotal().StringFixed(2))
	assert.Equal(t, "4.88", inv.TaxAmount().StringFixed(2))
	assert.Equal(t, "69.88", inv.Total().StringFixed(2))

	inv.TaxRate = decimal.Zero
	assert.True(t, inv.Total().Equal(inv.Subtotal()))
}

func TestInvoiceTotals_Empty(t *testing.T) {
	var inv Invoice
	assert.True(t, inv.Subtotal().IsZero())
	assert.True(t, inv.TaxAmount().IsZero())
	assert.True(t, inv.Total().IsZero())
}

func TestParseInvoiceStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want InvoiceStatus
		ok   bool
	}{
		{"draft", InvoiceStatusDraft, true},
		{"Paid", InvoiceStatusPaid, true},
		{" CANCELLED ", InvoiceStatusCancelled, true},
		{"archived", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseInvoiceStatus(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	assert.True(t, InvoiceStatusOverdue.Valid())
	assert.False(t, InvoiceStatus("overdue").Valid())
}

func TestClientHasPhone(t *testing.T) {
	assert.False(t, Client{}.HasPhone())
	assert.False(t, Client{Phone: "   "}.HasPhone())
	assert.True(t, Client{Phone: "+15551234567"}.HasPhone())
}
