package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testCallTime = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestParseQuotation_FullQuote(t *testing.T) {
	result := parseQuotation(`{
		"has_quotation": true,
		"pricing": {"price_per_unit": 12.5, "total_price": 6250, "currency": "EUR"},
		"delivery": {"lead_time_days": 10, "estimated_delivery_date": "2026-03-25", "shipping_method": "air freight"},
		"terms": {"payment_terms": "net 30", "minimum_order_quantity": 100, "warranty": "1 year"},
		"availability": {"in_stock": true, "can_fulfill": true},
		"confidence_score": 92
	}`, testCallTime, "USD")

	assert.True(t, result.HasQuotation)
	f := result.Fields
	assert.Equal(t, 12.5, *f.PricePerUnit)
	assert.Equal(t, 6250.0, *f.TotalPrice)
	assert.Equal(t, "EUR", f.Currency)
	assert.Equal(t, 10, *f.LeadTimeDays)
	// An explicit delivery date wins over the lead-time resolution.
	assert.Equal(t, time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC), *f.DeliveryDate)
	assert.Equal(t, "air freight", f.ShippingMethod)
	assert.Equal(t, "net 30", f.PaymentTerms)
	assert.Equal(t, 100, *f.MinimumOrderQuantity)
	assert.True(t, *f.InStock)
	assert.Equal(t, 92, f.Confidence)
}

func TestParseQuotation_LeadTimeResolvesAgainstCallTime(t *testing.T) {
	result := parseQuotation(`{
		"has_quotation": true,
		"pricing": {"price_per_unit": 5},
		"delivery": {"lead_time_days": 14},
		"confidence_score": 70
	}`, testCallTime, "USD")

	if assert.NotNil(t, result.Fields.DeliveryDate) {
		assert.Equal(t, testCallTime.AddDate(0, 0, 14), *result.Fields.DeliveryDate)
	}
}

func TestParseQuotation_NoDateWithoutCallTime(t *testing.T) {
	result := parseQuotation(`{
		"has_quotation": true,
		"delivery": {"lead_time_days": 14},
		"confidence_score": 70
	}`, time.Time{}, "USD")

	assert.Equal(t, 14, *result.Fields.LeadTimeDays)
	assert.Nil(t, result.Fields.DeliveryDate)
}

func TestParseQuotation_DefaultCurrencyOnlyWithPrice(t *testing.T) {
	// Price present, currency missing: default applies.
	withPrice := parseQuotation(`{
		"has_quotation": true,
		"pricing": {"total_price": 900},
		"confidence_score": 75
	}`, testCallTime, "USD")
	assert.Equal(t, "USD", withPrice.Fields.Currency)

	// No price at all: no currency is invented.
	noPrice := parseQuotation(`{
		"has_quotation": false,
		"confidence_score": 10
	}`, testCallTime, "USD")
	assert.Empty(t, noPrice.Fields.Currency)
}

func TestParseQuotation_ClampsConfidence(t *testing.T) {
	high := parseQuotation(`{"has_quotation": true, "confidence_score": 150}`, testCallTime, "USD")
	assert.Equal(t, 100, high.Fields.Confidence)

	low := parseQuotation(`{"has_quotation": false, "confidence_score": -20}`, testCallTime, "USD")
	assert.Equal(t, 0, low.Fields.Confidence)
}

func TestParseQuotation_DropsNonPositiveQuantities(t *testing.T) {
	result := parseQuotation(`{
		"has_quotation": true,
		"delivery": {"lead_time_days": -3},
		"terms": {"minimum_order_quantity": 0},
		"confidence_score": 70
	}`, testCallTime, "USD")

	assert.Nil(t, result.Fields.LeadTimeDays)
	assert.Nil(t, result.Fields.MinimumOrderQuantity)
}

func TestParseQuotation_MarkdownFence(t *testing.T) {
	result := parseQuotation("```json\n{\"has_quotation\": true, \"pricing\": {\"price_per_unit\": 3.5}, \"confidence_score\": 80}\n```", testCallTime, "USD")

	assert.True(t, result.HasQuotation)
	assert.Equal(t, 3.5, *result.Fields.PricePerUnit)
}

func TestParseQuotation_InvalidJSON(t *testing.T) {
	result := parseQuotation("the supplier said maybe", testCallTime, "USD")

	assert.False(t, result.HasQuotation)
	assert.Equal(t, 0, result.Fields.Confidence)
	assert.Nil(t, result.Fields.PricePerUnit)
}

func TestParseQuotation_BadDateIgnored(t *testing.T) {
	result := parseQuotation(`{
		"has_quotation": true,
		"delivery": {"estimated_delivery_date": "sometime in spring"},
		"confidence_score": 65
	}`, testCallTime, "USD")

	assert.Nil(t, result.Fields.DeliveryDate)
}
