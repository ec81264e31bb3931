package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

const quotationSystemText = "You are a procurement analyst extracting quotation details from supplier call transcripts. Be conservative: only extract values the supplier explicitly stated. Use null for anything not mentioned. Never guess or infer prices, dates, or quantities. Return valid JSON matching the requested schema."

const quotationPrompt = `Analyze this supplier call transcript and extract any quotation details.

Call transcript:
%s

Return a valid JSON object:
{
  "has_quotation": <true if the supplier gave concrete pricing or availability, false otherwise>,
  "pricing": {
    "price_per_unit": <number or null>,
    "total_price": <number or null>,
    "currency": "<ISO currency code or null>",
    "breakdown": "<pricing breakdown text or null>"
  },
  "delivery": {
    "lead_time_days": <number or null>,
    "estimated_delivery_date": "<YYYY-MM-DD or null>",
    "shipping_method": "<text or null>",
    "shipping_cost": <number or null>
  },
  "terms": {
    "payment_terms": "<text or null>",
    "minimum_order_quantity": <number or null>,
    "warranty": "<text or null>",
    "return_policy": "<text or null>"
  },
  "availability": {
    "in_stock": <true/false/null>,
    "stock_quantity": <number or null>,
    "can_fulfill": <true/false/null>
  },
  "confidence_score": <0-100, how confident you are that this is a complete, usable quotation>
}

Use null for any field the supplier did not explicitly state.`

// quotationResult pairs the extracted fields with the explicit quotation flag
// used by classification.
type quotationResult struct {
	HasQuotation bool
	Fields       *model.QuotationFields
}

// rawQuotation mirrors the JSON shape produced by the extraction prompt.
// Numeric fields are decoded as any so both integers and floats parse.
type rawQuotation struct {
	HasQuotation bool `json:"has_quotation"`
	Pricing      struct {
		PricePerUnit any    `json:"price_per_unit"`
		TotalPrice   any    `json:"total_price"`
		Currency     string `json:"currency"`
	} `json:"pricing"`
	Delivery struct {
		LeadTimeDays          any    `json:"lead_time_days"`
		EstimatedDeliveryDate string `json:"estimated_delivery_date"`
		ShippingMethod        string `json:"shipping_method"`
	} `json:"delivery"`
	Terms struct {
		PaymentTerms         string `json:"payment_terms"`
		MinimumOrderQuantity any    `json:"minimum_order_quantity"`
		Warranty             string `json:"warranty"`
		ReturnPolicy         string `json:"return_policy"`
	} `json:"terms"`
	Availability struct {
		InStock    *bool `json:"in_stock"`
		CanFulfill *bool `json:"can_fulfill"`
	} `json:"availability"`
	ConfidenceScore any `json:"confidence_score"`
}

// noQuotation is the fallback when extraction or parsing fails: no quotation,
// zero confidence. Classification degrades to unclear instead of erroring.
func noQuotation() quotationResult {
	return quotationResult{
		HasQuotation: false,
		Fields:       &model.QuotationFields{Confidence: 0},
	}
}

func (c *Classifier) extractQuotation(ctx context.Context, transcript model.CallTranscript) (quotationResult, error) {
	prompt := fmt.Sprintf(quotationPrompt, transcript.Text())

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    quotationSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return noQuotation(), err
	}
	resp.Usage.LogCost(c.model, "quotation")

	return parseQuotation(extractText(resp), transcript.CallTime, c.defaultCurrency), nil
}

// parseQuotation converts the raw extraction JSON into QuotationFields.
// Relative delivery information (lead time without a date) is resolved
// against the call timestamp. Unparseable output degrades to no quotation.
func parseQuotation(text string, callTime time.Time, defaultCurrency string) quotationResult {
	var raw rawQuotation
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return noQuotation()
	}

	fields := &model.QuotationFields{
		ShippingMethod: raw.Delivery.ShippingMethod,
		PaymentTerms:   raw.Terms.PaymentTerms,
		Warranty:       raw.Terms.Warranty,
		ReturnPolicy:   raw.Terms.ReturnPolicy,
		InStock:        raw.Availability.InStock,
		CanFulfill:     raw.Availability.CanFulfill,
	}

	if v, ok := toFloat64(raw.Pricing.PricePerUnit); ok {
		fields.PricePerUnit = &v
	}
	if v, ok := toFloat64(raw.Pricing.TotalPrice); ok {
		fields.TotalPrice = &v
	}
	if fields.PricePerUnit != nil || fields.TotalPrice != nil {
		fields.Currency = raw.Pricing.Currency
		if fields.Currency == "" {
			fields.Currency = defaultCurrency
		}
	}

	if v, ok := toInt(raw.Delivery.LeadTimeDays); ok && v >= 0 {
		fields.LeadTimeDays = &v
	}
	if raw.Delivery.EstimatedDeliveryDate != "" {
		if d, err := time.Parse("2006-01-02", raw.Delivery.EstimatedDeliveryDate); err == nil {
			fields.DeliveryDate = &d
		}
	}
	// A lead time without an explicit date resolves relative to the call
	// itself, not to whenever the transcript happens to be processed.
	if fields.DeliveryDate == nil && fields.LeadTimeDays != nil && !callTime.IsZero() {
		d := callTime.AddDate(0, 0, *fields.LeadTimeDays)
		fields.DeliveryDate = &d
	}

	if v, ok := toInt(raw.Terms.MinimumOrderQuantity); ok && v > 0 {
		fields.MinimumOrderQuantity = &v
	}

	conf, ok := toInt(raw.ConfidenceScore)
	if !ok {
		conf = 0
	}
	fields.Confidence = model.ClampConfidence(conf)

	return quotationResult{HasQuotation: raw.HasQuotation, Fields: fields}
}
