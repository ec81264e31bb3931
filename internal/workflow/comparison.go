package workflow

import (
	"sort"

	"github.com/procuroid/procurement-engine/internal/model"
)

// ScoreQuotations recomputes comparison metrics for a set of quotation
// records and returns them ranked best-first. Scoring is deterministic over
// the stored records so the decision view never depends on a model call.
// Records without enough data score the neutral midpoint on the missing
// dimensions; scores are advisory and never change a record's
// classification.
func ScoreQuotations(records []model.QuotationRecord) []model.RankedQuotation {
	ranked := make([]model.RankedQuotation, 0, len(records))

	minPrice, maxPrice := priceRange(records)

	for _, rec := range records {
		metrics := scoreRecord(rec, minPrice, maxPrice)
		ranked = append(ranked, model.RankedQuotation{Record: rec, Metrics: &metrics})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics.Overall > ranked[j].Metrics.Overall
	})
	return ranked
}

func scoreRecord(rec model.QuotationRecord, minPrice, maxPrice float64) model.ComparisonMetrics {
	m := model.ComparisonMetrics{
		Value:          50,
		Reliability:    50,
		Responsiveness: 50,
		Flexibility:    50,
	}

	q := rec.Quotation
	if rec.ResponseType != model.ResponseQuotationReceived || q == nil {
		// Non-quotation records rank neutral on value but are marked down
		// on responsiveness so complete quotes sort first.
		m.Responsiveness = 30
		m.Overall = m.WeightedOverall()
		return m
	}

	// Value: cheapest offer in the set scores highest. A single-quote set
	// has no relative signal and stays neutral.
	if price := effectivePrice(q); price > 0 && maxPrice > minPrice {
		ratio := (maxPrice - price) / (maxPrice - minPrice)
		m.Value = model.ClampMetric(int(40 + ratio*55))
	}

	// Reliability: stock and fulfillment certainty, tempered by extraction
	// confidence.
	reliability := 50
	if q.InStock != nil && *q.InStock {
		reliability += 20
	}
	if q.CanFulfill != nil && *q.CanFulfill {
		reliability += 15
	}
	reliability = (reliability*q.Confidence + 50*(100-q.Confidence)) / 100
	m.Reliability = model.ClampMetric(reliability)

	// Responsiveness: how complete an answer the supplier gave, plus tone.
	responsiveness := 40 + 5*fieldCount(q)
	responsiveness += (rec.Sentiment - 5) * 3
	m.Responsiveness = model.ClampMetric(responsiveness)

	// Flexibility: negotiable terms present.
	flexibility := 50
	if q.PaymentTerms != "" {
		flexibility += 10
	}
	if q.MinimumOrderQuantity == nil {
		flexibility += 10
	}
	if q.ReturnPolicy != "" {
		flexibility += 10
	}
	m.Flexibility = model.ClampMetric(flexibility)

	m.Overall = m.WeightedOverall()
	return m
}

// effectivePrice is the comparable price for a quote: total if present,
// otherwise per-unit.
func effectivePrice(q *model.QuotationFields) float64 {
	if q.TotalPrice != nil {
		return *q.TotalPrice
	}
	if q.PricePerUnit != nil {
		return *q.PricePerUnit
	}
	return 0
}

func priceRange(records []model.QuotationRecord) (minPrice, maxPrice float64) {
	for _, rec := range records {
		if rec.Quotation == nil {
			continue
		}
		price := effectivePrice(rec.Quotation)
		if price <= 0 {
			continue
		}
		if minPrice == 0 || price < minPrice {
			minPrice = price
		}
		if price > maxPrice {
			maxPrice = price
		}
	}
	return minPrice, maxPrice
}

func fieldCount(q *model.QuotationFields) int {
	n := 0
	if q.PricePerUnit != nil {
		n++
	}
	if q.TotalPrice != nil {
		n++
	}
	if q.LeadTimeDays != nil || q.DeliveryDate != nil {
		n++
	}
	if q.PaymentTerms != "" {
		n++
	}
	if q.MinimumOrderQuantity != nil {
		n++
	}
	if q.Warranty != "" {
		n++
	}
	if q.InStock != nil {
		n++
	}
	if q.CanFulfill != nil {
		n++
	}
	return n
}
