package model

import "time"

// ResponseType is the terminal classification of a supplier call.
type ResponseType string

const (
	ResponseQuotationReceived ResponseType = "quotation_received"
	ResponseDeclined          ResponseType = "declined"
	ResponseMeetingRequested  ResponseType = "meeting_requested"
	ResponseUnclear           ResponseType = "unclear"
	ResponseError             ResponseType = "error"
)

// Extraction method tags recorded on QuotationRecord for auditability.
const (
	ExtractionTranscriptAnalysis = "transcript_analysis"
	ExtractionSummaryConclusion  = "summary_conclusion"
)

// QuotationFields holds the pricing, delivery, and terms extracted from a
// call. Every field is nullable: a value absent from the transcript stays
// nil rather than being guessed. Confidence is on the canonical 0-100 scale.
type QuotationFields struct {
	PricePerUnit         *float64   `json:"price_per_unit,omitempty"`
	TotalPrice           *float64   `json:"total_price,omitempty"`
	Currency             string     `json:"currency,omitempty"`
	LeadTimeDays         *int       `json:"lead_time_days,omitempty"`
	DeliveryDate         *time.Time `json:"delivery_date,omitempty"`
	ShippingMethod       string     `json:"shipping_method,omitempty"`
	PaymentTerms         string     `json:"payment_terms,omitempty"`
	MinimumOrderQuantity *int       `json:"minimum_order_quantity,omitempty"`
	Warranty             string     `json:"warranty,omitempty"`
	ReturnPolicy         string     `json:"return_policy,omitempty"`
	InStock              *bool      `json:"in_stock,omitempty"`
	CanFulfill           *bool      `json:"can_fulfill,omitempty"`
	Confidence           int        `json:"confidence"`
}

// MeetingInfo captures a supplier's request for a follow-up discussion.
type MeetingInfo struct {
	Requested        bool     `json:"requested"`
	Reason           string   `json:"reason,omitempty"`
	PreferredTimes   []string `json:"preferred_times,omitempty"`
	DiscussionTopics []string `json:"discussion_topics,omitempty"`
	Urgency          string   `json:"urgency,omitempty"`
}

// SentimentResult summarizes the supplier's tone on the call. Enthusiasm and
// professionalism are on the 1-10 scale.
type SentimentResult struct {
	Overall             string   `json:"overall"`
	Enthusiasm          int      `json:"enthusiasm"`
	Professionalism     int      `json:"professionalism"`
	NegotiationOpenness string   `json:"negotiation_openness,omitempty"`
	Concerns            []string `json:"concerns,omitempty"`
	PositiveIndicators  []string `json:"positive_indicators,omitempty"`
	Summary             string   `json:"summary,omitempty"`
}

// ComparisonMetrics are advisory 1-100 scores used to rank suppliers. They
// are recomputed on demand from the transcript and never gate
// classification.
type ComparisonMetrics struct {
	Value          int      `json:"value_score"`
	Reliability    int      `json:"reliability_score"`
	Responsiveness int      `json:"responsiveness_score"`
	Flexibility    int      `json:"flexibility_score"`
	Overall        int      `json:"overall_score"`
	Pros           []string `json:"pros,omitempty"`
	Cons           []string `json:"cons,omitempty"`
	DealBreakers   []string `json:"deal_breakers,omitempty"`
}

// Fixed weights for the overall comparison score.
const (
	weightValue          = 0.35
	weightReliability    = 0.25
	weightResponsiveness = 0.20
	weightFlexibility    = 0.20
)

// WeightedOverall computes the overall score as the fixed weighted
// combination of the four sub-scores, clamped to 1-100.
func (m ComparisonMetrics) WeightedOverall() int {
	o := weightValue*float64(m.Value) +
		weightReliability*float64(m.Reliability) +
		weightResponsiveness*float64(m.Responsiveness) +
		weightFlexibility*float64(m.Flexibility)
	return ClampMetric(int(o + 0.5))
}

// QuotationRecord is the structured outcome of one supplier call. CallID is
// the unique key: reconciling the same call twice updates the existing
// record instead of inserting a second one.
type QuotationRecord struct {
	ID               string             `json:"id"`
	WorkflowID       string             `json:"workflow_id,omitempty"`
	SupplierID       string             `json:"supplier_id"`
	SupplierName     string             `json:"supplier_name,omitempty"`
	CallID           string             `json:"call_id"`
	ResponseType     ResponseType       `json:"response_type"`
	Quotation        *QuotationFields   `json:"quotation,omitempty"`
	Meeting          *MeetingInfo       `json:"meeting,omitempty"`
	Sentiment        int                `json:"sentiment_score"`
	Confidence       int                `json:"confidence_score"`
	KeyPoints        []string           `json:"key_points,omitempty"`
	Reason           string             `json:"reason,omitempty"`
	Metrics          *ComparisonMetrics `json:"comparison_metrics,omitempty"`
	ExtractionMethod string             `json:"extraction_method"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// ClampSentiment bounds a sentiment value to the 1-10 scale.
func ClampSentiment(v int) int { return clamp(v, 1, 10) }

// ClampConfidence bounds a confidence value to the canonical 0-100 scale.
func ClampConfidence(v int) int { return clamp(v, 0, 100) }

// ClampMetric bounds a comparison sub-score to the 1-100 scale.
func ClampMetric(v int) int { return clamp(v, 1, 100) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
