package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

const metricsSystemText = "You are a procurement analyst scoring a supplier for comparison against competing offers. Scores are 1-100. Return valid JSON matching the requested schema."

const metricsPrompt = `Score this supplier call for procurement comparison. Each score is 1-100 where 100 is best.

Procurement context: %s (quantity %d)

Call transcript:
%s

Return a valid JSON object:
{
  "value_score": <1-100, price competitiveness and value for money>,
  "reliability_score": <1-100, delivery and fulfillment reliability signals>,
  "responsiveness_score": <1-100, how directly and completely they answered>,
  "flexibility_score": <1-100, willingness to negotiate terms, quantities, timing>,
  "pros": ["<advantage>", ...],
  "cons": ["<disadvantage>", ...],
  "deal_breakers": ["<blocking issue>", ...]
}`

// neutralMetrics is the fallback when scoring fails: all scores at the
// midpoint so the supplier is neither favored nor penalized in ranking.
func neutralMetrics() model.ComparisonMetrics {
	return model.ComparisonMetrics{
		Value:          50,
		Reliability:    50,
		Responsiveness: 50,
		Flexibility:    50,
		Overall:        50,
	}
}

func (c *Classifier) extractMetrics(ctx context.Context, transcript model.CallTranscript, req model.ProcurementRequest) (model.ComparisonMetrics, error) {
	prompt := fmt.Sprintf(metricsPrompt, req.ProductDescription, req.Quantity, transcript.Text())

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 768,
		System:    metricsSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return neutralMetrics(), err
	}
	resp.Usage.LogCost(c.model, "metrics")

	return parseMetrics(extractText(resp)), nil
}

// parseMetrics decodes the scoring JSON. The overall score is always
// recomputed from the fixed weights rather than trusted from the model.
func parseMetrics(text string) model.ComparisonMetrics {
	var rawMap map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &rawMap); err != nil {
		return neutralMetrics()
	}

	m := neutralMetrics()
	if v, ok := toInt(rawMap["value_score"]); ok {
		m.Value = model.ClampMetric(v)
	}
	if v, ok := toInt(rawMap["reliability_score"]); ok {
		m.Reliability = model.ClampMetric(v)
	}
	if v, ok := toInt(rawMap["responsiveness_score"]); ok {
		m.Responsiveness = model.ClampMetric(v)
	}
	if v, ok := toInt(rawMap["flexibility_score"]); ok {
		m.Flexibility = model.ClampMetric(v)
	}
	m.Pros = toStringSlice(rawMap["pros"])
	m.Cons = toStringSlice(rawMap["cons"])
	m.DealBreakers = toStringSlice(rawMap["deal_breakers"])
	m.Overall = m.WeightedOverall()

	return m
}
