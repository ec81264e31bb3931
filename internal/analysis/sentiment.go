package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

const sentimentSystemText = "You are a procurement analyst assessing a supplier's tone and engagement on a call. Return valid JSON matching the requested schema."

const sentimentPrompt = `Analyze the supplier's sentiment and engagement in this call transcript.

Call transcript:
%s

Return a valid JSON object:
{
  "overall_sentiment": "<positive/neutral/negative>",
  "enthusiasm_level": <1-10>,
  "professionalism_score": <1-10>,
  "negotiation_openness": "<high/medium/low>",
  "concerns_raised": ["<concern>", ...],
  "positive_indicators": ["<indicator>", ...],
  "summary": "<one sentence summary of the supplier's attitude>"
}`

// neutralSentiment is the fallback when sentiment extraction fails: neutral
// tone, midpoint scores.
func neutralSentiment() model.SentimentResult {
	return model.SentimentResult{
		Overall:         "neutral",
		Enthusiasm:      5,
		Professionalism: 5,
	}
}

func (c *Classifier) extractSentiment(ctx context.Context, transcript model.CallTranscript) (model.SentimentResult, error) {
	prompt := fmt.Sprintf(sentimentPrompt, transcript.Text())

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 512,
		System:    sentimentSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return neutralSentiment(), err
	}
	resp.Usage.LogCost(c.model, "sentiment")

	return parseSentiment(extractText(resp)), nil
}

func parseSentiment(text string) model.SentimentResult {
	var rawMap map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &rawMap); err != nil {
		return neutralSentiment()
	}

	result := neutralSentiment()
	if s, ok := rawMap["overall_sentiment"].(string); ok && s != "" {
		result.Overall = s
	}
	if v, ok := toInt(rawMap["enthusiasm_level"]); ok {
		result.Enthusiasm = model.ClampSentiment(v)
	}
	if v, ok := toInt(rawMap["professionalism_score"]); ok {
		result.Professionalism = model.ClampSentiment(v)
	}
	if s, ok := rawMap["negotiation_openness"].(string); ok {
		result.NegotiationOpenness = s
	}
	if s, ok := rawMap["summary"].(string); ok {
		result.Summary = s
	}
	result.Concerns = toStringSlice(rawMap["concerns_raised"])
	result.PositiveIndicators = toStringSlice(rawMap["positive_indicators"])

	return result
}
