package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

const keyPointsSystemText = "You are a procurement analyst summarizing supplier calls. Return valid JSON matching the requested schema."

const keyPointsPrompt = `List the key points from this supplier call that a procurement manager should know.

Call transcript:
%s

Return a valid JSON object:
{
  "key_points": ["<point>", ...]
}

Keep each point to one sentence. At most 8 points.`

func (c *Classifier) extractKeyPoints(ctx context.Context, transcriptText string) ([]string, error) {
	prompt := fmt.Sprintf(keyPointsPrompt, transcriptText)

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 512,
		System:    keyPointsSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.model, "key_points")

	return parseKeyPoints(extractText(resp)), nil
}

func parseKeyPoints(text string) []string {
	var rawMap map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &rawMap); err != nil {
		return nil
	}
	return toStringSlice(rawMap["key_points"])
}
