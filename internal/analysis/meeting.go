package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

const meetingSystemText = "You are a procurement analyst detecting follow-up meeting requests in supplier call transcripts. Return valid JSON matching the requested schema."

const meetingPrompt = `Did the supplier ask for a follow-up meeting, callback, or further discussion in this call?

Call transcript:
%s

Return a valid JSON object:
{
  "meeting_requested": <true/false>,
  "reason": "<why the supplier wants to meet, or null>",
  "preferred_times": ["<time expression>", ...],
  "discussion_topics": ["<topic>", ...],
  "urgency": "<high/medium/low or null>"
}

Only set meeting_requested to true if the supplier explicitly asked for a follow-up conversation.`

// noMeeting is the fallback when meeting detection fails.
func noMeeting() model.MeetingInfo {
	return model.MeetingInfo{Requested: false}
}

func (c *Classifier) extractMeeting(ctx context.Context, transcript model.CallTranscript) (model.MeetingInfo, error) {
	prompt := fmt.Sprintf(meetingPrompt, transcript.Text())

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 512,
		System:    meetingSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return noMeeting(), err
	}
	resp.Usage.LogCost(c.model, "meeting")

	return parseMeeting(extractText(resp)), nil
}

func parseMeeting(text string) model.MeetingInfo {
	var rawMap map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &rawMap); err != nil {
		return noMeeting()
	}

	info := model.MeetingInfo{}
	if v, ok := rawMap["meeting_requested"].(bool); ok {
		info.Requested = v
	}
	if s, ok := rawMap["reason"].(string); ok {
		info.Reason = s
	}
	if s, ok := rawMap["urgency"].(string); ok {
		info.Urgency = s
	}
	info.PreferredTimes = toStringSlice(rawMap["preferred_times"])
	info.DiscussionTopics = toStringSlice(rawMap["discussion_topics"])

	return info
}
