package reconcile

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/elevenlabs"
)

// successStatuses are the provider spellings that count as a connected call.
var successStatuses = map[string]bool{
	"success":    true,
	"successful": true,
	"connected":  true,
	"completed":  true,
	"done":       true,
	"true":       true,
	"yes":        true,
}

// webhookEnvelope is the outer shape of a post-call webhook. Some senders
// wrap the conversation in {type, event_timestamp, data}; others post the
// conversation object directly. Fields here are pointers so both shapes
// decode.
type webhookEnvelope struct {
	Type           string          `json:"type"`
	EventTimestamp int64           `json:"event_timestamp"`
	Data           json.RawMessage `json:"data"`
}

// webhookConversation tolerates the field-name drift seen across webhook
// versions: turns arrive under "transcript" or "conversation.messages", and
// message text under "message", "text", or content blocks.
type webhookConversation struct {
	ConversationID string           `json:"conversation_id"`
	CallID         string           `json:"call_id"`
	Status         string           `json:"status"`
	CallSuccessful string           `json:"call_successful"`
	Transcript     []webhookMessage `json:"transcript"`
	Conversation   *struct {
		Messages []webhookMessage `json:"messages"`
	} `json:"conversation"`
	Analysis *struct {
		TranscriptSummary string `json:"transcript_summary"`
		CallSuccessful    string `json:"call_successful"`
	} `json:"analysis"`
	Metadata *struct {
		StartTimeUnix int64 `json:"start_time_unix_secs"`
	} `json:"metadata"`
	DynamicVars map[string]string `json:"conversation_initiation_client_data"`
}

type webhookMessage struct {
	Role    string          `json:"role"`
	Message string          `json:"message"`
	Text    string          `json:"text"`
	Content json.RawMessage `json:"content"`
}

// ParseWebhook normalizes a post-call webhook payload into a CallTranscript.
// It accepts both enveloped ({type, data}) and bare conversation payloads
// and tolerates the known field-name variants. A payload without any call
// identifier is rejected.
func ParseWebhook(body []byte) (*model.CallTranscript, error) {
	var env webhookEnvelope
	payload := body
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		payload = env.Data
	}

	var conv webhookConversation
	if err := json.Unmarshal(payload, &conv); err != nil {
		return nil, eris.Wrap(err, "reconcile: decode webhook payload")
	}

	callID := conv.ConversationID
	if callID == "" {
		callID = conv.CallID
	}
	if callID == "" {
		return nil, eris.New("reconcile: webhook payload has no conversation or call id")
	}

	messages := conv.Transcript
	if len(messages) == 0 && conv.Conversation != nil {
		messages = conv.Conversation.Messages
	}

	transcript := &model.CallTranscript{
		CallID:   callID,
		Turns:    normalizeTurns(messages),
		CallTime: time.Now().UTC(),
	}

	if conv.Analysis != nil {
		transcript.Summary = conv.Analysis.TranscriptSummary
	}
	if conv.Metadata != nil && conv.Metadata.StartTimeUnix > 0 {
		transcript.CallTime = time.Unix(conv.Metadata.StartTimeUnix, 0).UTC()
	} else if env.EventTimestamp > 0 {
		transcript.CallTime = time.Unix(env.EventTimestamp, 0).UTC()
	}

	if connected := callConnected(conv); connected != nil {
		transcript.CallConnected = connected
	}

	if conv.DynamicVars != nil {
		transcript.SupplierID = conv.DynamicVars["supplier_id"]
		transcript.SupplierName = conv.DynamicVars["supplier_name"]
		transcript.WorkflowID = conv.DynamicVars["workflow_id"]
	}

	return transcript, nil
}

// FromConversation converts a polled conversation detail into a
// CallTranscript.
func FromConversation(detail *elevenlabs.ConversationDetail) model.CallTranscript {
	transcript := model.CallTranscript{
		CallID:   detail.ConversationID,
		CallTime: time.Now().UTC(),
	}
	if detail.Metadata.StartTimeUnix > 0 {
		transcript.CallTime = time.Unix(detail.Metadata.StartTimeUnix, 0).UTC()
	}
	for _, entry := range detail.Transcript {
		text := strings.TrimSpace(entry.Message)
		if text == "" {
			continue
		}
		transcript.Turns = append(transcript.Turns, model.TranscriptTurn{
			Role: speakerRole(entry.Role),
			Text: text,
		})
	}
	if detail.Analysis != nil {
		transcript.Summary = detail.Analysis.TranscriptSummary
		if detail.Analysis.CallSuccessful != "" {
			connected := successStatuses[strings.ToLower(detail.Analysis.CallSuccessful)]
			transcript.CallConnected = &connected
		}
	}
	if detail.DynamicVars != nil {
		transcript.SupplierID = detail.DynamicVars["supplier_id"]
		transcript.SupplierName = detail.DynamicVars["supplier_name"]
		transcript.WorkflowID = detail.DynamicVars["workflow_id"]
	}
	return transcript
}

func normalizeTurns(messages []webhookMessage) []model.TranscriptTurn {
	var turns []model.TranscriptTurn
	for _, m := range messages {
		text := messageText(m)
		if text == "" {
			continue
		}
		turns = append(turns, model.TranscriptTurn{
			Role: speakerRole(m.Role),
			Text: text,
		})
	}
	return turns
}

// messageText resolves the message body from the known variants: a direct
// "message" or "text" string, a content string, or a list of content blocks
// with text fields.
func messageText(m webhookMessage) string {
	if m.Message != "" {
		return strings.TrimSpace(m.Message)
	}
	if m.Text != "" {
		return strings.TrimSpace(m.Text)
	}
	if len(m.Content) == 0 {
		return ""
	}

	var direct string
	if err := json.Unmarshal(m.Content, &direct); err == nil {
		return strings.TrimSpace(direct)
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func speakerRole(role string) model.SpeakerRole {
	switch strings.ToLower(role) {
	case "agent", "assistant", "ai":
		return model.SpeakerAgent
	default:
		return model.SpeakerSupplier
	}
}

func callConnected(conv webhookConversation) *bool {
	status := conv.CallSuccessful
	if status == "" && conv.Analysis != nil {
		status = conv.Analysis.CallSuccessful
	}
	if status == "" {
		return nil
	}
	connected := successStatuses[strings.ToLower(status)]
	return &connected
}
