package model

import (
	"strings"
	"time"
)

// SpeakerRole identifies who spoke a transcript turn.
type SpeakerRole string

const (
	SpeakerAgent    SpeakerRole = "agent"
	SpeakerSupplier SpeakerRole = "supplier"
)

// TranscriptTurn is one utterance in a call.
type TranscriptTurn struct {
	Role SpeakerRole `json:"role"`
	Text string      `json:"text"`
}

// CallTranscript is the textual record of one completed outbound call.
// Either Turns or Summary may be empty; a transcript with both empty is
// unusable and classifies as an error. CallTime is the reference point for
// resolving relative date expressions ("ships in two weeks").
type CallTranscript struct {
	CallID        string           `json:"call_id"`
	SupplierID    string           `json:"supplier_id,omitempty"`
	SupplierName  string           `json:"supplier_name,omitempty"`
	WorkflowID    string           `json:"workflow_id,omitempty"`
	Turns         []TranscriptTurn `json:"turns,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	CallConnected *bool            `json:"call_connected,omitempty"`
	CallTime      time.Time        `json:"call_time"`
}

// IsEmpty reports whether the transcript carries no usable text.
func (t CallTranscript) IsEmpty() bool {
	return len(t.Turns) == 0 && strings.TrimSpace(t.Summary) == ""
}

// Text flattens the transcript into a prompt-ready block. Turn-by-turn
// dialogue is preferred; the summary is used when no turns were captured.
func (t CallTranscript) Text() string {
	if len(t.Turns) == 0 {
		return strings.TrimSpace(t.Summary)
	}
	var b strings.Builder
	for _, turn := range t.Turns {
		switch turn.Role {
		case SpeakerAgent:
			b.WriteString("Agent: ")
		default:
			b.WriteString("Supplier: ")
		}
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
