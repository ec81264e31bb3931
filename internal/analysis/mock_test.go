package analysis

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse wraps a raw completion in a single-block message response.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// onPrompt registers a response for the extraction whose system prompt
// contains the given marker. The five extractions run concurrently, so
// responses are routed by prompt content rather than call order.
func (m *mockAnthropicClient) onPrompt(marker string, resp *anthropic.MessageResponse, err error) {
	m.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.System, marker)
	})).Return(resp, err)
}
