// Package elevenlabs provides a client for placing outbound supplier calls
// and retrieving their conversation transcripts. Calls go out through the
// Twilio voice API bridged to an ElevenLabs conversational agent; transcripts
// come back through the ElevenLabs Conversational AI API.
package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the outbound calling and transcript retrieval operations.
type Client interface {
	// PlaceCall initiates an outbound call to a supplier and returns the
	// provider call SID.
	PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error)
	// ListConversations returns recent agent conversations, newest first.
	ListConversations(ctx context.Context, opts ...ListOption) (*ConversationList, error)
	// GetConversation fetches the full detail of one conversation, including
	// its transcript turns and analysis summary.
	GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error)
}

// CallRequest describes one outbound supplier call.
type CallRequest struct {
	ToNumber     string
	SupplierID   string
	SupplierName string
	WorkflowID   string
	// Prompt context passed to the agent as dynamic variables.
	ProductDescription string
	Quantity           int
}

// CallResult is the provider acknowledgement for a placed call.
type CallResult struct {
	CallSID string `json:"sid"`
	Status  string `json:"status"`
}

// ConversationList is a page of agent conversations.
type ConversationList struct {
	Conversations []ConversationSummary `json:"conversations"`
	HasMore       bool                  `json:"has_more"`
	NextCursor    string                `json:"next_cursor"`
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	Status         string `json:"status"`
	CallSuccessful string `json:"call_successful"`
	StartTimeUnix  int64  `json:"start_time_unix_secs"`
	DurationSecs   int    `json:"call_duration_secs"`
}

// ConversationDetail is the full conversation record.
type ConversationDetail struct {
	ConversationID string            `json:"conversation_id"`
	AgentID        string            `json:"agent_id"`
	Status         string            `json:"status"`
	Transcript     []TranscriptEntry `json:"transcript"`
	Metadata       ConversationMeta  `json:"metadata"`
	Analysis       *AnalysisResult   `json:"analysis,omitempty"`
	DynamicVars    map[string]string `json:"conversation_initiation_client_data,omitempty"`
}

// TranscriptEntry is one utterance in the conversation transcript.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
	TimeSec int    `json:"time_in_call_secs"`
}

// ConversationMeta holds timing and call-routing metadata.
type ConversationMeta struct {
	StartTimeUnix int64  `json:"start_time_unix_secs"`
	DurationSecs  int    `json:"call_duration_secs"`
	PhoneNumber   string `json:"phone_number,omitempty"`
}

// AnalysisResult is the agent's post-call analysis.
type AnalysisResult struct {
	TranscriptSummary string `json:"transcript_summary"`
	CallSuccessful    string `json:"call_successful"`
}

// ListOption configures a ListConversations request.
type ListOption func(*listOpts)

type listOpts struct {
	agentID string
	cursor  string
	limit   int
}

// WithAgentID restricts the listing to one agent.
func WithAgentID(agentID string) ListOption {
	return func(o *listOpts) { o.agentID = agentID }
}

// WithCursor continues a previous listing.
func WithCursor(cursor string) ListOption {
	return func(o *listOpts) { o.cursor = cursor }
}

// WithLimit caps the page size.
func WithLimit(limit int) ListOption {
	return func(o *listOpts) { o.limit = limit }
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom ElevenLabs base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithTwilioBaseURL sets a custom Twilio base URL (for testing).
func WithTwilioBaseURL(url string) Option {
	return func(c *httpClient) { c.twilioBaseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// Config carries the credentials and routing for the calling channel.
type Config struct {
	APIKey           string
	AgentID          string
	TwilioAccountSID string
	TwilioAuthToken  string
	FromNumber       string
	// InboundEndpoint is the ElevenLabs Twilio bridge URL the outbound call
	// is pointed at.
	InboundEndpoint string
}

type httpClient struct {
	cfg             Config
	baseURL         string
	twilioBaseURL   string
	inboundEndpoint string
	http            *http.Client
}

// NewClient creates a new calling/transcript client.
func NewClient(cfg Config, opts ...Option) Client {
	c := &httpClient{
		cfg:             cfg,
		baseURL:         "https://api.elevenlabs.io",
		twilioBaseURL:   "https://api.twilio.com",
		inboundEndpoint: cfg.InboundEndpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	if c.inboundEndpoint == "" {
		c.inboundEndpoint = "https://api.us.elevenlabs.io/twilio/inbound_call"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error) {
	if req.ToNumber == "" {
		return nil, eris.New("elevenlabs: call request missing destination number")
	}

	// The bridge URL carries the agent and routing metadata so the
	// conversation can be attributed back to a supplier and workflow.
	bridge, err := url.Parse(c.inboundEndpoint)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: parse inbound endpoint")
	}
	q := bridge.Query()
	q.Set("agent_id", c.cfg.AgentID)
	if req.SupplierID != "" {
		q.Set("supplier_id", req.SupplierID)
	}
	if req.WorkflowID != "" {
		q.Set("workflow_id", req.WorkflowID)
	}
	bridge.RawQuery = q.Encode()

	form := url.Values{}
	form.Set("To", req.ToNumber)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Url", bridge.String())

	callsURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json",
		c.twilioBaseURL, c.cfg.TwilioAccountSID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, callsURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: create call request")
	}
	httpReq.SetBasicAuth(c.cfg.TwilioAccountSID, c.cfg.TwilioAuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: place call")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: read call response")
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("elevenlabs: place call status %d: %s",
			resp.StatusCode, string(body))
	}

	var result CallResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal call response")
	}

	return &result, nil
}

func (c *httpClient) ListConversations(ctx context.Context, opts ...ListOption) (*ConversationList, error) {
	lo := &listOpts{limit: 30}
	for _, opt := range opts {
		opt(lo)
	}
	if lo.agentID == "" {
		lo.agentID = c.cfg.AgentID
	}

	reqURL := fmt.Sprintf("%s/v1/convai/conversations?agent_id=%s&page_size=%d",
		c.baseURL, url.QueryEscape(lo.agentID), lo.limit)
	if lo.cursor != "" {
		reqURL += "&cursor=" + url.QueryEscape(lo.cursor)
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: list conversations")
	}

	var result ConversationList
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal conversation list")
	}

	return &result, nil
}

func (c *httpClient) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	reqURL := fmt.Sprintf("%s/v1/convai/conversations/%s",
		c.baseURL, url.PathEscape(conversationID))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrapf(err, "elevenlabs: get conversation %s", conversationID)
	}

	var result ConversationDetail
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal conversation detail")
	}

	return &result, nil
}

// get executes an authenticated GET with retries on transient failures.
func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "elevenlabs: create request")
		}
		req.Header.Set("xi-api-key", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "elevenlabs: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, lastErr
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}
