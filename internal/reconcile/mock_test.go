package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/store"
	"github.com/procuroid/procurement-engine/pkg/anthropic"
	"github.com/procuroid/procurement-engine/pkg/elevenlabs"
)

// countingAI fails every extraction so classification degrades to its
// deterministic fallbacks. The call count shows whether a transcript was
// re-analyzed.
type countingAI struct {
	mu    sync.Mutex
	calls int
}

func (c *countingAI) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return nil, eris.New("model unavailable")
}

func (c *countingAI) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingAdvancer captures workflow advance notifications.
type recordingAdvancer struct {
	workflowIDs []string
	err         error
}

func (a *recordingAdvancer) QuoteRecorded(_ context.Context, workflowID string) error {
	a.workflowIDs = append(a.workflowIDs, workflowID)
	return a.err
}

// stubCalls serves canned conversation listings and details.
type stubCalls struct {
	list       *elevenlabs.ConversationList
	details    map[string]*elevenlabs.ConversationDetail
	fetchedIDs []string
}

func (s *stubCalls) PlaceCall(context.Context, elevenlabs.CallRequest) (*elevenlabs.CallResult, error) {
	return nil, eris.New("not implemented")
}

func (s *stubCalls) ListConversations(context.Context, ...elevenlabs.ListOption) (*elevenlabs.ConversationList, error) {
	return s.list, nil
}

func (s *stubCalls) GetConversation(_ context.Context, conversationID string) (*elevenlabs.ConversationDetail, error) {
	s.fetchedIDs = append(s.fetchedIDs, conversationID)
	detail, ok := s.details[conversationID]
	if !ok {
		return nil, eris.Errorf("conversation not found: %s", conversationID)
	}
	return detail, nil
}

// memStore is an in-memory Store for reconciler tests.
type memStore struct {
	workflows  map[string]*model.WorkflowRun
	quotations map[string]*model.QuotationRecord
	events     map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		workflows:  make(map[string]*model.WorkflowRun),
		quotations: make(map[string]*model.QuotationRecord),
		events:     make(map[string][]string),
	}
}

func (m *memStore) UpsertSupplier(_ context.Context, s model.Supplier) (*model.Supplier, error) {
	return &s, nil
}

func (m *memStore) ImportSuppliers(_ context.Context, suppliers []model.Supplier) (int64, error) {
	return int64(len(suppliers)), nil
}

func (m *memStore) GetSupplier(context.Context, string) (*model.Supplier, error) { return nil, nil }
func (m *memStore) ListSuppliers(context.Context) ([]model.Supplier, error)      { return nil, nil }
func (m *memStore) DeleteSupplier(context.Context, string) error                 { return nil }

func (m *memStore) CreateWorkflow(_ context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	run := &model.WorkflowRun{
		ID:        uuid.New().String(),
		Request:   req,
		Phase:     model.PhaseScouting,
		CreatedAt: time.Now().UTC(),
	}
	m.workflows[run.ID] = run
	return run, nil
}

func (m *memStore) GetWorkflow(_ context.Context, id string) (*model.WorkflowRun, error) {
	run, ok := m.workflows[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (m *memStore) UpdateWorkflow(_ context.Context, run *model.WorkflowRun) error {
	cp := *run
	m.workflows[run.ID] = &cp
	return nil
}

func (m *memStore) ListWorkflows(context.Context, store.WorkflowFilter) ([]model.WorkflowRun, error) {
	return nil, nil
}

func (m *memStore) UpsertQuotation(_ context.Context, rec *model.QuotationRecord) (*model.QuotationRecord, error) {
	if existing, _ := m.GetQuotationByCallID(context.Background(), rec.CallID); existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	cp.Metrics = nil // metrics are never persisted
	m.quotations[rec.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetQuotation(_ context.Context, id string) (*model.QuotationRecord, error) {
	rec, ok := m.quotations[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) GetQuotationByCallID(_ context.Context, callID string) (*model.QuotationRecord, error) {
	for _, rec := range m.quotations {
		if rec.CallID == callID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListQuotationsByWorkflow(_ context.Context, workflowID string) ([]model.QuotationRecord, error) {
	var out []model.QuotationRecord
	for _, rec := range m.quotations {
		if rec.WorkflowID == workflowID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) RecordCallEvent(_ context.Context, callID, source string) error {
	m.events[callID] = append(m.events[callID], source)
	return nil
}

func (m *memStore) SaveMeeting(context.Context, model.ScheduledMeeting) error { return nil }
func (m *memStore) ListMeetings(context.Context) ([]model.ScheduledMeeting, error) {
	return nil, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }
