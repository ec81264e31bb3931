package api

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

// failingAI rejects every extraction so classification falls back to its
// deterministic defaults.
type failingAI struct{}

func (failingAI) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return nil, eris.New("model unavailable")
}

// stubCalls is a calling provider that answers every dispatch.
type stubCalls struct{}

func (stubCalls) PlaceCall(_ context.Context, req elevenlabs.CallRequest) (*elevenlabs.CallResult, error) {
	return &elevenlabs.CallResult{CallSID: "CA-" + req.SupplierID, Status: "initiated"}, nil
}

func (stubCalls) ListConversations(context.Context, ...elevenlabs.ListOption) (*elevenlabs.ConversationList, error) {
	return &elevenlabs.ConversationList{}, nil
}

func (stubCalls) GetConversation(context.Context, string) (*elevenlabs.ConversationDetail, error) {
	return nil, eris.New("not implemented")
}

// memStore is an in-memory Store. Handlers launch background dispatch, so
// every method takes the lock.
type memStore struct {
	mu         sync.Mutex
	suppliers  map[string]*model.Supplier
	workflows  map[string]*model.WorkflowRun
	quotations map[string]*model.QuotationRecord
	meetings   []model.ScheduledMeeting
	events     map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		suppliers:  make(map[string]*model.Supplier),
		workflows:  make(map[string]*model.WorkflowRun),
		quotations: make(map[string]*model.QuotationRecord),
		events:     make(map[string][]string),
	}
}

func (m *memStore) UpsertSupplier(_ context.Context, s model.Supplier) (*model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
		s.CreatedAt = time.Now().UTC()
	}
	cp := s
	m.suppliers[s.ID] = &cp
	return &s, nil
}

func (m *memStore) ImportSuppliers(ctx context.Context, suppliers []model.Supplier) (int64, error) {
	for _, s := range suppliers {
		if _, err := m.UpsertSupplier(ctx, s); err != nil {
			return 0, err
		}
	}
	return int64(len(suppliers)), nil
}

func (m *memStore) GetSupplier(_ context.Context, id string) (*model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSuppliers(context.Context) ([]model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Supplier
	for _, s := range m.suppliers {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) DeleteSupplier(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[id]; !ok {
		return eris.Errorf("supplier not found: %s", id)
	}
	delete(m.suppliers, id)
	return nil
}

func (m *memStore) CreateWorkflow(_ context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := &model.WorkflowRun{
		ID:        uuid.New().String(),
		Request:   req,
		Phase:     model.PhaseScouting,
		CreatedAt: time.Now().UTC(),
	}
	m.workflows[run.ID] = run
	cp := *run
	return &cp, nil
}

func (m *memStore) GetWorkflow(_ context.Context, id string) (*model.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.workflows[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (m *memStore) UpdateWorkflow(_ context.Context, run *model.WorkflowRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.workflows[run.ID] = &cp
	return nil
}

func (m *memStore) ListWorkflows(_ context.Context, filter store.WorkflowFilter) ([]model.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WorkflowRun
	for _, run := range m.workflows {
		if filter.Phase != "" && run.Phase != filter.Phase {
			continue
		}
		out = append(out, *run)
	}
	return out, nil
}

func (m *memStore) UpsertQuotation(_ context.Context, rec *model.QuotationRecord) (*model.QuotationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.quotations {
		if existing.CallID == rec.CallID {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	cp.Metrics = nil
	m.quotations[rec.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetQuotation(_ context.Context, id string) (*model.QuotationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.quotations[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) GetQuotationByCallID(_ context.Context, callID string) (*model.QuotationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.quotations {
		if rec.CallID == callID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListQuotationsByWorkflow(_ context.Context, workflowID string) ([]model.QuotationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.QuotationRecord
	for _, rec := range m.quotations {
		if rec.WorkflowID == workflowID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) RecordCallEvent(_ context.Context, callID, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[callID] = append(m.events[callID], source)
	return nil
}

func (m *memStore) SaveMeeting(_ context.Context, meeting model.ScheduledMeeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meetings = append(m.meetings, meeting)
	return nil
}

func (m *memStore) ListMeetings(context.Context) ([]model.ScheduledMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ScheduledMeeting(nil), m.meetings...), nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }
