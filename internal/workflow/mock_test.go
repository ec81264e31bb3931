package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/store"
)

// memStore is an in-memory Store for coordinator tests.
type memStore struct {
	suppliers  map[string]model.Supplier
	workflows  map[string]*model.WorkflowRun
	quotations map[string]*model.QuotationRecord
	meetings   []model.ScheduledMeeting
	failUpdate bool
}

func newMemStore() *memStore {
	return &memStore{
		suppliers:  make(map[string]model.Supplier),
		workflows:  make(map[string]*model.WorkflowRun),
		quotations: make(map[string]*model.QuotationRecord),
	}
}

func (m *memStore) UpsertSupplier(_ context.Context, s model.Supplier) (*model.Supplier, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	m.suppliers[s.ID] = s
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
	s, ok := m.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) ListSuppliers(_ context.Context) ([]model.Supplier, error) {
	out := make([]model.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) DeleteSupplier(_ context.Context, id string) error {
	delete(m.suppliers, id)
	return nil
}

func (m *memStore) CreateWorkflow(_ context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	now := time.Now().UTC()
	run := &model.WorkflowRun{
		ID:        uuid.New().String(),
		Request:   req,
		Phase:     model.PhaseScouting,
		CreatedAt: now,
		UpdatedAt: now,
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
	if m.failUpdate {
		return eris.New("store unavailable")
	}
	run.UpdatedAt = time.Now().UTC()
	cp := *run
	m.workflows[run.ID] = &cp
	return nil
}

func (m *memStore) ListWorkflows(_ context.Context, filter store.WorkflowFilter) ([]model.WorkflowRun, error) {
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
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	cp := *rec
	m.quotations[rec.ID] = &cp
	return rec, nil
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

func (m *memStore) RecordCallEvent(context.Context, string, string) error { return nil }

func (m *memStore) SaveMeeting(_ context.Context, meeting model.ScheduledMeeting) error {
	m.meetings = append(m.meetings, meeting)
	return nil
}

func (m *memStore) ListMeetings(_ context.Context) ([]model.ScheduledMeeting, error) {
	return m.meetings, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }
