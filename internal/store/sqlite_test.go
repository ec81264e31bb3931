package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procuroid/procurement-engine/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Suppliers ---

func TestSQLite_Supplier_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.UpsertSupplier(ctx, model.Supplier{
		Name:         "Acme Fasteners",
		Phone:        "+15550001111",
		Email:        "sales@acme.test",
		Capabilities: []string{"steel brackets", "bolts"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := st.GetSupplier(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Fasteners", got.Name)
	assert.Equal(t, "+15550001111", got.Phone)
	assert.Equal(t, []string{"steel brackets", "bolts"}, got.Capabilities)
}

func TestSQLite_Supplier_UpsertUpdatesInPlace(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.UpsertSupplier(ctx, model.Supplier{Name: "Acme", Phone: "+1555"})
	require.NoError(t, err)

	created.Phone = "+1666"
	_, err = st.UpsertSupplier(ctx, *created)
	require.NoError(t, err)

	got, err := st.GetSupplier(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "+1666", got.Phone)

	suppliers, err := st.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Len(t, suppliers, 1)
}

func TestSQLite_Supplier_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetSupplier(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Supplier_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.UpsertSupplier(ctx, model.Supplier{Name: "Gone Inc"})
	require.NoError(t, err)

	require.NoError(t, st.DeleteSupplier(ctx, created.ID))
	got, err := st.GetSupplier(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = st.DeleteSupplier(ctx, created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ImportSuppliers(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	count, err := st.ImportSuppliers(ctx, []model.Supplier{
		{Name: "Alpha", Phone: "+1"},
		{Name: "Beta", Phone: "+2", Capabilities: []string{"aluminum"}},
		{Name: "Gamma"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	suppliers, err := st.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 3)
	// ListSuppliers orders by name.
	assert.Equal(t, "Alpha", suppliers[0].Name)
	assert.Equal(t, "Gamma", suppliers[2].Name)
}

// --- Workflows ---

func TestSQLite_Workflow_CreateAndUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateWorkflow(ctx, model.ProcurementRequest{
		ProductDescription: "500 steel brackets",
		Quantity:           500,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseScouting, run.Phase)

	run.Phase = model.PhaseAwaitingQuotes
	run.Outcomes = []model.DispatchOutcome{
		{SupplierID: "sup-1", SupplierName: "Acme", CallID: "conv-1", Status: model.OutcomeCalled},
		{SupplierID: "sup-2", Status: model.OutcomeFailed, Error: "no phone number"},
	}
	require.NoError(t, st.UpdateWorkflow(ctx, run))

	got, err := st.GetWorkflow(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.PhaseAwaitingQuotes, got.Phase)
	assert.Equal(t, "500 steel brackets", got.Request.ProductDescription)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "conv-1", got.Outcomes[0].CallID)
	assert.Equal(t, model.OutcomeFailed, got.Outcomes[1].Status)
}

func TestSQLite_Workflow_OrderSurvivesRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "bolts", Quantity: 100})
	require.NoError(t, err)

	run.Phase = model.PhaseCompleted
	run.ApprovedQuotationID = "quote-1"
	run.Order = &model.OrderConfirmation{
		OrderID:     "PO-123",
		SupplierID:  "sup-1",
		QuotationID: "quote-1",
		Status:      "confirmed",
	}
	require.NoError(t, st.UpdateWorkflow(ctx, run))

	got, err := st.GetWorkflow(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "quote-1", got.ApprovedQuotationID)
	require.NotNil(t, got.Order)
	assert.Equal(t, "PO-123", got.Order.OrderID)
}

func TestSQLite_Workflow_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetWorkflow(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Workflow_UpdateMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateWorkflow(context.Background(), &model.WorkflowRun{ID: "ghost", Phase: model.PhaseFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_Workflow_ListFiltersByPhase(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "a", Quantity: 1})
	require.NoError(t, err)
	_, err = st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "b", Quantity: 2})
	require.NoError(t, err)

	first.Phase = model.PhaseCompleted
	require.NoError(t, st.UpdateWorkflow(ctx, first))

	all, err := st.ListWorkflows(ctx, WorkflowFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := st.ListWorkflows(ctx, WorkflowFilter{Phase: model.PhaseCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)
}

// --- Quotation records ---

func TestSQLite_Quotation_UpsertKeyedByCallID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	price := 1200.0
	first, err := st.UpsertQuotation(ctx, &model.QuotationRecord{
		WorkflowID:   "wf-1",
		SupplierID:   "sup-1",
		SupplierName: "Acme",
		CallID:       "conv-1",
		ResponseType: model.ResponseQuotationReceived,
		Quotation:    &model.QuotationFields{TotalPrice: &price, Currency: "USD", Confidence: 85},
		Sentiment:    8,
		Confidence:   85,
		KeyPoints:    []string{"quoted $1200 total"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	// A second reconcile of the same call updates in place.
	second, err := st.UpsertQuotation(ctx, &model.QuotationRecord{
		CallID:       "conv-1",
		ResponseType: model.ResponseDeclined,
		Sentiment:    3,
		Reason:       "cannot meet the deadline",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, model.ResponseDeclined, second.ResponseType)

	records, err := st.ListQuotationsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, records) // the update cleared workflow_id

	got, err := st.GetQuotationByCallID(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cannot meet the deadline", got.Reason)
}

func TestSQLite_Quotation_FieldsSurviveRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	unit := 2.4
	lead := 14
	inStock := true
	saved, err := st.UpsertQuotation(ctx, &model.QuotationRecord{
		WorkflowID:   "wf-1",
		SupplierID:   "sup-1",
		CallID:       "conv-2",
		ResponseType: model.ResponseQuotationReceived,
		Quotation: &model.QuotationFields{
			PricePerUnit: &unit,
			Currency:     "EUR",
			LeadTimeDays: &lead,
			InStock:      &inStock,
			PaymentTerms: "net 30",
			Confidence:   90,
		},
		Meeting:          &model.MeetingInfo{Requested: true, Reason: "review specs"},
		Sentiment:        7,
		Confidence:       90,
		KeyPoints:        []string{"2.40/unit", "14 day lead"},
		ExtractionMethod: model.ExtractionTranscriptAnalysis,
		Metrics:          &model.ComparisonMetrics{Value: 80},
	})
	require.NoError(t, err)

	got, err := st.GetQuotation(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Quotation)
	assert.Equal(t, 2.4, *got.Quotation.PricePerUnit)
	assert.Equal(t, "EUR", got.Quotation.Currency)
	assert.Equal(t, 14, *got.Quotation.LeadTimeDays)
	assert.True(t, *got.Quotation.InStock)
	require.NotNil(t, got.Meeting)
	assert.True(t, got.Meeting.Requested)
	assert.Equal(t, []string{"2.40/unit", "14 day lead"}, got.KeyPoints)
	assert.Equal(t, model.ExtractionTranscriptAnalysis, got.ExtractionMethod)
	// Comparison metrics are recomputed on demand, never persisted.
	assert.Nil(t, got.Metrics)
}

func TestSQLite_Quotation_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetQuotationByCallID(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Call events and meetings ---

func TestSQLite_RecordCallEvent_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordCallEvent(ctx, "conv-1", "webhook"))
	require.NoError(t, st.RecordCallEvent(ctx, "conv-1", "webhook"))
	require.NoError(t, st.RecordCallEvent(ctx, "conv-1", "poll"))
}

func TestSQLite_Meetings_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveMeeting(ctx, model.ScheduledMeeting{
		QuotationID: "quote-1",
		SupplierID:  "sup-1",
		Time:        "2026-04-02T10:00:00Z",
	}))
	require.NoError(t, st.SaveMeeting(ctx, model.ScheduledMeeting{
		QuotationID: "quote-2",
		Time:        "2026-04-03T15:00:00Z",
	}))

	meetings, err := st.ListMeetings(ctx)
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	for _, m := range meetings {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Time)
	}
}
