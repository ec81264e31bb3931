package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procuroid/procurement-engine/internal/config"
	"github.com/procuroid/procurement-engine/internal/directory"
	"github.com/procuroid/procurement-engine/internal/dispatch"
	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/elevenlabs"
)

// stubCalls is a canned calling client for coordinator tests.
type stubCalls struct {
	placeErr error
	placed   int
}

func (s *stubCalls) PlaceCall(_ context.Context, req elevenlabs.CallRequest) (*elevenlabs.CallResult, error) {
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	s.placed++
	return &elevenlabs.CallResult{CallSID: "CA-" + req.SupplierID, Status: "queued"}, nil
}

func (s *stubCalls) ListConversations(context.Context, ...elevenlabs.ListOption) (*elevenlabs.ConversationList, error) {
	return &elevenlabs.ConversationList{}, nil
}

func (s *stubCalls) GetConversation(context.Context, string) (*elevenlabs.ConversationDetail, error) {
	return nil, eris.New("not found")
}

func newTestCoordinator(st *memStore, calls elevenlabs.Client) *Coordinator {
	disp := dispatch.NewDispatcher(calls, config.DispatchConfig{CallsPerSecond: 1000})
	return NewCoordinator(st, directory.NewService(st), disp)
}

func quotedRecord(workflowID, callID string, price float64) *model.QuotationRecord {
	return &model.QuotationRecord{
		WorkflowID:   workflowID,
		SupplierID:   "sup-" + callID,
		CallID:       callID,
		ResponseType: model.ResponseQuotationReceived,
		Quotation: &model.QuotationFields{
			TotalPrice: &price,
			Currency:   "USD",
			Confidence: 85,
		},
		Sentiment: 7,
	}
}

func TestCreate_ValidatesRequest(t *testing.T) {
	c := newTestCoordinator(newMemStore(), &stubCalls{})

	_, err := c.Create(context.Background(), model.ProcurementRequest{Quantity: 5})
	assert.Error(t, err)

	_, err = c.Create(context.Background(), model.ProcurementRequest{ProductDescription: "bolts"})
	assert.Error(t, err)
}

func TestStartProcurement_ReachesAwaitingQuotes(t *testing.T) {
	st := newMemStore()
	st.suppliers["sup-1"] = model.Supplier{ID: "sup-1", Name: "Acme", Phone: "+15550001", Capabilities: []string{"steel fabrication"}}

	c := newTestCoordinator(st, &stubCalls{})
	run, err := c.StartProcurement(context.Background(), model.ProcurementRequest{
		ProductDescription: "steel brackets",
		Quantity:           500,
	})

	require.NoError(t, err)
	assert.Equal(t, model.PhaseAwaitingQuotes, run.Phase)
	require.Len(t, run.Outcomes, 1)
	assert.Equal(t, model.OutcomeCalled, run.Outcomes[0].Status)
	assert.Equal(t, "CA-sup-1", run.Outcomes[0].CallID)
}

func TestStartProcurement_NoSuppliersFails(t *testing.T) {
	c := newTestCoordinator(newMemStore(), &stubCalls{})

	run, err := c.StartProcurement(context.Background(), model.ProcurementRequest{
		ProductDescription: "steel brackets",
		Quantity:           500,
	})

	require.NoError(t, err)
	assert.Equal(t, model.PhaseFailed, run.Phase)
	assert.Contains(t, run.FailureReason, "no callable suppliers")
}

func TestStartProcurement_AllCallsFailedFails(t *testing.T) {
	st := newMemStore()
	st.suppliers["sup-1"] = model.Supplier{ID: "sup-1", Name: "Acme", Phone: "+15550001"}

	c := newTestCoordinator(st, &stubCalls{placeErr: eris.New("telephony down")})
	run, err := c.StartProcurement(context.Background(), model.ProcurementRequest{
		ProductDescription: "steel brackets",
		Quantity:           500,
	})

	require.NoError(t, err)
	assert.Equal(t, model.PhaseFailed, run.Phase)
	// The failed outcomes are still recorded on the run.
	require.Len(t, run.Outcomes, 1)
	assert.Equal(t, model.OutcomeFailed, run.Outcomes[0].Status)
}

func TestQuoteRecorded_AdvancesWhenAllCallsIn(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	c := newTestCoordinator(st, &stubCalls{})

	run, err := st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "bolts", Quantity: 10})
	require.NoError(t, err)
	run.Phase = model.PhaseAwaitingQuotes
	run.Outcomes = []model.DispatchOutcome{
		{SupplierID: "sup-a", CallID: "call-a", Status: model.OutcomeCalled},
		{SupplierID: "sup-b", CallID: "call-b", Status: model.OutcomeCalled},
		{SupplierID: "sup-c", Status: model.OutcomeFailed}, // never counts
	}
	require.NoError(t, st.UpdateWorkflow(ctx, run))

	// First record lands: still waiting on call-b.
	_, err = st.UpsertQuotation(ctx, quotedRecord(run.ID, "call-a", 100))
	require.NoError(t, err)
	require.NoError(t, c.QuoteRecorded(ctx, run.ID))

	got, _ := st.GetWorkflow(ctx, run.ID)
	assert.Equal(t, model.PhaseAwaitingQuotes, got.Phase)

	// Second record lands: every placed call is accounted for.
	_, err = st.UpsertQuotation(ctx, quotedRecord(run.ID, "call-b", 90))
	require.NoError(t, err)
	require.NoError(t, c.QuoteRecorded(ctx, run.ID))

	got, _ = st.GetWorkflow(ctx, run.ID)
	assert.Equal(t, model.PhasePendingApproval, got.Phase)
}

func TestQuoteRecorded_IgnoresOtherPhases(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	c := newTestCoordinator(st, &stubCalls{})

	run, _ := st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "bolts", Quantity: 10})
	run.Phase = model.PhaseCompleted
	require.NoError(t, st.UpdateWorkflow(ctx, run))

	require.NoError(t, c.QuoteRecorded(ctx, run.ID))
	got, _ := st.GetWorkflow(ctx, run.ID)
	assert.Equal(t, model.PhaseCompleted, got.Phase)

	// Unknown workflow is a no-op, not an error.
	require.NoError(t, c.QuoteRecorded(ctx, "missing"))
}

func TestApprove_HappyPath(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	c := newTestCoordinator(st, &stubCalls{})

	run, _ := st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "bolts", Quantity: 10})
	run.Phase = model.PhasePendingApproval
	require.NoError(t, st.UpdateWorkflow(ctx, run))

	lead := 7
	rec := quotedRecord(run.ID, "call-a", 100)
	rec.Quotation.LeadTimeDays = &lead
	rec.Quotation.ShippingMethod = "ground freight"
	saved, err := st.UpsertQuotation(ctx, rec)
	require.NoError(t, err)

	got, err := c.Approve(ctx, run.ID, saved.ID)
	require.NoError(t, err)

	assert.Equal(t, model.PhaseCompleted, got.Phase)
	assert.Equal(t, saved.ID, got.ApprovedQuotationID)
	require.NotNil(t, got.Order)
	assert.Equal(t, "confirmed", got.Order.Status)
	assert.Equal(t, saved.SupplierID, got.Order.SupplierID)
	require.NotNil(t, got.Order.Contract)
	assert.True(t, strings.HasPrefix(got.Order.Contract.Reference, "PO-"))
	require.NotNil(t, got.Order.Delivery)
	assert.Equal(t, "ground freight", got.Order.Delivery.Carrier)
	require.NotNil(t, got.Order.Delivery.EstimatedArrival)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, lead), *got.Order.Delivery.EstimatedArrival, time.Minute)
}

func TestApprove_InvalidTargets(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	c := newTestCoordinator(st, &stubCalls{})

	run, _ := st.CreateWorkflow(ctx, model.ProcurementRequest{ProductDescription: "bolts", Quantity: 10})
	run.Phase = model.PhasePendingApproval
	require.NoError(t, st.UpdateWorkflow(ctx, run))

	// Quotation from another workflow.
	foreign, _ := st.UpsertQuotation(ctx, quotedRecord("other-wf", "call-x", 50))
	_, err := c.Approve(ctx, run.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrInvalidApproval)

	// Record that is not a received quotation.
	declined := quotedRecord(run.ID, "call-y", 0)
	declined.ResponseType = model.ResponseDeclined
	declined.Quotation = nil
	savedDeclined, _ := st.UpsertQuotation(ctx, declined)
	_, err = c.Approve(ctx, run.ID, savedDeclined.ID)
	assert.ErrorIs(t, err, ErrInvalidApproval)

	// Wrong phase.
	run.Phase = model.PhaseAwaitingQuotes
	require.NoError(t, st.UpdateWorkflow(ctx, run))
	valid, _ := st.UpsertQuotation(ctx, quotedRecord(run.ID, "call-z", 80))
	_, err = c.Approve(ctx, run.ID, valid.ID)
	assert.ErrorIs(t, err, ErrInvalidApproval)

	// The run never left its phase.
	got, _ := st.GetWorkflow(ctx, run.ID)
	assert.Equal(t, model.PhaseAwaitingQuotes, got.Phase)
	assert.Empty(t, got.ApprovedQuotationID)
}

func TestScheduleMeeting(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	c := newTestCoordinator(st, &stubCalls{})

	rec := quotedRecord("wf-1", "call-a", 100)
	rec.ResponseType = model.ResponseMeetingRequested
	rec.Meeting = &model.MeetingInfo{
		Requested:      true,
		PreferredTimes: []string{"Friday 9am"},
	}
	saved, _ := st.UpsertQuotation(ctx, rec)

	// Caller preference wins over the supplier's stated preference.
	meeting, err := c.ScheduleMeeting(ctx, model.MeetingRequest{
		QuotationID:    saved.ID,
		PreferredTimes: []string{"Monday 3pm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Monday 3pm", meeting.Time)
	assert.Equal(t, saved.SupplierID, meeting.SupplierID)

	// Without a caller preference, the supplier's preference from the call.
	meeting, err = c.ScheduleMeeting(ctx, model.MeetingRequest{QuotationID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, "Friday 9am", meeting.Time)

	// Unknown quotation.
	_, err = c.ScheduleMeeting(ctx, model.MeetingRequest{QuotationID: "missing"})
	assert.Error(t, err)

	meetings, _ := st.ListMeetings(ctx)
	assert.Len(t, meetings, 2)
}

func TestPickMeetingTime_DefaultSkipsWeekend(t *testing.T) {
	rec := &model.QuotationRecord{}
	got := pickMeetingTime(model.MeetingRequest{}, rec)

	assert.True(t, strings.HasSuffix(got, " 10:00"))
	day, err := time.Parse("2006-01-02", strings.TrimSuffix(got, " 10:00"))
	require.NoError(t, err)
	assert.NotEqual(t, time.Saturday, day.Weekday())
	assert.NotEqual(t, time.Sunday, day.Weekday())
}
