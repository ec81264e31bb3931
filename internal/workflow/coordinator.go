// Package workflow drives the procurement state machine: scouting suppliers,
// awaiting quotes, human approval, and order placement.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/procuroid/procurement-engine/internal/directory"
	"github.com/procuroid/procurement-engine/internal/dispatch"
	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/store"
)

// ErrInvalidApproval marks an approval that targets the wrong workflow
// phase or a quotation that cannot be approved. API handlers map it to 409.
var ErrInvalidApproval = eris.New("workflow: invalid approval target")

// Coordinator owns workflow runs and their phase transitions. Transitions
// only move forward; failed is absorbing. A run in pending_approval waits
// indefinitely for a human decision.
type Coordinator struct {
	store      store.Store
	directory  *directory.Service
	dispatcher *dispatch.Dispatcher
}

// NewCoordinator creates a workflow coordinator.
func NewCoordinator(st store.Store, dir *directory.Service, disp *dispatch.Dispatcher) *Coordinator {
	return &Coordinator{store: st, directory: dir, dispatcher: disp}
}

// StartProcurement creates a workflow run for the request, scouts suppliers,
// and dispatches the call batch. The returned run is in awaiting_quotes, or
// failed when no supplier could be called.
func (c *Coordinator) StartProcurement(ctx context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	run, err := c.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Launch(ctx, run)
}

// Create validates the request and persists a new run in scouting. Useful
// when the caller wants to launch the call batch asynchronously.
func (c *Coordinator) Create(ctx context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	if req.ProductDescription == "" {
		return nil, eris.New("workflow: request has no product description")
	}
	if req.Quantity <= 0 {
		return nil, eris.New("workflow: request quantity must be positive")
	}

	run, err := c.store.CreateWorkflow(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: create run")
	}

	zap.L().Info("workflow: started",
		zap.String("workflow_id", run.ID),
		zap.String("product", req.ProductDescription),
		zap.Int("quantity", req.Quantity),
	)
	return run, nil
}

// Launch scouts suppliers and dispatches the call batch for a run created
// with Create.
func (c *Coordinator) Launch(ctx context.Context, run *model.WorkflowRun) (*model.WorkflowRun, error) {
	req := run.Request

	suppliers, err := c.directory.FindSuppliers(ctx, req)
	if err != nil {
		return c.fail(ctx, run, fmt.Sprintf("supplier scouting failed: %v", err))
	}
	if len(suppliers) == 0 {
		return c.fail(ctx, run, "no callable suppliers found for request")
	}

	outcomes, err := c.dispatcher.Dispatch(ctx, run.ID, req, suppliers)
	run.Outcomes = outcomes
	if err != nil {
		c.saveOutcomes(ctx, run)
		return c.fail(ctx, run, fmt.Sprintf("dispatch aborted: %v", err))
	}

	placed := 0
	for _, o := range outcomes {
		if o.Status == model.OutcomeCalled {
			placed++
		}
	}
	if placed == 0 {
		c.saveOutcomes(ctx, run)
		return c.fail(ctx, run, "every supplier call failed to place")
	}

	run.Phase = model.PhaseAwaitingQuotes
	if err := c.store.UpdateWorkflow(ctx, run); err != nil {
		return nil, eris.Wrap(err, "workflow: persist awaiting_quotes")
	}
	return run, nil
}

// QuoteRecorded advances a run from awaiting_quotes to pending_approval once
// every placed call has a quotation record. Called by the reconciler after
// each record lands; calls in other phases are no-ops.
func (c *Coordinator) QuoteRecorded(ctx context.Context, workflowID string) error {
	run, err := c.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return eris.Wrap(err, "workflow: load run")
	}
	if run == nil || run.Phase != model.PhaseAwaitingQuotes {
		return nil
	}

	records, err := c.store.ListQuotationsByWorkflow(ctx, workflowID)
	if err != nil {
		return eris.Wrap(err, "workflow: list quotations")
	}

	recorded := make(map[string]bool, len(records))
	for _, rec := range records {
		recorded[rec.CallID] = true
	}
	for _, o := range run.Outcomes {
		if o.Status == model.OutcomeCalled && !recorded[o.CallID] {
			return nil // still waiting on at least one call
		}
	}

	run.Phase = model.PhasePendingApproval
	if err := c.store.UpdateWorkflow(ctx, run); err != nil {
		return eris.Wrap(err, "workflow: persist pending_approval")
	}
	zap.L().Info("workflow: all quotes in, awaiting approval",
		zap.String("workflow_id", workflowID),
		zap.Int("records", len(records)),
	)
	return nil
}

// Approve accepts a human decision on a quotation and drives the run through
// ordering to completion. The run must be pending_approval and the quotation
// must be a received quote belonging to the run, otherwise
// ErrInvalidApproval is returned and the run is left untouched.
func (c *Coordinator) Approve(ctx context.Context, workflowID, quotationID string) (*model.WorkflowRun, error) {
	run, err := c.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load run")
	}
	if run == nil {
		return nil, eris.Errorf("workflow not found: %s", workflowID)
	}
	if run.Phase != model.PhasePendingApproval {
		return nil, eris.Wrapf(ErrInvalidApproval, "workflow %s is %s", workflowID, run.Phase)
	}

	quotation, err := c.store.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load quotation")
	}
	if quotation == nil || quotation.WorkflowID != workflowID {
		return nil, eris.Wrapf(ErrInvalidApproval, "quotation %s does not belong to workflow %s", quotationID, workflowID)
	}
	if quotation.ResponseType != model.ResponseQuotationReceived {
		return nil, eris.Wrapf(ErrInvalidApproval, "quotation %s is %s, not an approved quote", quotationID, quotation.ResponseType)
	}

	run.Phase = model.PhaseOrdering
	run.ApprovedQuotationID = quotationID
	if err := c.store.UpdateWorkflow(ctx, run); err != nil {
		return nil, eris.Wrap(err, "workflow: persist ordering")
	}

	order, err := c.placeOrder(ctx, run, quotation)
	if err != nil {
		return c.fail(ctx, run, fmt.Sprintf("order placement failed: %v", err))
	}

	run.Order = order
	run.Phase = model.PhaseCompleted
	if err := c.store.UpdateWorkflow(ctx, run); err != nil {
		return nil, eris.Wrap(err, "workflow: persist completed")
	}

	zap.L().Info("workflow: completed",
		zap.String("workflow_id", run.ID),
		zap.String("quotation_id", quotationID),
		zap.String("order_id", order.OrderID),
	)
	return run, nil
}

// placeOrder confirms the order and arranges logistics and contract
// generation concurrently.
func (c *Coordinator) placeOrder(ctx context.Context, run *model.WorkflowRun, quotation *model.QuotationRecord) (*model.OrderConfirmation, error) {
	order := &model.OrderConfirmation{
		OrderID:     uuid.New().String(),
		SupplierID:  quotation.SupplierID,
		QuotationID: quotation.ID,
		Status:      "confirmed",
		PlacedAt:    time.Now().UTC(),
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		order.Delivery = buildDeliveryPlan(run, quotation)
		return nil
	})
	g.Go(func() error {
		order.Contract = &model.Contract{
			Reference:   fmt.Sprintf("PO-%s", order.OrderID[:8]),
			GeneratedAt: time.Now().UTC(),
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return order, nil
}

func buildDeliveryPlan(run *model.WorkflowRun, quotation *model.QuotationRecord) *model.DeliveryPlan {
	plan := &model.DeliveryPlan{}
	if q := quotation.Quotation; q != nil {
		if q.ShippingMethod != "" {
			plan.Carrier = q.ShippingMethod
		}
		if q.DeliveryDate != nil {
			plan.EstimatedArrival = q.DeliveryDate
		} else if q.LeadTimeDays != nil {
			eta := time.Now().UTC().AddDate(0, 0, *q.LeadTimeDays)
			plan.EstimatedArrival = &eta
		}
	}
	if plan.EstimatedArrival == nil && run.Request.DeliveryDeadline != nil {
		plan.EstimatedArrival = run.Request.DeliveryDeadline
	}
	return plan
}

// Comparison returns the run's quotation records ranked by recomputed
// comparison metrics. Available from awaiting_quotes onward.
func (c *Coordinator) Comparison(ctx context.Context, workflowID string) ([]model.RankedQuotation, error) {
	run, err := c.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load run")
	}
	if run == nil {
		return nil, eris.Errorf("workflow not found: %s", workflowID)
	}

	records, err := c.store.ListQuotationsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: list quotations")
	}
	return ScoreQuotations(records), nil
}

// ScheduleMeeting books a supplier meeting from a meeting_requested record.
// Meetings are a side channel: they never change the workflow phase, and
// remain available whatever state the run is in.
func (c *Coordinator) ScheduleMeeting(ctx context.Context, req model.MeetingRequest) (*model.ScheduledMeeting, error) {
	if req.QuotationID == "" {
		return nil, eris.New("workflow: meeting request has no quotation id")
	}
	quotation, err := c.store.GetQuotation(ctx, req.QuotationID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load quotation")
	}
	if quotation == nil {
		return nil, eris.Errorf("quotation not found: %s", req.QuotationID)
	}

	meetingTime := pickMeetingTime(req, quotation)
	meeting := model.ScheduledMeeting{
		ID:          uuid.New().String(),
		QuotationID: quotation.ID,
		SupplierID:  quotation.SupplierID,
		Time:        meetingTime,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.store.SaveMeeting(ctx, meeting); err != nil {
		return nil, eris.Wrap(err, "workflow: save meeting")
	}

	zap.L().Info("workflow: meeting scheduled",
		zap.String("quotation_id", quotation.ID),
		zap.String("supplier_id", quotation.SupplierID),
		zap.String("time", meetingTime),
	)
	return &meeting, nil
}

// pickMeetingTime prefers an explicitly requested slot, then the supplier's
// stated preference from the call, then a next-business-day default.
func pickMeetingTime(req model.MeetingRequest, quotation *model.QuotationRecord) string {
	if len(req.PreferredTimes) > 0 {
		return req.PreferredTimes[0]
	}
	if quotation.Meeting != nil && len(quotation.Meeting.PreferredTimes) > 0 {
		return quotation.Meeting.PreferredTimes[0]
	}
	next := time.Now().UTC().AddDate(0, 0, 1)
	if next.Weekday() == time.Saturday {
		next = next.AddDate(0, 0, 2)
	} else if next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next.Format("2006-01-02") + " 10:00"
}

// Get returns a workflow run by id.
func (c *Coordinator) Get(ctx context.Context, workflowID string) (*model.WorkflowRun, error) {
	run, err := c.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load run")
	}
	return run, nil
}

// List returns workflow runs matching the filter.
func (c *Coordinator) List(ctx context.Context, filter store.WorkflowFilter) ([]model.WorkflowRun, error) {
	runs, err := c.store.ListWorkflows(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: list runs")
	}
	return runs, nil
}

// fail moves a run into the absorbing failed phase with a reason.
func (c *Coordinator) fail(ctx context.Context, run *model.WorkflowRun, reason string) (*model.WorkflowRun, error) {
	run.Phase = model.PhaseFailed
	run.FailureReason = reason
	if err := c.store.UpdateWorkflow(ctx, run); err != nil {
		return nil, eris.Wrapf(err, "workflow: persist failure for %s", run.ID)
	}
	zap.L().Warn("workflow: failed",
		zap.String("workflow_id", run.ID),
		zap.String("reason", reason),
	)
	return run, nil
}

func (c *Coordinator) saveOutcomes(ctx context.Context, run *model.WorkflowRun) {
	if err := c.store.UpdateWorkflow(ctx, run); err != nil {
		zap.L().Warn("workflow: persist outcomes failed",
			zap.String("workflow_id", run.ID),
			zap.Error(err),
		)
	}
}
