// Package reconcile is the single entry point for completed calls. Webhook
// deliveries and transcript polling both converge here, and reconciling the
// same call twice yields one quotation record.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/analysis"
	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/store"
)

// Sources recorded on the call event audit trail.
const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)

// Advancer is notified after a quotation record lands so the owning workflow
// can progress. Implemented by the workflow coordinator.
type Advancer interface {
	QuoteRecorded(ctx context.Context, workflowID string) error
}

// Reconciler classifies completed calls and persists exactly one quotation
// record per call.
type Reconciler struct {
	store      store.Store
	classifier *analysis.Classifier
	advancer   Advancer
}

// NewReconciler creates a reconciler. The advancer is optional; with nil the
// reconciler records quotations without driving workflow transitions.
func NewReconciler(st store.Store, classifier *analysis.Classifier, advancer Advancer) *Reconciler {
	return &Reconciler{store: st, classifier: classifier, advancer: advancer}
}

// Reconcile processes one completed call. If a record already exists for the
// call and force is false, the existing record is returned untouched.
// With force true the transcript is re-analyzed and the existing record is
// updated in place; a second record is never created.
func (r *Reconciler) Reconcile(ctx context.Context, transcript model.CallTranscript, source string, force bool) (*model.QuotationRecord, error) {
	if transcript.CallID == "" {
		return nil, eris.New("reconcile: transcript has no call id")
	}

	if err := r.store.RecordCallEvent(ctx, transcript.CallID, source); err != nil {
		// Audit trail failures are not fatal to reconciliation.
		zap.L().Warn("reconcile: record call event failed",
			zap.String("call_id", transcript.CallID),
			zap.Error(err),
		)
	}

	existing, err := r.store.GetQuotationByCallID(ctx, transcript.CallID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: lookup existing record")
	}
	if existing != nil && !force {
		zap.L().Debug("reconcile: call already reconciled",
			zap.String("call_id", transcript.CallID),
			zap.String("source", source),
		)
		return existing, nil
	}

	// Backfill routing fields from the existing record when the transcript
	// (e.g. from a poll) carries less metadata than the webhook did.
	if existing != nil {
		if transcript.SupplierID == "" {
			transcript.SupplierID = existing.SupplierID
		}
		if transcript.SupplierName == "" {
			transcript.SupplierName = existing.SupplierName
		}
		if transcript.WorkflowID == "" {
			transcript.WorkflowID = existing.WorkflowID
		}
	}

	req := r.requestFor(ctx, transcript.WorkflowID)

	record := r.classifier.Classify(ctx, transcript, req)
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}

	saved, err := r.store.UpsertQuotation(ctx, record)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: persist record for call %s", transcript.CallID)
	}
	// Carry the ephemeral comparison metrics through to the caller.
	saved.Metrics = record.Metrics

	zap.L().Info("reconcile: call reconciled",
		zap.String("call_id", saved.CallID),
		zap.String("source", source),
		zap.String("response_type", string(saved.ResponseType)),
		zap.Bool("force", force),
	)

	if r.advancer != nil && saved.WorkflowID != "" {
		if err := r.advancer.QuoteRecorded(ctx, saved.WorkflowID); err != nil {
			zap.L().Warn("reconcile: workflow advance failed",
				zap.String("workflow_id", saved.WorkflowID),
				zap.Error(err),
			)
		}
	}

	return saved, nil
}

// requestFor loads the procurement request behind a workflow for scoring
// context. Missing workflows degrade to an empty request.
func (r *Reconciler) requestFor(ctx context.Context, workflowID string) model.ProcurementRequest {
	if workflowID == "" {
		return model.ProcurementRequest{}
	}
	run, err := r.store.GetWorkflow(ctx, workflowID)
	if err != nil || run == nil {
		if err != nil {
			zap.L().Warn("reconcile: load workflow failed",
				zap.String("workflow_id", workflowID),
				zap.Error(err),
			)
		}
		return model.ProcurementRequest{}
	}
	return run.Request
}
