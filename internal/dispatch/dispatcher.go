// Package dispatch fans outbound supplier calls across a bounded worker
// pool. One supplier failing never aborts the batch: every supplier in a
// dispatched batch ends with exactly one outcome, success or failure.
package dispatch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/procuroid/procurement-engine/internal/config"
	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/resilience"
	"github.com/procuroid/procurement-engine/pkg/elevenlabs"
)

// Concurrency bounds for the calling pool. Values outside this range are
// clamped so a misconfigured deployment cannot overwhelm the telephony
// provider or serialize the batch.
const (
	minConcurrentCalls = 10
	maxConcurrentCalls = 20
)

// Dispatcher places outbound calls to a batch of suppliers.
type Dispatcher struct {
	calls   elevenlabs.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	workers int
}

// NewDispatcher creates a dispatcher with the configured pool size and call
// pacing. Transient provider failures are retried with backoff; a run of
// hard failures opens the circuit so the rest of the batch fails fast.
func NewDispatcher(calls elevenlabs.Client, cfg config.DispatchConfig) *Dispatcher {
	workers := cfg.MaxConcurrentCalls
	if workers < minConcurrentCalls {
		workers = minConcurrentCalls
	}
	if workers > maxConcurrentCalls {
		workers = maxConcurrentCalls
	}

	cps := cfg.CallsPerSecond
	if cps <= 0 {
		cps = 2.0
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("telephony", "place_call")

	return &Dispatcher{
		calls:   calls,
		limiter: rate.NewLimiter(rate.Limit(cps), 1),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		retry:   retryCfg,
		workers: workers,
	}
}

// Dispatch places one call per supplier and returns one outcome per
// supplier, in the input order. Individual failures are recorded in the
// outcome and never abort the rest of the batch; only context cancellation
// returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, workflowID string, req model.ProcurementRequest, suppliers []model.Supplier) ([]model.DispatchOutcome, error) {
	outcomes := make([]model.DispatchOutcome, len(suppliers))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, supplier := range suppliers {
		i, supplier := i, supplier
		g.Go(func() error {
			outcomes[i] = d.callSupplier(gCtx, workflowID, req, supplier)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	placed := 0
	for _, o := range outcomes {
		if o.Status == model.OutcomeCalled {
			placed++
		}
	}
	zap.L().Info("dispatch: batch complete",
		zap.String("workflow_id", workflowID),
		zap.Int("suppliers", len(suppliers)),
		zap.Int("placed", placed),
		zap.Int("failed", len(suppliers)-placed),
	)

	return outcomes, nil
}

func (d *Dispatcher) callSupplier(ctx context.Context, workflowID string, req model.ProcurementRequest, supplier model.Supplier) model.DispatchOutcome {
	outcome := model.DispatchOutcome{
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
	}

	if supplier.Phone == "" {
		outcome.Status = model.OutcomeFailed
		outcome.Error = "supplier has no phone number"
		return outcome
	}

	if err := d.limiter.Wait(ctx); err != nil {
		outcome.Status = model.OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	result, err := resilience.ExecuteVal(ctx, d.breaker, func(ctx context.Context) (*elevenlabs.CallResult, error) {
		return resilience.DoVal(ctx, d.retry, func(ctx context.Context) (*elevenlabs.CallResult, error) {
			return d.calls.PlaceCall(ctx, elevenlabs.CallRequest{
				ToNumber:           supplier.Phone,
				SupplierID:         supplier.ID,
				SupplierName:       supplier.Name,
				WorkflowID:         workflowID,
				ProductDescription: req.ProductDescription,
				Quantity:           req.Quantity,
			})
		})
	})
	if err != nil {
		zap.L().Warn("dispatch: call failed",
			zap.String("workflow_id", workflowID),
			zap.String("supplier_id", supplier.ID),
			zap.Error(err),
		)
		outcome.Status = model.OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = model.OutcomeCalled
	outcome.CallID = result.CallSID
	return outcome
}
