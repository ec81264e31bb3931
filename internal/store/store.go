package store

import (
	"context"

	"github.com/procuroid/procurement-engine/internal/model"
)

// WorkflowFilter specifies criteria for listing workflow runs.
type WorkflowFilter struct {
	Phase  model.WorkflowPhase `json:"phase,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the procurement engine.
type Store interface {
	// Suppliers
	UpsertSupplier(ctx context.Context, supplier model.Supplier) (*model.Supplier, error)
	ImportSuppliers(ctx context.Context, suppliers []model.Supplier) (int64, error)
	GetSupplier(ctx context.Context, supplierID string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	DeleteSupplier(ctx context.Context, supplierID string) error

	// Workflow runs
	CreateWorkflow(ctx context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error)
	GetWorkflow(ctx context.Context, workflowID string) (*model.WorkflowRun, error)
	UpdateWorkflow(ctx context.Context, run *model.WorkflowRun) error
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]model.WorkflowRun, error)

	// Quotation records (keyed by call_id; reconciling the same call twice
	// updates the existing record)
	UpsertQuotation(ctx context.Context, record *model.QuotationRecord) (*model.QuotationRecord, error)
	GetQuotation(ctx context.Context, quotationID string) (*model.QuotationRecord, error)
	GetQuotationByCallID(ctx context.Context, callID string) (*model.QuotationRecord, error)
	ListQuotationsByWorkflow(ctx context.Context, workflowID string) ([]model.QuotationRecord, error)

	// Call event audit trail (webhook and poll entries converge here)
	RecordCallEvent(ctx context.Context, callID, source string) error

	// Meetings
	SaveMeeting(ctx context.Context, meeting model.ScheduledMeeting) error
	ListMeetings(ctx context.Context) ([]model.ScheduledMeeting, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
