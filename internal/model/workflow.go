package model

import "time"

// WorkflowPhase is the current state of a procurement workflow run.
type WorkflowPhase string

const (
	PhaseScouting        WorkflowPhase = "scouting"
	PhaseAwaitingQuotes  WorkflowPhase = "awaiting_quotes"
	PhasePendingApproval WorkflowPhase = "pending_approval"
	PhaseOrdering        WorkflowPhase = "ordering"
	PhaseCompleted       WorkflowPhase = "completed"
	PhaseFailed          WorkflowPhase = "failed"
)

// OutcomeStatus tags a per-supplier dispatch outcome.
type OutcomeStatus string

const (
	OutcomeCalled OutcomeStatus = "called"
	OutcomeFailed OutcomeStatus = "error"
)

// DispatchOutcome records the result of placing one supplier call. Every
// supplier in a dispatched batch gets exactly one outcome.
type DispatchOutcome struct {
	SupplierID   string        `json:"supplier_id"`
	SupplierName string        `json:"supplier_name"`
	CallID       string        `json:"call_id,omitempty"`
	Status       OutcomeStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
}

// WorkflowRun is one instance of the procurement state machine.
type WorkflowRun struct {
	ID                  string             `json:"id"`
	Request             ProcurementRequest `json:"request"`
	Phase               WorkflowPhase      `json:"phase"`
	Outcomes            []DispatchOutcome  `json:"outcomes,omitempty"`
	ApprovedQuotationID string             `json:"approved_quotation_id,omitempty"`
	FailureReason       string             `json:"failure_reason,omitempty"`
	Order               *OrderConfirmation `json:"order,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// OrderConfirmation is the result of placing an order for an approved quote.
type OrderConfirmation struct {
	OrderID     string        `json:"order_id"`
	SupplierID  string        `json:"supplier_id"`
	QuotationID string        `json:"quotation_id"`
	Status      string        `json:"status"`
	Delivery    *DeliveryPlan `json:"delivery,omitempty"`
	Contract    *Contract     `json:"contract,omitempty"`
	PlacedAt    time.Time     `json:"placed_at"`
}

// DeliveryPlan holds the logistics arrangement for a confirmed order.
type DeliveryPlan struct {
	Carrier           string     `json:"carrier,omitempty"`
	TrackingReference string     `json:"tracking_reference,omitempty"`
	EstimatedArrival  *time.Time `json:"estimated_arrival,omitempty"`
}

// Contract holds the generated purchase contract reference.
type Contract struct {
	Reference   string    `json:"reference"`
	GeneratedAt time.Time `json:"generated_at"`
}

// MeetingRequest is the side-channel input for scheduling a supplier
// meeting. Scheduling is independent of the main workflow phase.
type MeetingRequest struct {
	QuotationID    string   `json:"quotation_id"`
	SupplierID     string   `json:"supplier_id,omitempty"`
	SupplierName   string   `json:"supplier_name,omitempty"`
	PreferredTimes []string `json:"preferred_times,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// ScheduledMeeting confirms a booked supplier meeting.
type ScheduledMeeting struct {
	ID          string    `json:"id"`
	QuotationID string    `json:"quotation_id"`
	SupplierID  string    `json:"supplier_id,omitempty"`
	Time        string    `json:"time"`
	CreatedAt   time.Time `json:"created_at"`
}

// RankedQuotation pairs a persisted record with freshly computed comparison
// metrics for the decision view.
type RankedQuotation struct {
	Record  QuotationRecord    `json:"record"`
	Metrics *ComparisonMetrics `json:"metrics,omitempty"`
}
