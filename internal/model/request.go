package model

import "time"

// ProcurementRequest describes what the buyer wants quoted. It is immutable
// once a workflow has dispatched it to suppliers.
type ProcurementRequest struct {
	ProductDescription string            `json:"product_description" yaml:"product_description"`
	Quantity           int               `json:"quantity" yaml:"quantity"`
	Specifications     map[string]string `json:"specifications,omitempty" yaml:"specifications,omitempty"`
	DeliveryDeadline   *time.Time        `json:"delivery_deadline,omitempty" yaml:"delivery_deadline,omitempty"`
}

// Supplier is a candidate vendor from the supplier directory. The core never
// mutates suppliers; capabilities are free-form hints used during
// classification and candidate matching.
type Supplier struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Capabilities []string  `json:"capabilities,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
