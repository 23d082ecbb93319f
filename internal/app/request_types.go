package app

import (
	"github.com/shopspring/decimal"

	"purchase-request-expense/internal/core"
)

// CreateRequestRequest carries the input for a new DRAFT purchase request.
type CreateRequestRequest struct {
	CompanyCode      string             `json:"company_code"`
	RequestedBy      int                `json:"requested_by"`
	Description      string             `json:"description"`
	PickingTypeCode  string             `json:"picking_type_code"`
	ProcurementGroup string             `json:"procurement_group"`
	Lines            []RequestLineInput `json:"lines"`
}

// RequestLineInput is one requested product/quantity on a new request.
type RequestLineInput struct {
	ProductCode   string          `json:"product_code"`
	Description   string          `json:"description"`
	ProductQty    decimal.Decimal `json:"product_qty"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Unit          string          `json:"unit"`
}

// LineProgressRequest updates procurement progress on one request line.
// Nil fields are left untouched.
type LineProgressRequest struct {
	LineID        int              `json:"line_id"`
	QtyInProgress *decimal.Decimal `json:"qty_in_progress,omitempty"`
	QtyDone       *decimal.Decimal `json:"qty_done,omitempty"`
	PurchaseState *string          `json:"purchase_state,omitempty"`
}

// MakeExpenseRequest commits staged (possibly user-edited) conversion items.
type MakeExpenseRequest struct {
	EmployeeID int                   `json:"employee_id"`
	Items      []core.ConversionItem `json:"items"`
}
