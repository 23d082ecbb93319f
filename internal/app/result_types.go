package app

import (
	"time"

	"github.com/shopspring/decimal"

	"purchase-request-expense/internal/core"
)

type EmployeeListResult struct {
	CompanyCode string          `json:"company_code"`
	Employees   []core.Employee `json:"employees"`
}

type ProductListResult struct {
	CompanyCode string         `json:"company_code"`
	Products    []core.Product `json:"products"`
}

type PickingTypeListResult struct {
	CompanyCode  string             `json:"company_code"`
	PickingTypes []core.PickingType `json:"picking_types"`
}

// RequestLineView is the wire shape of a purchase request line, including
// the derived pending quantity.
type RequestLineView struct {
	ID                  int             `json:"id"`
	RequestID           int             `json:"request_id"`
	ProductID           *int            `json:"product_id,omitempty"`
	ProductCode         *string         `json:"product_code,omitempty"`
	ProductName         *string         `json:"product_name,omitempty"`
	Description         string          `json:"description"`
	ProductQty          decimal.Decimal `json:"product_qty"`
	QtyInProgress       decimal.Decimal `json:"qty_in_progress"`
	QtyDone             decimal.Decimal `json:"qty_done"`
	PendingQtyToReceive decimal.Decimal `json:"pending_qty_to_receive"`
	EstimatedCost       decimal.Decimal `json:"estimated_cost"`
	Unit                string          `json:"unit"`
	PurchaseState       *string         `json:"purchase_state,omitempty"`
	ExpenseID           *int            `json:"expense_id,omitempty"`
}

// RequestResult is a purchase request with its lines and expense summary.
type RequestResult struct {
	ID               int               `json:"id"`
	CompanyID        int               `json:"company_id"`
	RequestNumber    *string           `json:"request_number,omitempty"`
	Description      string            `json:"description"`
	RequestedBy      int               `json:"requested_by"`
	RequestedByName  string            `json:"requested_by_name"`
	PickingTypeName  *string           `json:"picking_type_name,omitempty"`
	ProcurementGroup *string           `json:"procurement_group,omitempty"`
	State            string            `json:"state"`
	CreatedAt        time.Time         `json:"created_at"`
	Lines            []RequestLineView `json:"lines"`
	ExpenseCount     int               `json:"expense_count"`
	ExpenseTotal     decimal.Decimal   `json:"expense_total"`
}

type RequestListResult struct {
	CompanyCode string          `json:"company_code"`
	Requests    []RequestResult `json:"requests"`
}

// ConversionItemsResult is the staged item set awaiting review/commit.
type ConversionItemsResult struct {
	Items []core.ConversionItem `json:"items"`
}

// ExpenseResult is the wire shape of one expense record.
type ExpenseResult struct {
	ID                    int             `json:"id"`
	EmployeeID            int             `json:"employee_id"`
	EmployeeName          string          `json:"employee_name"`
	ProductCode           string          `json:"product_code"`
	ProductName           string          `json:"product_name"`
	Description           string          `json:"description"`
	Quantity              decimal.Decimal `json:"quantity"`
	UnitAmount            decimal.Decimal `json:"unit_amount"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	Unit                  string          `json:"unit"`
	Reference             string          `json:"reference"`
	PurchaseRequestLineID *int            `json:"purchase_request_line_id,omitempty"`
	Advance               bool            `json:"advance"`
	AccountCode           *string         `json:"account_code,omitempty"`
	SheetID               *int            `json:"sheet_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

type ExpenseListResult struct {
	CompanyCode string          `json:"company_code"`
	Expenses    []ExpenseResult `json:"expenses"`
}

// RequestExpensesResult summarizes a request's related expenses.
type RequestExpensesResult struct {
	RequestID    int              `json:"request_id"`
	ExpenseCount int              `json:"expense_count"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	Expenses     []ExpenseResult  `json:"expenses"`
	Action       *core.ViewAction `json:"action"`
}

type SheetResult struct {
	ID                int             `json:"id"`
	SheetNumber       *string         `json:"sheet_number,omitempty"`
	EmployeeID        int             `json:"employee_id"`
	EmployeeName      string          `json:"employee_name"`
	Name              string          `json:"name"`
	PurchaseRequestID *int            `json:"purchase_request_id,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	Expenses          []ExpenseResult `json:"expenses"`
}

type SheetListResult struct {
	CompanyCode string        `json:"company_code"`
	Sheets      []SheetResult `json:"sheets"`
}
