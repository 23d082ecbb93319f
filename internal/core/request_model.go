package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase request lifecycle states. Conversion to expenses is only
// permitted while the request is APPROVED.
const (
	RequestDraft     = "DRAFT"
	RequestToApprove = "TO_APPROVE"
	RequestApproved  = "APPROVED"
	RequestRejected  = "REJECTED"
	RequestDone      = "DONE"
)

// PurchaseStateDone marks a line whose procurement has completed; such
// lines can no longer be converted.
const PurchaseStateDone = "DONE"

// PurchaseRequest represents a purchase request header.
type PurchaseRequest struct {
	ID               int
	CompanyID        int
	RequestNumber    *string // assigned on approval
	Description      string
	RequestedBy      int
	RequestedByName  string
	PickingTypeID    *int
	PickingTypeName  *string
	ProcurementGroup *string
	State            string
	CreatedAt        time.Time
	ApprovedAt       *time.Time
	DoneAt           *time.Time
	Lines            []PurchaseRequestLine
}

// PurchaseRequestLine represents a single requested product/quantity.
type PurchaseRequestLine struct {
	ID            int
	RequestID     int
	CompanyID     int
	ProductID     *int
	ProductCode   *string
	ProductName   *string
	Description   string
	ProductQty    decimal.Decimal
	QtyInProgress decimal.Decimal
	QtyDone       decimal.Decimal
	EstimatedCost decimal.Decimal
	Unit          string
	PurchaseState *string
	ExpenseID     *int
	CreatedAt     time.Time

	// Denormalized request fields the validator needs; populated by the
	// line loaders so validation can run without further queries.
	RequestNumber *string
	RequestState  string
	PickingTypeID *int
}

// PendingQtyToReceive is product_qty - qty_in_progress - qty_done.
// It is not clamped; progress beyond the requested quantity goes negative.
func (l *PurchaseRequestLine) PendingQtyToReceive() decimal.Decimal {
	return l.ProductQty.Sub(l.QtyInProgress).Sub(l.QtyDone)
}

// RequestLineInput holds the fields required to create a request line.
type RequestLineInput struct {
	ProductCode   string
	Description   string
	ProductQty    decimal.Decimal
	EstimatedCost decimal.Decimal
	Unit          string
}

// LineProgress carries procurement progress updates for a single line.
// Nil fields are left untouched.
type LineProgress struct {
	QtyInProgress *decimal.Decimal
	QtyDone       *decimal.Decimal
	PurchaseState *string
}

// ExpenseSummary aggregates the expenses reachable through a request's lines.
type ExpenseSummary struct {
	RequestID    int
	ExpenseCount int
	TotalAmount  decimal.Decimal
}

// RequestService provides purchase request lifecycle operations.
type RequestService interface {
	// CreateRequest creates a new DRAFT purchase request with at least one line.
	CreateRequest(ctx context.Context, companyID, requestedBy int, description string,
		pickingTypeID *int, procurementGroup string, lines []RequestLineInput) (*PurchaseRequest, error)

	// SubmitRequest transitions a DRAFT request to TO_APPROVE.
	SubmitRequest(ctx context.Context, requestID int) error

	// ApproveRequest transitions a TO_APPROVE request to APPROVED and assigns
	// a gapless request number. Approving an APPROVED request is a no-op.
	ApproveRequest(ctx context.Context, requestID int) error

	// RejectRequest transitions a TO_APPROVE request to REJECTED.
	RejectRequest(ctx context.Context, requestID int) error

	// MarkRequestDone transitions an APPROVED request to DONE.
	MarkRequestDone(ctx context.Context, requestID int) error

	// GetRequest returns a request by ID, including all lines.
	GetRequest(ctx context.Context, requestID int) (*PurchaseRequest, error)

	// GetRequests returns requests for a company, optionally filtered by state.
	GetRequests(ctx context.Context, companyID int, state string) ([]PurchaseRequest, error)

	// RecordLineProgress updates procurement progress quantities on a line.
	RecordLineProgress(ctx context.Context, lineID int, progress LineProgress) error

	// DeleteLine removes a request line. Fails while an expense references it.
	DeleteLine(ctx context.Context, lineID int) error

	// RelatedExpenses returns the expenses created from a request's lines.
	RelatedExpenses(ctx context.Context, requestID int) ([]Expense, error)

	// GetExpenseSummary returns the count and total amount of a request's
	// related expenses.
	GetExpenseSummary(ctx context.Context, requestID int) (*ExpenseSummary, error)

	// ViewExpenses returns a view descriptor over the request's related
	// expenses: a form view for exactly one, a filtered list otherwise.
	ViewExpenses(ctx context.Context, requestID int) (*ViewAction, error)
}
