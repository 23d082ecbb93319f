package app

import (
	"context"

	"purchase-request-expense/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must
// contain no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// LoadDefaultCompany loads the active company. Uses COMPANY_CODE env var
	// if set; otherwise expects exactly one company in the database.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)

	// ListEmployees returns the active employees of a company.
	ListEmployees(ctx context.Context, companyCode string) (*EmployeeListResult, error)

	// ListProducts returns the active products of a company.
	ListProducts(ctx context.Context, companyCode string) (*ProductListResult, error)

	// ListPickingTypes returns the picking types of a company.
	ListPickingTypes(ctx context.Context, companyCode string) (*PickingTypeListResult, error)

	// ListRequests returns purchase requests, optionally filtered by state.
	ListRequests(ctx context.Context, companyCode, state string) (*RequestListResult, error)

	// GetRequest returns a purchase request with its lines and expense summary.
	GetRequest(ctx context.Context, requestID int) (*RequestResult, error)

	// CreateRequest creates a new DRAFT purchase request.
	CreateRequest(ctx context.Context, req CreateRequestRequest) (*RequestResult, error)

	// SubmitRequest transitions a DRAFT request to TO_APPROVE.
	SubmitRequest(ctx context.Context, requestID int) (*RequestResult, error)

	// ApproveRequest transitions a TO_APPROVE request to APPROVED and assigns
	// its request number.
	ApproveRequest(ctx context.Context, requestID int) (*RequestResult, error)

	// RejectRequest transitions a TO_APPROVE request to REJECTED.
	RejectRequest(ctx context.Context, requestID int) (*RequestResult, error)

	// MarkRequestDone transitions an APPROVED request to DONE.
	MarkRequestDone(ctx context.Context, requestID int) (*RequestResult, error)

	// RecordLineProgress updates procurement progress on a request line.
	RecordLineProgress(ctx context.Context, req LineProgressRequest) error

	// DeleteRequestLine removes a request line unless an expense references it.
	DeleteRequestLine(ctx context.Context, lineID int) error

	// StageExpenseItems validates a line selection and returns the editable
	// conversion items for the single-expense flow.
	StageExpenseItems(ctx context.Context, sel core.LineSelection) (*ConversionItemsResult, error)

	// CommitExpenses persists one expense per staged item and returns the
	// resulting view descriptor.
	CommitExpenses(ctx context.Context, req MakeExpenseRequest) (*core.ViewAction, error)

	// StageSheetItems returns the items for the expense-sheet flow.
	StageSheetItems(ctx context.Context, sel core.LineSelection) (*ConversionItemsResult, error)

	// CommitExpenseSheet persists the expenses and their grouping sheet.
	CommitExpenseSheet(ctx context.Context, req MakeExpenseRequest) (*core.ViewAction, error)

	// StageAdvanceItems returns the items for the cash-advance-sheet flow.
	StageAdvanceItems(ctx context.Context, sel core.LineSelection) (*ConversionItemsResult, error)

	// CommitAdvanceSheet persists the advance expenses and their sheet.
	CommitAdvanceSheet(ctx context.Context, req MakeExpenseRequest) (*core.ViewAction, error)

	// GetRequestExpenses returns a request's related expenses, their summary,
	// and the one-vs-many view descriptor.
	GetRequestExpenses(ctx context.Context, requestID int) (*RequestExpensesResult, error)

	// ListExpenses returns expenses for a company, optionally restricted to ids.
	ListExpenses(ctx context.Context, companyCode string, ids []int) (*ExpenseListResult, error)

	// GetExpense returns a single expense.
	GetExpense(ctx context.Context, expenseID int) (*ExpenseResult, error)

	// ListSheets returns the expense sheets of a company.
	ListSheets(ctx context.Context, companyCode string) (*SheetListResult, error)

	// GetSheet returns an expense sheet with its expenses.
	GetSheet(ctx context.Context, sheetID int) (*SheetResult, error)
}
