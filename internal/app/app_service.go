package app

import (
	"context"
	"fmt"
	"os"

	"purchase-request-expense/internal/core"
)

type appService struct {
	companies core.CompanyService
	requests  core.RequestService
	expenses  core.ExpenseService
	converter *core.ExpenseConverter
	sheets    *core.SheetConverter
}

// NewAppService wires the core services behind the ApplicationService facade.
func NewAppService(
	companies core.CompanyService,
	requests core.RequestService,
	expenses core.ExpenseService,
	converter *core.ExpenseConverter,
	sheets *core.SheetConverter,
) ApplicationService {
	return &appService{
		companies: companies,
		requests:  requests,
		expenses:  expenses,
		converter: converter,
		sheets:    sheets,
	}
}

func (s *appService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	return s.companies.GetDefaultCompany(ctx, os.Getenv("COMPANY_CODE"))
}

func (s *appService) ListEmployees(ctx context.Context, companyCode string) (*EmployeeListResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	employees, err := s.companies.ListEmployees(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &EmployeeListResult{CompanyCode: companyCode, Employees: employees}, nil
}

func (s *appService) ListProducts(ctx context.Context, companyCode string) (*ProductListResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	products, err := s.companies.ListProducts(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{CompanyCode: companyCode, Products: products}, nil
}

func (s *appService) ListPickingTypes(ctx context.Context, companyCode string) (*PickingTypeListResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	types, err := s.companies.ListPickingTypes(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &PickingTypeListResult{CompanyCode: companyCode, PickingTypes: types}, nil
}

func (s *appService) ListRequests(ctx context.Context, companyCode, state string) (*RequestListResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	requests, err := s.requests.GetRequests(ctx, company.ID, state)
	if err != nil {
		return nil, err
	}
	result := &RequestListResult{CompanyCode: companyCode}
	for i := range requests {
		result.Requests = append(result.Requests, toRequestResult(&requests[i], nil))
	}
	return result, nil
}

func (s *appService) GetRequest(ctx context.Context, requestID int) (*RequestResult, error) {
	pr, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	summary, err := s.requests.GetExpenseSummary(ctx, requestID)
	if err != nil {
		return nil, err
	}
	result := toRequestResult(pr, summary)
	return &result, nil
}

func (s *appService) CreateRequest(ctx context.Context, req CreateRequestRequest) (*RequestResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}

	var pickingTypeID *int
	if req.PickingTypeCode != "" {
		types, err := s.companies.ListPickingTypes(ctx, company.ID)
		if err != nil {
			return nil, err
		}
		for i := range types {
			if types[i].Code == req.PickingTypeCode {
				pickingTypeID = &types[i].ID
				break
			}
		}
		if pickingTypeID == nil {
			return nil, fmt.Errorf("picking type %q not found for company %s", req.PickingTypeCode, req.CompanyCode)
		}
	}

	lines := make([]core.RequestLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, core.RequestLineInput{
			ProductCode:   l.ProductCode,
			Description:   l.Description,
			ProductQty:    l.ProductQty,
			EstimatedCost: l.EstimatedCost,
			Unit:          l.Unit,
		})
	}

	pr, err := s.requests.CreateRequest(ctx, company.ID, req.RequestedBy, req.Description,
		pickingTypeID, req.ProcurementGroup, lines)
	if err != nil {
		return nil, err
	}
	result := toRequestResult(pr, nil)
	return &result, nil
}

func (s *appService) SubmitRequest(ctx context.Context, requestID int) (*RequestResult, error) {
	if err := s.requests.SubmitRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, requestID)
}

func (s *appService) ApproveRequest(ctx context.Context, requestID int) (*RequestResult, error) {
	if err := s.requests.ApproveRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, requestID)
}

func (s *appService) RejectRequest(ctx context.Context, requestID int) (*RequestResult, error) {
	if err := s.requests.RejectRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, requestID)
}

func (s *appService) MarkRequestDone(ctx context.Context, requestID int) (*RequestResult, error) {
	if err := s.requests.MarkRequestDone(ctx, requestID); err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, requestID)
}

func (s *appService) RecordLineProgress(ctx context.Context, req LineProgressRequest) error {
	return s.requests.RecordLineProgress(ctx, req.LineID, core.LineProgress{
		QtyInProgress: req.QtyInProgress,
		QtyDone:       req.QtyDone,
		PurchaseState: req.PurchaseState,
	})
}

func (s *appService) DeleteRequestLine(ctx context.Context, lineID int) error {
	return s.requests.DeleteLine(ctx, lineID)
}

func (s *appService) StageExpenseItems(ctx context.Context, sel core.LineSelection) (*ConversionItemsResult, error) {
	lineIDs, err := s.converter.ExpandSelection(ctx, sel)
	if err != nil {
		return nil, err
	}
	items, err := s.converter.GetItems(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	return &ConversionItemsResult{Items: items}, nil
}

func (s *appService) CommitExpenses(ctx context.Context, req MakeExpenseRequest) (*core.ViewAction, error) {
	return s.converter.MakeExpense(ctx, req.EmployeeID, req.Items)
}

func (s *appService) StageSheetItems(ctx context.Context, sel core.LineSelection) (*ConversionItemsResult, error) {
	lineIDs, err := s.converter.ExpandSelection(ctx, sel)
	if err != nil {
		return nil, err
	}
	items, err := s.sheets.GetSheetItems(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	return &ConversionItemsResult{Items: items}, nil
}

func (s *appService) CommitExpenseSheet(ctx context.Context, req MakeExpenseRequest) (*core.ViewAction, error) {
	return s.sheets.MakeExpenseSheet(ctx, req.EmployeeID, req.Items)
}

func (s *appService) StageAdvanceItems(ctx context.Context, sel core.LineSelection) (*ConversionItemsResult, error) {
	lineIDs, err := s.converter.ExpandSelection(ctx, sel)
	if err != nil {
		return nil, err
	}
	items, err := s.sheets.GetAdvanceItems(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	return &ConversionItemsResult{Items: items}, nil
}

func (s *appService) CommitAdvanceSheet(ctx context.Context, req MakeExpenseRequest) (*core.ViewAction, error) {
	return s.sheets.MakeAdvanceSheet(ctx, req.EmployeeID, req.Items)
}

func (s *appService) GetRequestExpenses(ctx context.Context, requestID int) (*RequestExpensesResult, error) {
	expenses, err := s.requests.RelatedExpenses(ctx, requestID)
	if err != nil {
		return nil, err
	}
	action, err := s.requests.ViewExpenses(ctx, requestID)
	if err != nil {
		return nil, err
	}

	result := &RequestExpensesResult{RequestID: requestID, Action: action}
	for i := range expenses {
		view := toExpenseResult(&expenses[i])
		result.Expenses = append(result.Expenses, view)
		result.ExpenseCount++
		result.TotalAmount = result.TotalAmount.Add(view.TotalAmount)
	}
	return result, nil
}

func (s *appService) ListExpenses(ctx context.Context, companyCode string, ids []int) (*ExpenseListResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.GetExpenses(ctx, company.ID, ids)
	if err != nil {
		return nil, err
	}
	result := &ExpenseListResult{CompanyCode: companyCode}
	for i := range expenses {
		result.Expenses = append(result.Expenses, toExpenseResult(&expenses[i]))
	}
	return result, nil
}

func (s *appService) GetExpense(ctx context.Context, expenseID int) (*ExpenseResult, error) {
	expense, err := s.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	result := toExpenseResult(expense)
	return &result, nil
}

func (s *appService) ListSheets(ctx context.Context, companyCode string) (*SheetListResult, error) {
	company, err := s.companies.GetCompanyByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	sheets, err := s.expenses.GetSheets(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	result := &SheetListResult{CompanyCode: companyCode}
	for i := range sheets {
		result.Sheets = append(result.Sheets, toSheetResult(&sheets[i]))
	}
	return result, nil
}

func (s *appService) GetSheet(ctx context.Context, sheetID int) (*SheetResult, error) {
	sheet, err := s.expenses.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	result := toSheetResult(sheet)
	return &result, nil
}

func toRequestResult(pr *core.PurchaseRequest, summary *core.ExpenseSummary) RequestResult {
	result := RequestResult{
		ID:               pr.ID,
		CompanyID:        pr.CompanyID,
		RequestNumber:    pr.RequestNumber,
		Description:      pr.Description,
		RequestedBy:      pr.RequestedBy,
		RequestedByName:  pr.RequestedByName,
		PickingTypeName:  pr.PickingTypeName,
		ProcurementGroup: pr.ProcurementGroup,
		State:            pr.State,
		CreatedAt:        pr.CreatedAt,
	}
	for i := range pr.Lines {
		l := &pr.Lines[i]
		result.Lines = append(result.Lines, RequestLineView{
			ID:                  l.ID,
			RequestID:           l.RequestID,
			ProductID:           l.ProductID,
			ProductCode:         l.ProductCode,
			ProductName:         l.ProductName,
			Description:         l.Description,
			ProductQty:          l.ProductQty,
			QtyInProgress:       l.QtyInProgress,
			QtyDone:             l.QtyDone,
			PendingQtyToReceive: l.PendingQtyToReceive(),
			EstimatedCost:       l.EstimatedCost,
			Unit:                l.Unit,
			PurchaseState:       l.PurchaseState,
			ExpenseID:           l.ExpenseID,
		})
	}
	if summary != nil {
		result.ExpenseCount = summary.ExpenseCount
		result.ExpenseTotal = summary.TotalAmount
	}
	return result
}

func toExpenseResult(x *core.Expense) ExpenseResult {
	return ExpenseResult{
		ID:                    x.ID,
		EmployeeID:            x.EmployeeID,
		EmployeeName:          x.EmployeeName,
		ProductCode:           x.ProductCode,
		ProductName:           x.ProductName,
		Description:           x.Description,
		Quantity:              x.Quantity,
		UnitAmount:            x.UnitAmount,
		TotalAmount:           x.TotalAmount(),
		Unit:                  x.Unit,
		Reference:             x.Reference,
		PurchaseRequestLineID: x.PurchaseRequestLineID,
		Advance:               x.Advance,
		AccountCode:           x.AccountCode,
		SheetID:               x.SheetID,
		CreatedAt:             x.CreatedAt,
	}
}

func toSheetResult(sheet *core.ExpenseSheet) SheetResult {
	result := SheetResult{
		ID:                sheet.ID,
		SheetNumber:       sheet.SheetNumber,
		EmployeeID:        sheet.EmployeeID,
		EmployeeName:      sheet.EmployeeName,
		Name:              sheet.Name,
		PurchaseRequestID: sheet.PurchaseRequestID,
		TotalAmount:       sheet.TotalAmount(),
		CreatedAt:         sheet.CreatedAt,
	}
	for i := range sheet.Expenses {
		result.Expenses = append(result.Expenses, toExpenseResult(&sheet.Expenses[i]))
	}
	return result
}
