package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseService provides read access to expenses and expense sheets.
// Expense creation happens inside the converters' transactions.
type ExpenseService interface {
	// GetExpense returns a single expense by ID.
	GetExpense(ctx context.Context, expenseID int) (*Expense, error)

	// GetExpenses returns expenses for a company, optionally restricted to
	// a set of IDs (nil means all).
	GetExpenses(ctx context.Context, companyID int, ids []int) ([]Expense, error)

	// GetSheet returns an expense sheet by ID, including its expenses.
	GetSheet(ctx context.Context, sheetID int) (*ExpenseSheet, error)

	// GetSheets returns expense sheets for a company.
	GetSheets(ctx context.Context, companyID int) ([]ExpenseSheet, error)
}

type expenseService struct {
	pool *pgxpool.Pool
}

// NewExpenseService constructs an ExpenseService backed by PostgreSQL.
func NewExpenseService(pool *pgxpool.Pool) ExpenseService {
	return &expenseService{pool: pool}
}

func (s *expenseService) GetExpense(ctx context.Context, expenseID int) (*Expense, error) {
	expenses, err := fetchExpenses(ctx, s.pool, "x.id = $1", expenseID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, fmt.Errorf("expense %d not found", expenseID)
	}
	return &expenses[0], nil
}

func (s *expenseService) GetExpenses(ctx context.Context, companyID int, ids []int) ([]Expense, error) {
	if ids != nil {
		return fetchExpenses(ctx, s.pool, "x.company_id = $1 AND x.id = ANY($2)", companyID, ids)
	}
	return fetchExpenses(ctx, s.pool, "x.company_id = $1", companyID)
}

func (s *expenseService) GetSheet(ctx context.Context, sheetID int) (*ExpenseSheet, error) {
	sheet := &ExpenseSheet{}
	if err := s.pool.QueryRow(ctx, `
		SELECT es.id, es.company_id, es.sheet_number, es.employee_id, e.name,
		       es.name, es.purchase_request_id, es.created_at
		FROM expense_sheets es
		JOIN employees e ON e.id = es.employee_id
		WHERE es.id = $1`,
		sheetID,
	).Scan(
		&sheet.ID, &sheet.CompanyID, &sheet.SheetNumber, &sheet.EmployeeID, &sheet.EmployeeName,
		&sheet.Name, &sheet.PurchaseRequestID, &sheet.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense sheet %d not found", sheetID)
		}
		return nil, fmt.Errorf("get expense sheet %d: %w", sheetID, err)
	}

	expenses, err := fetchExpenses(ctx, s.pool, "x.sheet_id = $1", sheetID)
	if err != nil {
		return nil, err
	}
	sheet.Expenses = expenses
	return sheet, nil
}

func (s *expenseService) GetSheets(ctx context.Context, companyID int) ([]ExpenseSheet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT es.id, es.company_id, es.sheet_number, es.employee_id, e.name,
		       es.name, es.purchase_request_id, es.created_at
		FROM expense_sheets es
		JOIN employees e ON e.id = es.employee_id
		WHERE es.company_id = $1
		ORDER BY es.created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expense sheets: %w", err)
	}
	defer rows.Close()

	var sheets []ExpenseSheet
	for rows.Next() {
		var sheet ExpenseSheet
		if err := rows.Scan(
			&sheet.ID, &sheet.CompanyID, &sheet.SheetNumber, &sheet.EmployeeID, &sheet.EmployeeName,
			&sheet.Name, &sheet.PurchaseRequestID, &sheet.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan expense sheet: %w", err)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// fetchExpenses loads expenses matching the given WHERE fragment.
func fetchExpenses(ctx context.Context, q queryer, where string, args ...any) ([]Expense, error) {
	rows, err := q.Query(ctx, `
		SELECT x.id, x.company_id, x.employee_id, e.name,
		       x.product_id, p.code, p.name,
		       x.description, x.quantity, x.unit_amount, x.unit, x.reference,
		       x.purchase_request_line_id, x.advance, x.account_code, x.sheet_id, x.created_at
		FROM expenses x
		JOIN employees e ON e.id = x.employee_id
		JOIN products p ON p.id = x.product_id
		WHERE `+where+`
		ORDER BY x.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var x Expense
		if err := rows.Scan(
			&x.ID, &x.CompanyID, &x.EmployeeID, &x.EmployeeName,
			&x.ProductID, &x.ProductCode, &x.ProductName,
			&x.Description, &x.Quantity, &x.UnitAmount, &x.Unit, &x.Reference,
			&x.PurchaseRequestLineID, &x.Advance, &x.AccountCode, &x.SheetID, &x.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, x)
	}
	return expenses, nil
}
