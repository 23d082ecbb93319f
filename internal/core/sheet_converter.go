package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SheetConverter batches purchase request lines into expense sheets: the
// regular flow groups the expensable product lines, the advance flow
// groups the cash-advance lines. Both reuse the line validator.
type SheetConverter struct {
	pool               *pgxpool.Pool
	seq                SequenceService
	advanceProductCode string
}

// NewSheetConverter constructs a SheetConverter backed by PostgreSQL.
func NewSheetConverter(pool *pgxpool.Pool, seq SequenceService, advanceProductCode string) *SheetConverter {
	return &SheetConverter{pool: pool, seq: seq, advanceProductCode: advanceProductCode}
}

// GetSheetItems stages the lines whose own product is expensable and not
// the advance product. Unlike the single-expense flow there is no fallback
// product search, and quantity is the full requested quantity.
func (c *SheetConverter) GetSheetItems(ctx context.Context, lineIDs []int) ([]ConversionItem, error) {
	return c.stageItems(ctx, lineIDs, func(p *Product) bool {
		if !p.CanBeExpensed {
			return false
		}
		return c.advanceProductCode == "" || p.Code != c.advanceProductCode
	})
}

// GetAdvanceItems stages only the lines carrying the advance product.
func (c *SheetConverter) GetAdvanceItems(ctx context.Context, lineIDs []int) ([]ConversionItem, error) {
	if c.advanceProductCode == "" {
		return nil, errors.New("no advance product is configured")
	}
	return c.stageItems(ctx, lineIDs, func(p *Product) bool {
		return p.Code == c.advanceProductCode
	})
}

func (c *SheetConverter) stageItems(ctx context.Context, lineIDs []int, keep func(*Product) bool) ([]ConversionItem, error) {
	lines, err := fetchRequestLinesByIDs(ctx, c.pool, lineIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("no purchase request lines selected")
	}

	if err := validateRequestLines(lines); err != nil {
		return nil, err
	}

	var items []ConversionItem
	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		product, _, err := fetchProduct(ctx, c.pool, *line.ProductID)
		if err != nil {
			return nil, err
		}
		if !keep(product) {
			continue
		}

		description := line.Description
		if description == "" {
			description = product.Name
		}
		unit := line.Unit
		if unit == "" {
			unit = product.Unit
		}
		requestNumber := ""
		if line.RequestNumber != nil {
			requestNumber = *line.RequestNumber
		}

		items = append(items, ConversionItem{
			LineID:        line.ID,
			RequestID:     line.RequestID,
			RequestNumber: requestNumber,
			ProductID:     product.ID,
			ProductCode:   product.Code,
			ProductName:   product.Name,
			Description:   description,
			Quantity:      line.ProductQty,
			Unit:          unit,
			EstimatedCost: line.EstimatedCost,
		})
	}
	return items, nil
}

// MakeExpenseSheet persists one expense per item and groups them into a
// sheet linked to the originating request. Atomic.
func (c *SheetConverter) MakeExpenseSheet(ctx context.Context, employeeID int, items []ConversionItem) (*ViewAction, error) {
	if len(items) == 0 {
		return nil, errors.New("you haven't selected any lines to create an expense sheet from")
	}
	return c.makeSheet(ctx, employeeID, items, false)
}

// MakeAdvanceSheet persists the advance expenses and groups them into a
// sheet. Every expense carries the advance flag, the resolved advance
// account, and a back-reference to its line.
func (c *SheetConverter) MakeAdvanceSheet(ctx context.Context, employeeID int, items []ConversionItem) (*ViewAction, error) {
	if c.advanceProductCode == "" {
		return nil, errors.New("no advance product is configured")
	}
	if len(items) == 0 {
		return nil, errors.New("you haven't selected any lines to create advance expense from")
	}
	return c.makeSheet(ctx, employeeID, items, true)
}

func (c *SheetConverter) makeSheet(ctx context.Context, employeeID int, items []ConversionItem, advance bool) (*ViewAction, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	first, _, err := fetchProduct(ctx, tx, items[0].ProductID)
	if err != nil {
		return nil, err
	}
	companyID := first.CompanyID

	var employeeOK bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1 AND company_id = $2 AND is_active = true)",
		employeeID, companyID,
	).Scan(&employeeOK); err != nil {
		return nil, fmt.Errorf("validate employee: %w", err)
	}
	if !employeeOK {
		return nil, fmt.Errorf("employee %d not found for company %d", employeeID, companyID)
	}

	requestID, requestNumber := originatingRequest(items)

	name := "Expense from " + requestNumber
	if advance {
		name = "Employee Advance from " + requestNumber
	}

	number, err := c.seq.NextNumberTx(ctx, tx, companyID, "EXP", time.Now().Year())
	if err != nil {
		return nil, fmt.Errorf("assign sheet number: %w", err)
	}

	var sheetID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO expense_sheets (company_id, sheet_number, employee_id, name, purchase_request_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		companyID, number, employeeID, name, requestID,
	).Scan(&sheetID); err != nil {
		return nil, fmt.Errorf("insert expense sheet: %w", err)
	}

	for _, item := range items {
		if item.ProductID == 0 {
			return nil, fmt.Errorf("product is required for the line with description: %s", item.Description)
		}
		if err := c.insertSheetExpenseTx(ctx, tx, employeeID, sheetID, item, advance); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit expense sheet: %w", err)
	}

	return &ViewAction{Name: name, Entity: "expense_sheet", ViewMode: "form", ResID: sheetID}, nil
}

func (c *SheetConverter) insertSheetExpenseTx(ctx context.Context, tx pgx.Tx, employeeID, sheetID int, item ConversionItem, advance bool) error {
	product, categoryAccount, err := fetchProduct(ctx, tx, item.ProductID)
	if err != nil {
		return err
	}

	unitAmount := decimal.Zero
	if !item.Quantity.IsZero() {
		unitAmount = item.EstimatedCost.Div(item.Quantity)
	}

	var accountCode *string
	var lineID *int
	if advance {
		accountCode, err = resolveAdvanceAccount(product, categoryAccount)
		if err != nil {
			return err
		}
		if item.LineID != 0 {
			var existingExpenseID *int
			if err := tx.QueryRow(ctx,
				"SELECT expense_id FROM purchase_request_lines WHERE id = $1 FOR UPDATE",
				item.LineID,
			).Scan(&existingExpenseID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("purchase request line %d not found", item.LineID)
				}
				return fmt.Errorf("lock request line %d: %w", item.LineID, err)
			}
			if existingExpenseID != nil {
				return fmt.Errorf("purchase request line %d has already been converted to expense %d",
					item.LineID, *existingExpenseID)
			}
			id := item.LineID
			lineID = &id
		}
	}

	var expenseID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO expenses (company_id, employee_id, product_id, description, quantity,
		                      unit_amount, unit, reference, purchase_request_line_id, advance, account_code, sheet_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		product.CompanyID, employeeID, product.ID, item.Description, item.Quantity,
		unitAmount, item.Unit, item.RequestNumber, lineID, advance, accountCode, sheetID,
	).Scan(&expenseID); err != nil {
		return fmt.Errorf("insert sheet expense for line %d: %w", item.LineID, err)
	}

	if lineID != nil {
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_request_lines SET expense_id = $1 WHERE id = $2",
			expenseID, *lineID,
		); err != nil {
			return fmt.Errorf("stamp request line %d: %w", *lineID, err)
		}
	}
	return nil
}

// originatingRequest picks the request link for the sheet from the first
// item that carries one.
func originatingRequest(items []ConversionItem) (*int, string) {
	for _, item := range items {
		if item.RequestID != 0 {
			id := item.RequestID
			return &id, item.RequestNumber
		}
	}
	return nil, ""
}
