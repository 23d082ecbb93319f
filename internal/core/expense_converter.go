package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNoExpensableProducts is returned when staging produced zero items
// because none of the selected lines resolved to an expensable product.
var ErrNoExpensableProducts = errors.New("no products that can be expensed were found in the selected lines")

// LineSelection is the caller's active selection: either line IDs
// directly, or request IDs whose lines are expanded.
type LineSelection struct {
	LineIDs    []int `json:"line_ids,omitempty"`
	RequestIDs []int `json:"request_ids,omitempty"`
}

// ConversionItem is a staged, editable expense draft built from one
// purchase request line. Items exist only between staging and commit; the
// caller may adjust product, description, and quantity before committing.
type ConversionItem struct {
	LineID        int             `json:"line_id"`
	RequestID     int             `json:"request_id"`
	RequestNumber string          `json:"request_number"`
	ProductID     int             `json:"product_id"`
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}

// validateRequestLines checks a candidate line set for conversion
// eligibility. Single pass in selection order, first violation wins:
// request lifecycle state, line purchase state, shared company, shared
// picking type. Tests pin this order.
func validateRequestLines(lines []PurchaseRequestLine) error {
	companyID := 0
	pickingTypeID := 0

	for _, line := range lines {
		if line.RequestState == RequestDone {
			return errors.New("the purchase has already been completed")
		}
		if line.RequestState != RequestApproved {
			return fmt.Errorf("purchase request %s is not approved", requestDisplayName(line))
		}

		if line.PurchaseState != nil && *line.PurchaseState == PurchaseStateDone {
			return errors.New("the purchase has already been completed")
		}

		if companyID != 0 && line.CompanyID != companyID {
			return errors.New("you have to select lines from the same company")
		}
		companyID = line.CompanyID

		if line.PickingTypeID == nil {
			return errors.New("you have to enter a picking type")
		}
		if pickingTypeID != 0 && *line.PickingTypeID != pickingTypeID {
			return errors.New("you have to select lines from the same picking type")
		}
		pickingTypeID = *line.PickingTypeID
	}
	return nil
}

// requestDisplayName names a request in errors: its assigned number when
// approved at some point, otherwise its internal ID.
func requestDisplayName(line PurchaseRequestLine) string {
	if line.RequestNumber != nil && *line.RequestNumber != "" {
		return *line.RequestNumber
	}
	return fmt.Sprintf("#%d", line.RequestID)
}

// ExpenseConverter stages purchase request lines as expense drafts and
// commits them as persisted expenses. advanceProductCode designates the
// cash-advance product; empty disables all advance handling.
type ExpenseConverter struct {
	pool               *pgxpool.Pool
	advanceProductCode string
}

// NewExpenseConverter constructs an ExpenseConverter backed by PostgreSQL.
func NewExpenseConverter(pool *pgxpool.Pool, advanceProductCode string) *ExpenseConverter {
	return &ExpenseConverter{pool: pool, advanceProductCode: advanceProductCode}
}

// ExpandSelection resolves a selection to concrete line IDs. Request IDs
// expand to all of their lines; directly selected line IDs pass through.
func (c *ExpenseConverter) ExpandSelection(ctx context.Context, sel LineSelection) ([]int, error) {
	lineIDs := append([]int(nil), sel.LineIDs...)

	if len(sel.RequestIDs) > 0 {
		rows, err := c.pool.Query(ctx, `
			SELECT id FROM purchase_request_lines
			WHERE request_id = ANY($1)
			ORDER BY request_id, id`,
			sel.RequestIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("expand request selection: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("scan line id: %w", err)
			}
			lineIDs = append(lineIDs, id)
		}
	}

	if len(lineIDs) == 0 {
		return nil, errors.New("no purchase request lines selected")
	}
	return lineIDs, nil
}

// GetItems validates the selected lines and stages one conversion item per
// eligible line. Lines without a resolvable expense product are skipped;
// an entirely empty result is an error.
func (c *ExpenseConverter) GetItems(ctx context.Context, lineIDs []int) ([]ConversionItem, error) {
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
	for i := range lines {
		item, err := c.prepareItem(ctx, &lines[i])
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}

	if len(items) == 0 {
		return nil, ErrNoExpensableProducts
	}
	return items, nil
}

// prepareItem builds the staged draft for one line. Returns nil (no item,
// no error) when the line carries the advance product or no expensable
// product can be resolved for it.
func (c *ExpenseConverter) prepareItem(ctx context.Context, line *PurchaseRequestLine) (*ConversionItem, error) {
	var product *Product

	if line.ProductID != nil {
		p, _, err := fetchProduct(ctx, c.pool, *line.ProductID)
		if err != nil {
			return nil, err
		}
		if c.advanceProductCode != "" && p.Code == c.advanceProductCode {
			// Advance lines belong to the advance-sheet flow.
			return nil, nil
		}
		if !p.CanBeExpensed {
			return nil, nil
		}
		product = p
	} else {
		p, err := c.findFallbackExpenseProduct(ctx, line.CompanyID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		product = p
	}

	quantity := line.PendingQtyToReceive()
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
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

	return &ConversionItem{
		LineID:        line.ID,
		RequestID:     line.RequestID,
		RequestNumber: requestNumber,
		ProductID:     product.ID,
		ProductCode:   product.Code,
		ProductName:   product.Name,
		Description:   description,
		Quantity:      quantity,
		Unit:          unit,
		EstimatedCost: line.EstimatedCost,
	}, nil
}

// findFallbackExpenseProduct searches for any expensable service product,
// excluding the advance product. Returns nil when none exists.
func (c *ExpenseConverter) findFallbackExpenseProduct(ctx context.Context, companyID int) (*Product, error) {
	query := `
		SELECT id FROM products
		WHERE company_id = $1 AND can_be_expensed = true AND type = 'service' AND is_active = true`
	args := []any{companyID}
	if c.advanceProductCode != "" {
		query += " AND code <> $2"
		args = append(args, c.advanceProductCode)
	}
	query += " ORDER BY id LIMIT 1"

	var productID int
	err := c.pool.QueryRow(ctx, query, args...).Scan(&productID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search fallback expense product: %w", err)
	}
	p, _, err := fetchProduct(ctx, c.pool, productID)
	return p, err
}

// MakeExpense persists one expense per staged item and stamps the source
// lines. The whole commit runs in one transaction: a failing item leaves
// nothing persisted. Returns a form view for a single created expense, a
// filtered list view for several.
func (c *ExpenseConverter) MakeExpense(ctx context.Context, employeeID int, items []ConversionItem) (*ViewAction, error) {
	if len(items) == 0 {
		return nil, errors.New("you must select at least one expense line")
	}

	for _, item := range items {
		if item.ProductID == 0 {
			return nil, fmt.Errorf("product is required for the line with description: %s", item.Description)
		}
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var expenseIDs []int
	for _, item := range items {
		id, err := c.createExpenseTx(ctx, tx, employeeID, item)
		if err != nil {
			return nil, err
		}
		expenseIDs = append(expenseIDs, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit expenses: %w", err)
	}

	return viewActionFor("Created Expenses", "expense", expenseIDs), nil
}

// createExpenseTx validates one item, inserts its expense, and stamps the
// source line's expense reference.
func (c *ExpenseConverter) createExpenseTx(ctx context.Context, tx pgx.Tx, employeeID int, item ConversionItem) (int, error) {
	product, categoryAccount, err := fetchProduct(ctx, tx, item.ProductID)
	if err != nil {
		return 0, err
	}

	if item.Quantity.IsZero() || item.Quantity.IsNegative() {
		return 0, fmt.Errorf("quantity must be greater than 0 for product %s", product.Name)
	}

	var employeeOK bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1 AND company_id = $2 AND is_active = true)",
		employeeID, product.CompanyID,
	).Scan(&employeeOK); err != nil {
		return 0, fmt.Errorf("validate employee: %w", err)
	}
	if !employeeOK {
		return 0, fmt.Errorf("employee %d not found for company %d", employeeID, product.CompanyID)
	}

	unitAmount := decimal.Zero
	if !item.Quantity.IsZero() {
		unitAmount = item.EstimatedCost.Div(item.Quantity)
	}

	// Lock the source line and refuse double conversion.
	var lineID *int
	if item.LineID != 0 {
		var existingExpenseID *int
		if err := tx.QueryRow(ctx,
			"SELECT expense_id FROM purchase_request_lines WHERE id = $1 FOR UPDATE",
			item.LineID,
		).Scan(&existingExpenseID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("purchase request line %d not found", item.LineID)
			}
			return 0, fmt.Errorf("lock request line %d: %w", item.LineID, err)
		}
		if existingExpenseID != nil {
			return 0, fmt.Errorf("purchase request line %d has already been converted to expense %d",
				item.LineID, *existingExpenseID)
		}
		id := item.LineID
		lineID = &id
	}

	advance := false
	var accountCode *string
	if c.advanceProductCode != "" && product.Code == c.advanceProductCode {
		advance = true
		accountCode, err = resolveAdvanceAccount(product, categoryAccount)
		if err != nil {
			return 0, err
		}
	}

	var expenseID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO expenses (company_id, employee_id, product_id, description, quantity,
		                      unit_amount, unit, reference, purchase_request_line_id, advance, account_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		product.CompanyID, employeeID, product.ID, item.Description, item.Quantity,
		unitAmount, item.Unit, item.RequestNumber, lineID, advance, accountCode,
	).Scan(&expenseID); err != nil {
		return 0, fmt.Errorf("insert expense for line %d: %w", item.LineID, err)
	}

	if lineID != nil {
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_request_lines SET expense_id = $1 WHERE id = $2",
			expenseID, *lineID,
		); err != nil {
			return 0, fmt.Errorf("stamp request line %d: %w", *lineID, err)
		}
	}

	return expenseID, nil
}

// resolveAdvanceAccount picks the advance expense account: the product's
// configured account first, then its category's.
func resolveAdvanceAccount(product *Product, categoryAccount *string) (*string, error) {
	if product.ExpenseAccountCode != nil && *product.ExpenseAccountCode != "" {
		return product.ExpenseAccountCode, nil
	}
	if categoryAccount != nil && *categoryAccount != "" {
		return categoryAccount, nil
	}
	return nil, fmt.Errorf("no expense account configured for advance product %s or its category", product.Code)
}

// fetchProduct loads a product and its category's expense account code.
func fetchProduct(ctx context.Context, q queryer, productID int) (*Product, *string, error) {
	rows, err := q.Query(ctx, `
		SELECT p.id, p.company_id, p.code, p.name, p.description, p.type, p.category_id,
		       p.can_be_expensed, p.standard_price, p.unit, p.expense_account_code, p.is_active,
		       pc.expense_account_code
		FROM products p
		LEFT JOIN product_categories pc ON pc.id = p.category_id
		WHERE p.id = $1`,
		productID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch product %d: %w", productID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil, fmt.Errorf("product %d not found", productID)
	}
	p := &Product{}
	var categoryAccount *string
	if err := rows.Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Description, &p.Type, &p.CategoryID,
		&p.CanBeExpensed, &p.StandardPrice, &p.Unit, &p.ExpenseAccountCode, &p.IsActive,
		&categoryAccount,
	); err != nil {
		return nil, nil, fmt.Errorf("scan product %d: %w", productID, err)
	}
	return p, categoryAccount, nil
}
