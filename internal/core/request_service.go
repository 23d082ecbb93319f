package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type requestService struct {
	pool *pgxpool.Pool
	seq  SequenceService
}

// NewRequestService constructs a RequestService backed by PostgreSQL.
func NewRequestService(pool *pgxpool.Pool, seq SequenceService) RequestService {
	return &requestService{pool: pool, seq: seq}
}

// CreateRequest creates a new DRAFT purchase request with its lines.
func (s *requestService) CreateRequest(ctx context.Context, companyID, requestedBy int, description string,
	pickingTypeID *int, procurementGroup string, lines []RequestLineInput) (*PurchaseRequest, error) {

	if len(lines) == 0 {
		return nil, fmt.Errorf("purchase request must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var employeeExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1 AND company_id = $2 AND is_active = true)",
		requestedBy, companyID,
	).Scan(&employeeExists); err != nil {
		return nil, fmt.Errorf("validate employee: %w", err)
	}
	if !employeeExists {
		return nil, fmt.Errorf("employee %d not found for company %d", requestedBy, companyID)
	}

	if pickingTypeID != nil {
		var ptExists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM picking_types WHERE id = $1 AND company_id = $2)",
			*pickingTypeID, companyID,
		).Scan(&ptExists); err != nil {
			return nil, fmt.Errorf("validate picking type: %w", err)
		}
		if !ptExists {
			return nil, fmt.Errorf("picking type %d not found for company %d", *pickingTypeID, companyID)
		}
	}

	var group *string
	if procurementGroup != "" {
		group = &procurementGroup
	}

	var requestID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_requests (company_id, description, requested_by, picking_type_id, procurement_group, state)
		VALUES ($1, $2, $3, $4, $5, 'DRAFT')
		RETURNING id`,
		companyID, description, requestedBy, pickingTypeID, group,
	).Scan(&requestID); err != nil {
		return nil, fmt.Errorf("insert purchase request: %w", err)
	}

	for i, input := range lines {
		var productID *int
		var unit = input.Unit
		if input.ProductCode != "" {
			var pid int
			var pUnit string
			err := tx.QueryRow(ctx,
				"SELECT id, unit FROM products WHERE company_id = $1 AND code = $2 AND is_active = true",
				companyID, input.ProductCode,
			).Scan(&pid, &pUnit)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("line %d: product %q not found", i+1, input.ProductCode)
				}
				return nil, fmt.Errorf("line %d: resolve product: %w", i+1, err)
			}
			productID = &pid
			if unit == "" {
				unit = pUnit
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_request_lines
			            (request_id, company_id, product_id, description, product_qty, estimated_cost, unit)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			requestID, companyID, productID, input.Description, input.ProductQty, input.EstimatedCost, unit,
		); err != nil {
			return nil, fmt.Errorf("insert request line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase request: %w", err)
	}

	return s.GetRequest(ctx, requestID)
}

// SubmitRequest transitions a DRAFT request to TO_APPROVE.
func (s *requestService) SubmitRequest(ctx context.Context, requestID int) error {
	return s.transition(ctx, requestID, RequestDraft, RequestToApprove, "")
}

// RejectRequest transitions a TO_APPROVE request to REJECTED.
func (s *requestService) RejectRequest(ctx context.Context, requestID int) error {
	return s.transition(ctx, requestID, RequestToApprove, RequestRejected, "")
}

// MarkRequestDone transitions an APPROVED request to DONE.
func (s *requestService) MarkRequestDone(ctx context.Context, requestID int) error {
	return s.transition(ctx, requestID, RequestApproved, RequestDone, "done_at")
}

// transition moves a request from one state to another under FOR UPDATE,
// optionally stamping a timestamp column.
func (s *requestService) transition(ctx context.Context, requestID int, from, to, stampColumn string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var state string
	if err := tx.QueryRow(ctx,
		"SELECT state FROM purchase_requests WHERE id = $1 FOR UPDATE",
		requestID,
	).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase request %d not found", requestID)
		}
		return fmt.Errorf("fetch purchase request %d: %w", requestID, err)
	}

	if state != from {
		return fmt.Errorf("purchase request %d cannot move to %s: state is %s (must be %s)",
			requestID, to, state, from)
	}

	query := "UPDATE purchase_requests SET state = $1 WHERE id = $2"
	if stampColumn != "" {
		query = fmt.Sprintf("UPDATE purchase_requests SET state = $1, %s = NOW() WHERE id = $2", stampColumn)
	}
	if _, err := tx.Exec(ctx, query, to, requestID); err != nil {
		return fmt.Errorf("update purchase request %d to %s: %w", requestID, to, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit state transition: %w", err)
	}
	return nil
}

// ApproveRequest transitions a TO_APPROVE request to APPROVED, assigning a
// gapless request number. Approving an APPROVED request is a no-op.
func (s *requestService) ApproveRequest(ctx context.Context, requestID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var companyID int
	var state string
	var createdAt time.Time
	if err := tx.QueryRow(ctx,
		"SELECT company_id, state, created_at FROM purchase_requests WHERE id = $1 FOR UPDATE",
		requestID,
	).Scan(&companyID, &state, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase request %d not found", requestID)
		}
		return fmt.Errorf("fetch purchase request %d: %w", requestID, err)
	}

	if state == RequestApproved {
		return nil
	}
	if state != RequestToApprove {
		return fmt.Errorf("purchase request %d cannot be approved: state is %s (must be %s)",
			requestID, state, RequestToApprove)
	}

	number, err := s.seq.NextNumberTx(ctx, tx, companyID, "PR", createdAt.Year())
	if err != nil {
		return fmt.Errorf("assign request number: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET state = 'APPROVED', request_number = $1, approved_at = NOW()
		WHERE id = $2`,
		number, requestID,
	); err != nil {
		return fmt.Errorf("approve purchase request %d: %w", requestID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit request approval: %w", err)
	}
	return nil
}

// GetRequest returns a request by ID, including all lines.
func (s *requestService) GetRequest(ctx context.Context, requestID int) (*PurchaseRequest, error) {
	pr := &PurchaseRequest{}
	if err := s.pool.QueryRow(ctx, `
		SELECT pr.id, pr.company_id, pr.request_number, pr.description,
		       pr.requested_by, e.name, pr.picking_type_id, pt.name,
		       pr.procurement_group, pr.state, pr.created_at, pr.approved_at, pr.done_at
		FROM purchase_requests pr
		JOIN employees e ON e.id = pr.requested_by
		LEFT JOIN picking_types pt ON pt.id = pr.picking_type_id
		WHERE pr.id = $1`,
		requestID,
	).Scan(
		&pr.ID, &pr.CompanyID, &pr.RequestNumber, &pr.Description,
		&pr.RequestedBy, &pr.RequestedByName, &pr.PickingTypeID, &pr.PickingTypeName,
		&pr.ProcurementGroup, &pr.State, &pr.CreatedAt, &pr.ApprovedAt, &pr.DoneAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase request %d not found", requestID)
		}
		return nil, fmt.Errorf("get purchase request %d: %w", requestID, err)
	}

	lines, err := fetchRequestLines(ctx, s.pool, "prl.request_id = $1", requestID)
	if err != nil {
		return nil, err
	}
	pr.Lines = lines
	return pr, nil
}

// GetRequests returns requests for a company, optionally filtered by state.
func (s *requestService) GetRequests(ctx context.Context, companyID int, state string) ([]PurchaseRequest, error) {
	query := `
		SELECT pr.id, pr.company_id, pr.request_number, pr.description,
		       pr.requested_by, e.name, pr.picking_type_id, pt.name,
		       pr.procurement_group, pr.state, pr.created_at, pr.approved_at, pr.done_at
		FROM purchase_requests pr
		JOIN employees e ON e.id = pr.requested_by
		LEFT JOIN picking_types pt ON pt.id = pr.picking_type_id
		WHERE pr.company_id = $1`
	args := []any{companyID}

	if state != "" {
		query += " AND pr.state = $2"
		args = append(args, state)
	}
	query += " ORDER BY pr.created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	defer rows.Close()

	var requests []PurchaseRequest
	for rows.Next() {
		var pr PurchaseRequest
		if err := rows.Scan(
			&pr.ID, &pr.CompanyID, &pr.RequestNumber, &pr.Description,
			&pr.RequestedBy, &pr.RequestedByName, &pr.PickingTypeID, &pr.PickingTypeName,
			&pr.ProcurementGroup, &pr.State, &pr.CreatedAt, &pr.ApprovedAt, &pr.DoneAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		requests = append(requests, pr)
	}
	return requests, nil
}

// RecordLineProgress updates procurement progress quantities on a line.
func (s *requestService) RecordLineProgress(ctx context.Context, lineID int, progress LineProgress) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE purchase_request_lines
		SET qty_in_progress = COALESCE($1, qty_in_progress),
		    qty_done        = COALESCE($2, qty_done),
		    purchase_state  = COALESCE($3, purchase_state)
		WHERE id = $4`,
		progress.QtyInProgress, progress.QtyDone, progress.PurchaseState, lineID,
	)
	if err != nil {
		return fmt.Errorf("update line %d progress: %w", lineID, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("purchase request line %d not found", lineID)
	}
	return nil
}

// DeleteLine removes a request line. The expense back-reference is
// restrict-on-delete, so a converted line cannot be removed.
func (s *requestService) DeleteLine(ctx context.Context, lineID int) error {
	var referenced bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM expenses WHERE purchase_request_line_id = $1)",
		lineID,
	).Scan(&referenced); err != nil {
		return fmt.Errorf("check line %d references: %w", lineID, err)
	}
	if referenced {
		return fmt.Errorf("purchase request line %d cannot be deleted: an expense references it", lineID)
	}

	res, err := s.pool.Exec(ctx, "DELETE FROM purchase_request_lines WHERE id = $1", lineID)
	if err != nil {
		return fmt.Errorf("delete line %d: %w", lineID, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("purchase request line %d not found", lineID)
	}
	return nil
}

// RelatedExpenses returns the expenses created from a request's lines.
func (s *requestService) RelatedExpenses(ctx context.Context, requestID int) ([]Expense, error) {
	return fetchExpenses(ctx, s.pool, `
		x.purchase_request_line_id IN (
			SELECT id FROM purchase_request_lines WHERE request_id = $1
		)`, requestID)
}

// GetExpenseSummary returns the count and total amount of a request's
// related expenses.
func (s *requestService) GetExpenseSummary(ctx context.Context, requestID int) (*ExpenseSummary, error) {
	expenses, err := s.RelatedExpenses(ctx, requestID)
	if err != nil {
		return nil, err
	}
	summary := &ExpenseSummary{RequestID: requestID}
	for i := range expenses {
		summary.ExpenseCount++
		summary.TotalAmount = summary.TotalAmount.Add(expenses[i].TotalAmount())
	}
	return summary, nil
}

// ViewExpenses returns a view descriptor over the request's related expenses.
func (s *requestService) ViewExpenses(ctx context.Context, requestID int) (*ViewAction, error) {
	expenses, err := s.RelatedExpenses(ctx, requestID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(expenses))
	for i := range expenses {
		ids[i] = expenses[i].ID
	}
	return viewActionFor("Expenses", "expense", ids), nil
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx, so the fetch
// helpers work inside and outside transactions.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// fetchRequestLines loads request lines matching the given WHERE fragment,
// with the denormalized request fields the line validator needs.
func fetchRequestLines(ctx context.Context, q queryer, where string, args ...any) ([]PurchaseRequestLine, error) {
	rows, err := q.Query(ctx, `
		SELECT prl.id, prl.request_id, prl.company_id,
		       prl.product_id, p.code, p.name,
		       prl.description, prl.product_qty, prl.qty_in_progress, prl.qty_done,
		       prl.estimated_cost, prl.unit, prl.purchase_state, prl.expense_id, prl.created_at,
		       pr.request_number, pr.state, pr.picking_type_id
		FROM purchase_request_lines prl
		JOIN purchase_requests pr ON pr.id = prl.request_id
		LEFT JOIN products p ON p.id = prl.product_id
		WHERE `+where+`
		ORDER BY prl.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch request lines: %w", err)
	}
	defer rows.Close()

	var lines []PurchaseRequestLine
	for rows.Next() {
		var l PurchaseRequestLine
		if err := rows.Scan(
			&l.ID, &l.RequestID, &l.CompanyID,
			&l.ProductID, &l.ProductCode, &l.ProductName,
			&l.Description, &l.ProductQty, &l.QtyInProgress, &l.QtyDone,
			&l.EstimatedCost, &l.Unit, &l.PurchaseState, &l.ExpenseID, &l.CreatedAt,
			&l.RequestNumber, &l.RequestState, &l.PickingTypeID,
		); err != nil {
			return nil, fmt.Errorf("scan request line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// fetchRequestLinesByIDs loads the given lines preserving the selection order.
func fetchRequestLinesByIDs(ctx context.Context, q queryer, lineIDs []int) ([]PurchaseRequestLine, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	lines, err := fetchRequestLines(ctx, q, "prl.id = ANY($1)", lineIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]PurchaseRequestLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	ordered := make([]PurchaseRequestLine, 0, len(lineIDs))
	for _, id := range lineIDs {
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("purchase request line %d not found", id)
		}
		ordered = append(ordered, l)
	}
	return ordered, nil
}
