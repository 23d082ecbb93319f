package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"purchase-request-expense/internal/core"

	"github.com/shopspring/decimal"
)

func TestExpenseConversion_SingleLine(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Catering", ProductQty: qty(2), EstimatedCost: cost(400)},
	})

	lineIDs, err := converter.ExpandSelection(ctx, core.LineSelection{RequestIDs: []int{pr.ID}})
	if err != nil {
		t.Fatalf("ExpandSelection failed: %v", err)
	}
	items, err := converter.GetItems(ctx, lineIDs)
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 staged item, got %d", len(items))
	}

	item := items[0]
	if item.ProductCode != "EXP-GEN" {
		t.Errorf("expected product EXP-GEN, got %s", item.ProductCode)
	}
	if !item.Quantity.Equal(qty(2)) {
		t.Errorf("expected quantity 2, got %s", item.Quantity)
	}
	if item.RequestNumber != *pr.RequestNumber {
		t.Errorf("expected reference %s, got %s", *pr.RequestNumber, item.RequestNumber)
	}

	action, err := converter.MakeExpense(ctx, 1, items)
	if err != nil {
		t.Fatalf("MakeExpense failed: %v", err)
	}
	if action.ViewMode != "form" || action.ResID == 0 {
		t.Errorf("expected a form view on the created expense, got %+v", action)
	}

	// 400 over quantity 2 is a unit amount of 200.
	var quantity, unitAmount decimal.Decimal
	var reference string
	var requestLineID *int
	err = pool.QueryRow(ctx, `
		SELECT quantity, unit_amount, reference, purchase_request_line_id
		FROM expenses WHERE id = $1`, action.ResID,
	).Scan(&quantity, &unitAmount, &reference, &requestLineID)
	if err != nil {
		t.Fatalf("Failed to read expense: %v", err)
	}
	if !quantity.Equal(qty(2)) {
		t.Errorf("expected quantity 2, got %s", quantity)
	}
	if !unitAmount.Equal(cost(200)) {
		t.Errorf("expected unit amount 200, got %s", unitAmount)
	}
	if reference != *pr.RequestNumber {
		t.Errorf("expected reference %s, got %s", *pr.RequestNumber, reference)
	}
	if requestLineID == nil || *requestLineID != pr.Lines[0].ID {
		t.Errorf("expected expense linked to line %d, got %v", pr.Lines[0].ID, requestLineID)
	}

	// The line is stamped with the created expense.
	reloaded, _ := requests.GetRequest(ctx, pr.ID)
	if reloaded.Lines[0].ExpenseID == nil || *reloaded.Lines[0].ExpenseID != action.ResID {
		t.Errorf("expected line stamped with expense %d, got %v", action.ResID, reloaded.Lines[0].ExpenseID)
	}
}

func TestExpenseConversion_ManyLines(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Catering", ProductQty: qty(1), EstimatedCost: cost(400)},
		{ProductCode: "EXP-GEN", Description: "Transport", ProductQty: qty(1), EstimatedCost: cost(150)},
	})

	lineIDs, _ := converter.ExpandSelection(ctx, core.LineSelection{RequestIDs: []int{pr.ID}})
	items, err := converter.GetItems(ctx, lineIDs)
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}

	action, err := converter.MakeExpense(ctx, 1, items)
	if err != nil {
		t.Fatalf("MakeExpense failed: %v", err)
	}
	if action.ViewMode != "list,form" {
		t.Errorf("expected a list view for several expenses, got %q", action.ViewMode)
	}
	if len(action.RecordIDs) != 2 {
		t.Errorf("expected 2 created expenses, got %v", action.RecordIDs)
	}

	// Round trip: the request's expense summary matches what was converted.
	summary, err := requests.GetExpenseSummary(ctx, pr.ID)
	if err != nil {
		t.Fatalf("GetExpenseSummary failed: %v", err)
	}
	if summary.ExpenseCount != 2 {
		t.Errorf("expected 2 related expenses, got %d", summary.ExpenseCount)
	}
	if !summary.TotalAmount.Equal(cost(550)) {
		t.Errorf("expected total 550, got %s", summary.TotalAmount)
	}

	view, err := requests.ViewExpenses(ctx, pr.ID)
	if err != nil {
		t.Fatalf("ViewExpenses failed: %v", err)
	}
	if view.ViewMode != "list,form" || len(view.RecordIDs) != 2 {
		t.Errorf("expected list view over 2 expenses, got %+v", view)
	}
}

func TestExpenseConversion_RequiresApprovedRequest(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr, err := requests.CreateRequest(ctx, 1, 1, "Still draft", nil, "", []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Too early", ProductQty: qty(1), EstimatedCost: cost(100)},
	})
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	_, err = converter.GetItems(ctx, []int{pr.Lines[0].ID})
	if err == nil {
		t.Fatal("expected staging a draft request to fail")
	}
	if !strings.Contains(err.Error(), "is not approved") {
		t.Errorf("unexpected error: %v", err)
	}

	// A DONE request fails with the completed-purchase message.
	approved := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Too late", ProductQty: qty(1), EstimatedCost: cost(100)},
	})
	if err := requests.MarkRequestDone(ctx, approved.ID); err != nil {
		t.Fatalf("MarkRequestDone failed: %v", err)
	}
	_, err = converter.GetItems(ctx, []int{approved.Lines[0].ID})
	if err == nil || err.Error() != "the purchase has already been completed" {
		t.Errorf("expected completed-purchase error, got: %v", err)
	}
}

func TestExpenseConversion_RejectsMixedCompanies(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	mine := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Ours", ProductQty: qty(1), EstimatedCost: cost(100)},
	})

	pickingType := 3
	other, err := requests.CreateRequest(ctx, 2, 3, "Theirs", &pickingType, "", []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Theirs", ProductQty: qty(1), EstimatedCost: cost(100)},
	})
	if err != nil {
		t.Fatalf("Failed to create second-company request: %v", err)
	}
	if err := requests.SubmitRequest(ctx, other.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := requests.ApproveRequest(ctx, other.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	_, err = converter.GetItems(ctx, []int{mine.Lines[0].ID, other.Lines[0].ID})
	if err == nil || err.Error() != "you have to select lines from the same company" {
		t.Errorf("expected same-company error, got: %v", err)
	}
	if n := countExpenses(t, pool); n != 0 {
		t.Errorf("staging must not persist expenses, found %d", n)
	}
}

func TestExpenseConversion_SkipsIneligibleProducts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "HW-LAPTOP", Description: "New laptop", ProductQty: qty(1), EstimatedCost: cost(15000)},
		{ProductCode: "ADV", Description: "Cash advance", ProductQty: qty(1), EstimatedCost: cost(500)},
		{ProductCode: "EXP-GEN", Description: "Catering", ProductQty: qty(1), EstimatedCost: cost(400)},
	})

	lineIDs, _ := converter.ExpandSelection(ctx, core.LineSelection{RequestIDs: []int{pr.ID}})
	items, err := converter.GetItems(ctx, lineIDs)
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if len(items) != 1 || items[0].ProductCode != "EXP-GEN" {
		t.Fatalf("expected only the EXP-GEN line staged, got %+v", items)
	}

	// A selection of only ineligible lines yields the sentinel error.
	onlyLaptop := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "HW-LAPTOP", Description: "Another laptop", ProductQty: qty(1), EstimatedCost: cost(15000)},
	})
	_, err = converter.GetItems(ctx, []int{onlyLaptop.Lines[0].ID})
	if !errors.Is(err, core.ErrNoExpensableProducts) {
		t.Errorf("expected ErrNoExpensableProducts, got: %v", err)
	}
}

func TestExpenseConversion_FallbackProductAndQuantity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{Description: "Misc services", ProductQty: qty(3), EstimatedCost: cost(300)},
	})

	items, err := converter.GetItems(ctx, []int{pr.Lines[0].ID})
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	// No product on the line: the first expensable service product (never
	// the advance product) stands in, the line keeps its own description.
	if items[0].ProductCode != "EXP-GEN" {
		t.Errorf("expected fallback product EXP-GEN, got %s", items[0].ProductCode)
	}
	if items[0].Description != "Misc services" {
		t.Errorf("expected the line description, got %q", items[0].Description)
	}
	if !items[0].Quantity.Equal(qty(3)) {
		t.Errorf("expected quantity 3, got %s", items[0].Quantity)
	}

	// Fully received lines stage with quantity 1, not 0.
	done := qty(3)
	if err := requests.RecordLineProgress(ctx, pr.Lines[0].ID, core.LineProgress{QtyDone: &done}); err != nil {
		t.Fatalf("Failed to record progress: %v", err)
	}
	items, err = converter.GetItems(ctx, []int{pr.Lines[0].ID})
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if !items[0].Quantity.Equal(qty(1)) {
		t.Errorf("expected quantity 1 for a fully received line, got %s", items[0].Quantity)
	}
}

func TestMakeExpense_AtomicOnFailure(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Good line", ProductQty: qty(1), EstimatedCost: cost(100)},
		{ProductCode: "EXP-GEN", Description: "Bad line", ProductQty: qty(1), EstimatedCost: cost(200)},
	})

	lineIDs, _ := converter.ExpandSelection(ctx, core.LineSelection{RequestIDs: []int{pr.ID}})
	items, err := converter.GetItems(ctx, lineIDs)
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}

	// Callers may edit staged items; a zero quantity must sink the whole batch.
	items[1].Quantity = decimal.Zero
	_, err = converter.MakeExpense(ctx, 1, items)
	if err == nil {
		t.Fatal("expected commit to fail on zero quantity")
	}
	if !strings.Contains(err.Error(), "quantity must be greater than 0") {
		t.Errorf("unexpected error: %v", err)
	}

	if n := countExpenses(t, pool); n != 0 {
		t.Errorf("expected no expenses after failed commit, found %d", n)
	}
	reloaded, _ := requests.GetRequest(ctx, pr.ID)
	for _, line := range reloaded.Lines {
		if line.ExpenseID != nil {
			t.Errorf("line %d stamped despite failed commit", line.ID)
		}
	}
}

func TestMakeExpense_RefusesDoubleConversion(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Once only", ProductQty: qty(1), EstimatedCost: cost(100)},
	})

	items, err := converter.GetItems(ctx, []int{pr.Lines[0].ID})
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if _, err := converter.MakeExpense(ctx, 1, items); err != nil {
		t.Fatalf("First conversion failed: %v", err)
	}

	_, err = converter.MakeExpense(ctx, 1, items)
	if err == nil {
		t.Fatal("expected second conversion of the same line to fail")
	}
	if !strings.Contains(err.Error(), "already been converted") {
		t.Errorf("unexpected error: %v", err)
	}
	if n := countExpenses(t, pool); n != 1 {
		t.Errorf("expected exactly 1 expense, found %d", n)
	}
}

func TestMakeExpense_InputValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	_, err := converter.MakeExpense(ctx, 1, nil)
	if err == nil || err.Error() != "you must select at least one expense line" {
		t.Errorf("expected empty-selection error, got: %v", err)
	}

	_, err = converter.MakeExpense(ctx, 1, []core.ConversionItem{
		{Description: "No product", Quantity: qty(1)},
	})
	if err == nil || !strings.Contains(err.Error(), "product is required for the line with description: No product") {
		t.Errorf("expected missing-product error, got: %v", err)
	}
}
