package core_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"purchase-request-expense/internal/core"
)

func TestRequestLifecycle_GaplessNumbers(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	ctx := context.Background()

	first := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Team lunch", ProductQty: qty(1), EstimatedCost: cost(250)},
	})
	second := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Stationery", ProductQty: qty(5), EstimatedCost: cost(100)},
	})

	year := time.Now().Year()
	wantFirst := fmt.Sprintf("PR-%d-%05d", year, 1)
	wantSecond := fmt.Sprintf("PR-%d-%05d", year, 2)

	if first.RequestNumber == nil || *first.RequestNumber != wantFirst {
		t.Errorf("expected first number %s, got %v", wantFirst, first.RequestNumber)
	}
	if second.RequestNumber == nil || *second.RequestNumber != wantSecond {
		t.Errorf("expected second number %s, got %v", wantSecond, second.RequestNumber)
	}
	if first.State != core.RequestApproved {
		t.Errorf("expected state APPROVED, got %s", first.State)
	}
	if first.ApprovedAt == nil {
		t.Error("expected approved_at to be stamped")
	}

	// Approving again is a no-op and must not consume a number.
	if err := requests.ApproveRequest(ctx, first.ID); err != nil {
		t.Fatalf("Re-approve failed: %v", err)
	}
	reloaded, err := requests.GetRequest(ctx, first.ID)
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if *reloaded.RequestNumber != wantFirst {
		t.Errorf("re-approve changed the number to %s", *reloaded.RequestNumber)
	}
}

func TestRequestLifecycle_InvalidTransitions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	ctx := context.Background()

	pr, err := requests.CreateRequest(ctx, 1, 1, "Draft request", nil, "", []core.RequestLineInput{
		{Description: "Misc", ProductQty: qty(1), EstimatedCost: cost(50)},
	})
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	// DRAFT cannot be approved directly.
	if err := requests.ApproveRequest(ctx, pr.ID); err == nil {
		t.Error("expected approving a DRAFT request to fail")
	}
	// DRAFT cannot be rejected.
	if err := requests.RejectRequest(ctx, pr.ID); err == nil {
		t.Error("expected rejecting a DRAFT request to fail")
	}

	if err := requests.SubmitRequest(ctx, pr.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := requests.RejectRequest(ctx, pr.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	reloaded, _ := requests.GetRequest(ctx, pr.ID)
	if reloaded.State != core.RequestRejected {
		t.Errorf("expected REJECTED, got %s", reloaded.State)
	}
	if reloaded.RequestNumber != nil {
		t.Errorf("rejected request must not carry a number, got %s", *reloaded.RequestNumber)
	}
}

func TestRecordLineProgress(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Cleaning", ProductQty: qty(10), EstimatedCost: cost(500)},
	})
	lineID := pr.Lines[0].ID

	inProgress := qty(3)
	done := qty(2)
	if err := requests.RecordLineProgress(ctx, lineID, core.LineProgress{
		QtyInProgress: &inProgress,
		QtyDone:       &done,
	}); err != nil {
		t.Fatalf("Failed to record progress: %v", err)
	}

	reloaded, _ := requests.GetRequest(ctx, pr.ID)
	pending := reloaded.Lines[0].PendingQtyToReceive()
	if !pending.Equal(qty(5)) {
		t.Errorf("expected pending 5, got %s", pending)
	}

	if err := requests.RecordLineProgress(ctx, 99999, core.LineProgress{QtyDone: &done}); err == nil {
		t.Error("expected progress on a missing line to fail")
	}
}

func TestDeleteLine(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	requests := core.NewRequestService(pool, core.NewSequenceService())
	converter := core.NewExpenseConverter(pool, "ADV")
	ctx := context.Background()

	pr := createApprovedRequest(t, requests, 1, []core.RequestLineInput{
		{ProductCode: "EXP-GEN", Description: "Keep me", ProductQty: qty(1), EstimatedCost: cost(100)},
		{ProductCode: "EXP-GEN", Description: "Delete me", ProductQty: qty(1), EstimatedCost: cost(100)},
	})

	// Convert the first line, then try to delete both.
	items, err := converter.GetItems(ctx, []int{pr.Lines[0].ID})
	if err != nil {
		t.Fatalf("Staging failed: %v", err)
	}
	if _, err := converter.MakeExpense(ctx, 1, items); err != nil {
		t.Fatalf("Conversion failed: %v", err)
	}

	err = requests.DeleteLine(ctx, pr.Lines[0].ID)
	if err == nil {
		t.Fatal("expected deleting a converted line to fail")
	}
	if !strings.Contains(err.Error(), "an expense references it") {
		t.Errorf("unexpected error: %v", err)
	}

	if err := requests.DeleteLine(ctx, pr.Lines[1].ID); err != nil {
		t.Errorf("expected deleting an unconverted line to succeed, got: %v", err)
	}
}
