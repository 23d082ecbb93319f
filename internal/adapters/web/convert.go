package web

import (
	"context"
	"encoding/json"
	"net/http"

	"purchase-request-expense/internal/app"
	"purchase-request-expense/internal/core"
)

// stageExpenseItems handles POST /api/expense-conversions/items. The body
// is the caller's active selection (line IDs or request IDs).
func (h *Handler) stageExpenseItems(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, h.svc.StageExpenseItems)
}

// stageSheetItems handles POST /api/expense-sheets/items.
func (h *Handler) stageSheetItems(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, h.svc.StageSheetItems)
}

// stageAdvanceItems handles POST /api/advance-sheets/items.
func (h *Handler) stageAdvanceItems(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, h.svc.StageAdvanceItems)
}

func (h *Handler) stage(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, sel core.LineSelection) (*app.ConversionItemsResult, error)) {

	var sel core.LineSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, r, "invalid request body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := op(r.Context(), sel)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// commitExpenses handles POST /api/expense-conversions. The body carries
// the employee and the (possibly edited) staged items.
func (h *Handler) commitExpenses(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, h.svc.CommitExpenses)
}

// commitExpenseSheet handles POST /api/expense-sheets.
func (h *Handler) commitExpenseSheet(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, h.svc.CommitExpenseSheet)
}

// commitAdvanceSheet handles POST /api/advance-sheets.
func (h *Handler) commitAdvanceSheet(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, h.svc.CommitAdvanceSheet)
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, req app.MakeExpenseRequest) (*core.ViewAction, error)) {

	var req app.MakeExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if req.EmployeeID <= 0 {
		writeError(w, r, "employee_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	action, err := op(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, action)
}
