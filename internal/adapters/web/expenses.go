package web

import (
	"net/http"
	"strconv"
	"strings"
)

// listExpenses handles GET /api/expenses?ids=1,2,3.
func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	code, ok := h.defaultCompanyCode(w, r)
	if !ok {
		return
	}

	var ids []int
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				writeError(w, r, "invalid ids filter", "BAD_REQUEST", http.StatusBadRequest)
				return
			}
			ids = append(ids, id)
		}
	}

	result, err := h.svc.ListExpenses(r.Context(), code, ids)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getExpense handles GET /api/expenses/{id}.
func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getRequestExpenses handles GET /api/requests/{id}/expenses.
func (h *Handler) getRequestExpenses(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetRequestExpenses(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listSheets handles GET /api/sheets.
func (h *Handler) listSheets(w http.ResponseWriter, r *http.Request) {
	code, ok := h.defaultCompanyCode(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListSheets(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getSheet handles GET /api/sheets/{id}.
func (h *Handler) getSheet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetSheet(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
