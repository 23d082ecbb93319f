package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"purchase-request-expense/internal/app"
)

// defaultCompanyCode resolves the active company for list endpoints.
func (h *Handler) defaultCompanyCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	if code := r.URL.Query().Get("company"); code != "" {
		return code, true
	}
	company, err := h.svc.LoadDefaultCompany(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return "", false
	}
	return company.CompanyCode, true
}

func urlParamID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// getCompany handles GET /api/company.
func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.LoadDefaultCompany(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, company)
}

// listEmployees handles GET /api/employees.
func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	code, ok := h.defaultCompanyCode(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListEmployees(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listProducts handles GET /api/products.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	code, ok := h.defaultCompanyCode(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListProducts(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listPickingTypes handles GET /api/picking-types.
func (h *Handler) listPickingTypes(w http.ResponseWriter, r *http.Request) {
	code, ok := h.defaultCompanyCode(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListPickingTypes(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listRequests handles GET /api/requests?state=APPROVED.
func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	code, ok := h.defaultCompanyCode(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListRequests(r.Context(), code, r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createRequest handles POST /api/requests.
func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req app.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if req.CompanyCode == "" {
		company, err := h.svc.LoadDefaultCompany(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		req.CompanyCode = company.CompanyCode
	}
	result, err := h.svc.CreateRequest(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result)
}

// getRequest handles GET /api/requests/{id}.
func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.SubmitRequest)
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.ApproveRequest)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.RejectRequest)
}

func (h *Handler) markRequestDone(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.MarkRequestDone)
}

// lifecycle runs one state-transition operation and returns the updated request.
func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id int) (*app.RequestResult, error)) {

	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	result, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// recordLineProgress handles PATCH /api/lines/{id}/progress.
func (h *Handler) recordLineProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	var req app.LineProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	req.LineID = id
	if err := h.svc.RecordLineProgress(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "updated"})
}

// deleteLine handles DELETE /api/lines/{id}.
func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteRequestLine(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}
