package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"purchase-request-expense/internal/app"
)

// Handler serves the JSON API over the application service.
type Handler struct {
	svc app.ApplicationService
	mux *chi.Mux
}

// NewHandler builds the router with middleware and all API routes.
func NewHandler(svc app.ApplicationService) http.Handler {
	h := &Handler{svc: svc, mux: chi.NewRouter()}

	h.mux.Use(RequestID)
	h.mux.Use(Logger)
	h.mux.Use(Recoverer)

	h.mux.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/company", h.getCompany)
		r.Get("/employees", h.listEmployees)
		r.Get("/products", h.listProducts)
		r.Get("/picking-types", h.listPickingTypes)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.listRequests)
			r.Post("/", h.createRequest)
			r.Get("/{id}", h.getRequest)
			r.Post("/{id}/submit", h.submitRequest)
			r.Post("/{id}/approve", h.approveRequest)
			r.Post("/{id}/reject", h.rejectRequest)
			r.Post("/{id}/done", h.markRequestDone)
			r.Get("/{id}/expenses", h.getRequestExpenses)
		})

		r.Patch("/lines/{id}/progress", h.recordLineProgress)
		r.Delete("/lines/{id}", h.deleteLine)

		r.Post("/expense-conversions/items", h.stageExpenseItems)
		r.Post("/expense-conversions", h.commitExpenses)
		r.Post("/expense-sheets/items", h.stageSheetItems)
		r.Post("/expense-sheets", h.commitExpenseSheet)
		r.Post("/advance-sheets/items", h.stageAdvanceItems)
		r.Post("/advance-sheets", h.commitAdvanceSheet)

		r.Get("/expenses", h.listExpenses)
		r.Get("/expenses/{id}", h.getExpense)
		r.Get("/sheets", h.listSheets)
		r.Get("/sheets/{id}", h.getSheet)
	})

	return h.mux
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform error envelope of the API.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, msg, code string, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeServiceError maps service-layer errors onto the API: unknown
// records become 404, everything else surfaces verbatim as 422.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeError(w, r, err.Error(), "UNPROCESSABLE", http.StatusUnprocessableEntity)
}
