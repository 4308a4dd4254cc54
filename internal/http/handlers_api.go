package http

import (
	"context"
	"net/http"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
)

type (
	listResponse struct {
		Transactions []core.Transaction `json:"transactions"`
		Count        int                `json:"count"`
		Total        int                `json:"total"`
	}

	chartPoint struct {
		Label  string      `json:"label"`
		Amount core.Amount `json:"amount"`
	}

	summaryResponse struct {
		Totals     core.Totals          `json:"totals"`
		Formatted  map[string]string    `json:"formatted"`
		Currency   string               `json:"currency"`
		Chart      []chartPoint         `json:"chart"`
		Categories []core.CategoryTotal `json:"categories"`
		Count      int                  `json:"count"`
	}
)

// apiUser returns the session user or writes a 401.
func apiUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		UnauthorizedError().Write(w)
	}
	return u, ok
}

// apiError writes err with its mapped status.
func (s *Server) apiError(w http.ResponseWriter, err error) {
	ErrorResponse(statusFor(err), userMessage(err)).Write(w)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	user, ok := apiUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	records, err := s.viewFor(user.ID).Load(ctx)
	if err != nil {
		s.logFailure(r, "Failed to list transactions", log.OpList, user.ID, err)
		s.apiError(w, err)
		return
	}

	q := parseListQuery(r.URL.Query())
	filtered := core.Filter(records, q.Search, q.Type)
	NewResponse().JSON(listResponse{
		Transactions: filtered,
		Count:        len(filtered),
		Total:        len(records),
	}).Write(w)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	user, ok := apiUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	records, err := s.viewFor(user.ID).Load(ctx)
	if err != nil {
		s.logFailure(r, "Failed to load summary", log.OpList, user.ID, err)
		s.apiError(w, err)
		return
	}

	totals := core.ComputeTotals(records)
	categories := core.ByCategory(records, core.Expense)
	if categories == nil {
		categories = []core.CategoryTotal{}
	}
	NewResponse().JSON(summaryResponse{
		Totals: totals,
		Formatted: map[string]string{
			"income":  formatAmount(totals.Income, s.currency),
			"expense": formatAmount(totals.Expense, s.currency),
			"balance": formatAmount(totals.Balance, s.currency),
		},
		Currency: s.currency,
		Chart: []chartPoint{
			{Label: "Income", Amount: totals.Income},
			{Label: "Expense", Amount: totals.Expense},
		},
		Categories: categories,
		Count:      len(records),
	}).Write(w)
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	user, ok := apiUser(w, r)
	if !ok {
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	records, err := s.viewFor(user.ID).Add(ctx, parser.TransactionInput())
	if err != nil {
		s.logFailure(r, "Failed to add transaction", log.OpCreate, user.ID, err)
		s.apiError(w, err)
		return
	}

	// the new record is prepended
	created := records[0]
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		JSON(created).
		Write(w)
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := apiUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if _, err := s.viewFor(user.ID).Remove(ctx, r.PathValue("id")); err != nil {
		s.logFailure(r, "Failed to delete transaction", log.OpDelete, user.ID, err)
		s.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
