package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
)

type (
	totalsView struct {
		Income          string
		Expense         string
		Balance         string
		BalanceNegative bool
	}

	barView struct {
		Label  string
		Amount string
		Width  int
		Class  string
	}

	recordView struct {
		ID        string
		Title     string
		Category  string
		Type      string
		Amount    string
		CreatedAt string
	}

	dashboardData struct {
		User       auth.User
		Totals     totalsView
		Chart      []barView
		Categories []barView
		Records    []recordView
		Shown      int
		Total      int
		Search     string
		Type       string
		Form       core.TransactionInput
		Error      string
	}
)

// buildDashboard derives everything the dashboard shows. Totals, chart and
// category breakdown cover all records; the list honours the query.
func (s *Server) buildDashboard(user auth.User, records []core.Transaction, q listQuery) dashboardData {
	totals := core.ComputeTotals(records)

	data := dashboardData{
		User: user,
		Totals: totalsView{
			Income:          formatAmount(totals.Income, s.currency),
			Expense:         formatAmount(totals.Expense, s.currency),
			Balance:         formatAmount(totals.Balance, s.currency),
			BalanceNegative: totals.Balance.IsNegative(),
		},
		Total:  len(records),
		Search: q.Search,
		Type:   string(q.Type),
		Form:   core.TransactionInput{Type: string(core.Expense)},
	}

	peak := totals.Income
	if totals.Expense.GreaterThan(peak.Decimal) {
		peak = totals.Expense
	}
	data.Chart = []barView{
		{Label: "Income", Amount: data.Totals.Income, Width: percent(totals.Income, peak), Class: "income"},
		{Label: "Expense", Amount: data.Totals.Expense, Width: percent(totals.Expense, peak), Class: "expense"},
	}

	byCategory := core.ByCategory(records, core.Expense)
	var top core.Amount
	for _, c := range byCategory {
		if c.Amount.GreaterThan(top.Decimal) {
			top = c.Amount
		}
	}
	for _, c := range byCategory {
		label := c.Category
		if label == "" {
			label = "Uncategorized"
		}
		data.Categories = append(data.Categories, barView{
			Label:  label,
			Amount: formatAmount(c.Amount, s.currency),
			Width:  percent(c.Amount, top),
			Class:  "expense",
		})
	}

	for _, tx := range core.Filter(records, q.Search, q.Type) {
		data.Records = append(data.Records, recordView{
			ID:        tx.ID,
			Title:     tx.Title,
			Category:  tx.Category,
			Type:      string(tx.Type),
			Amount:    formatAmount(tx.Amount, s.currency),
			CreatedAt: tx.CreatedAt.Format("Jan 2, 2006"),
		})
	}
	data.Shown = len(data.Records)
	return data
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.NewFields().WithErrorType(log.ErrorTypeInternal))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderDashboard writes the dashboard for records. A non-nil err sets
// the status and the visible message; form, when given, is re-filled.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, user auth.User, records []core.Transaction, form *core.TransactionInput, err error) {
	data := s.buildDashboard(user, records, parseListQuery(r.URL.Query()))
	status := http.StatusOK
	if form != nil {
		data.Form = *form
	}
	if err != nil {
		status = statusFor(err)
		data.Error = userMessage(err)
	}
	s.render(w, r, status, "index.html", data)
}

// requireUser returns the session user or redirects to the sign-in page.
func requireUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
	}
	return u, ok
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	records, err := s.viewFor(user.ID).Load(ctx)
	if err != nil {
		s.logFailure(r, "Failed to load transactions", log.OpList, user.ID, err)
	}
	s.renderDashboard(w, r, user, records, nil, err)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	in := parser.TransactionInput()

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	records, err := s.viewFor(user.ID).Add(ctx, in)
	if err != nil {
		s.logFailure(r, "Failed to add transaction", log.OpCreate, user.ID, err)
		s.renderDashboard(w, r, user, records, &in, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	records, err := s.viewFor(user.ID).Remove(ctx, r.PathValue("id"))
	if err != nil {
		s.logFailure(r, "Failed to delete transaction", log.OpDelete, user.ID, err)
		s.renderDashboard(w, r, user, records, nil, err)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logFailure logs a failed ledger call at a level matching its cause.
func (s *Server) logFailure(r *http.Request, msg, op, userID string, err error) {
	logger := log.FromContext(r.Context())
	switch {
	case errors.Is(err, core.ErrValidation):
		logger.InfoContext(r.Context(), msg,
			log.FieldOperation, op, log.FieldUserID, userID,
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeValidation)
	case errors.Is(err, core.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		log.NewStructuredLogger(logger).LogError(r.Context(), msg, err, log.ComponentHTTP, op,
			log.NewFields().WithUser(userID).WithErrorType(log.ErrorTypeDatabase))
	default:
		log.NewStructuredLogger(logger).LogError(r.Context(), msg, err, log.ComponentHTTP, op,
			log.NewFields().WithUser(userID).WithErrorType(log.ErrorTypeInternal))
	}
}
