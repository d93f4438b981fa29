package http

import (
	"net/http"
	"strconv"

	"garage/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Project not found").Write(w)
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	e, err := ParseExpenseForm(p, projectID, s.now())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	userID := currentUser(r)
	saved, err := s.expenses.Add(r.Context(), userID, e)
	if err != nil {
		s.errorResponse(r, err, log.ComponentExpense, log.OpCreate).Write(w)
		return
	}
	s.structured.LogExpenseWritten(r.Context(), log.OpCreate, userID, saved.ID, saved.ProjectID, saved.Amount.String(), saved.Category)

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerProjectChanged(saved.ProjectID).
		TriggerFormReset().
		TriggerSuccessNotification("Expense added").
		WriteOrRedirect(w, r, projectURL(saved.ProjectID))
}

// handleUpdateExpense takes the owning project from the project_id field so
// an expense can be moved between projects.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Expense not found").Write(w)
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	projectID, _ := strconv.ParseInt(p.Get("project_id"), 10, 64)
	e, err := ParseExpenseForm(p, projectID, s.now())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	e.ID = id

	userID := currentUser(r)
	saved, err := s.expenses.Update(r.Context(), userID, e)
	if err != nil {
		s.errorResponse(r, err, log.ComponentExpense, log.OpUpdate).Write(w)
		return
	}
	s.structured.LogExpenseWritten(r.Context(), log.OpUpdate, userID, saved.ID, saved.ProjectID, saved.Amount.String(), saved.Category)

	NewHTMXResponse().
		TriggerProjectChanged(saved.ProjectID).
		TriggerSuccessNotification("Expense updated").
		WriteOrRedirect(w, r, projectURL(saved.ProjectID))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Expense not found").Write(w)
		return
	}

	userID := currentUser(r)
	removed, err := s.expenses.Delete(r.Context(), userID, id)
	if err != nil {
		s.errorResponse(r, err, log.ComponentExpense, log.OpDelete).Write(w)
		return
	}
	s.structured.LogExpenseWritten(r.Context(), log.OpDelete, userID, removed.ID, removed.ProjectID, removed.Amount.String(), removed.Category)

	NewHTMXResponse().
		TriggerProjectChanged(removed.ProjectID).
		TriggerSuccessNotification("Expense deleted").
		WriteOrRedirect(w, r, projectURL(removed.ProjectID))
}
