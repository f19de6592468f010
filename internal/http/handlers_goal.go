package http

import (
	"net/http"

	"goalpad/internal/auth"
	"goalpad/internal/core"
	applog "goalpad/internal/log"
	"goalpad/internal/services"
)

type exceptionRequest struct {
	Date     string         `json:"date"`
	Type     string         `json:"type"`
	Override *core.Override `json:"override,omitempty"`
}

type completeOccurrenceRequest struct {
	Date string `json:"date"`
	Done *bool  `json:"done,omitempty"` // defaults to true
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var in services.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := s.goalSvc.Create(r.Context(), session.UserID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Goal created",
		applog.FieldUserID, session.UserID,
		applog.FieldGoalID, g.ID,
		applog.FieldRecurrence, string(g.Recurrence))
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	goals, err := s.goalSvc.List(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	g, err := s.goalSvc.Get(r.Context(), session.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var in services.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := s.goalSvc.Update(r.Context(), session.UserID, r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	if err := s.goalSvc.Delete(r.Context(), session.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleToggleComplete(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	g, err := s.goalSvc.ToggleComplete(r.Context(), session.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleMarkIncomplete(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	g, err := s.goalSvc.MarkIncomplete(r.Context(), session.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleAddException(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var req exceptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := s.goalSvc.AddException(r.Context(), session.UserID, r.PathValue("id"), core.Exception{
		Date:     req.Date,
		Type:     core.ExceptionType(req.Type),
		Override: req.Override,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Exception recorded",
		applog.FieldUserID, session.UserID,
		applog.FieldGoalID, g.ID,
		applog.FieldDate, req.Date)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRemoveException(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var req exceptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := s.goalSvc.RemoveException(r.Context(), session.UserID, r.PathValue("id"), req.Date, core.ExceptionType(req.Type))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCompleteOccurrence(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var req completeOccurrenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	done := true
	if req.Done != nil {
		done = *req.Done
	}

	g, err := s.goalSvc.CompleteOccurrence(r.Context(), session.UserID, r.PathValue("id"), req.Date, done)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(session.UserID)
	writeJSON(w, http.StatusOK, g)
}
