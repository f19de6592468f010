package http

import (
	"net/http"
	"time"

	"goalpad/internal/auth"
	applog "goalpad/internal/log"
	"goalpad/internal/services"
)

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	key := session.UserID + ":schedule"

	if groups, found := s.scheduleCache.Get(key); found {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Schedule cache hit",
			applog.FieldUserID, session.UserID)
		writeJSON(w, http.StatusOK, groups)
		return
	}

	groups, err := s.goalSvc.Schedule(r.Context(), session.UserID, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []services.DayGroup{}
	}

	s.scheduleCache.Set(key, groups)
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	period := services.ParsePeriod(r.URL.Query().Get("period"))

	progress, err := s.goalSvc.Progress(r.Context(), session.UserID, period, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleDetailedStats(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	key := session.UserID + ":detailed"

	if stats, found := s.statsCache.Get(key); found {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Stats cache hit",
			applog.FieldUserID, session.UserID)
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.goalSvc.DetailedStats(r.Context(), session.UserID, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.statsCache.Set(key, stats)
	writeJSON(w, http.StatusOK, stats)
}
