package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/batterynews/internal/news"
)

const maxSyncBody = 1 << 20

type statusResponse struct {
	Online      bool      `json:"online"`
	Logs        []string  `json:"logs"`
	HistorySize int       `json:"historySize"`
	LastRun     time.Time `json:"lastRun,omitzero"`
	NextRun     time.Time `json:"nextRun,omitzero"`
}

type syncRequest struct {
	Titles []string `json:"titles"`
}

type syncResponse struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

// handleTrigger starts a cycle in the background and answers immediately.
// Cooldown is enforced by the pipeline, not here.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.deps.Trigger != nil {
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			s.deps.Trigger(s.baseCtx, news.TriggerManual)
		}()
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	articles := s.deps.Store.Articles()
	if articles == nil {
		articles = []news.Article{}
	}
	s.respondJSON(w, http.StatusOK, articles)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Online:      true,
		Logs:        s.deps.Store.Logs(),
		HistorySize: s.deps.Store.HistorySize(),
	}
	if s.deps.LastRun != nil {
		resp.LastRun = s.deps.LastRun()
	}
	if s.deps.NextRun != nil {
		resp.NextRun = s.deps.NextRun()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleHistorySync merges titles from a client's own copy of history.
// Accepts {"titles": [...]} or a bare JSON array.
func (s *Server) handleHistorySync(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSyncBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	var titles []string
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &titles)
	} else {
		var req syncRequest
		err = json.Unmarshal(trimmed, &req)
		titles = req.Titles
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "expected {\"titles\": [...]} or a JSON array of strings")
		return
	}

	added := s.deps.Store.MergeTitles(titles)
	s.log.Info("history synced", "received", len(titles), "added", added)
	s.respondJSON(w, http.StatusOK, syncResponse{Added: added, Total: s.deps.Store.HistorySize()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.deps.Metrics.GetStats()

	status := "ok"
	code := http.StatusOK
	if !s.deps.Metrics.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	s.respondJSON(w, code, map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.deps.Metrics.GetStats())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
