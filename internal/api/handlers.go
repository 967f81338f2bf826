package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/store"
)

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

// GET /api/v1/levels
func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, LevelsResponse{Levels: s.svc.Levels(), Version: Version})
}

// POST /api/v1/levels/unlock-all
func (s *Server) handleUnlockAll(w http.ResponseWriter, r *http.Request) {
	s.svc.UnlockAll(r.Context())
	s.writeJSON(w, http.StatusOK, LevelsResponse{Levels: s.svc.Levels(), Version: Version})
}

// DELETE /api/v1/progress
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/strategies
func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StrategiesResponse{Strategies: s.svc.Strategies(), Version: Version})
}

// POST /api/v1/sessions
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	if req.LevelID == "" {
		s.errorHandler.HandleValidationError(w, r, "level_id", "level_id is required")
		return
	}

	snap, err := s.svc.StartLevel(r.Context(), req.LevelID)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

// GET /api/v1/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DELETE /api/v1/sessions/{id}
func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Abandon(chi.URLParam(r, "id")); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/sessions/{id}/moves
func (s *Server) handleSubmitMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	move, err := engine.ParseMove(req.Move)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "move", "move must be rock, paper or scissors")
		return
	}

	ev, err := s.svc.Submit(r.Context(), chi.URLParam(r, "id"), move)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ev)
}

// GET /api/v1/sessions/{id}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := s.svc.History(id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, History: history})
}

// GET /api/v1/sessions/{id}/events (websocket)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.svc.Session(id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	first := game.Event{Kind: game.EventStarted, SessionID: id, Snapshot: &snap}
	if err := s.hub.Serve(w, r, id, first); err != nil {
		// The upgrader has already answered the request.
		s.logger.Warn().Err(err).Str("session", id).Msg("websocket upgrade failed")
	}
}

// GET /api/v1/runs?level_id=&page=&per_page=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := store.RunsQuery{LevelID: r.URL.Query().Get("level_id")}

	var ok bool
	if q.Page, ok = s.intParam(w, r, "page"); !ok {
		return
	}
	if q.PerPage, ok = s.intParam(w, r, "per_page"); !ok {
		return
	}
	if q.PerPage > 200 {
		s.errorHandler.HandleValidationError(w, r, "per_page", "per_page must be at most 200")
		return
	}

	list, err := s.svc.Runs(r.Context(), q)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/stats/{levelID}
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context(), chi.URLParam(r, "levelID"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// POST /api/v1/verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	if err := ValidateVerifyRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "request", err.Error())
		return
	}

	resp := VerifyResponse{
		SeedHash: engine.HashSeed(req.ServerSeed),
		Floats:   engine.Floats(req.ServerSeed, req.ClientSeed, req.Nonce, req.Count),
	}
	if req.SeedHash != "" {
		matches := strings.EqualFold(req.SeedHash, resp.SeedHash)
		resp.Matches = &matches
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// intParam reads an optional non-negative integer query parameter.
func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		s.errorHandler.HandleValidationError(w, r, name, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}
