// Package httpapi exposes the mission engine and reward ledger over a small
// JSON control API. The game client drives the run by posting world-state
// snapshots; observers stream events over the websocket hub.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
	"github.com/tacticalworks/missiond/internal/mission/domain"
	"github.com/tacticalworks/missiond/internal/mission/engine"
	"github.com/tacticalworks/missiond/internal/reward"
)

// Server handles the control API requests.
type Server struct {
	engine    *engine.Engine
	ledger    *reward.Ledger
	submitter *reward.Submitter
	missions  map[string]domain.Mission
	clock     func() time.Time
}

// NewServer creates a control API server over the given collaborators. The
// missions map is the loaded catalog keyed by mission ID.
func NewServer(eng *engine.Engine, ledger *reward.Ledger, submitter *reward.Submitter, missions map[string]domain.Mission) *Server {
	if missions == nil {
		missions = map[string]domain.Mission{}
	}
	return &Server{
		engine:    eng,
		ledger:    ledger,
		submitter: submitter,
		missions:  missions,
		clock:     time.Now,
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /missions", s.handleListMissions)
	mux.HandleFunc("POST /missions/{id}/load", s.handleLoadMission)
	mux.HandleFunc("GET /run", s.handleRunStatus)
	mux.HandleFunc("POST /run/tick", s.handleTick)
	mux.HandleFunc("POST /run/pause", s.handlePause)
	mux.HandleFunc("POST /run/resume", s.handleResume)
	mux.HandleFunc("POST /run/abandon", s.handleAbandon)
	mux.HandleFunc("GET /rewards", s.handleRewards)
	mux.HandleFunc("POST /rewards/sweep", s.handleSweep)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type missionSummary struct {
	MissionID  string  `json:"mission_id"`
	Name       string  `json:"mission_name"`
	Difficulty string  `json:"difficulty,omitempty"`
	BaseReward float64 `json:"base_reward"`
	Objectives int     `json:"objectives"`
}

func (s *Server) handleListMissions(w http.ResponseWriter, _ *http.Request) {
	out := make([]missionSummary, 0, len(s.missions))
	for _, m := range s.missions {
		out = append(out, missionSummary{
			MissionID:  m.ID,
			Name:       m.Name,
			Difficulty: string(m.Difficulty),
			BaseReward: m.BaseReward,
			Objectives: len(m.Objectives),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MissionID < out[j].MissionID })
	writeJSON(w, http.StatusOK, map[string]any{"missions": out})
}

func (s *Server) handleLoadMission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mission, ok := s.missions[id]
	if !ok {
		writeError(w, apperrors.WithMetadata(apperrors.CodeNotFound, "mission not found",
			map[string]string{"mission_id": id}))
		return
	}
	if err := s.engine.Load(mission); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mission_id": mission.ID,
		"status":     string(s.engine.Status()),
	})
}

type positionBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// tickRequest is the world-state snapshot posted by the game client. The
// objective ID lists carry the capability predicates for capability-backed
// objective types.
type tickRequest struct {
	Position   positionBody `json:"position"`
	Collected  []string     `json:"collected_objectives"`
	Undetected []string     `json:"undetected_objectives"`
	Interacted []string     `json:"interacted_objectives"`
}

type capabilitySet struct {
	collected  map[string]struct{}
	undetected map[string]struct{}
	interacted map[string]struct{}
}

func (c capabilitySet) ItemCollected(objectiveID string, _ map[string]string) bool {
	_, ok := c.collected[objectiveID]
	return ok
}

func (c capabilitySet) Undetected(objectiveID string, _ map[string]string) bool {
	_, ok := c.undetected[objectiveID]
	return ok
}

func (c capabilitySet) Interacted(objectiveID string, _ map[string]string) bool {
	_, ok := c.interacted[objectiveID]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tick body"})
		return
	}

	ws := domain.WorldState{
		Position: domain.Vec3{X: req.Position.X, Y: req.Position.Y, Z: req.Position.Z},
		Capabilities: capabilitySet{
			collected:  toSet(req.Collected),
			undetected: toSet(req.Undetected),
			interacted: toSet(req.Interacted),
		},
	}
	s.engine.Tick(r.Context(), ws, s.clock())
	s.writeRunStatus(w)
}

func (s *Server) handleRunStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeRunStatus(w)
}

type runStatusBody struct {
	MissionID         string                            `json:"mission_id,omitempty"`
	Status            string                            `json:"status"`
	TotalReward       float64                           `json:"total_reward"`
	ObjectiveStatuses map[string]domain.ObjectiveStatus `json:"objective_statuses,omitempty"`
}

func (s *Server) writeRunStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, runStatusBody{
		MissionID:         s.engine.Mission().ID,
		Status:            string(s.engine.Status()),
		TotalReward:       s.engine.TotalReward(),
		ObjectiveStatuses: s.engine.ObjectiveStatuses(),
	})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Pause(); err != nil {
		writeError(w, err)
		return
	}
	s.writeRunStatus(w)
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Resume(); err != nil {
		writeError(w, err)
		return
	}
	s.writeRunStatus(w)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Abandon(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.writeRunStatus(w)
}

type transactionBody struct {
	TransactionID  string    `json:"transaction_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason"`
	Status         string    `json:"status"`
	SettlementHash string    `json:"settlement_hash,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) handleRewards(w http.ResponseWriter, _ *http.Request) {
	history := s.ledger.History()
	txs := make([]transactionBody, 0, len(history))
	for _, tx := range history {
		txs = append(txs, transactionBody{
			TransactionID:  tx.ID,
			Amount:         tx.Amount,
			Currency:       tx.Currency,
			Reason:         tx.Reason,
			Status:         string(tx.Status),
			SettlementHash: tx.SettlementHash,
			CreatedAt:      tx.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_earned":    s.ledger.TotalEarned(),
		"pending_rewards": s.ledger.PendingRewards(),
		"transactions":    txs,
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	attempts := s.submitter.ProcessPending(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"attempts":        attempts,
		"total_earned":    s.ledger.TotalEarned(),
		"pending_rewards": s.ledger.PendingRewards(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeRunInProgress, apperrors.CodeRunNotActive, apperrors.CodeRunNotPaused:
		status = http.StatusConflict
	case apperrors.CodeMissionIDEmpty, apperrors.CodeMissionNoObjectives,
		apperrors.CodeMissionNegativeReward, apperrors.CodeMissionNegativeTimeLimit,
		apperrors.CodeObjectiveIDEmpty, apperrors.CodeObjectiveIDDuplicate,
		apperrors.CodeObjectiveInvalidType, apperrors.CodeObjectiveNegativeRadius,
		apperrors.CodeObjectiveNegativeReward, apperrors.CodeCatalogInvalidDocument:
		status = http.StatusBadRequest
	}

	body := errorBody{Code: string(code), Message: err.Error()}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Metadata = appErr.Metadata
	}
	writeJSON(w, status, body)
}
