package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mnemora/mnemora/internal/service"
)

type ImpressionHandler struct {
	system *service.MemorySystem
}

func NewImpressionHandler(system *service.MemorySystem) *ImpressionHandler {
	return &ImpressionHandler{system: system}
}

type recordImpressionRequest struct {
	GroupID    string   `json:"group_id"`
	PersonName string   `json:"person_name"`
	Summary    string   `json:"summary"`
	Score      *float64 `json:"score"`
	Details    string   `json:"details"`
}

type recordImpressionResponse struct {
	MemoryID string  `json:"memory_id"`
	Score    float64 `json:"score"`
}

func (h *ImpressionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordImpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PersonName == "" {
		writeError(w, http.StatusBadRequest, "person_name is required")
		return
	}
	if req.Summary == "" {
		writeError(w, http.StatusBadRequest, "summary is required")
		return
	}

	memoryID := h.system.RecordImpression(req.GroupID, req.PersonName, req.Summary, req.Score, req.Details)
	if memoryID == "" {
		writeError(w, http.StatusInternalServerError, "failed to record impression")
		return
	}

	writeJSON(w, http.StatusCreated, recordImpressionResponse{
		MemoryID: memoryID,
		Score:    h.system.ImpressionScore(req.GroupID, req.PersonName),
	})
}

func (h *ImpressionHandler) Get(w http.ResponseWriter, r *http.Request) {
	personName := chi.URLParam(r, "person")
	groupID := r.URL.Query().Get("group_id")

	summary := h.system.ImpressionSummaryFor(groupID, personName)
	writeJSON(w, http.StatusOK, summary)
}

type impressionMemoriesResponse struct {
	PersonName string          `json:"person_name"`
	Memories   []memorySummary `json:"memories"`
}

type memorySummary struct {
	MemoryID string  `json:"memory_id"`
	Content  string  `json:"content"`
	Details  string  `json:"details,omitempty"`
	Score    float64 `json:"score"`
}

func (h *ImpressionHandler) Memories(w http.ResponseWriter, r *http.Request) {
	personName := chi.URLParam(r, "person")
	groupID := r.URL.Query().Get("group_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	memories := h.system.ImpressionMemories(groupID, personName, limit)
	out := make([]memorySummary, 0, len(memories))
	for _, m := range memories {
		out = append(out, memorySummary{
			MemoryID: m.ID,
			Content:  m.Content,
			Details:  m.Details,
			Score:    m.Strength,
		})
	}
	writeJSON(w, http.StatusOK, impressionMemoriesResponse{PersonName: personName, Memories: out})
}

type adjustImpressionRequest struct {
	GroupID    string  `json:"group_id"`
	PersonName string  `json:"person_name"`
	Delta      float64 `json:"delta"`
}

type adjustImpressionResponse struct {
	PersonName string  `json:"person_name"`
	Score      float64 `json:"score"`
}

func (h *ImpressionHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustImpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PersonName == "" {
		writeError(w, http.StatusBadRequest, "person_name is required")
		return
	}

	score := h.system.AdjustImpressionScore(req.GroupID, req.PersonName, req.Delta)
	writeJSON(w, http.StatusOK, adjustImpressionResponse{PersonName: req.PersonName, Score: score})
}
