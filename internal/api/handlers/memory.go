package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mnemora/mnemora/internal/recall"
	"github.com/mnemora/mnemora/internal/service"
)

type MemoryHandler struct {
	system *service.MemorySystem
}

func NewMemoryHandler(system *service.MemorySystem) *MemoryHandler {
	return &MemoryHandler{system: system}
}

type ingestRequest struct {
	GroupID  string                    `json:"group_id"`
	Memories []service.ExtractedMemory `json:"memories"`
}

type ingestResponse struct {
	Stored int `json:"stored"`
}

func (h *MemoryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Memories) == 0 {
		writeError(w, http.StatusBadRequest, "memories is required")
		return
	}

	stored := h.system.Ingest(r.Context(), req.Memories, req.GroupID)
	writeJSON(w, http.StatusCreated, ingestResponse{Stored: stored})
}

type recallResult struct {
	MemoryID    string  `json:"memory_id"`
	ConceptID   string  `json:"concept_id"`
	ConceptName string  `json:"concept_name"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	Strategy    string  `json:"strategy"`
}

type recallResponse struct {
	Results []recallResult `json:"results"`
}

func (h *MemoryHandler) Recall(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	groupID := r.URL.Query().Get("group_id")

	results := h.system.RecallAll(r.Context(), query, groupID)
	writeJSON(w, http.StatusOK, recallResponse{Results: toRecallResults(results)})
}

func toRecallResults(results []recall.Result) []recallResult {
	out := make([]recallResult, 0, len(results))
	for _, res := range results {
		out = append(out, recallResult{
			MemoryID:    res.MemoryID,
			ConceptID:   res.ConceptID,
			ConceptName: res.ConceptName,
			Content:     res.Content,
			Score:       res.Score,
			Strategy:    res.Strategy,
		})
	}
	return out
}

type injectRequest struct {
	Message string `json:"message"`
	GroupID string `json:"group_id"`
}

type injectResponse struct {
	Inject bool   `json:"inject"`
	Text   string `json:"text,omitempty"`
}

func (h *MemoryHandler) Inject(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	text, ok := h.system.RecallForInjection(r.Context(), req.Message, req.GroupID)
	writeJSON(w, http.StatusOK, injectResponse{Inject: ok, Text: text})
}

type memoryResponse struct {
	MemoryID     string  `json:"memory_id"`
	ConceptID    string  `json:"concept_id"`
	Content      string  `json:"content"`
	Details      string  `json:"details,omitempty"`
	Participants string  `json:"participants,omitempty"`
	Location     string  `json:"location,omitempty"`
	Emotion      string  `json:"emotion,omitempty"`
	Tags         string  `json:"tags,omitempty"`
	Strength     float64 `json:"strength"`
	GroupID      string  `json:"group_id,omitempty"`
	AllowForget  bool    `json:"allow_forget"`
}

func (h *MemoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, ok := h.system.MemoryByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	writeJSON(w, http.StatusOK, memoryResponse{
		MemoryID:     m.ID,
		ConceptID:    m.ConceptID,
		Content:      m.Content,
		Details:      m.Details,
		Participants: m.Participants,
		Location:     m.Location,
		Emotion:      m.Emotion,
		Tags:         m.Tags,
		Strength:     m.Strength,
		GroupID:      m.GroupID,
		AllowForget:  m.AllowForget,
	})
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !h.system.DeleteMemory(id) {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type simpleRecallResponse struct {
	Memories []string `json:"memories"`
}

func (h *MemoryHandler) SimpleRecall(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	groupID := r.URL.Query().Get("group_id")

	memories := h.system.RecallSimple(keyword, groupID)
	if memories == nil {
		memories = []string{}
	}
	writeJSON(w, http.StatusOK, simpleRecallResponse{Memories: memories})
}
