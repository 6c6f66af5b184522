package handlers

import (
	"net/http"

	"github.com/mnemora/mnemora/internal/service"
)

type SystemHandler struct {
	system *service.MemorySystem
	worker *service.MaintenanceWorker
}

func NewSystemHandler(system *service.MemorySystem, worker *service.MaintenanceWorker) *SystemHandler {
	return &SystemHandler{system: system, worker: worker}
}

func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.system.Stats())
}

type maintenanceResponse struct {
	MemoriesDecayed    int  `json:"memories_decayed"`
	MemoriesRemoved    int  `json:"memories_removed"`
	ConnectionsDecayed int  `json:"connections_decayed"`
	ConnectionsRemoved int  `json:"connections_removed"`
	Consolidated       int  `json:"consolidated"`
	Saved              bool `json:"saved"`
}

// TriggerMaintenance runs a full forgetting and consolidation pass
// synchronously and reports what changed.
func (h *SystemHandler) TriggerMaintenance(w http.ResponseWriter, r *http.Request) {
	result := h.worker.RunMaintenance(r.Context())
	writeJSON(w, http.StatusOK, maintenanceResponse{
		MemoriesDecayed:    result.Forgetting.MemoriesDecayed,
		MemoriesRemoved:    result.Forgetting.MemoriesRemoved,
		ConnectionsDecayed: result.Forgetting.ConnectionsDecayed,
		ConnectionsRemoved: result.Forgetting.ConnectionsRemoved,
		Consolidated:       result.Consolidated,
		Saved:              result.Saved,
	})
}
