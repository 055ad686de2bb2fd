package www

import (
	"encoding/json"
	"log"
	"net/http"
)

func (h *Handlers) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.engine.ListTasksRaw(r.Context())
	if err != nil {
		log.Printf("rmf: get tasks: %v", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if tasks == nil {
		tasks = []json.RawMessage{}
	}
	h.jsonOK(w, map[string]any{"tasks": tasks})
}

func (h *Handlers) handleGetFleets(w http.ResponseWriter, r *http.Request) {
	fleets, err := h.engine.ListFleetsRaw(r.Context())
	if err != nil {
		log.Printf("rmf: get fleets: %v", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if fleets == nil {
		fleets = []json.RawMessage{}
	}
	h.jsonOK(w, map[string]any{"fleets": fleets})
}

type dispatchRequest struct {
	TaskType    string `json:"task_type"`
	Destination string `json:"destination"`
}

func (h *Handlers) handleDispatchTask(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := readJSON(r, &req); err != nil {
		h.textError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TaskType == "" || req.Destination == "" {
		h.textError(w, "task_type and destination are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DispatchTask(r.Context(), req.TaskType, req.Destination, h.actor(r)); err != nil {
		log.Printf("rmf: dispatch task: %v", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	h.textOK(w, "Task dispatched")
}
