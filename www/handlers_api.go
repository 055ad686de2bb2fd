package www

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rmfconsole/store"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Health())
}

// apiState returns the last payload relayed for a room, or the list of
// cached rooms when no room is given.
func (h *Handlers) apiState(w http.ResponseWriter, r *http.Request) {
	cache := h.engine.Cache()
	if !cache.Available() {
		h.jsonError(w, "state cache unavailable", http.StatusServiceUnavailable)
		return
	}
	room := r.URL.Query().Get("room")
	if room == "" {
		rooms, err := cache.Rooms(r.Context())
		if err != nil {
			log.Printf("api: cached rooms: %v", err)
			h.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.jsonOK(w, map[string][]string{"rooms": rooms})
		return
	}
	data, err := cache.Get(r.Context(), room)
	if err != nil {
		log.Printf("api: cached state %s: %v", room, err)
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if data == nil {
		h.jsonError(w, "no state for room", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *Handlers) apiListConstants(w http.ResponseWriter, r *http.Request) {
	constants, err := h.engine.DB().ListConstants()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, constants)
}

func (h *Handlers) apiSetConstant(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		Value string `json:"value"`
	}
	if err := readJSON(r, &req); err != nil {
		h.jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	db := h.engine.DB()
	if err := db.SetConstant(name, req.Value); err != nil {
		if errors.Is(err, store.ErrConstantNotFound) {
			h.jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.AppendAudit("constant", name, "update", req.Value, h.actor(r)); err != nil {
		log.Printf("api: audit constant %s: %v", name, err)
	}
	c, err := db.GetConstant(name)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, c)
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.engine.DB().ListAuditLog(limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handlers) textOK(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(msg))
}

func (h *Handlers) textError(w http.ResponseWriter, msg string, code int) {
	http.Error(w, msg, code)
}
