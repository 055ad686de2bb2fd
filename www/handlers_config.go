package www

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rmfconsole/engine"
	"rmfconsole/fleetconfig"
)

// maxUploadSize bounds multipart map uploads.
const maxUploadSize = 64 << 20

// handleGetConfig reports read failures as {error} with status 200; the
// console checks the field rather than the status.
func (h *Handlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.ReadConfig(r.URL.Query().Get("filename"))
	if err != nil {
		log.Printf("config: read: %v", err)
		h.jsonOK(w, map[string]string{"error": err.Error()})
		return
	}
	h.jsonOK(w, doc)
}

func (h *Handlers) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var doc fleetconfig.Document
	if err := readJSON(r, &doc); err != nil {
		h.textError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.engine.WriteConfig(r.URL.Query().Get("filename"), doc, h.actor(r)); err != nil {
		h.configError(w, "write", err)
		return
	}
	h.textOK(w, "Config updated")
}

type createConfigRequest struct {
	Filename string               `json:"filename"`
	Content  fleetconfig.Document `json:"content"`
	fleetconfig.TemplateParams
}

// handleCreateConfig writes a new file from either explicit content or the
// fleet template.
func (h *Handlers) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req createConfigRequest
	if err := readJSON(r, &req); err != nil {
		h.textError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		h.textError(w, "filename is required", http.StatusBadRequest)
		return
	}
	var err error
	if req.Content != nil {
		err = h.engine.CreateConfig(req.Filename, req.Content, h.actor(r))
	} else {
		err = h.engine.CreateConfigFromTemplate(req.Filename, req.TemplateParams, h.actor(r))
	}
	if err != nil {
		h.configError(w, "create", err)
		return
	}
	h.textOK(w, "Config created")
}

func (h *Handlers) handleGetYAMLMap(w http.ResponseWriter, r *http.Request) {
	building, err := h.engine.ReadBuilding()
	if err != nil {
		log.Printf("config: read building: %v", err)
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, building)
}

func (h *Handlers) apiWaypoints(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if level == "" {
		level = "L1"
	}
	waypoints, err := h.engine.Waypoints(level)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if waypoints == nil {
		waypoints = []fleetconfig.Waypoint{}
	}
	h.jsonOK(w, waypoints)
}

func (h *Handlers) handleUploadMap(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.jsonError(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := h.engine.SaveMapImage(header.Filename, file)
	if errors.Is(err, engine.ErrNotPNG) {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("config: upload map: %v", err)
		h.jsonError(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{
		"message":  "File uploaded successfully",
		"filePath": path,
	})
}

type addRobotRequest struct {
	Name        string  `json:"name"`
	Waypoint    string  `json:"waypoint"`
	Orientation float64 `json:"orientation"`
	Charger     string  `json:"charger"`
}

func (h *Handlers) apiAddRobot(w http.ResponseWriter, r *http.Request) {
	var req addRobotRequest
	if err := readJSON(r, &req); err != nil {
		h.textError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Waypoint == "" {
		h.textError(w, "name and waypoint are required", http.StatusBadRequest)
		return
	}
	charger := req.Charger
	if charger == "" {
		charger = req.Waypoint
	}
	entry := fleetconfig.NewRobotEntry(req.Waypoint, req.Orientation, charger)
	if err := h.engine.AddRobot(r.URL.Query().Get("filename"), req.Name, entry, h.actor(r)); err != nil {
		h.configError(w, "add robot", err)
		return
	}
	h.textOK(w, "Robot added")
}

func (h *Handlers) apiRemoveRobot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.engine.RemoveRobot(r.URL.Query().Get("filename"), name, h.actor(r)); err != nil {
		h.configError(w, "remove robot", err)
		return
	}
	h.textOK(w, "Robot removed")
}

// configError maps config store errors onto text statuses.
func (h *Handlers) configError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, fleetconfig.ErrNotLocal), errors.Is(err, fleetconfig.ErrInvalidTemplate),
		errors.Is(err, fleetconfig.ErrNotFleetConfig):
		h.textError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, fleetconfig.ErrExists), errors.Is(err, fleetconfig.ErrRobotExists):
		h.textError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fleetconfig.ErrRobotNotFound):
		h.textError(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("config: %s: %v", op, err)
		h.textError(w, "Error writing config file", http.StatusInternalServerError)
	}
}
