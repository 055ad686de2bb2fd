package www

import (
	"errors"
	"net/http"

	"rmfconsole/launcher"
)

type buildRequest struct {
	Params string `json:"params"`
}

func (h *Handlers) handleColconBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := readJSON(r, &req); err != nil {
		h.textError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	started, err := h.engine.BuildPackage(req.Params, h.actor(r))
	if err != nil {
		h.processError(w, err)
		return
	}
	if !started {
		h.textOK(w, "Build already running")
		return
	}
	h.textOK(w, "Build started")
}

func (h *Handlers) handleLaunch(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := h.engine.StartProcess(target, h.actor(r))
		if err != nil {
			h.processError(w, err)
			return
		}
		if !started {
			h.textOK(w, target+" already running")
			return
		}
		h.textOK(w, target+" launched")
	}
}

func (h *Handlers) handleShutdown(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stopped, err := h.engine.StopProcess(target, h.actor(r))
		if err != nil {
			h.processError(w, err)
			return
		}
		if !stopped {
			h.textOK(w, target+" not running")
			return
		}
		h.textOK(w, target+" shut down")
	}
}

func (h *Handlers) handleRestartROS(w http.ResponseWriter, r *http.Request) {
	started, err := h.engine.RestartROS(h.actor(r))
	if err != nil {
		h.processError(w, err)
		return
	}
	if !started {
		h.textOK(w, "ROS stopped, build already running")
		return
	}
	h.textOK(w, "ROS stopped, rebuilding maps")
}

func (h *Handlers) apiProcesses(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.ProcessStatus())
}

func (h *Handlers) processError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, launcher.ErrInvalidArg):
		h.textError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, launcher.ErrUnknownTarget):
		h.textError(w, err.Error(), http.StatusNotFound)
	default:
		h.textError(w, err.Error(), http.StatusInternalServerError)
	}
}
