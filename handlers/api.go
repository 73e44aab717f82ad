package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"motor-controller/command"
	"motor-controller/controller"
	"motor-controller/logging"
)

// APIHandler serves the local control and diagnostics API. Commands posted
// here go through the same parse/dispatch path as MQTT messages, heartbeat
// refresh included.
type APIHandler struct {
	ctrl   *controller.Controller
	logger *logrus.Entry
}

// NewAPIHandler creates a new instance of APIHandler.
func NewAPIHandler(ctrl *controller.Controller, logger *logging.Logger) *APIHandler {
	return &APIHandler{
		ctrl:   ctrl,
		logger: logger.WithComponent("http"),
	}
}

// HealthCheck provides a simple health status of the service.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "motor-controller",
		"timestamp": time.Now().Format(time.RFC3339Nano),
	})
}

// GetStatus returns the status frame that would be published right now.
func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

type commandRequest struct {
	Command string `json:"command"`
}

// SendCommand injects a textual command into the controller.
func (h *APIHandler) SendCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ctrl.HandleCommand([]byte(req.Command)); err != nil {
		if errors.Is(err, command.ErrInvalidValue) || errors.Is(err, command.ErrEmptyCommand) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Infof("Command accepted via HTTP: %s", req.Command)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accepted": true,
		"command":  req.Command,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
