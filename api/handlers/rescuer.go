package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lifeline-response/lifeline-api/api"
	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/dispatch"
	"github.com/lifeline-response/lifeline-api/models"
)

// Rescuer handles the roster endpoints.
type Rescuer struct {
	Engine *dispatch.Engine
}

type registerRescuerRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
}

type heartbeatRequest struct {
	ID string `json:"id"`
}

// RegisterRescuerHandler registers a rescuer. Re-registering an existing id
// acts as a heartbeat, so a reinstalled app keeps its identity.
func (rs Rescuer) RegisterRescuerHandler(w http.ResponseWriter, r *http.Request) {
	var body registerRescuerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	rescuer, err := rs.Engine.RegisterRescuer(r.Context(), dispatch.RegisterRescuerInput{
		ID:           body.ID,
		Name:         body.Name,
		Organization: body.Organization,
		Phone:        body.Phone,
	})
	if err != nil {
		writeDispatchError(w, "failed to register rescuer", err)
		return
	}

	b, err := json.Marshal(rescuer)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// HeartbeatHandler refreshes a rescuer's liveness window.
func (rs Rescuer) HeartbeatHandler(w http.ResponseWriter, r *http.Request) {
	var body heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	rescuer, err := rs.Engine.HeartbeatRescuer(r.Context(), body.ID)
	if err != nil {
		writeDispatchError(w, "failed to record heartbeat", err)
		return
	}

	b, err := json.Marshal(rescuer)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// RescuersHandler returns the full roster, oldest registration first.
func (rs Rescuer) RescuersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	rescuers, err := rs.Engine.ListRescuers(ctx)
	if err != nil {
		config.ErrorStatus("failed to get rescuers", http.StatusInternalServerError, w, err)
		return
	}
	if len(rescuers) == 0 {
		rescuers = []models.Rescuer{}
	}

	b, err := json.Marshal(rescuers)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
