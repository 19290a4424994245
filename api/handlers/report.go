package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lifeline-response/lifeline-api/api"
	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/databases"
	"github.com/lifeline-response/lifeline-api/dispatch"
	"github.com/lifeline-response/lifeline-api/models"
)

// Report handles the report lifecycle endpoints.
type Report struct {
	Engine *dispatch.Engine
}

type createReportRequest struct {
	Location     *models.Location `json:"location"`
	Message      string           `json:"message"`
	Severity     string           `json:"severity"`
	IsMedical    bool             `json:"isMedical"`
	IsFragile    bool             `json:"isFragile"`
	PeopleCount  int              `json:"peopleCount"`
	BatteryLevel *int             `json:"batteryLevel"`
	PhotoRef     string           `json:"photoRef"`
	Phone        string           `json:"phone"`
	Notes        string           `json:"notes"`
}

type claimReportRequest struct {
	RescuerID   string `json:"rescuerId"`
	RescuerName string `json:"rescuerName"`
	ETA         string `json:"eta"`
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	ETA    *string `json:"eta"`
	Notes  *string `json:"notes"`
}

// CreateReportHandler creates a new report and returns its id and short
// code. The phone number is stored but never echoed back.
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	var body createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := re.Engine.CreateReport(r.Context(), dispatch.CreateReportInput{
		Location:     body.Location,
		Message:      body.Message,
		Severity:     body.Severity,
		IsMedical:    body.IsMedical,
		IsFragile:    body.IsFragile,
		PeopleCount:  body.PeopleCount,
		BatteryLevel: body.BatteryLevel,
		PhotoRef:     body.PhotoRef,
		Phone:        body.Phone,
		Notes:        body.Notes,
		Source:       models.SourceApp,
	})
	if err != nil {
		writeDispatchError(w, "failed to create report", err)
		return
	}

	b, err := json.Marshal(map[string]string{"id": report.ID, "shortCode": report.ShortCode})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// ReportsHandler returns sanitized reports newest first, optionally
// filtered by status and severity.
func (re Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	filter := databases.ReportFilter{}

	if v := r.URL.Query().Get("status"); v != "" {
		status := models.Status(strings.ToLower(v))
		if !status.Valid() {
			config.ErrorStatus("invalid status filter", http.StatusBadRequest, w, &dispatch.InvalidStatusError{Value: v})
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		severity := models.Severity(strings.ToLower(v))
		if !severity.Valid() {
			config.ErrorStatus("invalid severity filter", http.StatusBadRequest, w, fmt.Errorf("invalid severity %q", v))
			return
		}
		filter.Severity = &severity
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	reports, err := re.Engine.ListReports(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get reports", http.StatusInternalServerError, w, err)
		return
	}

	sanitized := make([]models.SanitizedReport, 0, len(reports))
	for _, report := range reports {
		sanitized = append(sanitized, report.Sanitized())
	}
	b, err := json.Marshal(sanitized)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ReportByIDHandler returns a single sanitized report looked up by id or
// by short code, case-insensitively.
func (re Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	idOrCode := mux.Vars(r)["report_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Engine.GetReport(ctx, idOrCode)
	if err != nil {
		writeDispatchError(w, "failed to get report", err)
		return
	}
	re.writeSanitized(w, report)
}

// ClaimReportHandler lets a rescuer claim an open report. Exactly one
// claimant wins; everyone else gets a conflict naming the winner.
func (re Report) ClaimReportHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["report_id"]

	var body claimReportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := re.Engine.Claim(r.Context(), id, models.Claimant{ID: body.RescuerID, Name: body.RescuerName}, body.ETA)
	if err != nil {
		writeDispatchError(w, "failed to claim report", err)
		return
	}
	re.writeSanitized(w, report)
}

// UpdateStatusHandler walks a claimed report through the progress states
// up to closed.
func (re Report) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["report_id"]

	var body updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := re.Engine.UpdateStatus(r.Context(), id, dispatch.StatusUpdateInput{
		Status: body.Status,
		ETA:    body.ETA,
		Notes:  body.Notes,
	})
	if err != nil {
		writeDispatchError(w, "failed to update report status", err)
		return
	}
	re.writeSanitized(w, report)
}

// ReleaseReportHandler returns a claimed report to the open pool. Releasing
// a report that is already open succeeds, so retries are harmless.
func (re Report) ReleaseReportHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["report_id"]

	report, err := re.Engine.Release(r.Context(), id)
	if err != nil {
		writeDispatchError(w, "failed to release report", err)
		return
	}
	re.writeSanitized(w, report)
}

func (re Report) writeSanitized(w http.ResponseWriter, report *models.Report) {
	b, err := json.Marshal(report.Sanitized())
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// writeDispatchError maps engine and store errors onto HTTP statuses. The
// conflict body carries the current holder so a losing rescuer sees who got
// there first.
func writeDispatchError(w http.ResponseWriter, message string, err error) {
	var invalidStatus *dispatch.InvalidStatusError
	var conflict *databases.ConflictError
	switch {
	case errors.Is(err, databases.ErrNotFound):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	case errors.As(err, &conflict):
		config.ErrorStatus(conflict.Error(), http.StatusConflict, w, err)
	case errors.Is(err, databases.ErrConflict):
		config.ErrorStatus(message, http.StatusConflict, w, err)
	case errors.As(err, &invalidStatus):
		config.ErrorStatus(invalidStatus.Error(), http.StatusBadRequest, w, err)
	case errors.Is(err, dispatch.ErrInvalidLocation),
		errors.Is(err, dispatch.ErrInvalidClaimant),
		errors.Is(err, dispatch.ErrInvalidRescuer):
		config.ErrorStatus(message, http.StatusBadRequest, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}
