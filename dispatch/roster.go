package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/databases"
	"github.com/lifeline-response/lifeline-api/models"
)

// RegisterRescuerInput is a rescuer self-registration. Identity is taken at
// face value; there is no credential check by design of the deployment.
type RegisterRescuerInput struct {
	ID           string
	Name         string
	Organization string
	Phone        string
}

// RegisterRescuer stores a rescuer and marks it active. Registering an id
// that already exists is treated as a heartbeat, so a reinstalled app can
// re-register without errors.
func (e *Engine) RegisterRescuer(ctx context.Context, in RegisterRescuerInput) (*models.Rescuer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrInvalidRescuer
	}

	now := time.Now().UTC()
	rescuer := &models.Rescuer{
		ID:           strings.TrimSpace(in.ID),
		Name:         strings.TrimSpace(in.Name),
		Organization: strings.TrimSpace(in.Organization),
		Phone:        strings.TrimSpace(in.Phone),
		RegisteredAt: now,
		LastSeen:     now,
		Active:       true,
	}
	if rescuer.ID == "" {
		rescuer.ID = uuid.NewString()
	}

	err := e.rescuers.Create(ctx, rescuer)
	if errors.Is(err, databases.ErrDuplicateID) {
		return e.rescuers.Heartbeat(ctx, rescuer.ID, now)
	}
	if err != nil {
		return nil, err
	}

	zap.S().Infow("rescuer registered",
		"id", rescuer.ID,
		"name", rescuer.Name,
		"organization", rescuer.Organization,
	)
	return rescuer, nil
}

// HeartbeatRescuer refreshes a rescuer's liveness window.
func (e *Engine) HeartbeatRescuer(ctx context.Context, id string) (*models.Rescuer, error) {
	return e.rescuers.Heartbeat(ctx, id, time.Now().UTC())
}

// ListRescuers returns the full roster, oldest registration first.
func (e *Engine) ListRescuers(ctx context.Context) ([]models.Rescuer, error) {
	return e.rescuers.List(ctx)
}

// SaveRescuerLocation persists a position fix coming off the socket. The
// fix also counts as a heartbeat.
func (e *Engine) SaveRescuerLocation(ctx context.Context, id string, lat, lng float64) error {
	loc := models.Location{Lat: lat, Lng: lng}
	if !loc.Valid() {
		return ErrInvalidLocation
	}
	return e.rescuers.UpdateLocation(ctx, id, loc, time.Now().UTC())
}

// Stats assembles the aggregate snapshot for the stats endpoint and the
// hourly scheduler log line.
func (e *Engine) Stats(ctx context.Context) (*models.Stats, error) {
	byStatus, err := e.reports.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	bySeverity, err := e.reports.CountBySeverity(ctx)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}

	rescuerTotal, err := e.rescuers.Count(ctx)
	if err != nil {
		return nil, err
	}
	rescuerActive, err := e.rescuers.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{
		Reports: models.ReportStats{
			Total:      total,
			ByStatus:   byStatus,
			BySeverity: bySeverity,
		},
		Rescuers: models.RescuerStats{
			Total:  rescuerTotal,
			Active: rescuerActive,
		},
	}
	if e.broadcaster != nil {
		stats.Connections.Total, stats.Connections.Rescuers = e.broadcaster.Counts()
	}
	return stats, nil
}
