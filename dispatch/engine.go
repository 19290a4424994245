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

const (
	// defaultMessage stands in when a report arrives without any text.
	defaultMessage = "Need help!"

	// shortCodeRetries bounds the search for a free short code.
	shortCodeRetries = 8
)

// claimFamily are the states a claimed report moves between before closing.
var claimFamily = []models.Status{models.StatusClaimed, models.StatusEnRoute, models.StatusArrived, models.StatusRescued}

// Broadcaster pushes committed report state to connected clients. The
// realtime hub implements it; engine tests swap in a recorder.
type Broadcaster interface {
	BroadcastNewReport(report models.SanitizedReport)
	BroadcastReportUpdate(report models.SanitizedReport)
	Counts() (total, rescuers int)
}

// Notifier delivers best-effort side channels (SMS to the reporter, alert
// mail to ops). Implementations must never block longer than their own
// client timeouts and must swallow their failures.
type Notifier interface {
	ReportCreated(ctx context.Context, report *models.Report)
	ReportClaimed(ctx context.Context, report *models.Report)
	ReportStatusChanged(ctx context.Context, report *models.Report)
}

// Config wires an Engine. Reports and Rescuers are required; Broadcaster
// and Notifier may be nil, which turns the respective side effects off.
type Config struct {
	Reports          databases.ReportDatabase
	Rescuers         databases.RescuerDatabase
	Broadcaster      Broadcaster
	Notifier         Notifier
	AllowSelfReclaim bool
}

// Engine owns the report lifecycle: ingestion, the claim race, status
// walking and release. Every mutation commits to the store first and only
// then broadcasts, while holding that report's lock, so clients observe
// events for one report in commit order.
type Engine struct {
	reports          databases.ReportDatabase
	rescuers         databases.RescuerDatabase
	broadcaster      Broadcaster
	notifier         Notifier
	allowSelfReclaim bool
	locks            *reportLocks
}

// New builds an Engine from the given config.
func New(cfg Config) *Engine {
	return &Engine{
		reports:          cfg.Reports,
		rescuers:         cfg.Rescuers,
		broadcaster:      cfg.Broadcaster,
		notifier:         cfg.Notifier,
		allowSelfReclaim: cfg.AllowSelfReclaim,
		locks:            newReportLocks(),
	}
}

// CreateReportInput is the canonical create command every ingestion path
// (REST, SMS webhook) normalizes into.
type CreateReportInput struct {
	Location     *models.Location
	Message      string
	Severity     string
	IsMedical    bool
	IsFragile    bool
	PeopleCount  int
	BatteryLevel *int
	PhotoRef     string
	Phone        string
	Notes        string
	Source       models.Source
}

// CreateReport validates the input, assigns id and short code, persists the
// report and broadcasts report:new to rescuers. Secondary fields are
// handled forgivingly: a garbled severity or people count must never cost a
// caller their cry for help.
func (e *Engine) CreateReport(ctx context.Context, in CreateReportInput) (*models.Report, error) {
	if in.Location == nil || !in.Location.Valid() {
		return nil, ErrInvalidLocation
	}

	now := time.Now().UTC()
	report := &models.Report{
		ID:           uuid.NewString(),
		Location:     *in.Location,
		Message:      strings.TrimSpace(in.Message),
		Severity:     models.NormalizeSeverity(in.Severity),
		Status:       models.StatusNew,
		IsMedical:    in.IsMedical,
		IsFragile:    in.IsFragile,
		PeopleCount:  in.PeopleCount,
		BatteryLevel: validBatteryLevel(in.BatteryLevel),
		PhotoRef:     in.PhotoRef,
		Phone:        strings.TrimSpace(in.Phone),
		Notes:        in.Notes,
		Source:       in.Source,
		CreatedAt:    now,
		LastUpdate:   now,
	}
	if report.Message == "" {
		report.Message = defaultMessage
	}
	if report.Source == "" {
		report.Source = models.SourceApp
	}
	if report.IsMedical {
		report.Severity = models.SeverityCritical
	}
	if report.PeopleCount < 1 {
		report.PeopleCount = 1
	}

	code, err := e.freeShortCode(ctx)
	if err != nil {
		return nil, err
	}
	report.ShortCode = code

	if err := e.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	zap.S().Infow("report created",
		"id", report.ID,
		"shortCode", report.ShortCode,
		"severity", report.Severity,
		"source", report.Source,
	)

	if e.broadcaster != nil {
		e.broadcaster.BroadcastNewReport(report.Sanitized())
	}
	if e.notifier != nil {
		e.notifier.ReportCreated(ctx, report)
	}
	return report, nil
}

// freeShortCode draws random codes until one is unused by any open report.
// The check and the later insert are not atomic; a collision in that window
// is accepted as best effort.
func (e *Engine) freeShortCode(ctx context.Context) (string, error) {
	for i := 0; i < shortCodeRetries; i++ {
		code, err := newShortCode()
		if err != nil {
			return "", err
		}
		exists, err := e.reports.ShortCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Claim moves a new report to claimed for exactly one rescuer. Losers of
// the race get a ConflictError naming the winner. With AllowSelfReclaim set,
// the holder repeating its own claim refreshes the ETA instead of failing.
func (e *Engine) Claim(ctx context.Context, id string, claimant models.Claimant, eta string) (*models.Report, error) {
	if strings.TrimSpace(claimant.ID) == "" {
		return nil, ErrInvalidClaimant
	}
	if claimant.Name == "" {
		claimant.Name = claimant.ID
	}

	report, err := e.claimLocked(ctx, id, claimant, eta)
	if err != nil {
		return nil, err
	}
	if e.notifier != nil {
		e.notifier.ReportClaimed(ctx, report)
	}
	return report, nil
}

func (e *Engine) claimLocked(ctx context.Context, id string, claimant models.Claimant, eta string) (*models.Report, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	statusNew := models.StatusNew
	claimed := models.StatusClaimed
	patch := databases.ReportPatch{Status: &claimed, Claimant: &claimant}
	if eta != "" {
		patch.ETA = &eta
	}

	report, err := e.reports.ConditionalUpdate(ctx, id, databases.Expectation{Status: &statusNew}, patch)
	if err == nil {
		zap.S().Infow("report claimed", "id", report.ID, "rescuer", claimant.ID, "eta", eta)
		e.broadcastUpdate(report)
		return report, nil
	}

	var conflict *databases.ConflictError
	if e.allowSelfReclaim && errors.As(err, &conflict) &&
		conflict.CurrentStatus == models.StatusClaimed &&
		conflict.Claimant != nil && conflict.Claimant.ID == claimant.ID {
		// The holder repeated its own claim, most likely a retry after a
		// dropped response. Refresh the ETA and report success.
		refresh := databases.ReportPatch{}
		if eta != "" {
			refresh.ETA = &eta
		}
		report, err = e.reports.ConditionalUpdate(ctx, id,
			databases.Expectation{Status: &claimed, ClaimantID: &claimant.ID}, refresh)
		if err != nil {
			return nil, err
		}
		zap.S().Infow("claim refreshed by holder", "id", report.ID, "rescuer", claimant.ID)
		e.broadcastUpdate(report)
		return report, nil
	}
	return nil, err
}

// StatusUpdateInput carries an UpdateStatus request. ETA and Notes are
// applied only when non nil.
type StatusUpdateInput struct {
	Status string
	ETA    *string
	Notes  *string
}

// UpdateStatus walks a claimed report through the progress states up to
// closed. New and claimed cannot be reached this way: new only exists at
// creation or through release, claimed only through the claim race.
func (e *Engine) UpdateStatus(ctx context.Context, id string, in StatusUpdateInput) (*models.Report, error) {
	target := models.Status(in.Status)
	if !target.Valid() || target == models.StatusNew || target == models.StatusClaimed {
		return nil, &InvalidStatusError{Value: in.Status}
	}

	report, err := e.updateStatusLocked(ctx, id, target, in)
	if err != nil {
		return nil, err
	}
	if e.notifier != nil {
		e.notifier.ReportStatusChanged(ctx, report)
	}
	return report, nil
}

func (e *Engine) updateStatusLocked(ctx context.Context, id string, target models.Status, in StatusUpdateInput) (*models.Report, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	patch := databases.ReportPatch{Status: &target, ETA: in.ETA, Notes: in.Notes}
	report, err := e.reports.ConditionalUpdate(ctx, id, databases.Expectation{StatusIn: claimFamily}, patch)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("report status updated", "id", report.ID, "status", report.Status)
	e.broadcastUpdate(report)
	return report, nil
}

// Release returns a claimed report to the open pool, clearing claimant and
// ETA. Releasing a report that is already new succeeds without emitting
// anything, so retried releases stay idempotent. Rescued and closed reports
// cannot be released.
func (e *Engine) Release(ctx context.Context, id string) (*models.Report, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	current, err := e.reports.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.StatusNew {
		return current, nil
	}
	if !current.Status.Releasable() {
		return nil, &databases.ConflictError{CurrentStatus: current.Status, Claimant: current.Claimant}
	}

	statusNew := models.StatusNew
	report, err := e.reports.ConditionalUpdate(ctx, id,
		databases.Expectation{StatusIn: []models.Status{models.StatusClaimed, models.StatusEnRoute, models.StatusArrived}},
		databases.ReportPatch{Status: &statusNew, ClearClaimant: true, ClearETA: true},
	)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("report released", "id", report.ID)
	e.broadcastUpdate(report)
	return report, nil
}

// GetReport resolves a report by id or short code.
func (e *Engine) GetReport(ctx context.Context, idOrCode string) (*models.Report, error) {
	return e.reports.Get(ctx, idOrCode)
}

// ListReports returns reports newest first, optionally filtered.
func (e *Engine) ListReports(ctx context.Context, filter databases.ReportFilter) ([]models.Report, error) {
	return e.reports.List(ctx, filter)
}

// SyncReports returns the sanitized snapshot pushed to a rescuer right
// after it identifies on the socket. Pull reads through REST see the same
// store, so a missed push is recoverable by polling.
func (e *Engine) SyncReports(ctx context.Context) ([]models.SanitizedReport, error) {
	reports, err := e.reports.List(ctx, databases.ReportFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]models.SanitizedReport, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Sanitized())
	}
	return out, nil
}

func (e *Engine) broadcastUpdate(report *models.Report) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastReportUpdate(report.Sanitized())
	}
}

func validBatteryLevel(b *int) *int {
	if b == nil || *b < 0 || *b > 100 {
		return nil
	}
	v := *b
	return &v
}
