package dispatch_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lifeline-response/lifeline-api/databases"
	"github.com/lifeline-response/lifeline-api/databases/mocks"
	"github.com/lifeline-response/lifeline-api/dispatch"
	"github.com/lifeline-response/lifeline-api/models"
)

type broadcastRecorder struct {
	mu      sync.Mutex
	news    []models.SanitizedReport
	updates []models.SanitizedReport
}

func (b *broadcastRecorder) BroadcastNewReport(r models.SanitizedReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.news = append(b.news, r)
}

func (b *broadcastRecorder) BroadcastReportUpdate(r models.SanitizedReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, r)
}

func (b *broadcastRecorder) Counts() (int, int) { return 3, 2 }

func (b *broadcastRecorder) snapshotUpdates() []models.SanitizedReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.SanitizedReport, len(b.updates))
	copy(out, b.updates)
	return out
}

type notifyRecorder struct {
	mu      sync.Mutex
	created int
	claimed int
	changed int
}

func (n *notifyRecorder) ReportCreated(ctx context.Context, r *models.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created++
}

func (n *notifyRecorder) ReportClaimed(ctx context.Context, r *models.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.claimed++
}

func (n *notifyRecorder) ReportStatusChanged(ctx context.Context, r *models.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed++
}

func newTestEngine(allowSelfReclaim bool) (*dispatch.Engine, *broadcastRecorder, *notifyRecorder) {
	bc := &broadcastRecorder{}
	nt := &notifyRecorder{}
	engine := dispatch.New(dispatch.Config{
		Reports:          databases.NewMemoryReportDatabase(),
		Rescuers:         databases.NewMemoryRescuerDatabase(),
		Broadcaster:      bc,
		Notifier:         nt,
		AllowSelfReclaim: allowSelfReclaim,
	})
	return engine, bc, nt
}

func validInput() dispatch.CreateReportInput {
	return dispatch.CreateReportInput{
		Location: &models.Location{Lat: 6.9271, Lng: 79.8612},
		Message:  "trapped on the second floor",
		Severity: "high",
		Phone:    "+94771234567",
		Source:   models.SourceApp,
	}
}

func TestEngine_CreateReport(t *testing.T) {
	engine, bc, nt := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Len(t, report.ShortCode, 4)
	assert.Equal(t, models.StatusNew, report.Status)
	assert.Equal(t, models.SeverityHigh, report.Severity)
	assert.Equal(t, 1, report.PeopleCount)
	assert.Equal(t, int64(0), report.Rev)

	// The committed report is immediately readable, by id and by code.
	byID, err := engine.GetReport(ctx, report.ID)
	assert.NoError(t, err)
	assert.Equal(t, report.ShortCode, byID.ShortCode)
	byCode, err := engine.GetReport(ctx, report.ShortCode)
	assert.NoError(t, err)
	assert.Equal(t, report.ID, byCode.ID)

	assert.Len(t, bc.news, 1, "report:new goes out once")
	assert.Empty(t, bc.updates)
	assert.Equal(t, 1, nt.created)

	// The broadcast payload must not leak the reporter's phone number.
	b, err := json.Marshal(bc.news[0])
	assert.NoError(t, err)
	assert.NotContains(t, string(b), "phone")
	assert.NotContains(t, string(b), "+94771234567")
}

func TestEngine_CreateReportAppliesDefaults(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	battery := 140
	report, err := engine.CreateReport(ctx, dispatch.CreateReportInput{
		Location:     &models.Location{Lat: 6.912, Lng: 79.852},
		Message:      "   ",
		Severity:     "URGENT",
		IsMedical:    true,
		PeopleCount:  -3,
		BatteryLevel: &battery,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Need help!", report.Message)
	assert.Equal(t, models.SeverityCritical, report.Severity, "medical forces critical")
	assert.Equal(t, 1, report.PeopleCount)
	assert.Nil(t, report.BatteryLevel, "out of range battery is dropped")
	assert.Equal(t, models.SourceApp, report.Source)
}

func TestEngine_CreateReportInvalidLocation(t *testing.T) {
	engine, bc, _ := newTestEngine(false)
	ctx := context.Background()

	_, err := engine.CreateReport(ctx, dispatch.CreateReportInput{Message: "help"})
	assert.ErrorIs(t, err, dispatch.ErrInvalidLocation)

	_, err = engine.CreateReport(ctx, dispatch.CreateReportInput{
		Location: &models.Location{Lat: 91, Lng: 0},
	})
	assert.ErrorIs(t, err, dispatch.ErrInvalidLocation)

	assert.Empty(t, bc.news, "nothing may be broadcast for a rejected report")
}

func TestEngine_CreateReportShortCodeExhaustion(t *testing.T) {
	reportDB := &mocks.ReportDatabase{}
	reportDB.On("ShortCodeExists", mock.Anything, mock.Anything).Return(true, nil)

	engine := dispatch.New(dispatch.Config{
		Reports:  reportDB,
		Rescuers: databases.NewMemoryRescuerDatabase(),
	})

	_, err := engine.CreateReport(context.Background(), validInput())
	assert.ErrorIs(t, err, dispatch.ErrCodeSpaceExhausted)
	reportDB.AssertNumberOfCalls(t, "ShortCodeExists", 8)
	reportDB.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEngine_ClaimWinnerAndLoser(t *testing.T) {
	engine, bc, nt := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	claimed, err := engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "10m")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusClaimed, claimed.Status)
	assert.Equal(t, "Nadia", claimed.Claimant.Name)
	assert.Equal(t, "10m", claimed.ETA)

	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-2", Name: "Mateo"}, "5m")
	assert.ErrorIs(t, err, databases.ErrConflict)
	var conflict *databases.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Nadia", conflict.Claimant.Name, "the loser learns who won")

	assert.Len(t, bc.updates, 1, "only the winning claim is broadcast")
	assert.Equal(t, 1, nt.claimed)
}

func TestEngine_ClaimValidation(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	_, err = engine.Claim(ctx, report.ID, models.Claimant{Name: "Nadia"}, "")
	assert.ErrorIs(t, err, dispatch.ErrInvalidClaimant)

	_, err = engine.Claim(ctx, "missing", models.Claimant{ID: "resc-1"}, "")
	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestEngine_ConcurrentClaimsExactlyOneWins(t *testing.T) {
	engine, bc, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners, losers int

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := engine.Claim(ctx, report.ID, models.Claimant{ID: fmt.Sprintf("resc-%d", i)}, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else if assert.ErrorIs(t, err, databases.ErrConflict) {
				losers++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, racers-1, losers)
	assert.Len(t, bc.snapshotUpdates(), 1)
}

func TestEngine_SelfReclaim(t *testing.T) {
	// Default behavior: repeating your own claim is still a conflict.
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()
	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "10m")
	assert.NoError(t, err)
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "8m")
	assert.ErrorIs(t, err, databases.ErrConflict)

	// With the flag on, the holder's retry refreshes the ETA.
	engine, bc, _ := newTestEngine(true)
	report, err = engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "10m")
	assert.NoError(t, err)
	refreshed, err := engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "6m")
	assert.NoError(t, err)
	assert.Equal(t, "6m", refreshed.ETA)
	assert.Equal(t, "resc-1", refreshed.Claimant.ID)

	// A different rescuer still loses.
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-2", Name: "Mateo"}, "")
	assert.ErrorIs(t, err, databases.ErrConflict)
	assert.Len(t, bc.updates, 2)
}

func TestEngine_StatusWalkToClosure(t *testing.T) {
	engine, bc, nt := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "10m")
	assert.NoError(t, err)

	var lastRev int64
	for _, status := range []string{"en_route", "arrived", "rescued", "closed"} {
		updated, err := engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: status})
		assert.NoError(t, err)
		assert.Equal(t, models.Status(status), updated.Status)
		assert.Greater(t, updated.Rev, lastRev)
		lastRev = updated.Rev
	}
	assert.Equal(t, 4, nt.changed)
	assert.Len(t, bc.updates, 5, "claim plus four status updates")

	// Closed is terminal for every verb.
	_, err = engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: "en_route"})
	assert.ErrorIs(t, err, databases.ErrConflict)
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-2"}, "")
	assert.ErrorIs(t, err, databases.ErrConflict)
	_, err = engine.Release(ctx, report.ID)
	assert.ErrorIs(t, err, databases.ErrConflict)
}

func TestEngine_UpdateStatusValidation(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	// Unknown value, echoed back.
	_, err = engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: "on-route"})
	var invalid *dispatch.InvalidStatusError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, "on-route", invalid.Value)
	assert.Contains(t, err.Error(), "on-route")

	// new and claimed are not reachable through a status update.
	_, err = engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: "new"})
	assert.ErrorAs(t, err, &invalid)
	_, err = engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: "claimed"})
	assert.ErrorAs(t, err, &invalid)

	// A valid target on an unclaimed report conflicts.
	_, err = engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: "en_route"})
	assert.ErrorIs(t, err, databases.ErrConflict)

	_, err = engine.UpdateStatus(ctx, "missing", dispatch.StatusUpdateInput{Status: "en_route"})
	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestEngine_ReleaseReturnsReportToPool(t *testing.T) {
	engine, bc, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "10m")
	assert.NoError(t, err)

	released, err := engine.Release(ctx, report.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusNew, released.Status)
	assert.Nil(t, released.Claimant)
	assert.Empty(t, released.ETA)

	// The pool is open again for someone else.
	reclaimed, err := engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-2", Name: "Mateo"}, "4m")
	assert.NoError(t, err)
	assert.Equal(t, "resc-2", reclaimed.Claimant.ID)

	// Release does not care who holds the claim.
	updatesBefore := len(bc.snapshotUpdates())
	_, err = engine.Release(ctx, report.ID)
	assert.NoError(t, err)
	assert.Len(t, bc.snapshotUpdates(), updatesBefore+1)

	// Repeating the release on an already open report changes nothing.
	again, err := engine.Release(ctx, report.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusNew, again.Status)
	assert.Len(t, bc.snapshotUpdates(), updatesBefore+1, "a no-op release broadcasts nothing")
}

func TestEngine_ReleaseIdempotentOnNewReport(t *testing.T) {
	engine, bc, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	released, err := engine.Release(ctx, report.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusNew, released.Status)
	assert.Empty(t, bc.updates, "a no-op release emits no event")

	_, err = engine.Release(ctx, "missing")
	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestEngine_ReleaseRejectedAfterRescue(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1"}, "")
	assert.NoError(t, err)
	_, err = engine.UpdateStatus(ctx, report.ID, dispatch.StatusUpdateInput{Status: "rescued"})
	assert.NoError(t, err)

	_, err = engine.Release(ctx, report.ID)
	assert.ErrorIs(t, err, databases.ErrConflict)
}

func TestEngine_UpdatesForOneReportArriveInCommitOrder(t *testing.T) {
	engine, bc, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	// Claim and release fight over the same report from several goroutines.
	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimant := models.Claimant{ID: fmt.Sprintf("resc-%d", i)}
			for j := 0; j < 5; j++ {
				if _, err := engine.Claim(ctx, report.ID, claimant, ""); err == nil {
					_, _ = engine.Release(ctx, report.ID)
				}
			}
		}(i)
	}
	wg.Wait()

	var lastRev int64
	for _, update := range bc.snapshotUpdates() {
		assert.Greater(t, update.Rev, lastRev, "events must carry strictly increasing revs")
		lastRev = update.Rev
	}
}

func TestEngine_SyncReportsIsSanitized(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	_, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)

	sync, err := engine.SyncReports(ctx)
	assert.NoError(t, err)
	assert.Len(t, sync, 1)

	b, err := json.Marshal(sync)
	assert.NoError(t, err)
	assert.NotContains(t, string(b), "phone")
}

func TestEngine_RegisterRescuer(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	_, err := engine.RegisterRescuer(ctx, dispatch.RegisterRescuerInput{Organization: "Red Cross"})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRescuer)

	rescuer, err := engine.RegisterRescuer(ctx, dispatch.RegisterRescuerInput{Name: "Nadia", Organization: "Red Cross"})
	assert.NoError(t, err)
	assert.NotEmpty(t, rescuer.ID)
	assert.True(t, rescuer.Active)

	// Registering the same id again behaves like a heartbeat.
	again, err := engine.RegisterRescuer(ctx, dispatch.RegisterRescuerInput{ID: rescuer.ID, Name: "Nadia"})
	assert.NoError(t, err)
	assert.Equal(t, rescuer.ID, again.ID)

	roster, err := engine.ListRescuers(ctx)
	assert.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestEngine_SaveRescuerLocation(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	rescuer, err := engine.RegisterRescuer(ctx, dispatch.RegisterRescuerInput{Name: "Nadia"})
	assert.NoError(t, err)

	assert.ErrorIs(t, engine.SaveRescuerLocation(ctx, rescuer.ID, 95, 0), dispatch.ErrInvalidLocation)
	assert.NoError(t, engine.SaveRescuerLocation(ctx, rescuer.ID, 6.91, 79.86))

	roster, err := engine.ListRescuers(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, roster[0].LastLocation)
	assert.Equal(t, 6.91, roster[0].LastLocation.Lat)
}

func TestEngine_Stats(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	ctx := context.Background()

	report, err := engine.CreateReport(ctx, validInput())
	assert.NoError(t, err)
	critical := validInput()
	critical.IsMedical = true
	_, err = engine.CreateReport(ctx, critical)
	assert.NoError(t, err)
	_, err = engine.Claim(ctx, report.ID, models.Claimant{ID: "resc-1", Name: "Nadia"}, "")
	assert.NoError(t, err)
	_, err = engine.RegisterRescuer(ctx, dispatch.RegisterRescuerInput{Name: "Nadia"})
	assert.NoError(t, err)

	stats, err := engine.Stats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), stats.Reports.Total)
	assert.Equal(t, int64(1), stats.Reports.ByStatus[models.StatusNew])
	assert.Equal(t, int64(1), stats.Reports.ByStatus[models.StatusClaimed])
	assert.Equal(t, int64(1), stats.Reports.BySeverity[models.SeverityCritical])
	assert.Equal(t, int64(1), stats.Rescuers.Total)
	assert.Equal(t, int64(1), stats.Rescuers.Active)
	assert.Equal(t, 3, stats.Connections.Total)
	assert.Equal(t, 2, stats.Connections.Rescuers)
}
