package databases

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lifeline-response/lifeline-api/models"
)

// memoryReportDatabase is the ReportDatabase used when no mongo instance is
// configured. All state lives in process memory and is lost on restart.
// Every write runs inside one short critical section, which is what makes
// ConditionalUpdate an atomic compare-and-set. Reads hand out copies so a
// caller can never mutate shared state.
type memoryReportDatabase struct {
	mu      sync.RWMutex
	reports map[string]*models.Report
}

// NewMemoryReportDatabase returns an empty in-memory report store.
func NewMemoryReportDatabase() ReportDatabase {
	return &memoryReportDatabase{reports: make(map[string]*models.Report)}
}

func (m *memoryReportDatabase) Create(ctx context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[report.ID]; ok {
		return ErrDuplicateID
	}
	report.ShortCode = strings.ToUpper(report.ShortCode)
	cp := *report
	m.reports[report.ID] = &cp
	return nil
}

func (m *memoryReportDatabase) Get(ctx context.Context, idOrCode string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.reports[idOrCode]; ok {
		cp := *r
		return &cp, nil
	}
	code := strings.ToUpper(idOrCode)
	var match *models.Report
	for _, r := range m.reports {
		if r.ShortCode != code {
			continue
		}
		if match == nil || preferCodeMatch(r, match) {
			match = r
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	cp := *match
	return &cp, nil
}

// preferCodeMatch reports whether a beats b when both carry the same short
// code. Open reports win over closed ones, then newer over older.
func preferCodeMatch(a, b *models.Report) bool {
	aOpen := a.Status != models.StatusClosed
	bOpen := b.Status != models.StatusClosed
	if aOpen != bOpen {
		return aOpen
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (m *memoryReportDatabase) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	m.mu.RLock()
	reports := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Severity != nil && r.Severity != *filter.Severity {
			continue
		}
		reports = append(reports, *r)
	}
	m.mu.RUnlock()

	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID > reports[j].ID
	})

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(reports) {
			return []models.Report{}, nil
		}
		end := start + filter.Limit
		if end > len(reports) {
			end = len(reports)
		}
		reports = reports[start:end]
	}
	return reports, nil
}

func (m *memoryReportDatabase) ConditionalUpdate(ctx context.Context, id string, expect Expectation, patch ReportPatch) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !expect.met(r) {
		conflict := &ConflictError{CurrentStatus: r.Status}
		if r.Claimant != nil {
			c := *r.Claimant
			conflict.Claimant = &c
		}
		return nil, conflict
	}
	applyReportPatch(r, patch)
	r.Rev++
	if now := time.Now().UTC(); now.After(r.LastUpdate) {
		r.LastUpdate = now
	}
	cp := *r
	return &cp, nil
}

// met evaluates the precondition against the current document. The mongo
// implementation expresses the same checks as filter clauses.
func (e Expectation) met(r *models.Report) bool {
	if e.Status != nil && r.Status != *e.Status {
		return false
	}
	if len(e.StatusIn) > 0 {
		found := false
		for _, s := range e.StatusIn {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if e.ClaimantID != nil && (r.Claimant == nil || r.Claimant.ID != *e.ClaimantID) {
		return false
	}
	return true
}

// applyReportPatch mutates r in place. Pointer fields are replaced, never
// written through, so copies handed out earlier stay frozen at their rev.
func applyReportPatch(r *models.Report, p ReportPatch) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Claimant != nil {
		c := *p.Claimant
		r.Claimant = &c
	}
	if p.ClearClaimant {
		r.Claimant = nil
	}
	if p.ETA != nil {
		r.ETA = *p.ETA
	}
	if p.ClearETA {
		r.ETA = ""
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
}

func (m *memoryReportDatabase) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	upper := strings.ToUpper(code)
	for _, r := range m.reports {
		if r.ShortCode == upper && r.Status != models.StatusClosed {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryReportDatabase) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[models.Status]int64)
	for _, r := range m.reports {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *memoryReportDatabase) CountBySeverity(ctx context.Context) (map[models.Severity]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[models.Severity]int64)
	for _, r := range m.reports {
		counts[r.Severity]++
	}
	return counts, nil
}
