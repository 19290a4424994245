package databases

// go generate: mockery --name ReportDatabase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lifeline-response/lifeline-api/models"
)

const reportName = "reports"

// ReportFilter narrows List results. Nil fields match everything. Limit and
// Page paginate the way the REST query parameters do; Limit zero means no
// pagination.
type ReportFilter struct {
	Status   *models.Status
	Severity *models.Severity
	Limit    int
	Page     int
}

// Expectation is the precondition a conditional update checks atomically
// with the write. Nil or empty fields are unconstrained.
type Expectation struct {
	Status     *models.Status
	StatusIn   []models.Status
	ClaimantID *string
}

// ReportPatch is the field set a conditional update applies. Nil fields are
// left untouched; the Clear flags remove the stored value entirely.
type ReportPatch struct {
	Status        *models.Status
	Claimant      *models.Claimant
	ClearClaimant bool
	ETA           *string
	ClearETA      bool
	Notes         *string
}

// ReportDatabase contains the methods to use with the report store. The
// mongo and the in-memory implementations both satisfy it, so everything
// above this layer is storage agnostic.
//
// ConditionalUpdate is the concurrency primitive of the whole service: the
// expectation is checked atomically with the write, and a failed check
// surfaces as a ConflictError carrying the state that won.
type ReportDatabase interface {
	Create(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, idOrCode string) (*models.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	ConditionalUpdate(ctx context.Context, id string, expect Expectation, patch ReportPatch) (*models.Report, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)
	CountBySeverity(ctx context.Context) (map[models.Severity]int64, error)
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of the report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

func (r *reportDatabase) Create(ctx context.Context, report *models.Report) error {
	report.ShortCode = strings.ToUpper(report.ShortCode)
	_, err := r.db.Collection(reportName).InsertOne(ctx, report)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *reportDatabase) Get(ctx context.Context, idOrCode string) (*models.Report, error) {
	report := &models.Report{}
	err := r.db.Collection(reportName).FindOne(ctx, bson.M{"_id": idOrCode}).Decode(report)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	return r.getByShortCode(ctx, idOrCode)
}

// getByShortCode resolves a report by its four character code. Codes are
// only recycled once the report carrying them closes, so an open report
// always wins over closed ones with the same code.
func (r *reportDatabase) getByShortCode(ctx context.Context, code string) (*models.Report, error) {
	var reports []models.Report
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cr, err := r.db.Collection(reportName).Find(ctx, bson.M{"shortCode": strings.ToUpper(code)}, opts)
	if err != nil {
		return nil, err
	}
	if err := cr.All(ctx, &reports); err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	for i := range reports {
		if reports[i].Status != models.StatusClosed {
			return &reports[i], nil
		}
	}
	return &reports[0], nil
}

func (r *reportDatabase) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	var reports []models.Report
	cr, err := r.db.Collection(reportName).Find(ctx, filter.query(), filter.findOptions())
	if err != nil {
		return nil, err
	}
	if err := cr.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (f ReportFilter) query() bson.M {
	query := bson.M{}
	if f.Status != nil {
		query["status"] = *f.Status
	}
	if f.Severity != nil {
		query["severity"] = *f.Severity
	}
	return query
}

// findOptions sorts newest first and applies Limit/Page pagination when a
// limit is set.
func (f ReportFilter) findOptions() *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64(page-1) * int64(f.Limit))
	}
	return opts
}

func (r *reportDatabase) ConditionalUpdate(ctx context.Context, id string, expect Expectation, patch ReportPatch) (*models.Report, error) {
	filter := bson.M{"_id": id}
	if expect.Status != nil {
		filter["status"] = *expect.Status
	}
	if len(expect.StatusIn) > 0 {
		filter["status"] = bson.M{"$in": expect.StatusIn}
	}
	if expect.ClaimantID != nil {
		filter["claimant.id"] = *expect.ClaimantID
	}

	set := bson.M{"lastUpdate": time.Now().UTC()}
	unset := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Claimant != nil {
		set["claimant"] = *patch.Claimant
	}
	if patch.ClearClaimant {
		unset["claimant"] = ""
	}
	if patch.ETA != nil {
		set["eta"] = *patch.ETA
	}
	if patch.ClearETA {
		unset["eta"] = ""
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}
	update := bson.M{"$set": set, "$inc": bson.M{"rev": 1}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	report := &models.Report{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.db.Collection(reportName).FindOneAndUpdate(ctx, filter, update, opts).Decode(report)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Either the precondition lost or the report does not exist. Read the
	// current state back to tell the two apart.
	current := &models.Report{}
	err = r.db.Collection(reportName).FindOne(ctx, bson.M{"_id": id}).Decode(current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, &ConflictError{CurrentStatus: current.Status, Claimant: current.Claimant}
}

func (r *reportDatabase) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.db.Collection(reportName).CountDocuments(ctx, bson.M{
		"shortCode": strings.ToUpper(code),
		"status":    bson.M{"$ne": models.StatusClosed},
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *reportDatabase) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	counts := make(map[models.Status]int64)
	err := r.countByField(ctx, "$status", func(key string, n int64) {
		counts[models.Status(key)] = n
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *reportDatabase) CountBySeverity(ctx context.Context) (map[models.Severity]int64, error) {
	counts := make(map[models.Severity]int64)
	err := r.countByField(ctx, "$severity", func(key string, n int64) {
		counts[models.Severity(key)] = n
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *reportDatabase) countByField(ctx context.Context, field string, collect func(key string, n int64)) error {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
	}
	cr, err := r.db.Collection(reportName).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cr.All(ctx, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		collect(row.ID, row.Count)
	}
	return nil
}
