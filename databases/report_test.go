package databases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/databases"
	"github.com/lifeline-response/lifeline-api/databases/mocks"
	"github.com/lifeline-response/lifeline-api/models"
)

func TestNewReportDatabase(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	reportDB := databases.NewReportDatabase(db)

	assert.NotEmpty(t, reportDB)
}

func TestReportDatabase_Get(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelper databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelper = &mocks.SingleResultHelper{}

	srHelper.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.Report)
		arg.ID = "r1"
		arg.ShortCode = "AB12"
		arg.Status = models.StatusNew
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"_id": "r1"}).
		Return(srHelper)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	report, err := reportDba.Get(context.Background(), "r1")

	assert.NoError(t, err)
	assert.Equal(t, "r1", report.ID)
	assert.Equal(t, "AB12", report.ShortCode)
}

func TestReportDatabase_GetFallsBackToShortCode(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperMiss databases.SingleResultHelper
	var cursorHelper databases.CursorHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperMiss = &mocks.SingleResultHelper{}
	cursorHelper = &mocks.CursorHelper{}

	srHelperMiss.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(mongo.ErrNoDocuments)

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Report)
		*arg = []models.Report{
			{ID: "closed", ShortCode: "AB12", Status: models.StatusClosed, CreatedAt: time.Now()},
			{ID: "open", ShortCode: "AB12", Status: models.StatusNew, CreatedAt: time.Now().Add(-time.Hour)},
		}
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"_id": "ab12"}).
		Return(srHelperMiss)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"shortCode": "AB12"}, mock.Anything).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	report, err := reportDba.Get(context.Background(), "ab12")

	assert.NoError(t, err)
	assert.Equal(t, "open", report.ID, "open report wins over a closed one with the same code")
}

func TestReportDatabase_GetNotFound(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperMiss databases.SingleResultHelper
	var cursorHelper databases.CursorHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperMiss = &mocks.SingleResultHelper{}
	cursorHelper = &mocks.CursorHelper{}

	srHelperMiss.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(mongo.ErrNoDocuments)

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", mock.Anything, mock.Anything).
		Return(srHelperMiss)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	_, err := reportDba.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestReportDatabase_CreateMapsDuplicateKey(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	dupErr := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	collectionHelper.(*mocks.CollectionHelper).
		On("InsertOne", mock.Anything, mock.Anything).
		Return(nil, dupErr)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	err := reportDba.Create(context.Background(), &models.Report{ID: "r1", ShortCode: "ab12"})

	assert.ErrorIs(t, err, databases.ErrDuplicateID)
}

func TestReportDatabase_ConditionalUpdate(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelper databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelper = &mocks.SingleResultHelper{}

	srHelper.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.Report)
		arg.ID = "r1"
		arg.Status = models.StatusClaimed
		arg.Claimant = &models.Claimant{ID: "resc-1", Name: "Nadia"}
		arg.Rev = 1
	})

	statusNew := models.StatusNew
	collectionHelper.(*mocks.CollectionHelper).
		On("FindOneAndUpdate", context.Background(), bson.M{"_id": "r1", "status": statusNew}, mock.Anything, mock.Anything).
		Return(srHelper)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	claimed := models.StatusClaimed
	report, err := reportDba.ConditionalUpdate(context.Background(), "r1",
		databases.Expectation{Status: &statusNew},
		databases.ReportPatch{Status: &claimed, Claimant: &models.Claimant{ID: "resc-1", Name: "Nadia"}},
	)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusClaimed, report.Status)
	assert.Equal(t, int64(1), report.Rev)
}

func TestReportDatabase_ConditionalUpdateConflict(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperMiss databases.SingleResultHelper
	var srHelperCurrent databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperMiss = &mocks.SingleResultHelper{}
	srHelperCurrent = &mocks.SingleResultHelper{}

	srHelperMiss.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(mongo.ErrNoDocuments)

	srHelperCurrent.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.Report)
		arg.ID = "r1"
		arg.Status = models.StatusClaimed
		arg.Claimant = &models.Claimant{ID: "resc-1", Name: "Nadia"}
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(srHelperMiss)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"_id": "r1"}).
		Return(srHelperCurrent)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	statusNew := models.StatusNew
	claimed := models.StatusClaimed
	_, err := reportDba.ConditionalUpdate(context.Background(), "r1",
		databases.Expectation{Status: &statusNew},
		databases.ReportPatch{Status: &claimed, Claimant: &models.Claimant{ID: "resc-2", Name: "Mateo"}},
	)

	assert.ErrorIs(t, err, databases.ErrConflict)
	var conflict *databases.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.StatusClaimed, conflict.CurrentStatus)
	assert.Equal(t, "Nadia", conflict.Claimant.Name)
}

func TestReportDatabase_ConditionalUpdateNotFound(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperMiss databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperMiss = &mocks.SingleResultHelper{}

	srHelperMiss.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(mongo.ErrNoDocuments)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(srHelperMiss)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", mock.Anything, mock.Anything).
		Return(srHelperMiss)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	claimed := models.StatusClaimed
	_, err := reportDba.ConditionalUpdate(context.Background(), "missing", databases.Expectation{}, databases.ReportPatch{Status: &claimed})

	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestReportDatabase_ConditionalUpdateSurfacesStoreErrors(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(srHelperErr)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	claimed := models.StatusClaimed
	_, err := reportDba.ConditionalUpdate(context.Background(), "r1", databases.Expectation{}, databases.ReportPatch{Status: &claimed})

	assert.EqualError(t, err, "mocked-error")
}

func TestReportDatabase_CountByStatus(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		})
		*arg = []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}{
			{ID: "new", Count: 3},
			{ID: "claimed", Count: 1},
		}
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("Aggregate", context.Background(), mock.Anything).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	counts, err := reportDba.CountByStatus(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), counts[models.StatusNew])
	assert.Equal(t, int64(1), counts[models.StatusClaimed])
}

func TestReportDatabase_ShortCodeExists(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("CountDocuments", context.Background(), bson.M{"shortCode": "AB12", "status": bson.M{"$ne": models.StatusClosed}}).
		Return(int64(1), nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	exists, err := reportDba.ShortCodeExists(context.Background(), "ab12")

	assert.NoError(t, err)
	assert.True(t, exists)
}
