package databases

// go generate: mockery --name RescuerDatabase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeline-response/lifeline-api/models"
)

const rescuerName = "rescuers"

// RescuerDatabase contains the methods to use with the rescuer store.
// Liveness is a heartbeat-updated flag: Heartbeat and UpdateLocation mark a
// rescuer active, and the scheduler calls MarkInactiveBefore to expire the
// ones that went quiet.
type RescuerDatabase interface {
	Create(ctx context.Context, rescuer *models.Rescuer) error
	Get(ctx context.Context, id string) (*models.Rescuer, error)
	List(ctx context.Context) ([]models.Rescuer, error)
	Heartbeat(ctx context.Context, id string, at time.Time) (*models.Rescuer, error)
	UpdateLocation(ctx context.Context, id string, loc models.Location, at time.Time) error
	MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type rescuerDatabase struct {
	db DatabaseHelper
}

// NewRescuerDatabase initializes a new instance of the rescuer database with the provided db connection
func NewRescuerDatabase(db DatabaseHelper) RescuerDatabase {
	return &rescuerDatabase{
		db: db,
	}
}

func (r *rescuerDatabase) Create(ctx context.Context, rescuer *models.Rescuer) error {
	_, err := r.db.Collection(rescuerName).InsertOne(ctx, rescuer)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *rescuerDatabase) Get(ctx context.Context, id string) (*models.Rescuer, error) {
	rescuer := &models.Rescuer{}
	err := r.db.Collection(rescuerName).FindOne(ctx, bson.M{"_id": id}).Decode(rescuer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rescuer, nil
}

func (r *rescuerDatabase) List(ctx context.Context) ([]models.Rescuer, error) {
	var rescuers []models.Rescuer
	cr, err := r.db.Collection(rescuerName).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	if err := cr.All(ctx, &rescuers); err != nil {
		return nil, err
	}
	return rescuers, nil
}

func (r *rescuerDatabase) Heartbeat(ctx context.Context, id string, at time.Time) (*models.Rescuer, error) {
	update := bson.M{"$set": bson.M{"lastSeen": at, "active": true}}
	matched, err := r.db.Collection(rescuerName).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *rescuerDatabase) UpdateLocation(ctx context.Context, id string, loc models.Location, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastLocation": loc, "lastSeen": at, "active": true}}
	matched, err := r.db.Collection(rescuerName).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *rescuerDatabase) MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"active": true, "lastSeen": bson.M{"$lt": cutoff}}
	update := bson.M{"$set": bson.M{"active": false}}
	return r.db.Collection(rescuerName).UpdateMany(ctx, filter, update)
}

func (r *rescuerDatabase) Count(ctx context.Context) (int64, error) {
	return r.db.Collection(rescuerName).CountDocuments(ctx, bson.M{})
}

func (r *rescuerDatabase) CountActive(ctx context.Context) (int64, error) {
	return r.db.Collection(rescuerName).CountDocuments(ctx, bson.M{"active": true})
}
