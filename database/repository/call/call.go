package callRepo

import (
	"context"
	"fmt"
	"time"

	"voicedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CallRepo persists finalized call records and aggregate business stats.
type CallRepo interface {
	SaveCall(ctx context.Context, record *models.CallRecord) error
	UpsertBusinessStats(ctx context.Context, businessID string, delta models.BusinessStatsDelta) error
}

// MongoCallRepo implements CallRepo.
type MongoCallRepo struct {
	callColl  *mongo.Collection
	statsColl *mongo.Collection
}

func NewMongoCallRepo(db *mongo.Database) *MongoCallRepo {
	return &MongoCallRepo{
		callColl:  db.Collection("calls"),
		statsColl: db.Collection("business_stats"),
	}
}

// SaveCall upserts by call id so a retried finalization never duplicates the record.
func (repo *MongoCallRepo) SaveCall(ctx context.Context, record *models.CallRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": record.ID}
	update := bson.M{"$set": record}
	opts := options.Update().SetUpsert(true)
	if _, err := repo.callColl.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save call record %s: %w", record.ID, err)
	}
	return nil
}

// UpsertBusinessStats additively folds the delta into the business's counters.
func (repo *MongoCallRepo) UpsertBusinessStats(ctx context.Context, businessID string, delta models.BusinessStatsDelta) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"businessId": businessID}
	update := bson.M{
		"$inc": bson.M{
			"calls":           delta.Calls,
			"turns":           delta.Turns,
			"durationSeconds": delta.DurationSeconds,
			"reservations":    delta.Reservations,
			"cost":            delta.Cost,
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := repo.statsColl.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert business stats for %s: %w", businessID, err)
	}
	return nil
}
