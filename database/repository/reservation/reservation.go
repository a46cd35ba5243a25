package reservationRepo

import (
	"context"
	"fmt"
	"time"

	"voicedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReservationRepo is the durable store for bookings. CreateIfCapacity is the
// atomic check-and-write: the capacity check and the commit are revalidated
// together so two racing sessions can never oversell a slot.
type ReservationRepo interface {
	SlotOccupancy(ctx context.Context, businessID, date, timeBucket string) (int, error)
	CreateIfCapacity(ctx context.Context, res *models.Reservation, capacity int) (bool, error)
}

// MongoReservationRepo implements ReservationRepo.
type MongoReservationRepo struct {
	resColl  *mongo.Collection
	slotColl *mongo.Collection
}

func NewMongoReservationRepo(db *mongo.Database) *MongoReservationRepo {
	return &MongoReservationRepo{
		resColl:  db.Collection("reservations"),
		slotColl: db.Collection("reservation_slots"),
	}
}

// EnsureIndexes creates the unique slot index the capacity guard relies on.
func (repo *MongoReservationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := repo.slotColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "businessId", Value: 1},
			{Key: "date", Value: 1},
			{Key: "timeBucket", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create slot index: %w", err)
	}
	return nil
}

// SlotOccupancy sums committed party sizes over pending/confirmed bookings.
func (repo *MongoReservationRepo) SlotOccupancy(ctx context.Context, businessID, date, timeBucket string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"businessId": businessID,
			"date":       date,
			"timeBucket": timeBucket,
			"status":     bson.M{"$in": bson.A{models.ReservationPending, models.ReservationConfirmed}},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"occupancy": bson.M{"$sum": "$partySize"},
		}}},
	}

	cursor, err := repo.resColl.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate slot occupancy: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Occupancy int `bson:"occupancy"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode slot occupancy: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Occupancy, nil
}

// CreateIfCapacity inserts the reservation and increments the slot counter in
// one transaction. The counter update carries the capacity guard in its filter;
// a matched count of zero means another session won the slot first.
func (repo *MongoReservationRepo) CreateIfCapacity(ctx context.Context, res *models.Reservation, capacity int) (bool, error) {
	client := repo.resColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return false, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	won := false
	txnFn := func(sc mongo.SessionContext) error {
		// Guarantee the slot counter document exists before the guarded update.
		slotFilter := bson.M{
			"businessId": res.BusinessID,
			"date":       res.Date,
			"timeBucket": res.TimeBucket,
		}
		seed := bson.M{"$setOnInsert": bson.M{"occupancy": 0, "capacity": capacity}}
		if _, err := repo.slotColl.UpdateOne(sc, slotFilter, seed, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to seed slot counter: %w", err)
		}

		guarded := bson.M{
			"businessId": res.BusinessID,
			"date":       res.Date,
			"timeBucket": res.TimeBucket,
			"occupancy":  bson.M{"$lte": capacity - res.PartySize},
		}
		update := bson.M{"$inc": bson.M{"occupancy": res.PartySize}}
		result, err := repo.slotColl.UpdateOne(sc, guarded, update)
		if err != nil {
			return fmt.Errorf("failed to claim slot capacity: %w", err)
		}
		if result.MatchedCount == 0 {
			// Insufficient remaining capacity; abort without error.
			return nil
		}

		if _, err := repo.resColl.InsertOne(sc, res); err != nil {
			return fmt.Errorf("insert reservation failed: %w", err)
		}
		won = true
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		if !won {
			return sc.AbortTransaction(sc)
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return false, fmt.Errorf("reservation transaction failed: %w", err)
	}

	return won, nil
}
