package businessRepo

import (
	"context"
	"fmt"
	"time"

	"voicedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BusinessRepo loads business profiles for the agent.
type BusinessRepo interface {
	GetByID(ctx context.Context, id string) (*models.Business, error)
	GetByPhone(ctx context.Context, phone string) (*models.Business, error)
}

// MongoBusinessRepo implements BusinessRepo.
type MongoBusinessRepo struct {
	coll *mongo.Collection
}

func NewMongoBusinessRepo(db *mongo.Database) *MongoBusinessRepo {
	return &MongoBusinessRepo{coll: db.Collection("businesses")}
}

func (repo *MongoBusinessRepo) GetByID(ctx context.Context, id string) (*models.Business, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Business
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to fetch business %s: %w", id, err)
	}
	return &b, nil
}

// GetByPhone resolves the called number to its business. Incoming calls carry
// only the dialed number.
func (repo *MongoBusinessRepo) GetByPhone(ctx context.Context, phone string) (*models.Business, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Business
	if err := repo.coll.FindOne(ctx, bson.M{"phone": phone}).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to fetch business by phone %s: %w", phone, err)
	}
	return &b, nil
}
