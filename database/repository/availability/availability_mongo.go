package availabilityRepo

import (
	"context"
	"time"

	"tutorhive/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoAvailabilityRepo implements Repository backed by MongoDB.
type MongoAvailabilityRepo struct {
	coll *mongo.Collection
}

// NewMongoAvailabilityRepo returns a repository over the availability collection.
func NewMongoAvailabilityRepo() *MongoAvailabilityRepo {
	coll := database.MongoClient.Database(database.DatabaseName).Collection("availability_windows")
	repo := &MongoAvailabilityRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		panic("failed to create availability indexes: " + err.Error())
	}
	return repo
}

func (r *MongoAvailabilityRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "teacherId", Value: 1},
			{Key: "startUtc", Value: 1},
		},
	})
	return err
}
