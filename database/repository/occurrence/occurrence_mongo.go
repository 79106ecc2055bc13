package occurrenceRepo

import (
	"tutorhive/database"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoOccurrenceRepo implements Repository backed by MongoDB.
type MongoOccurrenceRepo struct {
	coll *mongo.Collection
}

// NewMongoOccurrenceRepo returns a repository over the occurrences collection.
func NewMongoOccurrenceRepo() *MongoOccurrenceRepo {
	coll := database.MongoClient.Database(database.DatabaseName).Collection("occurrences")
	repo := &MongoOccurrenceRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		panic("failed to create occurrence indexes: " + err.Error())
	}
	return repo
}
