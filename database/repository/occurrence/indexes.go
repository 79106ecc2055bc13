package occurrenceRepo

import (
	"context"
	"time"

	"tutorhive/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the indexes the booking engine relies on. The partial
// unique index over non-cancelled occurrences is what converts the concurrent
// double-booking race into a duplicate-key error instead of a silent second
// booking.
func (r *MongoOccurrenceRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "teacherId", Value: 1},
				{Key: "startUtc", Value: 1},
				{Key: "endUtc", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": bson.A{
						string(models.OccurrencePending),
						string(models.OccurrenceScheduled),
					}},
				}),
		},
		{
			Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "startUtc", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
