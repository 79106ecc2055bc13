package availabilityRepo

import (
	"context"
	"time"

	"tutorhive/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoAvailabilityRepo) ListOpen(ctx context.Context, teacherID string, from, to time.Time) ([]models.AvailabilityWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"teacherId":   teacherID,
		"isAvailable": true,
		"startUtc":    bson.M{"$lt": to},
		"endUtc":      bson.M{"$gt": from},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startUtc", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var windows []models.AvailabilityWindow
	if err := cursor.All(ctx, &windows); err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *MongoAvailabilityRepo) InsertGeneration(ctx context.Context, windows []models.AvailabilityWindow) error {
	if len(windows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	docs := make([]interface{}, len(windows))
	for i, w := range windows {
		if w.ID == "" {
			w.ID = uuid.New().String()
		}
		docs[i] = w
	}
	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

func (r *MongoAvailabilityRepo) DeleteOtherGenerations(ctx context.Context, teacherID, keep string, from, to time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"teacherId":  teacherID,
		"generation": bson.M{"$ne": keep},
		"startUtc":   bson.M{"$gte": from, "$lt": to},
	}
	_, err := r.coll.DeleteMany(ctx, filter)
	return err
}
