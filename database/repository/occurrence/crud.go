package occurrenceRepo

import (
	"context"
	"time"

	"tutorhive/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoOccurrenceRepo) Insert(ctx context.Context, occ *models.ClassOccurrence) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, occ)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *MongoOccurrenceRepo) GetByID(ctx context.Context, id string) (*models.ClassOccurrence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var occ models.ClassOccurrence
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&occ)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

func (r *MongoOccurrenceRepo) UpdateStatus(ctx context.Context, id string, from []models.OccurrenceStatus, to models.OccurrenceStatus, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	fromValues := make(bson.A, len(from))
	for i, s := range from {
		fromValues[i] = string(s)
	}

	update := bson.M{"$set": bson.M{
		"status":    string(to),
		"updatedAt": time.Now().UTC(),
	}}
	if reason != "" {
		update["$set"].(bson.M)["cancelReason"] = reason
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": bson.M{"$in": fromValues}},
		update,
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoOccurrenceRepo) ListBlocking(ctx context.Context, teacherID string, from, to time.Time) ([]models.ClassOccurrence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"teacherId": teacherID,
		"status": bson.M{"$in": bson.A{
			string(models.OccurrencePending),
			string(models.OccurrenceScheduled),
		}},
		"startUtc": bson.M{"$lt": to},
		"endUtc":   bson.M{"$gt": from},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startUtc", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var occs []models.ClassOccurrence
	if err := cursor.All(ctx, &occs); err != nil {
		return nil, err
	}
	return occs, nil
}

func (r *MongoOccurrenceRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.ClassOccurrence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":    string(models.OccurrencePending),
		"createdAt": bson.M{"$lt": cutoff},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var occs []models.ClassOccurrence
	if err := cursor.All(ctx, &occs); err != nil {
		return nil, err
	}
	return occs, nil
}

func (r *MongoOccurrenceRepo) ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.ClassOccurrence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"studentId": studentID,
		"startUtc":  bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startUtc", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var occs []models.ClassOccurrence
	if err := cursor.All(ctx, &occs); err != nil {
		return nil, err
	}
	return occs, nil
}
