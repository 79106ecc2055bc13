package ledgerRepo

import (
	"context"
	"time"

	"tutorhive/database"
	"tutorhive/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLedgerRepo implements Repository backed by MongoDB.
type MongoLedgerRepo struct {
	coll *mongo.Collection
}

// NewMongoLedgerRepo returns a repository over the credit_ledgers collection.
func NewMongoLedgerRepo() *MongoLedgerRepo {
	coll := database.MongoClient.Database(database.DatabaseName).Collection("credit_ledgers")
	repo := &MongoLedgerRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		panic("failed to create ledger indexes: " + err.Error())
	}
	return repo
}

func (r *MongoLedgerRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "customerId", Value: 1}},
		},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MongoLedgerRepo) GetByStudentID(ctx context.Context, studentID string) (*models.CreditLedgerState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var state models.CreditLedgerState
	err := r.coll.FindOne(ctx, bson.M{"studentId": studentID}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *MongoLedgerRepo) GetByCustomerID(ctx context.Context, customerID string) (*models.CreditLedgerState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var state models.CreditLedgerState
	err := r.coll.FindOne(ctx, bson.M{"customerId": customerID}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *MongoLedgerRepo) Upsert(ctx context.Context, state *models.CreditLedgerState) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"studentId": state.StudentID}
	update := bson.M{"$set": state}
	opts := options.Update().SetUpsert(true)

	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}
