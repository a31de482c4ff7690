package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lumeo-studio/site-auth/app/entity"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DisabledAccountRepository struct {
	collection *mongo.Collection
}

func NewDisabledAccountRepository(db *mongo.Database) *DisabledAccountRepository {
	collection := db.Collection("disabled_accounts")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logrus.WithError(err).Warn("Failed to create disabled_accounts index")
	}

	return &DisabledAccountRepository{collection: collection}
}

func (r *DisabledAccountRepository) Create(ctx context.Context, record *entity.DisabledAccount) error {
	record.ID = primitive.NewObjectID()
	record.DisabledAt = time.Now()

	_, err := r.collection.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *DisabledAccountRepository) FindByUserID(ctx context.Context, userID string) (*entity.DisabledAccount, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	record := &entity.DisabledAccount{}
	err = r.collection.FindOne(ctx, bson.M{"user_id": objectID}).Decode(record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *DisabledAccountRepository) Delete(ctx context.Context, userID string) (int64, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": objectID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *DisabledAccountRepository) List(ctx context.Context) ([]*entity.DisabledAccount, error) {
	opts := options.Find().SetSort(bson.D{{Key: "disabled_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*entity.DisabledAccount
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
