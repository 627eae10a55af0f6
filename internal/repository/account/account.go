package account

import (
	"context"

	"e2ee_keyserver/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	AccountRepo struct {
		collection *mongo.Collection
	}
)

func NewAccountRepo(db *mongo.Database) *AccountRepo {
	return &AccountRepo{
		collection: db.Collection("accounts"),
	}
}

func (r *AccountRepo) GetByName(ctx context.Context, name string) (*model.Account, error) {
	filter := bson.M{
		"name": name,
	}

	var account model.Account
	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *AccountRepo) Create(ctx context.Context, account *model.Account) error {
	res, err := r.collection.InsertOne(ctx, account)
	if err != nil {
		return err
	}

	account.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}
