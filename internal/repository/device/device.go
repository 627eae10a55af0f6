package device

import (
	"context"
	"errors"

	"e2ee_keyserver/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDeviceExists is returned when the device id is already registered under
// the account.
var ErrDeviceExists = errors.New("device id already registered for this account")

type (
	deviceList struct {
		Account model.AccountID  `bson:"account"`
		Devices []model.DeviceID `bson:"devices"`
	}

	DeviceRepo struct {
		collection *mongo.Collection
	}
)

func NewDeviceRepo(db *mongo.Database) *DeviceRepo {
	return &DeviceRepo{
		collection: db.Collection("devices"),
	}
}

func (r *DeviceRepo) AppendDevice(ctx context.Context, owner model.AccountID, device model.DeviceID) error {
	existing, err := r.Devices(ctx, owner)
	if err != nil {
		return err
	}

	for _, d := range existing {
		if d == device {
			return ErrDeviceExists
		}
	}

	filter := bson.M{
		"account": owner,
	}
	update := bson.M{
		"$push": bson.M{"devices": device},
	}

	_, err = r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *DeviceRepo) Devices(ctx context.Context, owner model.AccountID) ([]model.DeviceID, error) {
	filter := bson.M{
		"account": owner,
	}

	var list deviceList
	err := r.collection.FindOne(ctx, filter).Decode(&list)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return list.Devices, nil
}
