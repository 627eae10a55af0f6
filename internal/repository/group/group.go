package group

import (
	"context"

	"e2ee_keyserver/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	memberDevice struct {
		Account model.AccountID `bson:"account"`
		Device  model.DeviceID  `bson:"device"`
	}

	groupDoc struct {
		GroupID       string            `bson:"group_id"`
		Members       []model.AccountID `bson:"members"`
		MemberDevices []memberDevice    `bson:"member_devices"`
	}

	GroupRepo struct {
		collection *mongo.Collection
	}
)

func NewGroupRepo(db *mongo.Database) *GroupRepo {
	return &GroupRepo{
		collection: db.Collection("groups"),
	}
}

// Create inserts a group with its initial member accounts. Member devices
// accumulate as devices register.
func (r *GroupRepo) Create(ctx context.Context, groupID string, members []model.AccountID) error {
	doc := groupDoc{
		GroupID:       groupID,
		Members:       members,
		MemberDevices: []memberDevice{},
	}

	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *GroupRepo) GroupsOf(ctx context.Context, owner model.AccountID) ([]string, error) {
	filter := bson.M{
		"members": owner,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []string
	for cursor.Next(ctx) {
		var doc groupDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		groups = append(groups, doc.GroupID)
	}

	return groups, cursor.Err()
}

func (r *GroupRepo) AppendMemberDevice(ctx context.Context, groupID string, owner model.AccountID, device model.DeviceID) error {
	filter := bson.M{
		"group_id": groupID,
	}
	update := bson.M{
		"$push": bson.M{"member_devices": memberDevice{Account: owner, Device: device}},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}
