package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type (
	Account struct {
		ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

		Name        string `bson:"name" json:"name"`
		IdentityKey []byte `bson:"identity_key" json:"identity_key"`
	}
)
