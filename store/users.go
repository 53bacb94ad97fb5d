package store

import (
	"context"
	"fmt"

	"herbtrace/batching"
	"herbtrace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InsertUser creates a user; duplicate email or username returns ErrConflict.
func (m *Mongo) InsertUser(ctx context.Context, u *models.User) error {
	res, err := m.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email or username already registered", batching.ErrConflict)
		}
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: user with email %s", batching.ErrNotFound, email)
		}
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: user %s", batching.ErrNotFound, id.Hex())
		}
		return nil, err
	}
	return &u, nil
}

// UserByUsername satisfies batching.Store.
func (m *Mongo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: user %s", batching.ErrNotFound, username)
		}
		return nil, err
	}
	return &u, nil
}
