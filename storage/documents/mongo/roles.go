// Package mongodocs stores role documents in MongoDB.
package mongodocs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
)

const usersCollection = "users"

// Connect opens a client on conf.Mongo.URI and pings the primary.
func Connect(ctx context.Context, conf *core.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Mongo.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return client, nil
}

type roleStore struct {
	c *mongo.Collection
}

var _ user.RoleStore = (*roleStore)(nil)

// NewRoleStore keeps one {_id: uid, role, updated_at} document per user.
func NewRoleStore(client *mongo.Client, dbName string) user.RoleStore {
	return &roleStore{c: client.Database(dbName).Collection(usersCollection)}
}

func (s *roleStore) GetRole(ctx context.Context, userID string) (user.RoleDocument, error) {
	var doc user.RoleDocument
	err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return user.RoleDocument{}, user.ErrRoleNotFound
	}
	if err != nil {
		return user.RoleDocument{}, errors.Wrap(err, "getting role document")
	}
	if !doc.Role.Valid() {
		return user.RoleDocument{}, user.ErrRoleNotFound
	}
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, nil
}

func (s *roleStore) SetRole(ctx context.Context, userID string, role user.Role) (user.RoleDocument, error) {
	doc := user.RoleDocument{UserID: userID, Role: role, UpdatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"role": doc.Role, "updated_at": doc.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return user.RoleDocument{}, errors.Wrap(err, "setting role document")
	}
	return doc, nil
}
