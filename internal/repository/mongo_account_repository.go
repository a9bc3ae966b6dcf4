package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/ride-accounts/internal/model"
)

const (
	emailIndex    = "email_1"
	usernameIndex = "username_1"
)

// MongoAccountRepo stores one partition as a collection named after it.
type MongoAccountRepo struct {
	coll *mongo.Collection
	role model.Role
}

var _ AccountStore = (*MongoAccountRepo)(nil)

// NewMongoAccountRepo returns a repository for the descriptor's collection
// and makes sure the unique indexes exist.
func NewMongoAccountRepo(ctx context.Context, logger *zerolog.Logger, db *mongo.Database, desc model.RoleDescriptor) (*MongoAccountRepo, error) {
	coll := db.Collection(desc.Partition)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
	}
	if desc.RequiresUsername {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex),
		})
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create %s indexes: %w", desc.Partition, err)
	}
	logger.Debug().Str("collection", desc.Partition).Msg("account indexes ready")

	return &MongoAccountRepo{coll: coll, role: desc.Role}, nil
}

func (r *MongoAccountRepo) Create(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	a.Email = NormalizeEmail(a.Email)
	a.Username = NormalizeUsername(a.Username)
	a.Role = r.role
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		return mapMongoWriteErr(err)
	}
	return nil
}

func (r *MongoAccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: NormalizeEmail(email)}})
}

func (r *MongoAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// profileProjection keeps secrets out of FindProfile results.
var profileProjection = bson.D{{Key: "password", Value: 0}, {Key: "refreshToken", Value: 0}}

func (r *MongoAccountRepo) FindProfile(ctx context.Context, id string) (*model.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, options.FindOne().SetProjection(profileProjection))
}

func (r *MongoAccountRepo) SetRefreshToken(ctx context.Context, id string, digest *string) error {
	return r.updateByID(ctx, id, refreshTokenUpdate(digest, time.Now().UTC()))
}

// refreshTokenUpdate sets the digest, or removes the field when digest is nil.
func refreshTokenUpdate(digest *string, now time.Time) bson.D {
	if digest == nil {
		return bson.D{
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
			{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
		}
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "refreshToken", Value: *digest},
		{Key: "updatedAt", Value: now},
	}}}
}

func (r *MongoAccountRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "password", Value: hash},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}})
}

func (r *MongoAccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	set := bson.D{
		{Key: "fullname", Value: a.FullName},
		{Key: "email", Value: NormalizeEmail(a.Email)},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	if a.Username != "" {
		set = append(set, bson.E{Key: "username", Value: NormalizeUsername(a.Username)})
	}
	if a.Vehicle != nil {
		set = append(set, bson.E{Key: "vehicle", Value: a.Vehicle})
	}
	return r.updateByID(ctx, a.ID, bson.D{{Key: "$set", Value: set}})
}

func (r *MongoAccountRepo) findOne(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*model.Account, error) {
	var a model.Account
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoAccountRepo) updateByID(ctx context.Context, id string, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return mapMongoWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// mapMongoWriteErr turns unique index violations into the shared sentinels.
// The server names the violated index ("index: username_1 dup key: ...");
// an email never contains a space, so a duplicated address cannot fake it.
func mapMongoWriteErr(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), "index: "+usernameIndex+" ") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}
