package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatCore/module/user/model"
	"ChatCore/tools/errs"
)

type Mongo struct {
	Accounts *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{Accounts: db.Collection("account")}
}

func (s *Mongo) InsertAccount(ctx context.Context, a *model.Account) error {
	_, err := s.Accounts.InsertOne(ctx, a)
	return errs.Wrap(err)
}

func (s *Mongo) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Mongo) FindAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Mongo) SearchAccounts(ctx context.Context, query string) ([]*model.Account, error) {
	re := primitive.Regex{Pattern: query, Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": re},
		bson.M{"email": re},
	}}
	cur, err := s.Accounts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *Mongo) findOne(ctx context.Context, filter bson.M) (*model.Account, error) {
	var a model.Account
	err := s.Accounts.FindOne(ctx, filter).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &a, nil
}

var _ AccountStore = (*Mongo)(nil)
