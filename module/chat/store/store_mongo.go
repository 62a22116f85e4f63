package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatCore/module/chat/model"
	"ChatCore/tools/errs"
)

// Mongo is the durable Store. Collection layout:
//
//	room          _id unique
//	message       (room_id, created_at desc) index
//	unread        (room_id, user_id) unique
//	notification  (target, kind, object_id) index for upsert lookups
//	friend_list   _id = user id
//	friend_request  _id unique
type Mongo struct {
	Rooms    *mongo.Collection
	Messages *mongo.Collection
	Unread   *mongo.Collection
	Notifs   *mongo.Collection
	Friends  *mongo.Collection
	Requests *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		Rooms:    db.Collection("room"),
		Messages: db.Collection("message"),
		Unread:   db.Collection("unread"),
		Notifs:   db.Collection("notification"),
		Friends:  db.Collection("friend_list"),
		Requests: db.Collection("friend_request"),
	}
}

// EnsureIndexes creates the unique/sort indexes the queries rely on.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.Messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return errs.WrapMsg(err, "message index")
	}
	_, err = s.Unread.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errs.WrapMsg(err, "unread index")
	}
	_, err = s.Notifs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "target", Value: 1}, {Key: "kind", Value: 1}, {Key: "object_id", Value: 1}},
	})
	if err != nil {
		return errs.WrapMsg(err, "notification index")
	}
	return nil
}

// ---- rooms ----

func (s *Mongo) InsertRoom(ctx context.Context, r *model.Room) error {
	_, err := s.Rooms.InsertOne(ctx, r)
	return errs.Wrap(err)
}

func (s *Mongo) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	return one[model.Room](ctx, s.Rooms, bson.M{"_id": id})
}

func (s *Mongo) FindPrivateRoom(ctx context.Context, a, b string) (*model.Room, error) {
	filter := bson.M{
		"kind": model.RoomPrivate,
		"$or": bson.A{
			bson.M{"user_a": a, "user_b": b},
			bson.M{"user_a": b, "user_b": a},
		},
	}
	return one[model.Room](ctx, s.Rooms, filter)
}

func (s *Mongo) FindPublicRoomByTitle(ctx context.Context, title string) (*model.Room, error) {
	return one[model.Room](ctx, s.Rooms, bson.M{"kind": model.RoomPublic, "title": title})
}

func (s *Mongo) UpdateRoomActive(ctx context.Context, id string, active bool) error {
	_, err := s.Rooms.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_active": active}})
	return errs.Wrap(err)
}

func (s *Mongo) SetRoomConnectedUsers(ctx context.Context, id string, users []string) error {
	_, err := s.Rooms.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"connected_users": users}})
	return errs.Wrap(err)
}

func (s *Mongo) ListPublicRooms(ctx context.Context) ([]*model.Room, error) {
	cur, err := s.Rooms.Find(ctx, bson.M{"kind": model.RoomPublic},
		options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.Room
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// ---- messages ----

func (s *Mongo) InsertMessage(ctx context.Context, m *model.Message) error {
	_, err := s.Messages.InsertOne(ctx, m)
	return errs.Wrap(err)
}

func (s *Mongo) PageMessages(ctx context.Context, roomID string, page, size int) ([]*model.Message, int64, error) {
	filter := bson.M{"room_id": roomID}
	total, err := s.Messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errs.Wrap(err)
	}
	if page < 1 || size <= 0 {
		return nil, total, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))
	cur, err := s.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errs.Wrap(err)
	}
	out := []*model.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, errs.Wrap(err)
	}
	return out, total, nil
}

// ---- unread counters ----

func (s *Mongo) IncrementUnread(ctx context.Context, roomID, userID, otherUserID, mostRecent string, at time.Time) (*model.UnreadCounter, error) {
	filter := bson.M{"room_id": roomID, "user_id": userID}
	update := bson.M{
		"$inc": bson.M{"count": 1},
		"$set": bson.M{
			"most_recent_message": mostRecent,
			"other_user_id":       otherUserID,
			"updated_at":          at,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c model.UnreadCounter
	if err := s.Unread.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		return nil, errs.Wrap(err)
	}
	return &c, nil
}

func (s *Mongo) ResetUnread(ctx context.Context, roomID, userID string, at time.Time) (bool, error) {
	filter := bson.M{"room_id": roomID, "user_id": userID, "count": bson.M{"$gt": 0}}
	update := bson.M{"$set": bson.M{"count": 0, "reset_timestamp": at, "updated_at": at}}
	res, err := s.Unread.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errs.Wrap(err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Mongo) GetUnread(ctx context.Context, roomID, userID string) (*model.UnreadCounter, error) {
	return one[model.UnreadCounter](ctx, s.Unread, bson.M{"room_id": roomID, "user_id": userID})
}

func (s *Mongo) CountActiveUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.Unread.CountDocuments(ctx, bson.M{"user_id": userID, "count": bson.M{"$gt": 0}})
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return int(n), nil
}

// ---- notifications ----

func (s *Mongo) InsertNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.Notifs.InsertOne(ctx, n)
	return errs.Wrap(err)
}

func (s *Mongo) UpdateNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.Notifs.ReplaceOne(ctx, bson.M{"_id": n.ID}, n)
	return errs.Wrap(err)
}

func (s *Mongo) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	return one[model.Notification](ctx, s.Notifs, bson.M{"_id": id})
}

func (s *Mongo) FindNotificationByObject(ctx context.Context, target string, kind model.NotificationKind, objectID string) (*model.Notification, error) {
	return one[model.Notification](ctx, s.Notifs, bson.M{"target": target, "kind": kind, "object_id": objectID})
}

func (s *Mongo) DeleteNotificationByObject(ctx context.Context, target string, kind model.NotificationKind, objectID string) error {
	_, err := s.Notifs.DeleteMany(ctx, bson.M{"target": target, "kind": kind, "object_id": objectID})
	return errs.Wrap(err)
}

func kindFilter(target string, kinds []model.NotificationKind) bson.M {
	return bson.M{"target": target, "kind": bson.M{"$in": kinds}}
}

func (s *Mongo) PageNotifications(ctx context.Context, target string, kinds []model.NotificationKind, page, size int) ([]*model.Notification, int64, error) {
	filter := kindFilter(target, kinds)
	total, err := s.Notifs.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errs.Wrap(err)
	}
	if page < 1 || size <= 0 {
		return nil, total, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))
	cur, err := s.Notifs.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errs.Wrap(err)
	}
	out := []*model.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, errs.Wrap(err)
	}
	return out, total, nil
}

func (s *Mongo) ListNotificationsNewer(ctx context.Context, target string, kinds []model.NotificationKind, since time.Time) ([]*model.Notification, error) {
	filter := kindFilter(target, kinds)
	filter["timestamp"] = bson.M{"$gt": since}
	cur, err := s.Notifs.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *Mongo) CountUnreadNotifications(ctx context.Context, target string, kinds []model.NotificationKind) (int, error) {
	filter := kindFilter(target, kinds)
	filter["read"] = false
	n, err := s.Notifs.CountDocuments(ctx, filter)
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return int(n), nil
}

func (s *Mongo) MarkNotificationsRead(ctx context.Context, target string) error {
	_, err := s.Notifs.UpdateMany(ctx, bson.M{"target": target, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	return errs.Wrap(err)
}

// ---- friend sets ----

func (s *Mongo) AddFriend(ctx context.Context, owner, friend string) error {
	_, err := s.Friends.UpdateOne(ctx,
		bson.M{"_id": owner},
		bson.M{
			"$addToSet": bson.M{"friends": friend},
			"$set":      bson.M{"update_time": time.Now()},
		},
		options.Update().SetUpsert(true))
	return errs.Wrap(err)
}

func (s *Mongo) RemoveFriend(ctx context.Context, owner, friend string) error {
	_, err := s.Friends.UpdateOne(ctx,
		bson.M{"_id": owner},
		bson.M{
			"$pull": bson.M{"friends": friend},
			"$set":  bson.M{"update_time": time.Now()},
		})
	return errs.Wrap(err)
}

func (s *Mongo) AreFriends(ctx context.Context, owner, friend string) (bool, error) {
	n, err := s.Friends.CountDocuments(ctx, bson.M{"_id": owner, "friends": friend})
	if err != nil {
		return false, errs.Wrap(err)
	}
	return n > 0, nil
}

func (s *Mongo) FriendsOf(ctx context.Context, owner string) ([]string, error) {
	fl, err := one[model.FriendList](ctx, s.Friends, bson.M{"_id": owner})
	if err != nil || fl == nil {
		return nil, err
	}
	return fl.Friends, nil
}

// ---- friend requests ----

func (s *Mongo) InsertRequest(ctx context.Context, r *model.FriendRequest) error {
	_, err := s.Requests.InsertOne(ctx, r)
	return errs.Wrap(err)
}

func (s *Mongo) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	return one[model.FriendRequest](ctx, s.Requests, bson.M{"_id": id})
}

func (s *Mongo) FindPendingRequest(ctx context.Context, sender, receiver string) (*model.FriendRequest, error) {
	return one[model.FriendRequest](ctx, s.Requests,
		bson.M{"sender_id": sender, "receiver_id": receiver, "is_active": true})
}

func (s *Mongo) UpdateRequest(ctx context.Context, r *model.FriendRequest) error {
	_, err := s.Requests.ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	return errs.Wrap(err)
}

// one decodes a single document, mapping ErrNoDocuments to (nil, nil).
func one[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var v T
	err := coll.FindOne(ctx, filter).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &v, nil
}

var _ Store = (*Mongo)(nil)
