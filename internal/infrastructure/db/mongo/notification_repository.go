package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/settleup/settleup-api/internal/core/domain"
)

const collectionNotifications = "notifications"

type NotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(collectionNotifications)}
}

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Type      string             `bson:"type"`
	Title     string             `bson:"title"`
	Message   string             `bson:"message"`
	Data      bson.M             `bson:"data,omitempty"`
	IsRead    bool               `bson:"is_read"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d notificationDoc) toDomain() *domain.Notification {
	var data map[string]any
	if len(d.Data) > 0 {
		data = make(map[string]any, len(d.Data))
		for k, v := range d.Data {
			data[k] = v
		}
	}
	return &domain.Notification{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Type:      domain.NotificationType(d.Type),
		Title:     d.Title,
		Message:   d.Message,
		Data:      data,
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt,
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	user, ok := objectID(n.UserID)
	if !ok {
		return nil, domain.ValidationError("invalid recipient id")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := notificationDoc{
		UserID:    user,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      bson.M(n.Data),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *NotificationRepository) List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error) {
	user, ok := objectID(userID)
	if !ok {
		return []*domain.Notification{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"user_id": user}
	if unreadOnly {
		filter["is_read"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}

	out := make([]*domain.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	filter, ok := ownedNotification(id, userID)
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc notificationDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"is_read": true}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	user, ok := objectID(userID)
	if !ok {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateMany(ctx, bson.M{"user_id": user, "is_read": false}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	user, ok := objectID(userID)
	if !ok {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": user, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	filter, ok := ownedNotification(id, userID)
	if !ok {
		return domain.ErrNotificationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func ownedNotification(id, userID string) (bson.M, bool) {
	oid, ok := objectID(id)
	if !ok {
		return nil, false
	}
	user, ok := objectID(userID)
	if !ok {
		return nil, false
	}
	return bson.M{"_id": oid, "user_id": user}, true
}

// notificationTTL is how long a notification is kept before Mongo expires it.
const notificationTTL = 30 * 24 * time.Hour

// EnsureIndexes creates necessary indexes on the notifications collection.
func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(notificationTTL.Seconds())),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
