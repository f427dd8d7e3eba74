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

const collectionUsers = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers)}
}

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Email        string               `bson:"email"`
	PasswordHash string               `bson:"password_hash,omitempty"`
	GoogleID     string               `bson:"google_id,omitempty"`
	Name         string               `bson:"name"`
	CompanyName  string               `bson:"company_name"`
	Role         string               `bson:"role"`
	Region       regionDoc            `bson:"region"`
	IsActive     bool                 `bson:"is_active"`
	LastLogin    *time.Time           `bson:"last_login,omitempty"`
	Clients      []primitive.ObjectID `bson:"clients"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	clients := make([]primitive.ObjectID, 0, len(u.Clients))
	for _, id := range u.Clients {
		if oid, ok := objectID(id); ok {
			clients = append(clients, oid)
		}
	}
	return userDoc{
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		GoogleID:     u.GoogleID,
		Name:         u.Name,
		CompanyName:  u.CompanyName,
		Role:         u.Role,
		Region:       regionDoc(u.Region),
		IsActive:     u.IsActive,
		LastLogin:    u.LastLogin,
		Clients:      clients,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *domain.User {
	clients := make([]string, 0, len(d.Clients))
	for _, oid := range d.Clients {
		clients = append(clients, oid.Hex())
	}
	return &domain.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		GoogleID:     d.GoogleID,
		Name:         d.Name,
		CompanyName:  d.CompanyName,
		Role:         d.Role,
		Region:       domain.Region(d.Region),
		IsActive:     d.IsActive,
		LastLogin:    d.LastLogin,
		Clients:      clients,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toUserDoc(user)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	if googleID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"google_id": googleID})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) SearchByEmail(ctx context.Context, fragment, excludeID string, limit int) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"email": containsPattern(fragment), "is_active": true}
	if oid, ok := objectID(excludeID); ok {
		filter["_id"] = bson.M{"$ne": oid}
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "email", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0, "clients": 0})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *UserRepository) LinkGoogleID(ctx context.Context, id, googleID string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"google_id": googleID, "updated_at": time.Now().UTC()}})
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"last_login": at}})
}

func (r *UserRepository) AddClient(ctx context.Context, userID, clientID string) error {
	cid, ok := objectID(clientID)
	if !ok {
		return domain.ErrClientNotFound
	}
	return r.updateByID(ctx, userID, bson.M{"$addToSet": bson.M{"clients": cid}})
}

func (r *UserRepository) RemoveClient(ctx context.Context, userID, clientID string) error {
	cid, ok := objectID(clientID)
	if !ok {
		return domain.ErrClientNotFound
	}
	return r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"clients": cid}})
}

func (r *UserRepository) UpdateRegion(ctx context.Context, id string, region domain.Region) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"region": regionDoc(region), "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update region: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
