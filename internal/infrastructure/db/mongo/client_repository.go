package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

const collectionClients = "clients"

type ClientRepository struct {
	coll *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{coll: db.Collection(collectionClients)}
}

type clientDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID          primitive.ObjectID `bson:"added_by"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	CompanyName      string             `bson:"company_name"`
	Status           string             `bson:"status"`
	Region           *regionDoc         `bson:"region,omitempty"`
	Notes            string             `bson:"notes,omitempty"`
	PaymentSchedules []scheduleDoc      `bson:"payment_schedules"`
	Version          int64              `bson:"version"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

type scheduleDoc struct {
	ID             string               `bson:"id"`
	Description    string               `bson:"description"`
	Amount         primitive.Decimal128 `bson:"amount"`
	Currency       string               `bson:"currency"`
	DueDate        time.Time            `bson:"due_date"`
	Frequency      string               `bson:"frequency"`
	Status         string               `bson:"status"`
	PaidAt         *time.Time           `bson:"paid_at,omitempty"`
	LastNotifiedAt *time.Time           `bson:"last_notified_at,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
}

type clientStatsDoc struct {
	ID               primitive.ObjectID   `bson:"_id"`
	Name             string               `bson:"name"`
	Email            string               `bson:"email"`
	CompanyName      string               `bson:"company_name"`
	TotalSchedules   int                  `bson:"total_schedules"`
	PendingSchedules int                  `bson:"pending_schedules"`
	TotalAmount      primitive.Decimal128 `bson:"total_amount"`
}

func decimalToBSON(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("amount %s: %w", d.String(), err)
	}
	return v, nil
}

func decimalFromBSON(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toScheduleDoc(s domain.PaymentSchedule) (scheduleDoc, error) {
	amount, err := decimalToBSON(s.Amount)
	if err != nil {
		return scheduleDoc{}, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	return scheduleDoc{
		ID:             s.ID,
		Description:    s.Description,
		Amount:         amount,
		Currency:       s.Currency,
		DueDate:        s.DueDate,
		Frequency:      string(s.Frequency),
		Status:         string(s.Status),
		PaidAt:         s.PaidAt,
		LastNotifiedAt: s.LastNotifiedAt,
		CreatedAt:      s.CreatedAt,
	}, nil
}

func (d scheduleDoc) toDomain() domain.PaymentSchedule {
	return domain.PaymentSchedule{
		ID:             d.ID,
		Description:    d.Description,
		Amount:         decimalFromBSON(d.Amount),
		Currency:       d.Currency,
		DueDate:        d.DueDate.UTC(),
		Frequency:      domain.Frequency(d.Frequency),
		Status:         domain.ScheduleStatus(d.Status),
		PaidAt:         d.PaidAt,
		LastNotifiedAt: d.LastNotifiedAt,
		CreatedAt:      d.CreatedAt,
	}
}

func toScheduleDocs(in []domain.PaymentSchedule) ([]scheduleDoc, error) {
	out := make([]scheduleDoc, 0, len(in))
	for _, s := range in {
		doc, err := toScheduleDoc(s)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func toRegionDoc(r *domain.Region) *regionDoc {
	if r == nil {
		return nil
	}
	doc := regionDoc(*r)
	return &doc
}

func (d clientDoc) toDomain() *domain.Client {
	schedules := make([]domain.PaymentSchedule, 0, len(d.PaymentSchedules))
	for _, s := range d.PaymentSchedules {
		schedules = append(schedules, s.toDomain())
	}
	var region *domain.Region
	if d.Region != nil {
		r := domain.Region(*d.Region)
		region = &r
	}
	return &domain.Client{
		ID:               d.ID.Hex(),
		OwnerID:          d.OwnerID.Hex(),
		Name:             d.Name,
		Email:            d.Email,
		CompanyName:      d.CompanyName,
		Status:           domain.ClientStatus(d.Status),
		Region:           region,
		Notes:            d.Notes,
		PaymentSchedules: schedules,
		Version:          d.Version,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	owner, ok := objectID(c.OwnerID)
	if !ok {
		return nil, domain.ValidationError("invalid owner id")
	}
	schedules, err := toScheduleDocs(c.PaymentSchedules)
	if err != nil {
		return nil, fmt.Errorf("encode client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := clientDoc{
		OwnerID:          owner,
		Name:             c.Name,
		Email:            c.Email,
		CompanyName:      c.CompanyName,
		Status:           string(c.Status),
		Region:           toRegionDoc(c.Region),
		Notes:            c.Notes,
		PaymentSchedules: schedules,
		Version:          c.Version,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateClient
		}
		return nil, fmt.Errorf("insert client: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *ClientRepository) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ClientRepository) FindOwned(ctx context.Context, ownerID, id string) (*domain.Client, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	owner, ok := objectID(ownerID)
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "added_by": owner})
}

func (r *ClientRepository) FindByOwnerAndEmail(ctx context.Context, ownerID, email string) (*domain.Client, error) {
	owner, ok := objectID(ownerID)
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return r.findOne(ctx, bson.M{"added_by": owner, "email": email})
}

func (r *ClientRepository) findOne(ctx context.Context, filter bson.M) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc clientDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ClientRepository) List(ctx context.Context, filter ports.ListClientsFilter) ([]*domain.Client, error) {
	owner, ok := objectID(filter.OwnerID)
	if !ok {
		return []*domain.Client{}, nil
	}

	query := bson.M{"added_by": owner}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
			bson.M{"company_name": pattern},
		}
	}

	return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *ClientRepository) SearchByEmail(ctx context.Context, ownerID, fragment string, limit int) ([]*domain.Client, error) {
	owner, ok := objectID(ownerID)
	if !ok {
		return []*domain.Client{}, nil
	}
	query := bson.M{"added_by": owner, "email": containsPattern(fragment)}
	return r.find(ctx, query, options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "email", Value: 1}}))
}

func (r *ClientRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find clients: %w", err)
	}
	defer cur.Close(ctx)

	var docs []clientDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}

	out := make([]*domain.Client, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *domain.Client) error {
	oid, ok := objectID(c.ID)
	if !ok {
		return domain.ErrClientNotFound
	}
	schedules, err := toScheduleDocs(c.PaymentSchedules)
	if err != nil {
		return fmt.Errorf("encode client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"name":              c.Name,
		"company_name":      c.CompanyName,
		"status":            string(c.Status),
		"notes":             c.Notes,
		"payment_schedules": schedules,
		"updated_at":        c.UpdatedAt,
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if c.Region != nil {
		set["region"] = toRegionDoc(c.Region)
	} else {
		update["$unset"] = bson.M{"region": ""}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid, "version": c.Version}, update)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("count client: %w", err)
		}
		if n == 0 {
			return domain.ErrClientNotFound
		}
		return domain.ErrVersionConflict
	}

	c.Version++
	return nil
}

func (r *ClientRepository) AppendSchedule(ctx context.Context, clientID string, s domain.PaymentSchedule) error {
	oid, ok := objectID(clientID)
	if !ok {
		return domain.ErrClientNotFound
	}
	doc, err := toScheduleDoc(s)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$push": bson.M{"payment_schedules": doc},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
		"$inc":  bson.M{"version": 1},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid, "status": string(domain.ClientActive)}, update)
	if err != nil {
		return fmt.Errorf("append schedule: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("count client: %w", err)
		}
		if n == 0 {
			return domain.ErrClientNotFound
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, ownerID, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrClientNotFound
	}
	owner, ok := objectID(ownerID)
	if !ok {
		return domain.ErrClientNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "added_by": owner})
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

// MarkOverdue runs as a single multi-document update with array filters so
// concurrent edits to unrelated schedules are not overwritten.
func (r *ClientRepository) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"payment_schedules": bson.M{"$elemMatch": bson.M{
			"status":   string(domain.SchedulePending),
			"due_date": bson.M{"$lt": before},
		}},
	}
	update := bson.M{
		"$set": bson.M{"payment_schedules.$[s].status": string(domain.ScheduleOverdue), "updated_at": before},
		"$inc": bson.M{"version": 1},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"s.status":   string(domain.SchedulePending),
			"s.due_date": bson.M{"$lt": before},
		}},
	})

	res, err := r.coll.UpdateMany(ctx, filter, update, opts)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *ClientRepository) Stats(ctx context.Context, ownerID string) ([]domain.ClientStats, error) {
	owner, ok := objectID(ownerID)
	if !ok {
		return []domain.ClientStats{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"added_by": owner, "status": string(domain.ClientActive)}}},
		{{Key: "$project", Value: bson.M{
			"name":            1,
			"email":           1,
			"company_name":    1,
			"total_schedules": bson.M{"$size": bson.M{"$ifNull": bson.A{"$payment_schedules", bson.A{}}}},
			"pending_schedules": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$payment_schedules", bson.A{}}},
				"as":    "s",
				"cond":  bson.M{"$eq": bson.A{"$$s.status", string(domain.SchedulePending)}},
			}}},
			"total_amount": bson.M{"$toDecimal": bson.M{"$sum": "$payment_schedules.amount"}},
		}}},
		{{Key: "$sort", Value: bson.M{"name": 1}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("client stats: %w", err)
	}
	defer cur.Close(ctx)

	var docs []clientStatsDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode client stats: %w", err)
	}

	out := make([]domain.ClientStats, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ClientStats{
			ClientID:         d.ID.Hex(),
			Name:             d.Name,
			Email:            d.Email,
			CompanyName:      d.CompanyName,
			TotalSchedules:   d.TotalSchedules,
			PendingSchedules: d.PendingSchedules,
			TotalAmount:      decimalFromBSON(d.TotalAmount),
		})
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the clients collection.
func (r *ClientRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "added_by", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "payment_schedules.status", Value: 1}, {Key: "payment_schedules.due_date", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
