package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "urutibiz/internal/bookings/errors"
	"urutibiz/pkg/config"
	mongodb "urutibiz/pkg/db/mongo"
	"urutibiz/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.ID = ""
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return wrapMongoErr("create booking", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, wrapMongoErr("find booking", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, wrapMongoErr("find bookings", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, wrapMongoErr("decode bookings", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, wrapMongoErr("count bookings", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindExpirable(ctx context.Context, now time.Time, limit int, exclude []string) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.BookingStatusPending,
		"expires_at": bson.M{"$lte": now},
	}
	if len(exclude) > 0 {
		ids := make([]primitive.ObjectID, 0, len(exclude))
		for _, id := range exclude {
			if oid, err := primitive.ObjectIDFromHex(id); err == nil {
				ids = append(ids, oid)
			}
		}
		filter["_id"] = bson.M{"$nin": ids}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongoErr("find expirable bookings", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, wrapMongoErr("decode expirable bookings", err)
	}
	return bookings, nil
}

// Transition is a single FindOneAndUpdate whose filter carries the status and
// deadline guard, so concurrent writers on the same booking serialize in the server.
func (r *mongoBookingRepository) Transition(ctx context.Context, t Transition) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, t.ID)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": sourceStatuses(t.To)},
	}
	switch t.Guard {
	case GuardOpen:
		filter["expires_at"] = bson.M{"$gt": t.At}
	case GuardElapsed:
		filter["expires_at"] = bson.M{"$lte": t.At}
	}

	set := bson.M{
		"status":     t.To,
		"updated_at": t.At,
		"expires_at": nil,
	}
	set[stampField(t.To)] = t.At
	if t.PaymentReference != "" {
		set["payment_reference"] = t.PaymentReference
	}
	if t.CancellationReason != "" {
		set["cancellation_reason"] = t.CancellationReason
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&booking)
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapMongoErr("transition booking", err)
	}

	exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return nil, wrapMongoErr("check booking", err)
	}
	if exists == 0 {
		return nil, bookingserrors.ErrNotFound
	}
	return nil, bookingserrors.ErrStateConflict
}

func (r *mongoBookingRepository) Ping(ctx context.Context) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := r.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return wrapMongoErr("ping booking store", err)
	}
	return nil
}

func filterDocument(filter model.BookingFilter) bson.M {
	doc := bson.M{}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.RenterID != "" {
		doc["renter_id"] = filter.RenterID
	}
	return doc
}

func wrapMongoErr(op string, err error) error {
	if mongodb.IsUnavailable(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, bookingserrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
