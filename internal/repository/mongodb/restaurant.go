package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/pkg/database"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
)

const restaurantsCollection = "restaurants"

type restaurantDocument struct {
	ID          primitive.ObjectID  `bson:"_id"`
	Name        string              `bson:"name"`
	Location    string              `bson:"location"`
	PhoneNumber string              `bson:"phone_number,omitempty"`
	Email       string              `bson:"email,omitempty"`
	Website     string              `bson:"website,omitempty"`
	Hours       *domain.WeeklyHours `bson:"hours,omitempty"`
	Type        string              `bson:"type"`
	Reviews     []reviewDocument    `bson:"reviews"`
	CreatedBy   string              `bson:"created_by,omitempty"`
	CreatedAt   time.Time           `bson:"created_at"`
}

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"user_id"`
	Rating    float64            `bson:"rating"`
	Comment   string             `bson:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *restaurantDocument) toDomain() *domain.Restaurant {
	r := &domain.Restaurant{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Location:    d.Location,
		PhoneNumber: d.PhoneNumber,
		Email:       d.Email,
		Website:     d.Website,
		Hours:       d.Hours,
		Type:        d.Type,
		Reviews:     make([]domain.Review, 0, len(d.Reviews)),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
	}
	for _, rv := range d.Reviews {
		r.Reviews = append(r.Reviews, domain.Review{
			ID:        rv.ID.Hex(),
			UserID:    rv.UserID,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
		})
	}
	return r
}

// RestaurantRepository implements repository.RestaurantRepository on MongoDB.
// Reviews are embedded; one review per user is enforced by the update filter.
type RestaurantRepository struct {
	collection *mongo.Collection
}

// NewRestaurantRepository creates a new MongoDB-backed restaurant repository.
func NewRestaurantRepository(db *mongo.Database) *RestaurantRepository {
	return &RestaurantRepository{collection: db.Collection(restaurantsCollection)}
}

// EnsureIndexes creates the index used by type search.
func (r *RestaurantRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "type", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create restaurants index: %w", err)
	}
	return nil
}

// Create inserts a restaurant and sets its id.
func (r *RestaurantRepository) Create(ctx context.Context, rest *domain.Restaurant) (err error) {
	ctx, end := database.TraceCommand(ctx, restaurantsCollection, "InsertRestaurant")
	defer func() { end(err) }()

	doc := restaurantDocument{
		ID:          primitive.NewObjectID(),
		Name:        rest.Name,
		Location:    rest.Location,
		PhoneNumber: rest.PhoneNumber,
		Email:       rest.Email,
		Website:     rest.Website,
		Hours:       rest.Hours,
		Type:        rest.Type,
		Reviews:     []reviewDocument{},
		CreatedBy:   rest.CreatedBy,
		CreatedAt:   rest.CreatedAt,
	}
	if _, err = r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}

	rest.ID = doc.ID.Hex()
	rest.Reviews = []domain.Review{}
	return nil
}

// GetByID retrieves a restaurant.
func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (_ *domain.Restaurant, err error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.NotFound("restaurant", id)
	}

	ctx, end := database.TraceCommand(ctx, restaurantsCollection, "FindRestaurant")
	defer func() { end(ignoreNoDocuments(err)) }()

	var doc restaurantDocument
	if err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("restaurant", id)
		}
		return nil, fmt.Errorf("find restaurant: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByIDs loads restaurants with one $in query and returns them in the
// order of ids.
func (r *RestaurantRepository) GetByIDs(ctx context.Context, ids []string) (_ []domain.Restaurant, err error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []domain.Restaurant{}, nil
	}

	ctx, end := database.TraceCommand(ctx, restaurantsCollection, "FindRestaurants")
	defer func() { end(err) }()

	docs, err := r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Restaurant, len(docs))
	for i := range docs {
		byID[docs[i].ID.Hex()] = docs[i].toDomain()
	}
	out := make([]domain.Restaurant, 0, len(docs))
	for _, id := range ids {
		if rest, ok := byID[id]; ok {
			out = append(out, *rest)
			delete(byID, id)
		}
	}
	return out, nil
}

// SearchByType matches the type tag case-insensitively. The query is matched
// literally, never as a pattern.
func (r *RestaurantRepository) SearchByType(ctx context.Context, query string) (_ []domain.Restaurant, err error) {
	ctx, end := database.TraceCommand(ctx, restaurantsCollection, "SearchRestaurants")
	defer func() { end(err) }()

	docs, err := r.find(ctx, bson.M{
		"type": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Restaurant, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, nil
}

// AddReview pushes the review unless the user already has one on the
// restaurant. The duplicate check and the write are the same update.
func (r *RestaurantRepository) AddReview(ctx context.Context, restaurantID string, review *domain.Review) (_ bool, err error) {
	oid, ok := objectID(restaurantID)
	if !ok {
		return false, apperrors.NotFound("restaurant", restaurantID)
	}

	ctx, end := database.TraceCommand(ctx, restaurantsCollection, "AddReview")
	defer func() { end(ignoreNoDocuments(err)) }()

	doc := reviewDocument{
		ID:        primitive.NewObjectID(),
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews.user_id": bson.M{"$ne": review.UserID}},
		bson.M{"$push": bson.M{"reviews": doc}},
	)
	if err != nil {
		return false, fmt.Errorf("add review: %w", err)
	}
	if res.MatchedCount > 0 {
		review.ID = doc.ID.Hex()
		return true, nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("add review: count restaurant: %w", err)
	}
	if n == 0 {
		return false, apperrors.NotFound("restaurant", restaurantID)
	}
	return false, nil
}

// DeleteReviewByAuthor pulls the review when authorID wrote it.
func (r *RestaurantRepository) DeleteReviewByAuthor(ctx context.Context, restaurantID, reviewID, authorID string) (_ bool, err error) {
	oid, ok := objectID(restaurantID)
	if !ok {
		return false, nil
	}
	rid, ok := objectID(reviewID)
	if !ok {
		return false, nil
	}

	ctx, end := database.TraceCommand(ctx, restaurantsCollection, "DeleteReview")
	defer func() { end(err) }()

	match := bson.M{"_id": rid, "user_id": authorID}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews": bson.M{"$elemMatch": match}},
		bson.M{"$pull": bson.M{"reviews": match}},
	)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *RestaurantRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]restaurantDocument, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []restaurantDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode restaurants: %w", err)
	}
	return docs, nil
}
