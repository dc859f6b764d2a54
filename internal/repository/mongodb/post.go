package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/pkg/database"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
	"github.com/utafrali/bitebook/pkg/pagination"
)

const postsCollection = "posts"

type postDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	UserID       string             `bson:"user_id"`
	Image        string             `bson:"image"`
	Description  string             `bson:"description,omitempty"`
	RestaurantID string             `bson:"restaurant_id"`
	Likes        []string           `bson:"likes"`
	Comments     []commentDocument  `bson:"comments"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

type commentDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"user_id"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *postDocument) toDomain() *domain.Post {
	p := &domain.Post{
		ID:           d.ID.Hex(),
		UserID:       d.UserID,
		Image:        d.Image,
		Description:  d.Description,
		RestaurantID: d.RestaurantID,
		Likes:        d.Likes,
		Comments:     make([]domain.Comment, 0, len(d.Comments)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	for _, c := range d.Comments {
		p.Comments = append(p.Comments, domain.Comment{
			ID:        c.ID.Hex(),
			UserID:    c.UserID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	return p
}

// PostRepository implements repository.PostRepository on MongoDB. Likes and
// comments are embedded and only changed through guarded single-document
// updates.
type PostRepository struct {
	collection *mongo.Collection
}

// NewPostRepository creates a new MongoDB-backed post repository.
func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{collection: db.Collection(postsCollection)}
}

// EnsureIndexes creates the indexes the feed and profile queries rely on.
func (r *PostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	return nil
}

// Create inserts a post and sets its id.
func (r *PostRepository) Create(ctx context.Context, p *domain.Post) (err error) {
	ctx, end := database.TraceCommand(ctx, postsCollection, "InsertPost")
	defer func() { end(err) }()

	doc := postDocument{
		ID:           primitive.NewObjectID(),
		UserID:       p.UserID,
		Image:        p.Image,
		Description:  p.Description,
		RestaurantID: p.RestaurantID,
		Likes:        []string{},
		Comments:     []commentDocument{},
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if _, err = r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	p.ID = doc.ID.Hex()
	p.Likes = []string{}
	p.Comments = []domain.Comment{}
	return nil
}

// GetByID retrieves a post.
func (r *PostRepository) GetByID(ctx context.Context, id string) (_ *domain.Post, err error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.NotFound("post", id)
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, "FindPost")
	defer func() { end(ignoreNoDocuments(err)) }()

	var doc postDocument
	if err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("post", id)
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateByAuthor sets the given fields when the post belongs to authorID.
func (r *PostRepository) UpdateByAuthor(ctx context.Context, id, authorID string, update domain.PostUpdate) (_ *domain.Post, err error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.NotFoundOrForbidden("post", id)
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, "UpdatePost")
	defer func() { end(ignoreNoDocuments(err)) }()

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Image != nil {
		set["image"] = *update.Image
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.RestaurantID != nil {
		set["restaurant_id"] = *update.RestaurantID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc postDocument
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": authorID},
		bson.M{"$set": set},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFoundOrForbidden("post", id)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return doc.toDomain(), nil
}

// DeleteByAuthor deletes the post when it belongs to authorID.
func (r *PostRepository) DeleteByAuthor(ctx context.Context, id, authorID string) (_ bool, err error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, "DeletePost")
	defer func() { end(err) }()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "user_id": authorID})
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteByUser removes all posts authored by userID.
func (r *PostRepository) DeleteByUser(ctx context.Context, userID string) (_ int64, err error) {
	ctx, end := database.TraceCommand(ctx, postsCollection, "DeleteUserPosts")
	defer func() { end(err) }()

	res, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete user posts: %w", err)
	}
	return res.DeletedCount, nil
}

// ListByUsers returns posts authored by any of userIDs, newest first.
func (r *PostRepository) ListByUsers(ctx context.Context, userIDs []string, params pagination.Params) (_ []domain.Post, _ int, err error) {
	if len(userIDs) == 0 {
		return []domain.Post{}, 0, nil
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, "ListPosts")
	defer func() { end(err) }()

	filter := bson.M{"user_id": bson.M{"$in": userIDs}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(params.Skip()).
		SetLimit(params.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find posts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []postDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	posts := make([]domain.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, *docs[i].toDomain())
	}
	return posts, int(total), nil
}

// AddLike adds userID to the post's likes unless already present.
func (r *PostRepository) AddLike(ctx context.Context, id, userID string) (int, bool, error) {
	return r.changeLike(ctx, id, "LikePost",
		bson.M{"likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
}

// RemoveLike removes userID from the post's likes when present.
func (r *PostRepository) RemoveLike(ctx context.Context, id, userID string) (int, bool, error) {
	return r.changeLike(ctx, id, "UnlikePost",
		bson.M{"likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
}

// changeLike applies update when guard holds. When the guard fails it tells
// a missing post apart from a like that was already in the requested state.
func (r *PostRepository) changeLike(ctx context.Context, id, op string, guard, update bson.M) (_ int, _ bool, err error) {
	oid, ok := objectID(id)
	if !ok {
		return 0, false, apperrors.NotFound("post", id)
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, op)
	defer func() { end(ignoreNoDocuments(err)) }()

	filter := bson.M{"_id": oid}
	for k, v := range guard {
		filter[k] = v
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	var doc struct {
		Likes []string `bson:"likes"`
	}
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	switch {
	case err == nil:
		return len(doc.Likes), true, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	err = r.collection.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"likes": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, apperrors.NotFound("post", id)
		}
		return 0, false, fmt.Errorf("%s: find post: %w", op, err)
	}
	return len(doc.Likes), false, nil
}

// AddComment appends c to the post's comments and sets its id.
func (r *PostRepository) AddComment(ctx context.Context, id string, c *domain.Comment) (err error) {
	oid, ok := objectID(id)
	if !ok {
		return apperrors.NotFound("post", id)
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, "AddComment")
	defer func() { end(err) }()

	doc := commentDocument{
		ID:        primitive.NewObjectID(),
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"comments": doc}},
	)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("post", id)
	}

	c.ID = doc.ID.Hex()
	return nil
}

// DeleteComment pulls the comment with commentID from the post.
func (r *PostRepository) DeleteComment(ctx context.Context, id, commentID string) (err error) {
	oid, ok := objectID(id)
	if !ok {
		return apperrors.NotFound("post", id)
	}
	cid, ok := objectID(commentID)
	if !ok {
		return apperrors.NotFound("comment", commentID)
	}

	ctx, end := database.TraceCommand(ctx, postsCollection, "DeleteComment")
	defer func() { end(err) }()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "comments._id": cid},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": cid}}},
	)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("comment", commentID)
	}
	return nil
}

// objectID parses a hex id. Ids that are not ObjectIDs cannot exist.
func objectID(hex string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(hex)
	return oid, err == nil
}

// ignoreNoDocuments keeps expected misses off the error status of spans.
func ignoreNoDocuments(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
