package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// IRatingService defines the interface for user rating operations.
type IRatingService interface {
	CreateRating(ctx context.Context, raterCode, rateeCode utils.Code, score int, comment string, purchaseCode *utils.Code) (*models.Rating, error)
	ReassignRating(ctx context.Context, ratingCode, raterCode, newRateeCode utils.Code) (*models.Rating, error)
	RatingsForUser(ctx context.Context, userCode utils.Code) ([]models.Rating, error)
	AverageForUser(ctx context.Context, userCode utils.Code) (float64, int64, error)
}

const ratingsCollection = "ratings"

// ratingService implements IRatingService.
type ratingService struct {
	db      *mongo.Database
	userSvc IUserService
}

// NewRatingService creates a new RatingService.
func NewRatingService(database *mongo.Database, userSvc IUserService) IRatingService {
	return &ratingService{db: database, userSvc: userSvc}
}

// CreateRating records a score for another user. One active rating per
// rater/ratee pair, enforced by a partial unique index.
func (s *ratingService) CreateRating(ctx context.Context, raterCode, rateeCode utils.Code, score int, comment string, purchaseCode *utils.Code) (*models.Rating, error) {
	if raterCode == rateeCode {
		return nil, ErrSelfRating
	}
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", ErrValidation)
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > models.RatingCommentMaxLen {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, models.RatingCommentMaxLen)
	}

	if _, err := s.userSvc.FindByCode(ctx, rateeCode); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var rating *models.Rating
	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqRatings)
		if codeErr != nil {
			return codeErr
		}
		rating = &models.Rating{
			Base:         models.Base{Code: code},
			RaterCode:    raterCode,
			RateeCode:    rateeCode,
			PurchaseCode: purchaseCode,
			Score:        score,
			Comment:      comment,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := s.db.Collection(ratingsCollection).InsertOne(ctx, rating)
		return insertErr
	}
	// No retry here: the only unique index in play is the (rater, ratee)
	// pair, so a duplicate is a real conflict, not a code collision.
	if err := operation(); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: user %s already rated", ErrConflict, rateeCode)
		}
		return nil, fmt.Errorf("failed to insert rating: %w", err)
	}

	return rating, nil
}

// ReassignRating moves a rating to a different recipient. Rater only.
func (s *ratingService) ReassignRating(ctx context.Context, ratingCode, raterCode, newRateeCode utils.Code) (*models.Rating, error) {
	if raterCode == newRateeCode {
		return nil, ErrSelfRating
	}
	if _, err := s.userSvc.FindByCode(ctx, newRateeCode); err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":        ratingCode,
		"rater_code": raterCode,
		"active":     true,
	}
	update := bson.M{"$set": bson.M{"ratee_code": newRateeCode, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rating models.Rating
	err := s.db.Collection(ratingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&rating)
	if err == mongo.ErrNoDocuments {
		return nil, s.diagnoseReassignFailure(ctx, ratingCode, raterCode)
	}
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: user %s already rated", ErrConflict, newRateeCode)
		}
		return nil, fmt.Errorf("failed to reassign rating %s: %w", ratingCode, err)
	}
	return &rating, nil
}

func (s *ratingService) diagnoseReassignFailure(ctx context.Context, ratingCode, raterCode utils.Code) error {
	var rating models.Rating
	err := s.db.Collection(ratingsCollection).FindOne(ctx, bson.M{"_id": ratingCode}).Decode(&rating)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking rating %s: %w", ratingCode, err)
	}
	if !rating.Active {
		return ErrNotFound
	}
	if rating.RaterCode != raterCode {
		return ErrForbidden
	}
	return fmt.Errorf("%w: rating %s", ErrInvalidState, ratingCode)
}

// RatingsForUser lists active ratings received by the user, newest first.
func (s *ratingService) RatingsForUser(ctx context.Context, userCode utils.Code) ([]models.Rating, error) {
	filter := bson.M{"ratee_code": userCode, "active": true}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(ratingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing ratings for user %s: %w", userCode, err)
	}
	defer cursor.Close(ctx)

	ratings := []models.Rating{}
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, fmt.Errorf("error decoding ratings: %w", err)
	}
	return ratings, nil
}

// AverageForUser returns the mean score and count of active ratings received.
func (s *ratingService) AverageForUser(ctx context.Context, userCode utils.Code) (float64, int64, error) {
	return averageRating(ctx, s.db, userCode)
}

// averageRating aggregates active ratings for a user into (mean, count).
func averageRating(ctx context.Context, database *mongo.Database, userCode utils.Code) (float64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratee_code": userCode, "active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$score"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := database.Collection(ratingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("error aggregating ratings for user %s: %w", userCode, err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, 0, fmt.Errorf("error decoding rating aggregate: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, nil
	}
	return results[0].Avg, results[0].Count, nil
}
