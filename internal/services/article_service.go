package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/config"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// ArticleInput carries the client-settable fields of an article.
type ArticleInput struct {
	Name        string
	Description string
	Price       float64
	Condition   models.ArticleCondition
	Category    string
	Location    string
	Tags        []string
	Images      []models.ArticleImage
}

// ArticleFilter narrows a public article search. Zero values mean "any".
type ArticleFilter struct {
	Category  string
	Query     string
	PriceMin  *float64
	PriceMax  *float64
	Condition models.ArticleCondition
	Location  string
	Limit     int
	Offset    int
}

// IArticleService defines the interface for article-related operations.
type IArticleService interface {
	CreateArticle(ctx context.Context, ownerCode utils.Code, input ArticleInput) (*models.Article, error)
	UpdateArticle(ctx context.Context, articleCode, ownerCode utils.Code, input ArticleInput) (*models.Article, error)
	PublishArticle(ctx context.Context, articleCode, ownerCode utils.Code) error
	RemoveArticle(ctx context.Context, articleCode, actorCode utils.Code, byModerator bool) error
	GetArticle(ctx context.Context, articleCode utils.Code) (*models.Article, error)
	FindArticleByCode(ctx context.Context, articleCode utils.Code) (*models.Article, error)
	SearchArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error)
	ArticlesByOwner(ctx context.Context, ownerCode utils.Code) ([]models.Article, error)
	RemoveArticlesByOwner(ctx context.Context, ownerCode utils.Code) error
	AddImage(ctx context.Context, articleCode, ownerCode utils.Code, image models.ArticleImage) error

	// Transitions driven by the purchase lifecycle, never by clients.
	ReserveArticle(ctx context.Context, articleCode utils.Code) error
	SellArticle(ctx context.Context, articleCode utils.Code) error
	ReleaseArticle(ctx context.Context, articleCode utils.Code) error
}

const articlesCollection = "articles"

// articleService implements IArticleService.
type articleService struct {
	db       *mongo.Database
	cfg      *config.Config
	taxonomy ITaxonomyService
}

// NewArticleService creates a new ArticleService.
func NewArticleService(database *mongo.Database, cfg *config.Config, taxonomy ITaxonomyService) IArticleService {
	return &articleService{db: database, cfg: cfg, taxonomy: taxonomy}
}

// validateInput checks the field bounds and filters the tag list down to
// slugs that actually exist. Unknown tags are dropped with a warning, not
// rejected.
func (s *articleService) validateInput(ctx context.Context, ownerCode utils.Code, input *ArticleInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	if input.Name == "" || len(input.Name) > models.ArticleNameMaxLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, models.ArticleNameMaxLen)
	}
	if input.Description == "" || len(input.Description) > models.ArticleDescriptionMaxLen {
		return fmt.Errorf("%w: description must be 1-%d characters", ErrValidation, models.ArticleDescriptionMaxLen)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	}
	if !models.ValidCondition(input.Condition) {
		return fmt.Errorf("%w: unknown condition %q", ErrValidation, input.Condition)
	}
	if input.Category != "" {
		known, err := s.taxonomy.CategoryExists(ctx, input.Category)
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("%w: unknown category %q", ErrValidation, input.Category)
		}
	}
	// Images attach after creation via the upload flow, so only the upper
	// bound is checked here.
	if len(input.Images) > models.ArticleMaxImages {
		return fmt.Errorf("%w: at most %d images allowed", ErrValidation, models.ArticleMaxImages)
	}
	if len(input.Tags) > models.ArticleMaxTags {
		return fmt.Errorf("%w: at most %d tags allowed", ErrValidation, models.ArticleMaxTags)
	}

	if len(input.Tags) > 0 {
		kept, err := s.taxonomy.FilterTags(ctx, input.Tags)
		if err != nil {
			return err
		}
		if len(kept) < len(input.Tags) {
			log.Printf("article input from user %s carried %d unknown tags, dropped", ownerCode, len(input.Tags)-len(kept))
		}
		input.Tags = kept
	} else {
		input.Tags = []string{}
	}

	return nil
}

// CreateArticle creates a new article document in the draft state.
func (s *articleService) CreateArticle(ctx context.Context, ownerCode utils.Code, input ArticleInput) (*models.Article, error) {
	if err := s.validateInput(ctx, ownerCode, &input); err != nil {
		return nil, err
	}

	collection := s.db.Collection(articlesCollection)
	now := time.Now().UTC()

	var article *models.Article
	operation := func() error {
		code, err := db.NextCode(ctx, s.db, db.SeqArticles)
		if err != nil {
			return err
		}
		article = &models.Article{
			Base:        models.Base{Code: code},
			OwnerCode:   ownerCode,
			Name:        input.Name,
			Description: input.Description,
			Price:       input.Price,
			Condition:   input.Condition,
			Category:    input.Category,
			Location:    input.Location,
			State:       models.ArticleDraft,
			Active:      true,
			Images:      input.Images,
			Tags:        input.Tags,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		_, insertErr := collection.InsertOne(ctx, article)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert article for user %s: %w", ownerCode, err)
	}

	return article, nil
}

// FindArticleByCode finds an active article by its code without touching
// the view counter and without an ownership check.
func (s *articleService) FindArticleByCode(ctx context.Context, articleCode utils.Code) (*models.Article, error) {
	var article models.Article
	filter := bson.M{"_id": articleCode, "active": true}
	err := s.db.Collection(articlesCollection).FindOne(ctx, filter).Decode(&article)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding article %s: %w", articleCode, err)
	}
	return &article, nil
}

// GetArticle returns the public detail view of an article and increments
// its view counter in the same write. Open to unauthenticated callers.
func (s *articleService) GetArticle(ctx context.Context, articleCode utils.Code) (*models.Article, error) {
	filter := bson.M{"_id": articleCode, "active": true}
	update := bson.M{"$inc": bson.M{"views": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var article models.Article
	err := s.db.Collection(articlesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&article)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading article %s: %w", articleCode, err)
	}
	return &article, nil
}

// UpdateArticle replaces the client-settable fields of an article owned by
// the given user. State is not client-settable; the lifecycle methods own it.
func (s *articleService) UpdateArticle(ctx context.Context, articleCode, ownerCode utils.Code, input ArticleInput) (*models.Article, error) {
	if err := s.validateInput(ctx, ownerCode, &input); err != nil {
		return nil, err
	}

	collection := s.db.Collection(articlesCollection)
	filter := bson.M{
		"_id":        articleCode,
		"owner_code": ownerCode,
		"active":     true,
	}
	update := bson.M{"$set": bson.M{
		"name":        input.Name,
		"description": input.Description,
		"price":       input.Price,
		"condition":   input.Condition,
		"category":    input.Category,
		"location":    input.Location,
		"tags":        input.Tags,
		"images":      input.Images,
		"updated_at":  time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Article
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if diag := s.diagnoseOwnerFailure(ctx, articleCode, ownerCode); diag != nil {
				return nil, diag
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update article %s: %w", articleCode, err)
	}
	return &updated, nil
}

// PublishArticle moves a draft article to published. Owner only, draft only.
func (s *articleService) PublishArticle(ctx context.Context, articleCode, ownerCode utils.Code) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":        articleCode,
		"owner_code": ownerCode,
		"active":     true,
		"state":      models.ArticleDraft,
	}
	update := bson.M{"$set": bson.M{
		"state":        models.ArticlePublished,
		"published_at": now,
		"updated_at":   now,
	}}

	result, err := s.db.Collection(articlesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error publishing article %s: %w", articleCode, err)
	}
	if result.MatchedCount == 0 {
		if diag := s.diagnoseOwnerFailure(ctx, articleCode, ownerCode); diag != nil {
			return diag
		}
		return fmt.Errorf("%w: article %s is not a draft", ErrInvalidState, articleCode)
	}
	return nil
}

// RemoveArticle soft-deletes an article: any non-terminal state moves to
// removed and the active flag clears. Owners remove their own articles;
// moderators remove any on an upheld report.
func (s *articleService) RemoveArticle(ctx context.Context, articleCode, actorCode utils.Code, byModerator bool) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":    articleCode,
		"active": true,
		"state":  bson.M{"$nin": []models.ArticleState{models.ArticleSold, models.ArticleRemoved}},
	}
	if !byModerator {
		filter["owner_code"] = actorCode
	}
	update := bson.M{"$set": bson.M{
		"state":      models.ArticleRemoved,
		"active":     false,
		"removed_at": now,
		"updated_at": now,
	}}

	result, err := s.db.Collection(articlesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error removing article %s: %w", articleCode, err)
	}
	if result.MatchedCount == 0 {
		if !byModerator {
			if diag := s.diagnoseOwnerFailure(ctx, articleCode, actorCode); diag != nil {
				return diag
			}
		}
		return fmt.Errorf("%w: article %s cannot be removed", ErrInvalidState, articleCode)
	}
	return nil
}

// diagnoseOwnerFailure explains why a conditional owner-scoped update
// matched nothing. Returns nil when the article exists, belongs to the
// user and is active, meaning a state precondition was the blocker.
func (s *articleService) diagnoseOwnerFailure(ctx context.Context, articleCode, ownerCode utils.Code) error {
	var article models.Article
	err := s.db.Collection(articlesCollection).FindOne(ctx, bson.M{"_id": articleCode}).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking article %s: %w", articleCode, err)
	}
	if article.OwnerCode != ownerCode {
		return ErrForbidden
	}
	if !article.Active {
		return ErrNotFound
	}
	return nil
}

// transition performs one state-machine step as a single conditional
// update: the filter pins the expected current state, so two concurrent
// callers can never both succeed.
func (s *articleService) transition(ctx context.Context, articleCode utils.Code, from, to models.ArticleState, extra bson.M) error {
	now := time.Now().UTC()
	set := bson.M{"state": to, "updated_at": now}
	for k, v := range extra {
		set[k] = v
	}
	filter := bson.M{"_id": articleCode, "active": true, "state": from}

	result, err := s.db.Collection(articlesCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("db error moving article %s to %s: %w", articleCode, to, err)
	}
	if result.MatchedCount == 0 {
		var article models.Article
		checkErr := s.db.Collection(articlesCollection).FindOne(ctx, bson.M{"_id": articleCode}).Decode(&article)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if checkErr != nil {
			return fmt.Errorf("error checking article %s: %w", articleCode, checkErr)
		}
		if from == models.ArticlePublished {
			return ErrNotAvailable
		}
		return fmt.Errorf("%w: article %s is %s, expected %s", ErrInvalidState, articleCode, article.State, from)
	}
	return nil
}

// ReserveArticle moves published to reserved on purchase creation.
func (s *articleService) ReserveArticle(ctx context.Context, articleCode utils.Code) error {
	return s.transition(ctx, articleCode, models.ArticlePublished, models.ArticleReserved, nil)
}

// SellArticle moves reserved to sold on purchase completion.
func (s *articleService) SellArticle(ctx context.Context, articleCode utils.Code) error {
	return s.transition(ctx, articleCode, models.ArticleReserved, models.ArticleSold, bson.M{"sold_at": time.Now().UTC()})
}

// ReleaseArticle moves reserved back to published on purchase cancellation.
func (s *articleService) ReleaseArticle(ctx context.Context, articleCode utils.Code) error {
	return s.transition(ctx, articleCode, models.ArticleReserved, models.ArticlePublished, nil)
}

// SearchArticles lists published articles matching the filter.
func (s *articleService) SearchArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	query := bson.M{
		"active": true,
		"state":  models.ArticlePublished,
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Condition != "" {
		query["condition"] = filter.Condition
	}
	if filter.Location != "" {
		query["location"] = bson.M{"$regex": filter.Location, "$options": "i"}
	}
	if filter.Query != "" {
		query["$or"] = []bson.M{
			{"name": bson.M{"$regex": filter.Query, "$options": "i"}},
			{"description": bson.M{"$regex": filter.Query, "$options": "i"}},
		}
	}
	if filter.PriceMin != nil || filter.PriceMax != nil {
		price := bson.M{}
		if filter.PriceMin != nil {
			price["$gte"] = *filter.PriceMin
		}
		if filter.PriceMax != nil {
			price["$lte"] = *filter.PriceMax
		}
		query["price"] = price
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(articlesCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("error searching articles: %w", err)
	}
	defer cursor.Close(ctx)

	articles := []models.Article{}
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("error decoding articles: %w", err)
	}
	return articles, nil
}

// ArticlesByOwner lists a user's own articles in every state, newest first.
func (s *articleService) ArticlesByOwner(ctx context.Context, ownerCode utils.Code) ([]models.Article, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(articlesCollection).Find(ctx, bson.M{"owner_code": ownerCode}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing articles for user %s: %w", ownerCode, err)
	}
	defer cursor.Close(ctx)

	articles := []models.Article{}
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("error decoding articles: %w", err)
	}
	return articles, nil
}

// RemoveArticlesByOwner soft-deletes every non-terminal article of a user.
// Called when the account is deactivated.
func (s *articleService) RemoveArticlesByOwner(ctx context.Context, ownerCode utils.Code) error {
	now := time.Now().UTC()
	filter := bson.M{
		"owner_code": ownerCode,
		"active":     true,
		"state":      bson.M{"$nin": []models.ArticleState{models.ArticleSold, models.ArticleRemoved}},
	}
	update := bson.M{"$set": bson.M{
		"state":      models.ArticleRemoved,
		"active":     false,
		"removed_at": now,
		"updated_at": now,
	}}
	result, err := s.db.Collection(articlesCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error removing articles for user %s: %w", ownerCode, err)
	}
	if result.ModifiedCount > 0 {
		log.Printf("removed %d articles of deactivated user %s", result.ModifiedCount, ownerCode)
	}
	return nil
}

// AddImage appends one stored image to an article, capped at the maximum.
func (s *articleService) AddImage(ctx context.Context, articleCode, ownerCode utils.Code, image models.ArticleImage) error {
	filter := bson.M{
		"_id":        articleCode,
		"owner_code": ownerCode,
		"active":     true,
		fmt.Sprintf("images.%d", models.ArticleMaxImages-1): bson.M{"$exists": false},
	}
	update := bson.M{
		"$push": bson.M{"images": image},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(articlesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error adding image to article %s: %w", articleCode, err)
	}
	if result.MatchedCount == 0 {
		if diag := s.diagnoseOwnerFailure(ctx, articleCode, ownerCode); diag != nil {
			return diag
		}
		return fmt.Errorf("%w: article %s already has %d images", ErrValidation, articleCode, models.ArticleMaxImages)
	}
	return nil
}
