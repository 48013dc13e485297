package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
)

// ITaxonomyService defines the interface for category and tag lookups.
type ITaxonomyService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	CategoryExists(ctx context.Context, slug string) (bool, error)
	// FilterTags returns only the slugs that exist, preserving input order.
	FilterTags(ctx context.Context, slugs []string) ([]string, error)
	Seed(ctx context.Context) error
}

const (
	categoriesCollection = "categories"
	tagsCollection       = "tags"
)

// taxonomyService implements ITaxonomyService.
type taxonomyService struct {
	db *mongo.Database
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(db *mongo.Database) ITaxonomyService {
	return &taxonomyService{db: db}
}

// ListCategories returns all categories sorted by name.
func (s *taxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

// ListTags returns all tags sorted by name.
func (s *taxonomyService) ListTags(ctx context.Context) ([]models.Tag, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(tagsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer cursor.Close(ctx)

	tags := []models.Tag{}
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

// CategoryExists reports whether a category slug is known.
func (s *taxonomyService) CategoryExists(ctx context.Context, slug string) (bool, error) {
	count, err := s.db.Collection(categoriesCollection).CountDocuments(ctx, bson.M{"_id": slug})
	if err != nil {
		return false, fmt.Errorf("failed to check category %q: %w", slug, err)
	}
	return count > 0, nil
}

// FilterTags keeps only the slugs present in the tags collection,
// preserving the input order and dropping duplicates.
func (s *taxonomyService) FilterTags(ctx context.Context, slugs []string) ([]string, error) {
	if len(slugs) == 0 {
		return []string{}, nil
	}

	cursor, err := s.db.Collection(tagsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": slugs}})
	if err != nil {
		return nil, fmt.Errorf("failed to filter tags: %w", err)
	}
	defer cursor.Close(ctx)

	var found []models.Tag
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	known := make(map[string]bool, len(found))
	for _, t := range found {
		known[t.Slug] = true
	}

	kept := []string{}
	seen := map[string]bool{}
	for _, slug := range slugs {
		if known[slug] && !seen[slug] {
			kept = append(kept, slug)
			seen[slug] = true
		}
	}
	return kept, nil
}

// Seed populates empty category and tag collections with the defaults.
func (s *taxonomyService) Seed(ctx context.Context) error {
	count, err := s.db.Collection(categoriesCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count == 0 {
		docs := make([]interface{}, len(models.DefaultCategories))
		for i, c := range models.DefaultCategories {
			docs[i] = c
		}
		if _, err := s.db.Collection(categoriesCollection).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
	}

	count, err = s.db.Collection(tagsCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count tags: %w", err)
	}
	if count == 0 {
		docs := make([]interface{}, len(models.DefaultTags))
		for i, t := range models.DefaultTags {
			docs[i] = t
		}
		if _, err := s.db.Collection(tagsCollection).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to seed tags: %w", err)
		}
	}
	return nil
}
