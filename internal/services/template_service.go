package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
)

// ITemplateService defines the interface for notification template operations.
type ITemplateService interface {
	GetTemplate(ctx context.Context, templateID string) (*models.NotificationTemplate, error)
	SaveTemplate(ctx context.Context, template *models.NotificationTemplate) error
	Seed(ctx context.Context) error
}

const templatesCollection = "notification_templates"

// TemplateService handles the templates rendered by the task processor.
type TemplateService struct {
	db *mongo.Database
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(database *mongo.Database) *TemplateService {
	return &TemplateService{db: database}
}

// GetTemplate retrieves a notification template by ID, falling back to the
// compiled-in defaults when the database has no override.
func (s *TemplateService) GetTemplate(ctx context.Context, templateID string) (*models.NotificationTemplate, error) {
	var template models.NotificationTemplate
	err := s.db.Collection(templatesCollection).FindOne(ctx, bson.M{"_id": templateID}).Decode(&template)
	if errors.Is(err, mongo.ErrNoDocuments) {
		for _, def := range models.DefaultNotificationTemplates {
			if def.ID == templateID {
				fallback := def
				return &fallback, nil
			}
		}
		return nil, fmt.Errorf("template not found: %s", templateID)
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving template %s: %w", templateID, err)
	}
	return &template, nil
}

// SaveTemplate upserts a template override.
func (s *TemplateService) SaveTemplate(ctx context.Context, template *models.NotificationTemplate) error {
	filter := bson.M{"_id": template.ID}
	update := bson.M{"$set": template}
	opts := options.Update().SetUpsert(true)

	if _, err := s.db.Collection(templatesCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error saving template %s: %w", template.ID, err)
	}
	return nil
}

// Seed writes the default templates that are not already present.
func (s *TemplateService) Seed(ctx context.Context) error {
	for _, def := range models.DefaultNotificationTemplates {
		filter := bson.M{"_id": def.ID}
		update := bson.M{"$setOnInsert": def}
		opts := options.Update().SetUpsert(true)
		if _, err := s.db.Collection(templatesCollection).UpdateOne(ctx, filter, update, opts); err != nil {
			return fmt.Errorf("error seeding template %s: %w", def.ID, err)
		}
	}
	return nil
}
