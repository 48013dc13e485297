package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
)

// ISettingsService serves the client-facing limits document.
type ISettingsService interface {
	Get(ctx context.Context) (models.AppSettings, error)
	Update(ctx context.Context, settings models.AppSettings) error
	Seed(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
}

const (
	settingsCollection    = "settings"
	settingsUpdateChannel = "settings_updates"
)

// settingsService implements ISettingsService with an in-memory cache
// invalidated over Redis Pub/Sub when another instance writes.
type settingsService struct {
	db     *mongo.Database
	rdb    *redis.Client
	mutex  sync.RWMutex
	cached *models.AppSettings
}

// NewSettingsService creates a new SettingsService and starts the
// background listener for cross-instance cache invalidation.
func NewSettingsService(database *mongo.Database, rdb *redis.Client) ISettingsService {
	s := &settingsService{db: database, rdb: rdb}
	go func() {
		if err := s.SubscribeToChanges(context.Background()); err != nil {
			log.Printf("settings pub/sub listener stopped: %v", err)
		}
	}()
	return s
}

// Seed writes the default settings document if none exists yet.
func (s *settingsService) Seed(ctx context.Context) error {
	defaults := models.DefaultAppSettings()
	defaults.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": models.SettingsKey}
	update := bson.M{"$setOnInsert": defaults}
	opts := options.Update().SetUpsert(true)

	if _, err := s.db.Collection(settingsCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}

// Get returns the settings document, from cache when warm.
func (s *settingsService) Get(ctx context.Context) (models.AppSettings, error) {
	s.mutex.RLock()
	cached := s.cached
	s.mutex.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	var settings models.AppSettings
	err := s.db.Collection(settingsCollection).FindOne(ctx, bson.M{"_id": models.SettingsKey}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Not seeded yet, fall back to compiled-in defaults.
		return models.DefaultAppSettings(), nil
	}
	if err != nil {
		return models.AppSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	s.mutex.Lock()
	s.cached = &settings
	s.mutex.Unlock()
	return settings, nil
}

// Update overwrites the settings document and notifies other instances.
func (s *settingsService) Update(ctx context.Context, settings models.AppSettings) error {
	settings.ID = models.SettingsKey
	settings.UpdatedAt = time.Now().UTC()

	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(settingsCollection).ReplaceOne(ctx, bson.M{"_id": models.SettingsKey}, settings, opts); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	s.mutex.Lock()
	s.cached = &settings
	s.mutex.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, settingsUpdateChannel, models.SettingsKey).Err(); err != nil {
			log.Printf("failed to publish settings update notification: %v", err)
		}
	}
	return nil
}

// SubscribeToChanges drops the local cache whenever an update notification
// arrives, so the next Get re-reads from the database.
func (s *settingsService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, settingsUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to confirm settings subscription: %w", err)
	}

	for msg := range pubsub.Channel() {
		log.Printf("settings update notification received on %s", msg.Channel)
		s.mutex.Lock()
		s.cached = nil
		s.mutex.Unlock()
	}
	return nil
}
