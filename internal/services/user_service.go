package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/auth"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/cache"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/config"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// IUserService defines the interface for user-related operations.
// This allows for easier mocking in tests.
type IUserService interface {
	Register(ctx context.Context, name, login, password, phone, location string) (*models.User, error)
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
	FindByCode(ctx context.Context, code utils.Code) (*models.User, error)
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateProfile(ctx context.Context, code utils.Code, updates map[string]interface{}) (*models.User, error)
	Deactivate(ctx context.Context, code utils.Code) error
	Profile(ctx context.Context, code utils.Code) (*models.UserProfile, error)
}

const usersCollection = "users"

// userService implements IUserService.
type userService struct {
	db         *mongo.Database
	rdb        *redis.Client
	cfg        *config.Config
	articleSvc IArticleService
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, rdb *redis.Client, cfg *config.Config, articleSvc IArticleService) IUserService {
	return &userService{db: database, rdb: rdb, cfg: cfg, articleSvc: articleSvc}
}

// Register creates an active account. Logins are unique among active
// accounts; the unique index backs up the pre-insert count check.
func (s *userService) Register(ctx context.Context, name, login, password, phone, location string) (*models.User, error) {
	name = strings.TrimSpace(name)
	login = strings.ToLower(strings.TrimSpace(login))

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if login == "" || !strings.Contains(login, "@") {
		return nil, fmt.Errorf("%w: login must be an email address", ErrValidation)
	}
	if err := auth.ValidatePasswordLength(password, s.cfg.PasswordMinLen, s.cfg.PasswordMaxLen); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	collection := s.db.Collection(usersCollection)
	count, err := collection.CountDocuments(ctx, bson.M{"login": login})
	if err != nil {
		return nil, fmt.Errorf("error checking login uniqueness for %s: %w", login, err)
	}
	if count > 0 {
		return nil, ErrLoginExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var user *models.User
	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqUsers)
		if codeErr != nil {
			return codeErr
		}
		user = &models.User{
			Base:         models.Base{Code: code},
			Name:         name,
			Login:        login,
			PasswordHash: hash,
			Phone:        phone,
			Location:     location,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, user)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			// The login index fired between the count check and the insert.
			return nil, ErrLoginExists
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", login, err)
	}

	return user, nil
}

// Authenticate checks credentials and the lockout counter. It never tells
// the caller whether the login or the password was wrong.
func (s *userService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))

	failures, err := cache.LoginFailureCount(ctx, s.rdb, login)
	if err != nil {
		// Redis being down must not lock everyone out.
		log.Printf("login lockout check failed for %s: %v", login, err)
	} else if failures >= int64(s.cfg.MaxLoginAttempts) {
		return nil, ErrAccountLocked
	}

	user, err := s.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recordFailure(ctx, login)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		s.recordFailure(ctx, login)
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	if err := cache.ClearLoginFailures(ctx, s.rdb, login); err != nil {
		log.Printf("failed to clear login failures for %s: %v", login, err)
	}
	return user, nil
}

func (s *userService) recordFailure(ctx context.Context, login string) {
	count, err := cache.RecordLoginFailure(ctx, s.rdb, login, s.cfg.LoginLockout)
	if err != nil {
		log.Printf("failed to record login failure for %s: %v", login, err)
		return
	}
	if count == int64(s.cfg.MaxLoginAttempts) {
		log.Printf("login %s locked out after %d failed attempts", login, count)
	}
}

// FindByCode finds a user by their public code, active or not.
func (s *userService) FindByCode(ctx context.Context, code utils.Code) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": code}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user %s: %w", code, err)
	}
	return &user, nil
}

// FindByLogin finds a user by their login.
func (s *userService) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"login": login}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by login %s: %w", login, err)
	}
	return &user, nil
}

// UpdateProfile updates the mutable profile fields of an account.
func (s *userService) UpdateProfile(ctx context.Context, code utils.Code, updates map[string]interface{}) (*models.User, error) {
	allowed := bson.M{}
	for key, value := range updates {
		switch key {
		case "name", "phone", "location":
			allowed[key] = value
		case "password":
			password, _ := value.(string)
			if err := auth.ValidatePasswordLength(password, s.cfg.PasswordMinLen, s.cfg.PasswordMaxLen); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return nil, err
			}
			allowed["password"] = hash
		default:
			return nil, fmt.Errorf("%w: field %q cannot be updated", ErrValidation, key)
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields provided", ErrValidation)
	}
	allowed["updated_at"] = time.Now().UTC()

	filter := bson.M{"_id": code, "active": true}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, bson.M{"$set": allowed})
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", code, err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.FindByCode(ctx, code)
}

// Deactivate disables an account and soft-deletes all its articles.
// Accounts are never hard-deleted; existing tokens die on the next verify
// because authentication re-checks the active flag.
func (s *userService) Deactivate(ctx context.Context, code utils.Code) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": code, "active": true}
	update := bson.M{"$set": bson.M{
		"active":         false,
		"deactivated_at": now,
		"updated_at":     now,
	}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to deactivate user %s: %w", code, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	if err := s.articleSvc.RemoveArticlesByOwner(ctx, code); err != nil {
		// The account itself is already off; surface the cascade failure.
		return fmt.Errorf("user %s deactivated but article cleanup failed: %w", code, err)
	}
	log.Printf("user %s deactivated", code)
	return nil
}

// Profile builds the public profile view with its derived counters,
// computed on demand from the owning collections.
func (s *userService) Profile(ctx context.Context, code utils.Code) (*models.UserProfile, error) {
	user, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrNotFound
	}

	forSale, err := s.db.Collection(articlesCollection).CountDocuments(ctx, bson.M{
		"owner_code": code,
		"state":      models.ArticlePublished,
	})
	if err != nil {
		return nil, fmt.Errorf("error counting articles for sale: %w", err)
	}
	sold, err := s.db.Collection(purchasesCollection).CountDocuments(ctx, bson.M{
		"seller_code": code,
		"state":       models.PurchaseCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("error counting sales: %w", err)
	}
	bought, err := s.db.Collection(purchasesCollection).CountDocuments(ctx, bson.M{
		"buyer_code": code,
		"state":      models.PurchaseCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("error counting purchases: %w", err)
	}

	avg, count, err := averageRating(ctx, s.db, code)
	if err != nil {
		return nil, err
	}

	return &models.UserProfile{
		Code:           user.Code.String(),
		Name:           user.Name,
		Location:       user.Location,
		ForSale:        forSale,
		Sold:           sold,
		Bought:         bought,
		AverageRating:  avg,
		RatingCount:    count,
		AccountAgeDays: int(time.Since(user.CreatedAt).Hours() / 24),
	}, nil
}
