package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// IPurchaseService defines the interface for purchase operations.
type IPurchaseService interface {
	CreatePurchase(ctx context.Context, buyerCode, articleCode utils.Code) (*models.Purchase, error)
	ConfirmPurchase(ctx context.Context, purchaseCode, actorCode utils.Code) (*models.Purchase, error)
	CancelPurchase(ctx context.Context, purchaseCode, actorCode utils.Code) (*models.Purchase, error)
	FindPurchaseByCode(ctx context.Context, purchaseCode utils.Code) (*models.Purchase, error)
	PurchasesByBuyer(ctx context.Context, buyerCode utils.Code) ([]models.Purchase, error)
	PurchasesBySeller(ctx context.Context, sellerCode utils.Code) ([]models.Purchase, error)
}

const purchasesCollection = "purchases"

// purchaseService implements IPurchaseService.
type purchaseService struct {
	db         *mongo.Database
	articleSvc IArticleService
	notifier   Notifier
}

// NewPurchaseService creates a new PurchaseService. The notifier may be nil
// when the task queue is not running (tests, service mode).
func NewPurchaseService(database *mongo.Database, articleSvc IArticleService, notifier Notifier) IPurchaseService {
	return &purchaseService{db: database, articleSvc: articleSvc, notifier: notifier}
}

// CreatePurchase opens a pending transaction on a published article and
// reserves the article. The reservation is the exclusivity point: the
// conditional published-to-reserved update succeeds for exactly one buyer,
// so a second concurrent attempt fails before any purchase document exists.
func (s *purchaseService) CreatePurchase(ctx context.Context, buyerCode, articleCode utils.Code) (*models.Purchase, error) {
	article, err := s.articleSvc.FindArticleByCode(ctx, articleCode)
	if err != nil {
		return nil, err
	}
	if article.OwnerCode == buyerCode {
		return nil, ErrSelfPurchase
	}
	if article.State != models.ArticlePublished {
		return nil, ErrNotAvailable
	}
	if article.Price <= 0 {
		return nil, fmt.Errorf("%w: article %s has no valid price", ErrValidation, articleCode)
	}

	if err := s.articleSvc.ReserveArticle(ctx, articleCode); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var purchase *models.Purchase
	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqPurchases)
		if codeErr != nil {
			return codeErr
		}
		purchase = &models.Purchase{
			Base:        models.Base{Code: code},
			ArticleCode: articleCode,
			BuyerCode:   buyerCode,
			SellerCode:  article.OwnerCode,
			Price:       article.Price,
			State:       models.PurchasePending,
			Active:      true,
			CreatedAt:   now,
		}
		_, insertErr := s.db.Collection(purchasesCollection).InsertOne(ctx, purchase)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		// Roll the reservation back so the article is not stuck.
		if relErr := s.articleSvc.ReleaseArticle(ctx, articleCode); relErr != nil {
			log.Printf("failed to release article %s after purchase insert error: %v", articleCode, relErr)
		}
		return nil, fmt.Errorf("failed to insert purchase for article %s: %w", articleCode, err)
	}

	s.notify(EventPurchaseCreated, purchase)
	return purchase, nil
}

// ConfirmPurchase completes a transaction. Seller only. The update filter
// pins the non-terminal states so confirming twice is a no-op failure, and
// the seller check runs against the stored purchase, which was written
// against the article owner at creation time.
func (s *purchaseService) ConfirmPurchase(ctx context.Context, purchaseCode, actorCode utils.Code) (*models.Purchase, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":         purchaseCode,
		"seller_code": actorCode,
		"active":      true,
		"state":       bson.M{"$in": []models.PurchaseState{models.PurchasePending, models.PurchaseConfirmed}},
	}
	update := bson.M{"$set": bson.M{
		"state":        models.PurchaseCompleted,
		"completed_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var purchase models.Purchase
	err := s.db.Collection(purchasesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&purchase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.diagnoseFailure(ctx, purchaseCode, actorCode, true)
		}
		return nil, fmt.Errorf("failed to confirm purchase %s: %w", purchaseCode, err)
	}

	if err := s.articleSvc.SellArticle(ctx, purchase.ArticleCode); err != nil {
		log.Printf("purchase %s completed but article %s not marked sold: %v", purchaseCode, purchase.ArticleCode, err)
	}

	s.notify(EventPurchaseCompleted, &purchase)
	return &purchase, nil
}

// CancelPurchase cancels a transaction. Buyer or seller. Completed
// transactions cannot be cancelled; a reserved article goes back to
// published.
func (s *purchaseService) CancelPurchase(ctx context.Context, purchaseCode, actorCode utils.Code) (*models.Purchase, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":    purchaseCode,
		"active": true,
		"state":  bson.M{"$in": []models.PurchaseState{models.PurchasePending, models.PurchaseConfirmed}},
		"$or": []bson.M{
			{"buyer_code": actorCode},
			{"seller_code": actorCode},
		},
	}
	update := bson.M{"$set": bson.M{
		"state":        models.PurchaseCancelled,
		"active":       false,
		"cancelled_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var purchase models.Purchase
	err := s.db.Collection(purchasesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&purchase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.diagnoseFailure(ctx, purchaseCode, actorCode, false)
		}
		return nil, fmt.Errorf("failed to cancel purchase %s: %w", purchaseCode, err)
	}

	if err := s.articleSvc.ReleaseArticle(ctx, purchase.ArticleCode); err != nil {
		// The article may legitimately not be reserved anymore.
		if !errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrNotFound) {
			log.Printf("purchase %s cancelled but article %s not released: %v", purchaseCode, purchase.ArticleCode, err)
		}
	}

	s.notify(EventPurchaseCancelled, &purchase)
	return &purchase, nil
}

// diagnoseFailure explains why a conditional purchase update matched
// nothing: absent, completed already, or the actor is not entitled.
func (s *purchaseService) diagnoseFailure(ctx context.Context, purchaseCode, actorCode utils.Code, sellerOnly bool) error {
	var purchase models.Purchase
	err := s.db.Collection(purchasesCollection).FindOne(ctx, bson.M{"_id": purchaseCode}).Decode(&purchase)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking purchase %s: %w", purchaseCode, err)
	}
	if sellerOnly && purchase.SellerCode != actorCode {
		return ErrForbidden
	}
	if !sellerOnly && purchase.BuyerCode != actorCode && purchase.SellerCode != actorCode {
		return ErrForbidden
	}
	if purchase.State == models.PurchaseCompleted {
		return ErrAlreadyCompleted
	}
	return fmt.Errorf("%w: purchase %s is %s", ErrInvalidState, purchaseCode, purchase.State)
}

// FindPurchaseByCode loads a purchase without entitlement checks.
func (s *purchaseService) FindPurchaseByCode(ctx context.Context, purchaseCode utils.Code) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.Collection(purchasesCollection).FindOne(ctx, bson.M{"_id": purchaseCode}).Decode(&purchase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding purchase %s: %w", purchaseCode, err)
	}
	return &purchase, nil
}

// PurchasesByBuyer lists a user's purchases, newest first.
func (s *purchaseService) PurchasesByBuyer(ctx context.Context, buyerCode utils.Code) ([]models.Purchase, error) {
	return s.listPurchases(ctx, bson.M{"buyer_code": buyerCode})
}

// PurchasesBySeller lists a user's sales, newest first.
func (s *purchaseService) PurchasesBySeller(ctx context.Context, sellerCode utils.Code) ([]models.Purchase, error) {
	return s.listPurchases(ctx, bson.M{"seller_code": sellerCode})
}

func (s *purchaseService) listPurchases(ctx context.Context, filter bson.M) ([]models.Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(purchasesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing purchases: %w", err)
	}
	defer cursor.Close(ctx)

	purchases := []models.Purchase{}
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, fmt.Errorf("error decoding purchases: %w", err)
	}
	return purchases, nil
}

func (s *purchaseService) notify(event string, purchase *models.Purchase) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyPurchase(event, purchase); err != nil {
		log.Printf("failed to enqueue %s for purchase %s: %v", event, purchase.Code, err)
	}
}
