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

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// ICommentService defines the interface for article comment operations.
type ICommentService interface {
	CreateComment(ctx context.Context, articleCode, senderCode utils.Code, text string) (*models.Comment, error)
	MarkCommentRead(ctx context.Context, commentCode, userCode utils.Code) error
	DeleteComment(ctx context.Context, commentCode, userCode utils.Code) error
	CommentsReceived(ctx context.Context, userCode utils.Code) ([]models.Comment, error)
	CommentsForArticle(ctx context.Context, articleCode utils.Code) ([]models.Comment, error)
}

const commentsCollection = "comments"

// commentService implements ICommentService.
type commentService struct {
	db         *mongo.Database
	articleSvc IArticleService
	notifier   Notifier
}

// NewCommentService creates a new CommentService.
func NewCommentService(database *mongo.Database, articleSvc IArticleService, notifier Notifier) ICommentService {
	return &commentService{db: database, articleSvc: articleSvc, notifier: notifier}
}

// CreateComment attaches a comment to an article. The receiver is always
// the article's current owner, never taken from the client.
func (s *commentService) CreateComment(ctx context.Context, articleCode, senderCode utils.Code, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", ErrValidation)
	}
	if len(text) > models.CommentMaxLen {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, models.CommentMaxLen)
	}

	article, err := s.articleSvc.FindArticleByCode(ctx, articleCode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var comment *models.Comment
	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqComments)
		if codeErr != nil {
			return codeErr
		}
		comment = &models.Comment{
			Base:         models.Base{Code: code},
			ArticleCode:  articleCode,
			SenderCode:   senderCode,
			ReceiverCode: article.OwnerCode,
			Text:         text,
			SentAt:       now,
			Active:       true,
		}
		_, insertErr := s.db.Collection(commentsCollection).InsertOne(ctx, comment)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert comment on article %s: %w", articleCode, err)
	}

	if s.notifier != nil && comment.ReceiverCode != senderCode {
		if err := s.notifier.NotifyComment(comment); err != nil {
			log.Printf("failed to enqueue comment notification for article %s: %v", articleCode, err)
		}
	}

	return comment, nil
}

// MarkCommentRead flags a comment as read. Receiver only.
func (s *commentService) MarkCommentRead(ctx context.Context, commentCode, userCode utils.Code) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":           commentCode,
		"receiver_code": userCode,
		"active":        true,
		"read":          false,
	}
	update := bson.M{"$set": bson.M{"read": true, "read_at": now}}

	result, err := s.db.Collection(commentsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark comment %s read: %w", commentCode, err)
	}
	if result.MatchedCount == 0 {
		return s.diagnoseFailure(ctx, commentCode, userCode, "receiver")
	}
	return nil
}

// DeleteComment soft-deletes a comment. Sender only.
func (s *commentService) DeleteComment(ctx context.Context, commentCode, userCode utils.Code) error {
	filter := bson.M{
		"_id":         commentCode,
		"sender_code": userCode,
		"active":      true,
	}
	update := bson.M{"$set": bson.M{"active": false}}

	result, err := s.db.Collection(commentsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", commentCode, err)
	}
	if result.MatchedCount == 0 {
		return s.diagnoseFailure(ctx, commentCode, userCode, "sender")
	}
	return nil
}

func (s *commentService) diagnoseFailure(ctx context.Context, commentCode, userCode utils.Code, role string) error {
	var comment models.Comment
	err := s.db.Collection(commentsCollection).FindOne(ctx, bson.M{"_id": commentCode}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking comment %s: %w", commentCode, err)
	}
	if !comment.Active {
		return ErrNotFound
	}
	if role == "receiver" && comment.ReceiverCode != userCode {
		return ErrForbidden
	}
	if role == "sender" && comment.SenderCode != userCode {
		return ErrForbidden
	}
	return fmt.Errorf("%w: comment %s", ErrInvalidState, commentCode)
}

// CommentsReceived lists active comments addressed to the user, newest first.
func (s *commentService) CommentsReceived(ctx context.Context, userCode utils.Code) ([]models.Comment, error) {
	return s.listComments(ctx, bson.M{"receiver_code": userCode, "active": true})
}

// CommentsForArticle lists active comments on an article, newest first.
func (s *commentService) CommentsForArticle(ctx context.Context, articleCode utils.Code) ([]models.Comment, error) {
	return s.listComments(ctx, bson.M{"article_code": articleCode, "active": true})
}

func (s *commentService) listComments(ctx context.Context, filter bson.M) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	cursor, err := s.db.Collection(commentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("error decoding comments: %w", err)
	}
	return comments, nil
}
