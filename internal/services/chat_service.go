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

// ChatResult is a chat plus whether this call created it.
type ChatResult struct {
	Chat    *models.Chat
	NewChat bool
}

// IChatService defines the interface for chat operations.
type IChatService interface {
	CreateChat(ctx context.Context, articleCode, buyerCode utils.Code) (*ChatResult, error)
	FindChatByCode(ctx context.Context, chatCode utils.Code) (*models.Chat, error)
	ChatsByUser(ctx context.Context, userCode utils.Code) ([]models.Chat, error)
	SendMessage(ctx context.Context, chatCode, senderCode utils.Code, content string) (*models.Message, error)
	Messages(ctx context.Context, chatCode, userCode utils.Code) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, chatCode, userCode utils.Code) (int64, error)
}

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// chatService implements IChatService.
type chatService struct {
	db         *mongo.Database
	articleSvc IArticleService
	notifier   Notifier
}

// NewChatService creates a new ChatService.
func NewChatService(database *mongo.Database, articleSvc IArticleService, notifier Notifier) IChatService {
	return &chatService{db: database, articleSvc: articleSvc, notifier: notifier}
}

// CreateChat opens a conversation between a buyer and an article's owner.
// Idempotent: when a chat for (article, buyer) already exists it is
// returned with NewChat false. The unique index closes the race between
// the lookup and the insert.
func (s *chatService) CreateChat(ctx context.Context, articleCode, buyerCode utils.Code) (*ChatResult, error) {
	article, err := s.articleSvc.FindArticleByCode(ctx, articleCode)
	if err != nil {
		return nil, err
	}
	if article.OwnerCode == buyerCode {
		return nil, ErrSelfChat
	}

	collection := s.db.Collection(chatsCollection)
	pair := bson.M{"article_code": articleCode, "buyer_code": buyerCode}

	var existing models.Chat
	err = collection.FindOne(ctx, pair).Decode(&existing)
	if err == nil {
		return &ChatResult{Chat: &existing, NewChat: false}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error looking up chat for article %s: %w", articleCode, err)
	}

	now := time.Now().UTC()
	var chat *models.Chat
	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqChats)
		if codeErr != nil {
			return codeErr
		}
		chat = &models.Chat{
			Base:        models.Base{Code: code},
			ArticleCode: articleCode,
			BuyerCode:   buyerCode,
			SellerCode:  article.OwnerCode,
			CreatedAt:   now,
		}
		_, insertErr := collection.InsertOne(ctx, chat)
		return insertErr
	}

	insertErr := operation()
	if insertErr != nil {
		if db.IsMongoDuplicateKeyError(insertErr) {
			// Lost the race: another request created the pair first.
			if err := collection.FindOne(ctx, pair).Decode(&existing); err != nil {
				return nil, fmt.Errorf("error loading chat after duplicate insert: %w", err)
			}
			return &ChatResult{Chat: &existing, NewChat: false}, nil
		}
		return nil, fmt.Errorf("failed to create chat for article %s: %w", articleCode, insertErr)
	}

	return &ChatResult{Chat: chat, NewChat: true}, nil
}

// FindChatByCode loads a chat without entitlement checks.
func (s *chatService) FindChatByCode(ctx context.Context, chatCode utils.Code) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.Collection(chatsCollection).FindOne(ctx, bson.M{"_id": chatCode}).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding chat %s: %w", chatCode, err)
	}
	return &chat, nil
}

// ChatsByUser lists the chats a user takes part in, most recent first.
func (s *chatService) ChatsByUser(ctx context.Context, userCode utils.Code) ([]models.Chat, error) {
	filter := bson.M{"$or": []bson.M{
		{"buyer_code": userCode},
		{"seller_code": userCode},
	}}
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_at", Value: -1},
		{Key: "created_at", Value: -1},
	})

	cursor, err := s.db.Collection(chatsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing chats for user %s: %w", userCode, err)
	}
	defer cursor.Close(ctx)

	chats := []models.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("error decoding chats: %w", err)
	}
	return chats, nil
}

// SendMessage appends a message to a chat the sender takes part in and
// refreshes the chat's denormalized last-message fields.
func (s *chatService) SendMessage(ctx context.Context, chatCode, senderCode utils.Code, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}
	if len(content) > models.MessageMaxLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, models.MessageMaxLen)
	}

	chat, err := s.FindChatByCode(ctx, chatCode)
	if err != nil {
		return nil, err
	}
	if !chat.Participant(senderCode) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	var message *models.Message
	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqMessages)
		if codeErr != nil {
			return codeErr
		}
		message = &models.Message{
			Base:       models.Base{Code: code},
			ChatCode:   chatCode,
			SenderCode: senderCode,
			Content:    content,
			SentAt:     now,
		}
		_, insertErr := s.db.Collection(messagesCollection).InsertOne(ctx, message)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert message in chat %s: %w", chatCode, err)
	}

	_, err = s.db.Collection(chatsCollection).UpdateOne(ctx,
		bson.M{"_id": chatCode},
		bson.M{"$set": bson.M{"last_message": content, "last_message_at": now}},
	)
	if err != nil {
		log.Printf("failed to update last message on chat %s: %v", chatCode, err)
	}

	if s.notifier != nil {
		preview := utils.TruncatePreview(content, 80)
		if err := s.notifier.NotifyMessage(chatCode, senderCode, chat.Counterpart(senderCode), chat.ArticleCode, preview); err != nil {
			log.Printf("failed to enqueue message notification for chat %s: %v", chatCode, err)
		}
	}

	return message, nil
}

// Messages returns a chat's messages in send order. Participants only.
func (s *chatService) Messages(ctx context.Context, chatCode, userCode utils.Code) ([]models.Message, error) {
	chat, err := s.FindChatByCode(ctx, chatCode)
	if err != nil {
		return nil, err
	}
	if !chat.Participant(userCode) {
		return nil, ErrForbidden
	}

	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}})
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, bson.M{"chat_code": chatCode}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing messages for chat %s: %w", chatCode, err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("error decoding messages: %w", err)
	}
	return messages, nil
}

// MarkMessagesRead marks every message addressed to the user in a chat as
// read, returning how many changed. Messages the user sent are untouched.
func (s *chatService) MarkMessagesRead(ctx context.Context, chatCode, userCode utils.Code) (int64, error) {
	chat, err := s.FindChatByCode(ctx, chatCode)
	if err != nil {
		return 0, err
	}
	if !chat.Participant(userCode) {
		return 0, ErrForbidden
	}

	filter := bson.M{
		"chat_code":   chatCode,
		"sender_code": bson.M{"$ne": userCode},
		"read":        false,
	}
	result, err := s.db.Collection(messagesCollection).UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("error marking messages read in chat %s: %w", chatCode, err)
	}
	return result.ModifiedCount, nil
}
