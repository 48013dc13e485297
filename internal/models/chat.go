package models

import (
	"time"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// MessageMaxLen bounds a single chat message.
const MessageMaxLen = 500

// Chat is a conversation between a buyer and an article's owner.
// At most one chat exists per (article, buyer) pair; the unique index on
// those fields makes repeat creation collapse onto the existing chat.
type Chat struct {
	Base          `bson:",inline"`
	ArticleCode   utils.Code `bson:"article_code" json:"article_code"`
	BuyerCode     utils.Code `bson:"buyer_code" json:"buyer_code"`
	SellerCode    utils.Code `bson:"seller_code" json:"seller_code"` // denormalized article owner
	LastMessage   string     `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt *time.Time `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
}

// Participant reports whether the user takes part in the chat.
func (c *Chat) Participant(userCode utils.Code) bool {
	return userCode == c.BuyerCode || userCode == c.SellerCode
}

// Counterpart returns the other participant.
func (c *Chat) Counterpart(userCode utils.Code) utils.Code {
	if userCode == c.BuyerCode {
		return c.SellerCode
	}
	return c.BuyerCode
}

// Message is one entry in a chat, ordered by SentAt.
type Message struct {
	Base       `bson:",inline"`
	ChatCode   utils.Code `bson:"chat_code" json:"chat_code"`
	SenderCode utils.Code `bson:"sender_code" json:"sender_code"`
	Content    string     `bson:"content" json:"content"`
	SentAt     time.Time  `bson:"sent_at" json:"sent_at"`
	Read       bool       `bson:"read" json:"read"`
}
