package models

import (
	"time"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// CommentMaxLen bounds a public comment on an article.
const CommentMaxLen = 500

// Comment is a public question or remark on an article. The receiver is
// always the article's owner at write time, never supplied by the client.
type Comment struct {
	Base         `bson:",inline"`
	ArticleCode  utils.Code `bson:"article_code" json:"article_code"`
	SenderCode   utils.Code `bson:"sender_code" json:"sender_code"`
	ReceiverCode utils.Code `bson:"receiver_code" json:"receiver_code"`
	Text         string     `bson:"text" json:"text"`
	SentAt       time.Time  `bson:"sent_at" json:"sent_at"`
	Read         bool       `bson:"read" json:"read"`
	ReadAt       *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Active       bool       `bson:"active" json:"active"`
}
