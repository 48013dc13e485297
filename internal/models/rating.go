package models

import (
	"time"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// RatingCommentMaxLen bounds the optional comment on a rating.
const RatingCommentMaxLen = 300

// Rating is one user's score of another. At most one active rating exists
// per (rater, ratee) pair; editing goes through the reassign operation
// rather than creating a second rating.
type Rating struct {
	Base         `bson:",inline"`
	RaterCode    utils.Code  `bson:"rater_code" json:"rater_code"`
	RateeCode    utils.Code  `bson:"ratee_code" json:"ratee_code"`
	PurchaseCode *utils.Code `bson:"purchase_code,omitempty" json:"purchase_code,omitempty"`
	Score        int         `bson:"score" json:"score"` // 1..5
	Comment      string      `bson:"comment,omitempty" json:"comment,omitempty"`
	Active       bool        `bson:"active" json:"active"`
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updated_at"`
}
