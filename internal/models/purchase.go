package models

import (
	"time"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// PurchaseState is the transaction state of a purchase.
type PurchaseState string

const (
	PurchasePending   PurchaseState = "pending"
	PurchaseConfirmed PurchaseState = "confirmed"
	PurchaseCompleted PurchaseState = "completed"
	PurchaseCancelled PurchaseState = "cancelled"
)

// Purchase records one buyer's transaction on one article. Its state moves
// in lockstep with the article: creation reserves the article, completion
// marks it sold, cancellation releases the reservation.
type Purchase struct {
	Base        `bson:",inline"`
	ArticleCode utils.Code    `bson:"article_code" json:"article_code"`
	BuyerCode   utils.Code    `bson:"buyer_code" json:"buyer_code"`
	SellerCode  utils.Code    `bson:"seller_code" json:"seller_code"` // must equal article owner
	Price       float64       `bson:"price" json:"price"`
	State       PurchaseState `bson:"state" json:"state"`
	Active      bool          `bson:"active" json:"active"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	CompletedAt *time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time    `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
}
