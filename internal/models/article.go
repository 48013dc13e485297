package models

import (
	"time"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// ArticleState is the publication state of an article.
type ArticleState string

const (
	ArticleDraft     ArticleState = "draft"
	ArticlePublished ArticleState = "published"
	ArticleReserved  ArticleState = "reserved"
	ArticleSold      ArticleState = "sold"
	ArticleRemoved   ArticleState = "removed"
)

// ArticleCondition describes the physical condition of the item.
type ArticleCondition string

const (
	ConditionNew        ArticleCondition = "new"
	ConditionLikeNew    ArticleCondition = "like_new"
	ConditionGood       ArticleCondition = "good"
	ConditionAcceptable ArticleCondition = "acceptable"
	ConditionWorn       ArticleCondition = "worn"
)

// ValidCondition reports whether the value is a known condition.
func ValidCondition(c ArticleCondition) bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionAcceptable, ConditionWorn:
		return true
	}
	return false
}

// Field bounds enforced on article create/update.
const (
	ArticleNameMaxLen        = 50
	ArticleDescriptionMaxLen = 100
	ArticleMinImages         = 1
	ArticleMaxImages         = 10
	ArticleMaxTags           = 5
)

// ArticleImage is one stored image: the S3 object key plus its thumbnail.
type ArticleImage struct {
	Key      string `bson:"key" json:"key"`
	ThumbKey string `bson:"thumb_key,omitempty" json:"thumb_key,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
}

// Article represents an item listed for sale.
type Article struct {
	Base        `bson:",inline"`
	OwnerCode   utils.Code       `bson:"owner_code" json:"owner_code"`
	Name        string           `bson:"name" json:"name"`
	Description string           `bson:"description" json:"description"`
	Price       float64          `bson:"price" json:"price"`
	Condition   ArticleCondition `bson:"condition" json:"condition"`
	Category    string           `bson:"category" json:"category"` // category slug
	Location    string           `bson:"location,omitempty" json:"location,omitempty"`
	State       ArticleState     `bson:"state" json:"state"`
	Active      bool             `bson:"active" json:"active"`
	Images      []ArticleImage   `bson:"images" json:"images"`
	Tags        []string         `bson:"tags" json:"tags"` // tag slugs
	Views       int64            `bson:"views" json:"views"`
	CreatedAt   time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at" json:"updated_at"`
	PublishedAt *time.Time       `bson:"published_at,omitempty" json:"published_at,omitempty"`
	SoldAt      *time.Time       `bson:"sold_at,omitempty" json:"sold_at,omitempty"`
	RemovedAt   *time.Time       `bson:"removed_at,omitempty" json:"-"`
}

// Terminal reports whether the article can no longer change state.
func (a *Article) Terminal() bool {
	return a.State == ArticleSold || a.State == ArticleRemoved
}
