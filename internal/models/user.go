package models

import (
	"time"
)

// User represents a marketplace account. Accounts are never hard-deleted:
// deactivation clears Active and cascades to removing the user's articles.
type User struct {
	Base          `bson:",inline"`
	Name          string     `bson:"name" json:"name"`
	Login         string     `bson:"login" json:"login"` // unique, email address
	PasswordHash  string     `bson:"password" json:"-"`  // Store hash, not plaintext
	Phone         string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Location      string     `bson:"location,omitempty" json:"location,omitempty"`
	Active        bool       `bson:"active" json:"active"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
	DeactivatedAt *time.Time `bson:"deactivated_at,omitempty" json:"-"`
}

// UserProfile is the public view of an account with its derived counters.
// The counters are computed on demand from the owning collections rather
// than stored, so they can never drift.
type UserProfile struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Location       string  `json:"location,omitempty"`
	ForSale        int64   `json:"articles_for_sale"`
	Sold           int64   `json:"articles_sold"`
	Bought         int64   `json:"articles_bought"`
	AverageRating  float64 `json:"average_rating"`
	RatingCount    int64   `json:"rating_count"`
	AccountAgeDays int     `json:"account_age_days"`
}
