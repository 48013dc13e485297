package models

import "time"

// AppSettings is the singleton client-facing limits document, served on the
// public settings endpoint so apps can validate before submitting.
// Stored in the `settings` collection under a fixed key.
type AppSettings struct {
	ID                  string    `bson:"_id" json:"-"`
	NameMaxLen          int       `bson:"name_max_len" json:"name_max_len"`
	DescriptionMaxLen   int       `bson:"description_max_len" json:"description_max_len"`
	MinImages           int       `bson:"min_images" json:"min_images"`
	MaxImages           int       `bson:"max_images" json:"max_images"`
	MaxTags             int       `bson:"max_tags" json:"max_tags"`
	MessageMaxLen       int       `bson:"message_max_len" json:"message_max_len"`
	CommentMaxLen       int       `bson:"comment_max_len" json:"comment_max_len"`
	RatingCommentMaxLen int       `bson:"rating_comment_max_len" json:"rating_comment_max_len"`
	ReportMaxLen        int       `bson:"report_max_len" json:"report_max_len"`
	PasswordMinLen      int       `bson:"password_min_len" json:"password_min_len"`
	PasswordMaxLen      int       `bson:"password_max_len" json:"password_max_len"`
	UpdatedAt           time.Time `bson:"updated_at" json:"-"`
}

// SettingsKey is the _id of the singleton settings document.
const SettingsKey = "app"

// DefaultAppSettings returns the settings document derived from the model
// constants, written on first startup.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		ID:                  SettingsKey,
		NameMaxLen:          ArticleNameMaxLen,
		DescriptionMaxLen:   ArticleDescriptionMaxLen,
		MinImages:           ArticleMinImages,
		MaxImages:           ArticleMaxImages,
		MaxTags:             ArticleMaxTags,
		MessageMaxLen:       MessageMaxLen,
		CommentMaxLen:       CommentMaxLen,
		RatingCommentMaxLen: RatingCommentMaxLen,
		ReportMaxLen:        ReportDescriptionMaxLen,
		PasswordMinLen:      8,
		PasswordMaxLen:      50,
	}
}
