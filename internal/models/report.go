package models

import (
	"time"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// ReportDescriptionMaxLen bounds the free-text description of a report.
const ReportDescriptionMaxLen = 500

// ReportTargetType names what kind of object a report is about.
type ReportTargetType string

const (
	ReportTargetArticle ReportTargetType = "article"
	ReportTargetComment ReportTargetType = "comment"
	ReportTargetUser    ReportTargetType = "user"
)

// ValidReportTarget reports whether the value is a known target type.
func ValidReportTarget(t ReportTargetType) bool {
	switch t {
	case ReportTargetArticle, ReportTargetComment, ReportTargetUser:
		return true
	}
	return false
}

// ReportReason is the reporter's stated motive.
type ReportReason string

const (
	ReasonInappropriate   ReportReason = "inappropriate_content"
	ReasonSpam            ReportReason = "spam"
	ReasonFalseInfo       ReportReason = "false_information"
	ReasonSuspiciousPrice ReportReason = "suspicious_price"
	ReasonProhibitedItem  ReportReason = "prohibited_item"
	ReasonHarassment      ReportReason = "harassment"
	ReasonOther           ReportReason = "other"
)

// ValidReportReason reports whether the value is a known reason.
func ValidReportReason(r ReportReason) bool {
	switch r {
	case ReasonInappropriate, ReasonSpam, ReasonFalseInfo, ReasonSuspiciousPrice,
		ReasonProhibitedItem, ReasonHarassment, ReasonOther:
		return true
	}
	return false
}

// ReportState is the moderation workflow state.
type ReportState string

const (
	ReportPending  ReportState = "pending"
	ReportInReview ReportState = "in_review"
	ReportResolved ReportState = "resolved"
	ReportRejected ReportState = "rejected"
	ReportClosed   ReportState = "closed"
)

// Report is a moderation request against an article, a comment, or a user.
// Exactly one of the target reference fields is set, matching TargetType.
type Report struct {
	Base          `bson:",inline"`
	ReporterCode  utils.Code       `bson:"reporter_code" json:"reporter_code"`
	TargetType    ReportTargetType `bson:"target_type" json:"target_type"`
	ArticleCode   *utils.Code      `bson:"article_code,omitempty" json:"article_code,omitempty"`
	CommentCode   *utils.Code      `bson:"comment_code,omitempty" json:"comment_code,omitempty"`
	UserCode      *utils.Code      `bson:"user_code,omitempty" json:"user_code,omitempty"`
	Reason        ReportReason     `bson:"reason" json:"reason"`
	Description   string           `bson:"description" json:"description"`
	State         ReportState      `bson:"state" json:"state"`
	Priority      string           `bson:"priority,omitempty" json:"priority,omitempty"`
	Resolution    string           `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ModeratorCode *utils.Code      `bson:"moderator_code,omitempty" json:"moderator_code,omitempty"`
	Active        bool             `bson:"active" json:"active"`
	CreatedAt     time.Time        `bson:"created_at" json:"created_at"`
	ResolvedAt    *time.Time       `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}
