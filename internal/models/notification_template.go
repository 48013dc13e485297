package models

// NotificationTemplate defines the structure for notification templates
// stored in the DB, rendered by the background task processor.
type NotificationTemplate struct {
	ID      string `bson:"_id" json:"id"` // e.g., "purchase_created", "new_message"
	Subject string `bson:"subject" json:"subject"`
	Body    string `bson:"body" json:"body"` // text/template source
}

// Template identifiers used by the notification tasks.
const (
	TemplatePurchaseCreated   = "purchase_created"
	TemplatePurchaseCompleted = "purchase_completed"
	TemplatePurchaseCancelled = "purchase_cancelled"
	TemplateNewMessage        = "new_message"
	TemplateNewComment        = "new_comment"
)

// DefaultNotificationTemplates seeds the templates collection when empty.
var DefaultNotificationTemplates = []NotificationTemplate{
	{
		ID:      TemplatePurchaseCreated,
		Subject: "Your article {{.ArticleName}} has a buyer",
		Body:    "{{.BuyerName}} wants to buy {{.ArticleName}} for {{.Price}}. The article is now reserved.",
	},
	{
		ID:      TemplatePurchaseCompleted,
		Subject: "Sale of {{.ArticleName}} completed",
		Body:    "The transaction for {{.ArticleName}} has been confirmed by the seller and is now complete.",
	},
	{
		ID:      TemplatePurchaseCancelled,
		Subject: "Purchase of {{.ArticleName}} cancelled",
		Body:    "The transaction for {{.ArticleName}} was cancelled. The article is published again.",
	},
	{
		ID:      TemplateNewMessage,
		Subject: "New message about {{.ArticleName}}",
		Body:    "{{.SenderName}} wrote: {{.Preview}}",
	},
	{
		ID:      TemplateNewComment,
		Subject: "New comment on {{.ArticleName}}",
		Body:    "{{.SenderName}} commented: {{.Preview}}",
	},
}
