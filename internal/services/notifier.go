package services

import (
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// Purchase notification events.
const (
	EventPurchaseCreated   = "purchase:created"
	EventPurchaseCompleted = "purchase:completed"
	EventPurchaseCancelled = "purchase:cancelled"
)

// Notifier enqueues notification work for the background task processor.
// Services call it fire-and-forget; a nil Notifier disables notifications.
type Notifier interface {
	NotifyPurchase(event string, purchase *models.Purchase) error
	NotifyMessage(chatCode, senderCode, recipientCode, articleCode utils.Code, preview string) error
	NotifyComment(comment *models.Comment) error
}
