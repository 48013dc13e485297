package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/config"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/email"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/storage"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// Task types handled by the background worker.
const (
	TypeEmailDelivery  = "email:deliver"
	TypeImageProcess   = "image:process"
	TypePurchaseNotify = "purchase:notify"
	TypeMessageNotify  = "chat:message:notify"
	TypeCommentNotify  = "comment:notify"
)

// --- Task Client (Enqueuing tasks) ---

// Client wraps an asynq client and implements services.Notifier, so
// services enqueue notification work without importing this package.
type Client struct {
	inner *asynq.Client
}

func NewClient(rdb *redis.Client) *Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return &Client{inner: asynq.NewClient(clientOpt)}
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// PurchaseNotifyPayload carries a purchase lifecycle event.
type PurchaseNotifyPayload struct {
	Event        string     `json:"event"`
	PurchaseCode utils.Code `json:"purchase_code"`
	ArticleCode  utils.Code `json:"article_code"`
	BuyerCode    utils.Code `json:"buyer_code"`
	SellerCode   utils.Code `json:"seller_code"`
	Price        float64    `json:"price"`
}

// MessageNotifyPayload carries a new chat message event.
type MessageNotifyPayload struct {
	ChatCode      utils.Code `json:"chat_code"`
	SenderCode    utils.Code `json:"sender_code"`
	RecipientCode utils.Code `json:"recipient_code"`
	ArticleCode   utils.Code `json:"article_code"`
	Preview       string     `json:"preview"`
}

// CommentNotifyPayload carries a new article comment event.
type CommentNotifyPayload struct {
	CommentCode  utils.Code `json:"comment_code"`
	ArticleCode  utils.Code `json:"article_code"`
	SenderCode   utils.Code `json:"sender_code"`
	ReceiverCode utils.Code `json:"receiver_code"`
	Preview      string     `json:"preview"`
}

// NotifyPurchase enqueues a purchase lifecycle notification.
func (c *Client) NotifyPurchase(event string, purchase *models.Purchase) error {
	payload := PurchaseNotifyPayload{
		Event:        event,
		PurchaseCode: purchase.Code,
		ArticleCode:  purchase.ArticleCode,
		BuyerCode:    purchase.BuyerCode,
		SellerCode:   purchase.SellerCode,
		Price:        purchase.Price,
	}
	return c.enqueue(TypePurchaseNotify, payload)
}

// NotifyMessage enqueues a chat message notification.
func (c *Client) NotifyMessage(chatCode, senderCode, recipientCode, articleCode utils.Code, preview string) error {
	payload := MessageNotifyPayload{
		ChatCode:      chatCode,
		SenderCode:    senderCode,
		RecipientCode: recipientCode,
		ArticleCode:   articleCode,
		Preview:       preview,
	}
	return c.enqueue(TypeMessageNotify, payload)
}

// NotifyComment enqueues an article comment notification.
func (c *Client) NotifyComment(comment *models.Comment) error {
	preview := utils.TruncatePreview(comment.Text, 80)
	payload := CommentNotifyPayload{
		CommentCode:  comment.Code,
		ArticleCode:  comment.ArticleCode,
		SenderCode:   comment.SenderCode,
		ReceiverCode: comment.ReceiverCode,
		Preview:      preview,
	}
	return c.enqueue(TypeCommentNotify, payload)
}

// EnqueueImageProcess schedules resizing and thumbnailing of an uploaded image.
func (c *Client) EnqueueImageProcess(articleCode, ownerCode utils.Code, s3Key string) error {
	payload := ImageTaskPayload{
		S3Key:       s3Key,
		ArticleCode: articleCode,
		OwnerCode:   ownerCode,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	_, err = c.inner.Enqueue(asynq.NewTask(TypeImageProcess, data), asynq.Queue("images"))
	return err
}

func (c *Client) enqueue(taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	_, err = c.inner.Enqueue(asynq.NewTask(taskType, data))
	return err
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg             *config.Config
	emailSender     email.Sender
	storageService  storage.IS3Storage
	articleService  services.IArticleService
	userService     services.IUserService
	templateService services.ITemplateService
	taskClient      *Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	articleService services.IArticleService,
	userService services.IUserService,
	templateService services.ITemplateService,
	taskClient *Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:             cfg,
		emailSender:     emailSender,
		storageService:  storageService,
		articleService:  articleService,
		userService:     userService,
		templateService: templateService,
		taskClient:      taskClient,
	}
}

// SetupServer configures and starts an Asynq server instance. It
// returns immediately; callers stop it with Shutdown. Returns nil in
// pure API mode where no worker runs.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		mux.HandleFunc(TypePurchaseNotify, processor.HandlePurchaseNotifyTask)
		mux.HandleFunc(TypeMessageNotify, processor.HandleMessageNotifyTask)
		mux.HandleFunc(TypeCommentNotify, processor.HandleCommentNotifyTask)
		log.Println("Registered background task handlers.")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	return srv
}

// --- Task Handlers ---

// EmailTaskPayload describes a rendered-template email to deliver.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Data       map[string]interface{} `json:"data"`
}

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	tmpl, err := p.templateService.GetTemplate(ctx, payload.TemplateID)
	if err != nil {
		log.Printf("Error getting notification template %s: %v", payload.TemplateID, err)
		return fmt.Errorf("notification template not found: %w", asynq.SkipRetry)
	}

	subjectRendered, err := renderTemplate(tmpl.ID+":subject", tmpl.Subject, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render subject of %s: %v: %w", tmpl.ID, err, asynq.SkipRetry)
	}
	bodyRendered, err := renderTemplate(tmpl.ID+":body", tmpl.Body, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render body of %s: %v: %w", tmpl.ID, err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subjectRendered))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(bodyRendered)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, subjectRendered, []byte(sb.String())); err != nil {
		log.Printf("Email sending failed for %s: %v", payload.To, err)
		return err
	}
	return nil
}

func renderTemplate(name, source string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HandlePurchaseNotifyTask resolves the parties of a purchase event and
// enqueues the matching email.
func (p *TaskProcessor) HandlePurchaseNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload PurchaseNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal purchase notify payload: %v: %w", err, asynq.SkipRetry)
	}

	article, err := p.articleService.FindArticleByCode(ctx, payload.ArticleCode)
	if err != nil {
		log.Printf("Article %s not found for purchase notification: %v", payload.ArticleCode, err)
		return fmt.Errorf("article not found: %w", asynq.SkipRetry)
	}
	buyer, err := p.userService.FindByCode(ctx, payload.BuyerCode)
	if err != nil {
		return fmt.Errorf("buyer not found: %w", asynq.SkipRetry)
	}
	seller, err := p.userService.FindByCode(ctx, payload.SellerCode)
	if err != nil {
		return fmt.Errorf("seller not found: %w", asynq.SkipRetry)
	}

	var templateID string
	var recipients []string
	switch payload.Event {
	case services.EventPurchaseCreated:
		// The seller learns their article is reserved.
		templateID = models.TemplatePurchaseCreated
		recipients = []string{seller.Login}
	case services.EventPurchaseCompleted:
		templateID = models.TemplatePurchaseCompleted
		recipients = []string{buyer.Login, seller.Login}
	case services.EventPurchaseCancelled:
		templateID = models.TemplatePurchaseCancelled
		recipients = []string{buyer.Login, seller.Login}
	default:
		return fmt.Errorf("unknown purchase event %q: %w", payload.Event, asynq.SkipRetry)
	}

	data := map[string]interface{}{
		"ArticleName": article.Name,
		"BuyerName":   buyer.Name,
		"SellerName":  seller.Name,
		"Price":       fmt.Sprintf("%.2f", payload.Price),
	}

	for _, to := range recipients {
		if err := p.enqueueEmail(ctx, to, templateID, data); err != nil {
			return err
		}
	}
	return nil
}

// HandleMessageNotifyTask emails the chat counterpart about a new message.
func (p *TaskProcessor) HandleMessageNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload MessageNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal message notify payload: %v: %w", err, asynq.SkipRetry)
	}

	article, err := p.articleService.FindArticleByCode(ctx, payload.ArticleCode)
	if err != nil {
		return fmt.Errorf("article not found: %w", asynq.SkipRetry)
	}
	sender, err := p.userService.FindByCode(ctx, payload.SenderCode)
	if err != nil {
		return fmt.Errorf("sender not found: %w", asynq.SkipRetry)
	}
	recipient, err := p.userService.FindByCode(ctx, payload.RecipientCode)
	if err != nil {
		return fmt.Errorf("recipient not found: %w", asynq.SkipRetry)
	}

	data := map[string]interface{}{
		"ArticleName": article.Name,
		"SenderName":  sender.Name,
		"Preview":     payload.Preview,
	}
	return p.enqueueEmail(ctx, recipient.Login, models.TemplateNewMessage, data)
}

// HandleCommentNotifyTask emails the article owner about a new comment.
func (p *TaskProcessor) HandleCommentNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload CommentNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal comment notify payload: %v: %w", err, asynq.SkipRetry)
	}

	article, err := p.articleService.FindArticleByCode(ctx, payload.ArticleCode)
	if err != nil {
		return fmt.Errorf("article not found: %w", asynq.SkipRetry)
	}
	sender, err := p.userService.FindByCode(ctx, payload.SenderCode)
	if err != nil {
		return fmt.Errorf("sender not found: %w", asynq.SkipRetry)
	}
	receiver, err := p.userService.FindByCode(ctx, payload.ReceiverCode)
	if err != nil {
		return fmt.Errorf("receiver not found: %w", asynq.SkipRetry)
	}

	data := map[string]interface{}{
		"ArticleName": article.Name,
		"SenderName":  sender.Name,
		"Preview":     payload.Preview,
	}
	return p.enqueueEmail(ctx, receiver.Login, models.TemplateNewComment, data)
}

func (p *TaskProcessor) enqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	payload := EmailTaskPayload{To: to, TemplateID: templateID, Data: data}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}
	if _, err := p.taskClient.inner.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, raw)); err != nil {
		return fmt.Errorf("failed to enqueue email task: %w", err)
	}
	return nil
}

// ImageTaskPayload describes an uploaded article image to normalize.
type ImageTaskPayload struct {
	S3Key       string     `json:"s3_key"`
	ArticleCode utils.Code `json:"article_code"`
	OwnerCode   utils.Code `json:"owner_code"`
}

// HandleImageProcessTask downloads an uploaded image, caps its dimensions,
// generates a thumbnail, and records both keys on the article.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if !payload.ArticleCode.Valid() || !payload.OwnerCode.Valid() {
		return fmt.Errorf("invalid codes in image task payload: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, Article=%s", payload.S3Key, payload.ArticleCode)

	obj, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer obj.Body.Close()

	imgData, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	// Cap the main image dimensions, re-encoding as JPEG when resized.
	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		if err := p.storageService.PutObject(ctx, payload.S3Key, "image/jpeg", buf.Bytes()); err != nil {
			return err
		}
		img = resized
	}

	// Thumbnail for list views.
	thumb := resize.Resize(uint(p.cfg.ThumbnailWidth), 0, img, resize.Lanczos3)
	var thumbBuf bytes.Buffer
	if err := jpeg.Encode(&thumbBuf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	thumbKey := payload.S3Key + "_thumb.jpg"
	if err := p.storageService.PutObject(ctx, thumbKey, "image/jpeg", thumbBuf.Bytes()); err != nil {
		return err
	}

	articleImage := models.ArticleImage{
		Key:      payload.S3Key,
		ThumbKey: thumbKey,
		URL:      p.storageService.PublicURL(payload.S3Key),
	}
	if err := p.articleService.AddImage(ctx, payload.ArticleCode, payload.OwnerCode, articleImage); err != nil {
		log.Printf("Error adding image key %s to article %s: %v", payload.S3Key, payload.ArticleCode, err)
		return fmt.Errorf("failed to update article with processed image: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, Article=%s", payload.S3Key, payload.ArticleCode)
	return nil
}
