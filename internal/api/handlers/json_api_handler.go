package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/api/middleware"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/auth"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/config"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/storage"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// Stable error codes carried in the response envelope. Clients branch on
// these, never on message text.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeMissingField        = "MISSING_FIELD"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountLocked       = "ACCOUNT_LOCKED"
	CodeLoginExists         = "LOGIN_EXISTS"
	CodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	CodeArticleNotAvailable = "ARTICLE_NOT_AVAILABLE"
	CodeSelfPurchase        = "SELF_PURCHASE"
	CodeSelfChat            = "SELF_CHAT"
	CodeSelfRating          = "SELF_RATING"
	CodeSelfReport          = "SELF_REPORT"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidType         = "INVALID_TYPE"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// JsonApiRequest is the body of POST /v1/api.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse is the uniform envelope every method returns. The HTTP
// status stays 200 even for failures so the transport layer never hides
// the application-level error code.
type JsonApiResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	NewToken  string      `json:"new_token,omitempty"`
}

// ApiError pairs a stable error code with a human-readable message.
type ApiError struct {
	Code    string
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(code, message string) *ApiError {
	return &ApiError{Code: code, Message: message}
}

// IImageQueue is the slice of the task client the handler needs, split out
// so tests can mock enqueueing without a running Redis.
type IImageQueue interface {
	EnqueueImageProcess(articleCode, ownerCode utils.Code, s3Key string) error
}

// apiMethodFunc is the signature every dispatched method implements.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// JsonApiHandler dispatches {method, arguments} bodies to service calls.
type JsonApiHandler struct {
	cfg             *config.Config
	userService     services.IUserService
	articleService  services.IArticleService
	chatService     services.IChatService
	commentService  services.ICommentService
	purchaseService services.IPurchaseService
	ratingService   services.IRatingService
	reportService   services.IReportService
	taxonomyService services.ITaxonomyService
	storageService  storage.IS3Storage
	imageQueue      IImageQueue
	methods         map[string]apiMethodFunc
}

// NewJsonApiHandler creates the dispatch handler for POST /v1/api.
func NewJsonApiHandler(
	cfg *config.Config,
	userService services.IUserService,
	articleService services.IArticleService,
	chatService services.IChatService,
	commentService services.ICommentService,
	purchaseService services.IPurchaseService,
	ratingService services.IRatingService,
	reportService services.IReportService,
	taxonomyService services.ITaxonomyService,
	storageService storage.IS3Storage,
	imageQueue IImageQueue,
) *JsonApiHandler {
	h := &JsonApiHandler{
		cfg:             cfg,
		userService:     userService,
		articleService:  articleService,
		chatService:     chatService,
		commentService:  commentService,
		purchaseService: purchaseService,
		ratingService:   ratingService,
		reportService:   reportService,
		taxonomyService: taxonomyService,
		storageService:  storageService,
		imageQueue:      imageQueue,
	}
	h.methods = map[string]apiMethodFunc{
		"register":             h.register,
		"login":                h.login,
		"verify_token":         h.verifyToken,
		"refresh_token":        h.refreshToken,
		"get_profile":          h.getProfile,
		"update_profile":       h.updateProfile,
		"deactivate_account":   h.deactivateAccount,
		"get_user_profile":     h.getUserProfile,
		"create_article":       h.createArticle,
		"update_article":       h.updateArticle,
		"publish_article":      h.publishArticle,
		"remove_article":       h.removeArticle,
		"get_article":          h.getArticle,
		"list_articles":        h.listArticles,
		"my_articles":          h.myArticles,
		"get_upload_url":       h.getUploadURL,
		"confirm_image_upload": h.confirmImageUpload,
		"create_chat":          h.createChat,
		"my_chats":             h.myChats,
		"send_message":         h.sendMessage,
		"get_messages":         h.getMessages,
		"mark_messages_read":   h.markMessagesRead,
		"create_comment":       h.createComment,
		"mark_comment_read":    h.markCommentRead,
		"delete_comment":       h.deleteComment,
		"comments_received":    h.commentsReceived,
		"create_purchase":      h.createPurchase,
		"confirm_purchase":     h.confirmPurchase,
		"cancel_purchase":      h.cancelPurchase,
		"my_purchases":         h.myPurchases,
		"my_sales":             h.mySales,
		"create_rating":        h.createRating,
		"reassign_rating":      h.reassignRating,
		"ratings_for_user":     h.ratingsForUser,
		"create_report":        h.createReport,
		"my_reports":           h.myReports,
		"list_categories":      h.listCategories,
		"list_tags":            h.listTags,
	}
	return h
}

// HandleRequest is the entry point for POST /v1/api.
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendError(c, NewApiError(CodeValidationError, "failed to read request body"))
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendError(c, NewApiError(CodeValidationError, "invalid JSON request format"))
		return
	}
	if req.Method == "" {
		h.sendError(c, NewApiError(CodeMissingField, "method is required"))
		return
	}

	handlerFunc, known := h.methods[req.Method]
	if !known {
		h.sendError(c, NewApiError(CodeNotFound, fmt.Sprintf("unknown method: %s", req.Method)))
		return
	}

	if apiErr := h.checkAuthForMethod(c, req.Method); apiErr != nil {
		h.sendError(c, apiErr)
		return
	}

	result, apiErr := handlerFunc(c, req.Arguments)
	if apiErr != nil {
		h.sendError(c, apiErr)
		return
	}
	h.sendSuccess(c, result)
}

// checkAuthForMethod validates the Bearer token when the method needs one
// and stores the caller's code in the Gin context. A token close to expiry
// is silently rotated; the envelope carries the replacement.
func (h *JsonApiHandler) checkAuthForMethod(c *gin.Context, method string) *ApiError {
	if !methodRequiresAuth(method) {
		return nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return NewApiError(CodeUnauthorized, "authorization header required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return NewApiError(CodeUnauthorized, "authorization header format must be Bearer {token}")
	}

	claims, err := auth.ValidateJWT(parts[1], h.cfg.JwtSecret)
	if err != nil {
		return NewApiError(CodeUnauthorized, "invalid or expired token")
	}

	// The token may outlive the account. Re-check the user record so a
	// deactivated account cannot keep acting until expiry.
	user, err := h.userService.FindByCode(c.Request.Context(), claims.UserCode)
	if err != nil || !user.Active {
		return NewApiError(CodeUnauthorized, "account is not active")
	}

	if newToken, rotated := auth.MaybeRefresh(claims, h.cfg.JwtSecret, h.cfg.JwtTTL, h.cfg.JwtRefreshThreshold); rotated {
		c.Set(middleware.ContextKeyNewToken, newToken)
	}
	c.Set(middleware.ContextKeyUserCode, claims.UserCode)
	c.Set(middleware.ContextKeyClaims, claims)
	return nil
}

// methodRequiresAuth lists which methods need a Bearer token.
func methodRequiresAuth(method string) bool {
	switch method {
	case "refresh_token",
		"get_profile",
		"update_profile",
		"deactivate_account",
		"create_article",
		"update_article",
		"publish_article",
		"remove_article",
		"my_articles",
		"get_upload_url",
		"confirm_image_upload",
		"create_chat",
		"my_chats",
		"send_message",
		"get_messages",
		"mark_messages_read",
		"create_comment",
		"mark_comment_read",
		"delete_comment",
		"comments_received",
		"create_purchase",
		"confirm_purchase",
		"cancel_purchase",
		"my_purchases",
		"my_sales",
		"create_rating",
		"reassign_rating",
		"create_report",
		"my_reports":
		return true
	default:
		return false
	}
}

func (h *JsonApiHandler) sendSuccess(c *gin.Context, data interface{}) {
	resp := JsonApiResponse{Success: true, Data: data, NewToken: c.GetString(middleware.ContextKeyNewToken)}
	c.JSON(http.StatusOK, resp)
}

func (h *JsonApiHandler) sendError(c *gin.Context, apiErr *ApiError) {
	resp := JsonApiResponse{
		Success:   false,
		Message:   apiErr.Message,
		ErrorCode: apiErr.Code,
		NewToken:  c.GetString(middleware.ContextKeyNewToken),
	}
	c.JSON(http.StatusOK, resp)
}

// currentUserCode returns the authenticated caller's code. Only valid after
// checkAuthForMethod accepted the request.
func currentUserCode(c *gin.Context) utils.Code {
	if v, ok := c.Get(middleware.ContextKeyUserCode); ok {
		if code, ok := v.(utils.Code); ok {
			return code
		}
	}
	return 0
}

// parseArgs unmarshals the arguments object into dst.
func parseArgs(args json.RawMessage, dst interface{}) *ApiError {
	if len(args) == 0 {
		return NewApiError(CodeMissingField, "arguments are required")
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return NewApiError(CodeValidationError, "invalid arguments: "+err.Error())
	}
	return nil
}

// mapServiceError converts sentinel errors into envelope codes. Anything
// unrecognised is logged and reported as an internal failure without
// leaking detail to the client.
func mapServiceError(err error) *ApiError {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return NewApiError(CodeInvalidCredentials, "invalid login or password")
	case errors.Is(err, services.ErrAccountLocked):
		return NewApiError(CodeAccountLocked, "account temporarily locked, try again later")
	case errors.Is(err, services.ErrAccountDisabled):
		// Indistinguishable from a wrong password on purpose.
		return NewApiError(CodeInvalidCredentials, "invalid login or password")
	case errors.Is(err, services.ErrLoginExists):
		return NewApiError(CodeLoginExists, "login already registered")
	case errors.Is(err, services.ErrNotAvailable):
		return NewApiError(CodeArticleNotAvailable, "article is not available")
	case errors.Is(err, services.ErrSelfPurchase):
		return NewApiError(CodeSelfPurchase, "cannot buy your own article")
	case errors.Is(err, services.ErrSelfChat):
		return NewApiError(CodeSelfChat, "cannot open a chat on your own article")
	case errors.Is(err, services.ErrSelfRating):
		return NewApiError(CodeSelfRating, "cannot rate yourself")
	case errors.Is(err, services.ErrSelfReport):
		return NewApiError(CodeSelfReport, "cannot report your own content")
	case errors.Is(err, services.ErrForbidden):
		return NewApiError(CodeForbidden, "not allowed to perform this action")
	case errors.Is(err, services.ErrAlreadyCompleted), errors.Is(err, services.ErrConflict):
		return NewApiError(CodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		return NewApiError(CodeInvalidState, err.Error())
	case errors.Is(err, services.ErrValidation):
		return NewApiError(CodeValidationError, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return NewApiError(CodeNotFound, "not found")
	default:
		log.Printf("unexpected service error: %v", err)
		return NewApiError(CodeInternalError, "internal error")
	}
}

// mapArticleError is mapServiceError with the not-found case narrowed to
// the article-specific code.
func mapArticleError(err error) *ApiError {
	if errors.Is(err, services.ErrNotFound) {
		return NewApiError(CodeArticleNotFound, "article not found")
	}
	return mapServiceError(err)
}

func parseCodeField(value, name string) (utils.Code, *ApiError) {
	if value == "" {
		return 0, NewApiError(CodeMissingField, name+" is required")
	}
	code, err := utils.ParseCode(value)
	if err != nil {
		return 0, NewApiError(CodeValidationError, "invalid "+name+" format")
	}
	return code, nil
}

// --- account methods ---

type RegisterArgs struct {
	Name     string `json:"name"`
	Login    string `json:"login"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Login string `json:"login"`
}

func (h *JsonApiHandler) register(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs RegisterArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.Login == "" {
		return nil, NewApiError(CodeMissingField, "login is required")
	}
	if reqArgs.Password == "" {
		return nil, NewApiError(CodeMissingField, "password is required")
	}
	if reqArgs.Name == "" {
		return nil, NewApiError(CodeMissingField, "name is required")
	}

	ctx := c.Request.Context()
	user, err := h.userService.Register(ctx, reqArgs.Name, reqArgs.Login, reqArgs.Password, reqArgs.Phone, reqArgs.Location)
	if err != nil {
		return nil, mapServiceError(err)
	}

	token, err := auth.GenerateJWT(user.Code, user.Login, user.Name, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.Printf("failed to generate JWT for new user %s: %v", user.Code, err)
		return nil, NewApiError(CodeInternalError, "failed to generate session token")
	}

	return AuthResponse{Token: token, Code: user.Code.String(), Name: user.Name, Login: user.Login}, nil
}

type LoginArgs struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *JsonApiHandler) login(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs LoginArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.Login == "" {
		return nil, NewApiError(CodeMissingField, "login is required")
	}
	if reqArgs.Password == "" {
		return nil, NewApiError(CodeMissingField, "password is required")
	}

	ctx := c.Request.Context()
	user, err := h.userService.Authenticate(ctx, reqArgs.Login, reqArgs.Password)
	if err != nil {
		return nil, mapServiceError(err)
	}

	token, err := auth.GenerateJWT(user.Code, user.Login, user.Name, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.Printf("failed to generate JWT for user %s: %v", user.Code, err)
		return nil, NewApiError(CodeInternalError, "failed to generate session token")
	}

	return AuthResponse{Token: token, Code: user.Code.String(), Name: user.Name, Login: user.Login}, nil
}

type VerifyTokenArgs struct {
	Token string `json:"token"`
}

func (h *JsonApiHandler) verifyToken(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs VerifyTokenArgs
	if len(args) > 0 {
		// Arguments are optional here; the Bearer header is the fallback.
		if err := json.Unmarshal(args, &reqArgs); err != nil {
			return nil, NewApiError(CodeValidationError, "invalid arguments")
		}
	}
	tokenString := reqArgs.Token
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		return nil, NewApiError(CodeMissingField, "token is required")
	}

	claims, err := auth.ValidateJWT(tokenString, h.cfg.JwtSecret)
	if err != nil {
		return gin.H{"valid": false}, nil
	}
	return gin.H{
		"valid":      true,
		"user_code":  claims.UserCode.String(),
		"login":      claims.Login,
		"expires_at": claims.ExpiresAt.Time,
	}, nil
}

func (h *JsonApiHandler) refreshToken(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	claimsVal, _ := c.Get(middleware.ContextKeyClaims)
	claims, ok := claimsVal.(*auth.Claims)
	if !ok {
		return nil, NewApiError(CodeUnauthorized, "authentication required")
	}

	token, err := auth.GenerateJWT(claims.UserCode, claims.Login, claims.Name, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.Printf("failed to refresh JWT for user %s: %v", claims.UserCode, err)
		return nil, NewApiError(CodeInternalError, "failed to refresh session token")
	}
	return gin.H{"token": token}, nil
}

func (h *JsonApiHandler) getProfile(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	profile, err := h.userService.Profile(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return profile, nil
}

type UpdateProfileArgs struct {
	Updates map[string]interface{} `json:"updates"`
}

func (h *JsonApiHandler) updateProfile(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs UpdateProfileArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if len(reqArgs.Updates) == 0 {
		return nil, NewApiError(CodeMissingField, "updates are required")
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), currentUserCode(c), reqArgs.Updates)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return user, nil
}

func (h *JsonApiHandler) deactivateAccount(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	if err := h.userService.Deactivate(c.Request.Context(), currentUserCode(c)); err != nil {
		return nil, mapServiceError(err)
	}
	return nil, nil
}

type UserCodeArgs struct {
	Code string `json:"code"`
}

func (h *JsonApiHandler) getUserProfile(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs UserCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	code, apiErr := parseCodeField(reqArgs.Code, "code")
	if apiErr != nil {
		return nil, apiErr
	}

	profile, err := h.userService.Profile(c.Request.Context(), code)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return profile, nil
}

// --- article methods ---

type ArticleArgs struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Condition   string   `json:"condition"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

func (a ArticleArgs) toInput() services.ArticleInput {
	return services.ArticleInput{
		Name:        a.Name,
		Description: a.Description,
		Price:       a.Price,
		Condition:   models.ArticleCondition(a.Condition),
		Category:    a.Category,
		Location:    a.Location,
		Tags:        a.Tags,
	}
}

func (h *JsonApiHandler) createArticle(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs ArticleArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.Name == "" {
		return nil, NewApiError(CodeMissingField, "name is required")
	}

	article, err := h.articleService.CreateArticle(c.Request.Context(), currentUserCode(c), reqArgs.toInput())
	if err != nil {
		return nil, mapArticleError(err)
	}
	return article, nil
}

type UpdateArticleArgs struct {
	ArticleCode string `json:"article_code"`
	ArticleArgs
}

func (h *JsonApiHandler) updateArticle(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs UpdateArticleArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	articleCode, apiErr := parseCodeField(reqArgs.ArticleCode, "article_code")
	if apiErr != nil {
		return nil, apiErr
	}

	article, err := h.articleService.UpdateArticle(c.Request.Context(), articleCode, currentUserCode(c), reqArgs.toInput())
	if err != nil {
		return nil, mapArticleError(err)
	}
	return article, nil
}

type ArticleCodeArgs struct {
	ArticleCode string `json:"article_code"`
}

func (h *JsonApiHandler) parseArticleCodeArg(args json.RawMessage) (utils.Code, *ApiError) {
	var reqArgs ArticleCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return 0, apiErr
	}
	return parseCodeField(reqArgs.ArticleCode, "article_code")
}

func (h *JsonApiHandler) publishArticle(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	articleCode, apiErr := h.parseArticleCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := h.articleService.PublishArticle(c.Request.Context(), articleCode, currentUserCode(c)); err != nil {
		return nil, mapArticleError(err)
	}
	return nil, nil
}

func (h *JsonApiHandler) removeArticle(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	articleCode, apiErr := h.parseArticleCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	ctx := c.Request.Context()

	// Snapshot the image keys before removal; the soft-deleted article is
	// no longer loadable afterwards.
	article, err := h.articleService.FindArticleByCode(ctx, articleCode)
	if err != nil {
		return nil, mapArticleError(err)
	}
	if err := h.articleService.RemoveArticle(ctx, articleCode, currentUserCode(c), false); err != nil {
		return nil, mapArticleError(err)
	}

	// Best effort: a leaked object must not fail the removal.
	for _, image := range article.Images {
		for _, key := range []string{image.Key, image.ThumbKey} {
			if key == "" {
				continue
			}
			if err := h.storageService.DeleteObject(ctx, key); err != nil {
				log.Printf("failed to delete image %s of removed article %s: %v", key, articleCode, err)
			}
		}
	}
	return nil, nil
}

func (h *JsonApiHandler) getArticle(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	articleCode, apiErr := h.parseArticleCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	article, err := h.articleService.GetArticle(c.Request.Context(), articleCode)
	if err != nil {
		return nil, mapArticleError(err)
	}
	return article, nil
}

type ListArticlesArgs struct {
	Category  string   `json:"category"`
	Query     string   `json:"query"`
	PriceMin  *float64 `json:"price_min"`
	PriceMax  *float64 `json:"price_max"`
	Condition string   `json:"condition"`
	Location  string   `json:"location"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
}

func (h *JsonApiHandler) listArticles(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs ListArticlesArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &reqArgs); err != nil {
			return nil, NewApiError(CodeValidationError, "invalid arguments")
		}
	}

	articles, err := h.articleService.SearchArticles(c.Request.Context(), services.ArticleFilter{
		Category:  reqArgs.Category,
		Query:     reqArgs.Query,
		PriceMin:  reqArgs.PriceMin,
		PriceMax:  reqArgs.PriceMax,
		Condition: models.ArticleCondition(reqArgs.Condition),
		Location:  reqArgs.Location,
		Limit:     reqArgs.Limit,
		Offset:    reqArgs.Offset,
	})
	if err != nil {
		return nil, mapArticleError(err)
	}
	return articles, nil
}

func (h *JsonApiHandler) myArticles(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	articles, err := h.articleService.ArticlesByOwner(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapArticleError(err)
	}
	return articles, nil
}

type GetUploadURLArgs struct {
	ArticleCode string `json:"article_code"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func (h *JsonApiHandler) getUploadURL(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs GetUploadURLArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.Filename == "" || reqArgs.ContentType == "" {
		return nil, NewApiError(CodeMissingField, "filename and content_type are required")
	}
	articleCode, apiErr := parseCodeField(reqArgs.ArticleCode, "article_code")
	if apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	userCode := currentUserCode(c)

	article, err := h.articleService.FindArticleByCode(ctx, articleCode)
	if err != nil {
		return nil, mapArticleError(err)
	}
	if article.OwnerCode != userCode {
		return nil, NewApiError(CodeForbidden, "article does not belong to you")
	}

	uploadURL, objectKey, err := h.storageService.GeneratePresignedPutURL(ctx, userCode, articleCode, reqArgs.Filename, reqArgs.ContentType)
	if err != nil {
		log.Printf("failed to presign upload for user %s article %s: %v", userCode, articleCode, err)
		return nil, NewApiError(CodeInternalError, "failed to generate upload URL")
	}

	return gin.H{"upload_url": uploadURL, "object_key": objectKey}, nil
}

type ConfirmImageUploadArgs struct {
	ArticleCode string `json:"article_code"`
	ObjectKey   string `json:"object_key"`
}

func (h *JsonApiHandler) confirmImageUpload(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs ConfirmImageUploadArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.ObjectKey == "" {
		return nil, NewApiError(CodeMissingField, "object_key is required")
	}
	articleCode, apiErr := parseCodeField(reqArgs.ArticleCode, "article_code")
	if apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	userCode := currentUserCode(c)

	article, err := h.articleService.FindArticleByCode(ctx, articleCode)
	if err != nil {
		return nil, mapArticleError(err)
	}
	if article.OwnerCode != userCode {
		return nil, NewApiError(CodeForbidden, "article does not belong to you")
	}

	if err := h.imageQueue.EnqueueImageProcess(articleCode, userCode, reqArgs.ObjectKey); err != nil {
		log.Printf("failed to enqueue image processing for article %s key %s: %v", articleCode, reqArgs.ObjectKey, err)
		return nil, NewApiError(CodeInternalError, "failed to schedule image processing")
	}

	return gin.H{"message": "image upload confirmed, processing scheduled"}, nil
}

// --- chat methods ---

func (h *JsonApiHandler) createChat(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	articleCode, apiErr := h.parseArticleCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}

	result, err := h.chatService.CreateChat(c.Request.Context(), articleCode, currentUserCode(c))
	if err != nil {
		return nil, mapArticleError(err)
	}
	return gin.H{"chat": result.Chat, "created": result.NewChat}, nil
}

func (h *JsonApiHandler) myChats(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	chats, err := h.chatService.ChatsByUser(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return chats, nil
}

type SendMessageArgs struct {
	ChatCode string `json:"chat_code"`
	Content  string `json:"content"`
}

func (h *JsonApiHandler) sendMessage(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs SendMessageArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	chatCode, apiErr := parseCodeField(reqArgs.ChatCode, "chat_code")
	if apiErr != nil {
		return nil, apiErr
	}
	if strings.TrimSpace(reqArgs.Content) == "" {
		return nil, NewApiError(CodeMissingField, "content is required")
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), chatCode, currentUserCode(c), reqArgs.Content)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return message, nil
}

type ChatCodeArgs struct {
	ChatCode string `json:"chat_code"`
}

func (h *JsonApiHandler) getMessages(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs ChatCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	chatCode, apiErr := parseCodeField(reqArgs.ChatCode, "chat_code")
	if apiErr != nil {
		return nil, apiErr
	}

	messages, err := h.chatService.Messages(c.Request.Context(), chatCode, currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return messages, nil
}

func (h *JsonApiHandler) markMessagesRead(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs ChatCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	chatCode, apiErr := parseCodeField(reqArgs.ChatCode, "chat_code")
	if apiErr != nil {
		return nil, apiErr
	}

	updated, err := h.chatService.MarkMessagesRead(c.Request.Context(), chatCode, currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return gin.H{"updated": updated}, nil
}

// --- comment methods ---

type CreateCommentArgs struct {
	ArticleCode string `json:"article_code"`
	Text        string `json:"text"`
}

func (h *JsonApiHandler) createComment(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs CreateCommentArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	articleCode, apiErr := parseCodeField(reqArgs.ArticleCode, "article_code")
	if apiErr != nil {
		return nil, apiErr
	}
	if strings.TrimSpace(reqArgs.Text) == "" {
		return nil, NewApiError(CodeMissingField, "text is required")
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), articleCode, currentUserCode(c), reqArgs.Text)
	if err != nil {
		return nil, mapArticleError(err)
	}
	return comment, nil
}

type CommentCodeArgs struct {
	CommentCode string `json:"comment_code"`
}

func (h *JsonApiHandler) markCommentRead(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs CommentCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	commentCode, apiErr := parseCodeField(reqArgs.CommentCode, "comment_code")
	if apiErr != nil {
		return nil, apiErr
	}

	if err := h.commentService.MarkCommentRead(c.Request.Context(), commentCode, currentUserCode(c)); err != nil {
		return nil, mapServiceError(err)
	}
	return nil, nil
}

func (h *JsonApiHandler) deleteComment(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs CommentCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	commentCode, apiErr := parseCodeField(reqArgs.CommentCode, "comment_code")
	if apiErr != nil {
		return nil, apiErr
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), commentCode, currentUserCode(c)); err != nil {
		return nil, mapServiceError(err)
	}
	return nil, nil
}

func (h *JsonApiHandler) commentsReceived(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	comments, err := h.commentService.CommentsReceived(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return comments, nil
}

// --- purchase methods ---

func (h *JsonApiHandler) createPurchase(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	articleCode, apiErr := h.parseArticleCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}

	purchase, err := h.purchaseService.CreatePurchase(c.Request.Context(), currentUserCode(c), articleCode)
	if err != nil {
		return nil, mapArticleError(err)
	}
	return purchase, nil
}

type PurchaseCodeArgs struct {
	PurchaseCode string `json:"purchase_code"`
}

func (h *JsonApiHandler) parsePurchaseCodeArg(args json.RawMessage) (utils.Code, *ApiError) {
	var reqArgs PurchaseCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return 0, apiErr
	}
	return parseCodeField(reqArgs.PurchaseCode, "purchase_code")
}

func (h *JsonApiHandler) confirmPurchase(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	purchaseCode, apiErr := h.parsePurchaseCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	purchase, err := h.purchaseService.ConfirmPurchase(c.Request.Context(), purchaseCode, currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return purchase, nil
}

func (h *JsonApiHandler) cancelPurchase(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	purchaseCode, apiErr := h.parsePurchaseCodeArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	purchase, err := h.purchaseService.CancelPurchase(c.Request.Context(), purchaseCode, currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return purchase, nil
}

func (h *JsonApiHandler) myPurchases(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	purchases, err := h.purchaseService.PurchasesByBuyer(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return purchases, nil
}

func (h *JsonApiHandler) mySales(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	sales, err := h.purchaseService.PurchasesBySeller(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return sales, nil
}

// --- rating methods ---

type CreateRatingArgs struct {
	RateeCode    string `json:"ratee_code"`
	Score        int    `json:"score"`
	Comment      string `json:"comment"`
	PurchaseCode string `json:"purchase_code"`
}

func (h *JsonApiHandler) createRating(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs CreateRatingArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	rateeCode, apiErr := parseCodeField(reqArgs.RateeCode, "ratee_code")
	if apiErr != nil {
		return nil, apiErr
	}

	var purchaseCode *utils.Code
	if reqArgs.PurchaseCode != "" {
		code, codeErr := parseCodeField(reqArgs.PurchaseCode, "purchase_code")
		if codeErr != nil {
			return nil, codeErr
		}
		purchaseCode = &code
	}

	rating, err := h.ratingService.CreateRating(c.Request.Context(), currentUserCode(c), rateeCode, reqArgs.Score, reqArgs.Comment, purchaseCode)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return rating, nil
}

type ReassignRatingArgs struct {
	RatingCode string `json:"rating_code"`
	RateeCode  string `json:"ratee_code"`
}

func (h *JsonApiHandler) reassignRating(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs ReassignRatingArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	ratingCode, apiErr := parseCodeField(reqArgs.RatingCode, "rating_code")
	if apiErr != nil {
		return nil, apiErr
	}
	rateeCode, apiErr := parseCodeField(reqArgs.RateeCode, "ratee_code")
	if apiErr != nil {
		return nil, apiErr
	}

	rating, err := h.ratingService.ReassignRating(c.Request.Context(), ratingCode, currentUserCode(c), rateeCode)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return rating, nil
}

func (h *JsonApiHandler) ratingsForUser(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs UserCodeArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	code, apiErr := parseCodeField(reqArgs.Code, "code")
	if apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	ratings, err := h.ratingService.RatingsForUser(ctx, code)
	if err != nil {
		return nil, mapServiceError(err)
	}
	average, count, err := h.ratingService.AverageForUser(ctx, code)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return gin.H{"ratings": ratings, "average": average, "count": count}, nil
}

// --- report methods ---

type CreateReportArgs struct {
	TargetType  string `json:"target_type"`
	TargetCode  string `json:"target_code"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func (h *JsonApiHandler) createReport(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs CreateReportArgs
	if apiErr := parseArgs(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if !models.ValidReportTarget(models.ReportTargetType(reqArgs.TargetType)) {
		return nil, NewApiError(CodeInvalidType, fmt.Sprintf("unknown target_type: %s", reqArgs.TargetType))
	}
	targetCode, apiErr := parseCodeField(reqArgs.TargetCode, "target_code")
	if apiErr != nil {
		return nil, apiErr
	}
	if strings.TrimSpace(reqArgs.Description) == "" {
		return nil, NewApiError(CodeMissingField, "description is required")
	}

	report, err := h.reportService.CreateReport(c.Request.Context(), currentUserCode(c), services.ReportInput{
		TargetType:  models.ReportTargetType(reqArgs.TargetType),
		TargetCode:  targetCode,
		Reason:      models.ReportReason(reqArgs.Reason),
		Description: reqArgs.Description,
	})
	if err != nil {
		return nil, mapServiceError(err)
	}
	return report, nil
}

func (h *JsonApiHandler) myReports(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	reports, err := h.reportService.ReportsByReporter(c.Request.Context(), currentUserCode(c))
	if err != nil {
		return nil, mapServiceError(err)
	}
	return reports, nil
}

// --- reference data ---

func (h *JsonApiHandler) listCategories(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	categories, err := h.taxonomyService.ListCategories(c.Request.Context())
	if err != nil {
		return nil, mapServiceError(err)
	}
	return categories, nil
}

func (h *JsonApiHandler) listTags(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	tags, err := h.taxonomyService.ListTags(c.Request.Context())
	if err != nil {
		return nil, mapServiceError(err)
	}
	return tags, nil
}
