package handlers_test

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, name, login, password, phone, location string) (*models.User, error) {
	args := m.Called(ctx, name, login, password, phone, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	args := m.Called(ctx, login, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByCode(ctx context.Context, code utils.Code) (*models.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, code utils.Code, updates map[string]interface{}) (*models.User, error) {
	args := m.Called(ctx, code, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Deactivate(ctx context.Context, code utils.Code) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockUserService) Profile(ctx context.Context, code utils.Code) (*models.UserProfile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

// MockArticleService
type MockArticleService struct {
	mock.Mock
}

func (m *MockArticleService) CreateArticle(ctx context.Context, ownerCode utils.Code, input services.ArticleInput) (*models.Article, error) {
	args := m.Called(ctx, ownerCode, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) UpdateArticle(ctx context.Context, articleCode, ownerCode utils.Code, input services.ArticleInput) (*models.Article, error) {
	args := m.Called(ctx, articleCode, ownerCode, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) PublishArticle(ctx context.Context, articleCode, ownerCode utils.Code) error {
	args := m.Called(ctx, articleCode, ownerCode)
	return args.Error(0)
}

func (m *MockArticleService) RemoveArticle(ctx context.Context, articleCode, actorCode utils.Code, byModerator bool) error {
	args := m.Called(ctx, articleCode, actorCode, byModerator)
	return args.Error(0)
}

func (m *MockArticleService) GetArticle(ctx context.Context, articleCode utils.Code) (*models.Article, error) {
	args := m.Called(ctx, articleCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) FindArticleByCode(ctx context.Context, articleCode utils.Code) (*models.Article, error) {
	args := m.Called(ctx, articleCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) SearchArticles(ctx context.Context, filter services.ArticleFilter) ([]models.Article, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Article), args.Error(1)
}

func (m *MockArticleService) ArticlesByOwner(ctx context.Context, ownerCode utils.Code) ([]models.Article, error) {
	args := m.Called(ctx, ownerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Article), args.Error(1)
}

func (m *MockArticleService) RemoveArticlesByOwner(ctx context.Context, ownerCode utils.Code) error {
	args := m.Called(ctx, ownerCode)
	return args.Error(0)
}

func (m *MockArticleService) AddImage(ctx context.Context, articleCode, ownerCode utils.Code, image models.ArticleImage) error {
	args := m.Called(ctx, articleCode, ownerCode, image)
	return args.Error(0)
}

func (m *MockArticleService) ReserveArticle(ctx context.Context, articleCode utils.Code) error {
	args := m.Called(ctx, articleCode)
	return args.Error(0)
}

func (m *MockArticleService) SellArticle(ctx context.Context, articleCode utils.Code) error {
	args := m.Called(ctx, articleCode)
	return args.Error(0)
}

func (m *MockArticleService) ReleaseArticle(ctx context.Context, articleCode utils.Code) error {
	args := m.Called(ctx, articleCode)
	return args.Error(0)
}

// MockChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) CreateChat(ctx context.Context, articleCode, buyerCode utils.Code) (*services.ChatResult, error) {
	args := m.Called(ctx, articleCode, buyerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ChatResult), args.Error(1)
}

func (m *MockChatService) FindChatByCode(ctx context.Context, chatCode utils.Code) (*models.Chat, error) {
	args := m.Called(ctx, chatCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatService) ChatsByUser(ctx context.Context, userCode utils.Code) ([]models.Chat, error) {
	args := m.Called(ctx, userCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, chatCode, senderCode utils.Code, content string) (*models.Message, error) {
	args := m.Called(ctx, chatCode, senderCode, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockChatService) Messages(ctx context.Context, chatCode, userCode utils.Code) ([]models.Message, error) {
	args := m.Called(ctx, chatCode, userCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockChatService) MarkMessagesRead(ctx context.Context, chatCode, userCode utils.Code) (int64, error) {
	args := m.Called(ctx, chatCode, userCode)
	return args.Get(0).(int64), args.Error(1)
}

// MockCommentService
type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) CreateComment(ctx context.Context, articleCode, senderCode utils.Code, text string) (*models.Comment, error) {
	args := m.Called(ctx, articleCode, senderCode, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentService) MarkCommentRead(ctx context.Context, commentCode, userCode utils.Code) error {
	args := m.Called(ctx, commentCode, userCode)
	return args.Error(0)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentCode, userCode utils.Code) error {
	args := m.Called(ctx, commentCode, userCode)
	return args.Error(0)
}

func (m *MockCommentService) CommentsReceived(ctx context.Context, userCode utils.Code) ([]models.Comment, error) {
	args := m.Called(ctx, userCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockCommentService) CommentsForArticle(ctx context.Context, articleCode utils.Code) ([]models.Comment, error) {
	args := m.Called(ctx, articleCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

// MockPurchaseService
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) CreatePurchase(ctx context.Context, buyerCode, articleCode utils.Code) (*models.Purchase, error) {
	args := m.Called(ctx, buyerCode, articleCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *MockPurchaseService) ConfirmPurchase(ctx context.Context, purchaseCode, actorCode utils.Code) (*models.Purchase, error) {
	args := m.Called(ctx, purchaseCode, actorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *MockPurchaseService) CancelPurchase(ctx context.Context, purchaseCode, actorCode utils.Code) (*models.Purchase, error) {
	args := m.Called(ctx, purchaseCode, actorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *MockPurchaseService) FindPurchaseByCode(ctx context.Context, purchaseCode utils.Code) (*models.Purchase, error) {
	args := m.Called(ctx, purchaseCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *MockPurchaseService) PurchasesByBuyer(ctx context.Context, buyerCode utils.Code) ([]models.Purchase, error) {
	args := m.Called(ctx, buyerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Purchase), args.Error(1)
}

func (m *MockPurchaseService) PurchasesBySeller(ctx context.Context, sellerCode utils.Code) ([]models.Purchase, error) {
	args := m.Called(ctx, sellerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Purchase), args.Error(1)
}

// MockRatingService
type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) CreateRating(ctx context.Context, raterCode, rateeCode utils.Code, score int, comment string, purchaseCode *utils.Code) (*models.Rating, error) {
	args := m.Called(ctx, raterCode, rateeCode, score, comment, purchaseCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

func (m *MockRatingService) ReassignRating(ctx context.Context, ratingCode, raterCode, newRateeCode utils.Code) (*models.Rating, error) {
	args := m.Called(ctx, ratingCode, raterCode, newRateeCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

func (m *MockRatingService) RatingsForUser(ctx context.Context, userCode utils.Code) ([]models.Rating, error) {
	args := m.Called(ctx, userCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

func (m *MockRatingService) AverageForUser(ctx context.Context, userCode utils.Code) (float64, int64, error) {
	args := m.Called(ctx, userCode)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

// MockReportService
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) CreateReport(ctx context.Context, reporterCode utils.Code, input services.ReportInput) (*models.Report, error) {
	args := m.Called(ctx, reporterCode, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) ReportsByReporter(ctx context.Context, reporterCode utils.Code) ([]models.Report, error) {
	args := m.Called(ctx, reporterCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockReportService) AssignReport(ctx context.Context, reportCode, moderatorCode utils.Code) error {
	args := m.Called(ctx, reportCode, moderatorCode)
	return args.Error(0)
}

func (m *MockReportService) ResolveReport(ctx context.Context, reportCode, moderatorCode utils.Code, upheld bool, resolution string) error {
	args := m.Called(ctx, reportCode, moderatorCode, upheld, resolution)
	return args.Error(0)
}

func (m *MockReportService) CloseReport(ctx context.Context, reportCode, moderatorCode utils.Code) error {
	args := m.Called(ctx, reportCode, moderatorCode)
	return args.Error(0)
}

// MockTaxonomyService
type MockTaxonomyService struct {
	mock.Mock
}

func (m *MockTaxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockTaxonomyService) ListTags(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockTaxonomyService) CategoryExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaxonomyService) FilterTags(ctx context.Context, slugs []string) ([]string, error) {
	args := m.Called(ctx, slugs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTaxonomyService) Seed(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context) (models.AppSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, settings models.AppSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockSettingsService) Seed(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) SubscribeToChanges(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, userCode, articleCode utils.Code, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userCode, articleCode, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) GetObject(ctx context.Context, key string) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Storage) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockS3Storage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockS3Storage) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// MockImageQueue
type MockImageQueue struct {
	mock.Mock
}

func (m *MockImageQueue) EnqueueImageProcess(articleCode, ownerCode utils.Code, s3Key string) error {
	args := m.Called(articleCode, ownerCode, s3Key)
	return args.Error(0)
}
