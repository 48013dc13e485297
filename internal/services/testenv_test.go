package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/config"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

const servicesTestDB = "secondmarket_services_test"

// Dropped before every database-backed test for a clean slate.
var serviceTestCollections = []string{
	"users", "articles", "chats", "messages", "comments",
	"purchases", "ratings", "reports", "settings",
	"categories", "tags", "counters",
}

// recordingNotifier captures notification calls instead of enqueueing
// real tasks.
type recordingNotifier struct {
	mu             sync.Mutex
	purchaseEvents []string
	messages       int
	comments       int
}

func (n *recordingNotifier) NotifyPurchase(event string, _ *models.Purchase) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchaseEvents = append(n.purchaseEvents, event)
	return nil
}

func (n *recordingNotifier) NotifyMessage(_, _, _, _ utils.Code, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages++
	return nil
}

func (n *recordingNotifier) NotifyComment(_ *models.Comment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments++
	return nil
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.purchaseEvents...)
}

// testEnv wires the full service graph against the test database, the way
// the router does in production.
type testEnv struct {
	db        *mongo.Database
	cfg       *config.Config
	rdb       *redis.Client
	notifier  *recordingNotifier
	taxonomy  ITaxonomyService
	articles  IArticleService
	users     IUserService
	chats     IChatService
	comments  ICommentService
	purchases IPurchaseService
	ratings   IRatingService
	reports   IReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	database := utils.SetupTestDB(t, servicesTestDB, serviceTestCollections...)
	require.NoError(t, db.EnsureIndexes(ctx, database))

	cfg := &config.Config{
		PasswordMinLen:   8,
		PasswordMaxLen:   50,
		MaxLoginAttempts: 3,
		LoginLockout:     time.Minute,
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	notifier := &recordingNotifier{}
	taxonomy := NewTaxonomyService(database)
	require.NoError(t, taxonomy.Seed(ctx))

	articles := NewArticleService(database, cfg, taxonomy)
	users := NewUserService(database, rdb, cfg, articles)
	chats := NewChatService(database, articles, notifier)
	comments := NewCommentService(database, articles, notifier)
	purchases := NewPurchaseService(database, articles, notifier)
	ratings := NewRatingService(database, users)
	reports := NewReportService(database, articles, comments, users)

	return &testEnv{
		db:        database,
		cfg:       cfg,
		rdb:       rdb,
		notifier:  notifier,
		taxonomy:  taxonomy,
		articles:  articles,
		users:     users,
		chats:     chats,
		comments:  comments,
		purchases: purchases,
		ratings:   ratings,
		reports:   reports,
	}
}

// requireRedis skips the test when no Redis instance is reachable. Only
// the lockout paths need one; everything else degrades gracefully.
func (e *testEnv) requireRedis(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
}

// registerUser creates an active account with a login unique per run, so
// leftover lockout counters in Redis cannot bleed between runs.
func (e *testEnv) registerUser(t *testing.T, name string) *models.User {
	t.Helper()
	login := fmt.Sprintf("%s-%d@example.com", strings.ToLower(name), time.Now().UnixNano())
	user, err := e.users.Register(context.Background(), name, login, "secret-password", "", "")
	require.NoError(t, err)
	return user
}

func (e *testEnv) draftArticle(t *testing.T, owner utils.Code, name string, price float64) *models.Article {
	t.Helper()
	article, err := e.articles.CreateArticle(context.Background(), owner, ArticleInput{
		Name:        name,
		Description: "tested and working",
		Price:       price,
		Condition:   models.ConditionGood,
		Category:    "electronics",
	})
	require.NoError(t, err)
	return article
}

func (e *testEnv) publishedArticle(t *testing.T, owner utils.Code, name string, price float64) *models.Article {
	t.Helper()
	ctx := context.Background()
	article := e.draftArticle(t, owner, name, price)
	require.NoError(t, e.articles.PublishArticle(ctx, article.Code, owner))
	published, err := e.articles.FindArticleByCode(ctx, article.Code)
	require.NoError(t, err)
	return published
}
