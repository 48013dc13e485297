package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/auth"
)

func TestRegister_CreatesActiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	login := fmt.Sprintf("Ana-%d@Example.COM", time.Now().UnixNano())
	user, err := env.users.Register(ctx, "  Ana  ", login, "secret-password", "600111222", "Valencia")
	require.NoError(t, err)

	assert.True(t, user.Code.Valid())
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, strings.ToLower(login), user.Login)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret-password", user.PasswordHash)
	assert.True(t, auth.CheckPasswordHash("secret-password", user.PasswordHash))
}

func TestRegister_RejectsDuplicateLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.registerUser(t, "Ana")

	_, err := env.users.Register(ctx, "Impostor", first.Login, "another-password", "", "")
	assert.ErrorIs(t, err, ErrLoginExists)
}

func TestRegister_ValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		userName string
		login    string
		password string
	}{
		{"empty name", "", "ana@example.com", "secret-password"},
		{"login without at sign", "Ana", "not-an-email", "secret-password"},
		{"short password", "Ana", "ana@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.users.Register(ctx, tc.userName, tc.login, tc.password, "", "")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthenticate_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.registerUser(t, "Ana")

	user, err := env.users.Authenticate(ctx, registered.Login, "secret-password")
	require.NoError(t, err)
	assert.Equal(t, registered.Code, user.Code)
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.registerUser(t, "Ana")

	_, err := env.users.Authenticate(ctx, registered.Login, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody@example.com", "secret-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.registerUser(t, "Ana")
	require.NoError(t, env.users.Deactivate(ctx, registered.Code))

	_, err := env.users.Authenticate(ctx, registered.Login, "secret-password")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthenticate_LockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.requireRedis(t)
	ctx := context.Background()

	registered := env.registerUser(t, "Ana")

	for i := 0; i < env.cfg.MaxLoginAttempts; i++ {
		_, err := env.users.Authenticate(ctx, registered.Login, "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the correct password is refused while the counter is hot.
	_, err := env.users.Authenticate(ctx, registered.Login, "secret-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.registerUser(t, "Ana")

	updated, err := env.users.UpdateProfile(ctx, registered.Code, map[string]interface{}{
		"name":     "Ana Maria",
		"location": "Alicante",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "Alicante", updated.Location)

	_, err = env.users.UpdateProfile(ctx, registered.Code, map[string]interface{}{"login": "new@example.com"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.UpdateProfile(ctx, registered.Code, map[string]interface{}{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.registerUser(t, "Ana")

	_, err := env.users.UpdateProfile(ctx, registered.Code, map[string]interface{}{"password": "short"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.UpdateProfile(ctx, registered.Code, map[string]interface{}{"password": "brand-new-password"})
	require.NoError(t, err)

	_, err = env.users.Authenticate(ctx, registered.Login, "brand-new-password")
	assert.NoError(t, err)
}

func TestDeactivate_CascadesToArticles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.registerUser(t, "Ana")
	article := env.publishedArticle(t, seller.Code, "Old bike", 80)

	require.NoError(t, env.users.Deactivate(ctx, seller.Code))

	user, err := env.users.FindByCode(ctx, seller.Code)
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.NotNil(t, user.DeactivatedAt)

	_, err = env.articles.FindArticleByCode(ctx, article.Code)
	assert.ErrorIs(t, err, ErrNotFound)

	// Already off.
	assert.ErrorIs(t, env.users.Deactivate(ctx, seller.Code), ErrNotFound)
}

func TestProfile_Counters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.registerUser(t, "Ana")
	buyer := env.registerUser(t, "Ben")

	sold := env.publishedArticle(t, seller.Code, "Record player", 75)
	env.publishedArticle(t, seller.Code, "Headphones", 20)

	purchase, err := env.purchases.CreatePurchase(ctx, buyer.Code, sold.Code)
	require.NoError(t, err)
	_, err = env.purchases.ConfirmPurchase(ctx, purchase.Code, seller.Code)
	require.NoError(t, err)

	_, err = env.ratings.CreateRating(ctx, buyer.Code, seller.Code, 4, "smooth deal", &purchase.Code)
	require.NoError(t, err)

	profile, err := env.users.Profile(ctx, seller.Code)
	require.NoError(t, err)
	assert.Equal(t, seller.Code.String(), profile.Code)
	assert.Equal(t, int64(1), profile.ForSale)
	assert.Equal(t, int64(1), profile.Sold)
	assert.Equal(t, int64(0), profile.Bought)
	assert.Equal(t, 4.0, profile.AverageRating)
	assert.Equal(t, int64(1), profile.RatingCount)

	buyerProfile, err := env.users.Profile(ctx, buyer.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), buyerProfile.Bought)
}

func TestProfile_DeactivatedAccountNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerUser(t, "Ana")
	require.NoError(t, env.users.Deactivate(ctx, user.Code))

	_, err := env.users.Profile(ctx, user.Code)
	assert.ErrorIs(t, err, ErrNotFound)
}
