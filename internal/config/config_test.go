package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("SECOND_MARKET_JWT_SECRET", "config-test-secret")
	t.Setenv("JWT_TTL_SECONDS", "3600")

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, "config-test-secret", cfg.JwtSecret)
	assert.Equal(t, time.Hour, cfg.JwtTTL)
	assert.Equal(t, "second_market", cfg.MongoDbName)
	assert.Equal(t, "8080", cfg.ApiPort)
}

func TestLoad_RequiresJwtSecret(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	// t.Setenv registers the restore; unset so the variable is truly absent
	// even when the ambient environment defines it.
	t.Setenv("SECOND_MARKET_JWT_SECRET", "")
	os.Unsetenv("SECOND_MARKET_JWT_SECRET")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECOND_MARKET_JWT_SECRET")
}

func TestLoad_RequiresMongoURI(t *testing.T) {
	t.Setenv("SECOND_MARKET_JWT_SECRET", "config-test-secret")
	t.Setenv("MONGO_URI", "")
	os.Unsetenv("MONGO_URI")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("SECOND_MARKET_JWT_SECRET", "config-test-secret")
	t.Setenv("SMTP_PORT", "not-a-port")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
}
