package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes and returns a Redis client instance.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		// Close the client if ping fails
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Successfully connected to Redis")
	return rdb, nil
}

// DisconnectRedis closes the Redis client connection.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Println("Redis connection closed")
	return nil
}

func loginAttemptsKey(login string) string {
	return "login_attempts:" + login
}

// RecordLoginFailure increments the failed-attempt counter for a login and
// returns the new count. The counter expires after the lockout window so a
// stale lockout clears itself.
func RecordLoginFailure(ctx context.Context, rdb *redis.Client, login string, lockout time.Duration) (int64, error) {
	key := loginAttemptsKey(login)
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}
	if count == 1 {
		// First failure starts the window.
		if err := rdb.Expire(ctx, key, lockout).Err(); err != nil {
			return count, fmt.Errorf("failed to set lockout expiry: %w", err)
		}
	}
	return count, nil
}

// LoginFailureCount returns the current failed-attempt count for a login.
func LoginFailureCount(ctx context.Context, rdb *redis.Client, login string) (int64, error) {
	count, err := rdb.Get(ctx, loginAttemptsKey(login)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read login failures: %w", err)
	}
	return count, nil
}

// ClearLoginFailures resets the counter after a successful login.
func ClearLoginFailures(ctx context.Context, rdb *redis.Client, login string) error {
	if err := rdb.Del(ctx, loginAttemptsKey(login)).Err(); err != nil {
		return fmt.Errorf("failed to clear login failures: %w", err)
	}
	return nil
}
