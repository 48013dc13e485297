package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

var (
	// ErrTokenExpired means the token was well-formed and correctly signed
	// but its expiry is in the past. Expired tokens are never refreshed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens and signature failures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMissing is returned when no bearer token was supplied.
	ErrTokenMissing = errors.New("token missing")
)

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserCode utils.Code `json:"user_code"`
	Login    string     `json:"login"`
	Name     string     `json:"name"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new signed token for a given user, expiring ttl
// from now.
func GenerateJWT(userCode utils.Code, login, name, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserCode: userCode,
		Login:    login,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userCode.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT verifies a JWT string and returns the claims if valid.
// Expiry failures are distinguished from every other failure so callers
// can tell the client to re-authenticate rather than retry.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if !claims.UserCode.Valid() {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// MaybeRefresh issues a replacement token when the supplied claims are
// still valid but close to expiry: a new token is returned iff
// 0 < remaining lifetime < threshold. Outside that window it returns
// ("", false) and the caller keeps using the original token.
func MaybeRefresh(claims *Claims, secretKey string, ttl, threshold time.Duration) (string, bool) {
	return maybeRefreshAt(claims, secretKey, ttl, threshold, time.Now())
}

func maybeRefreshAt(claims *Claims, secretKey string, ttl, threshold time.Duration, now time.Time) (string, bool) {
	if claims == nil || claims.ExpiresAt == nil {
		return "", false
	}
	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining <= 0 || remaining >= threshold {
		return "", false
	}
	token, err := GenerateJWT(claims.UserCode, claims.Login, claims.Name, secretKey, ttl)
	if err != nil {
		return "", false
	}
	return token, true
}
