package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"courtwise/config"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

var (
	secretOnce sync.Once
	secretKey  []byte
)

// signingKey returns the configured JWT secret. Without one an ephemeral key is
// generated, so issued session keys only survive until the next restart.
func signingKey() []byte {
	secretOnce.Do(func() {
		if s := config.AppConfig.JWTSecret; s != "" {
			secretKey = []byte(s)
			return
		}
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			panic("jwt: cannot generate signing key: " + err.Error())
		}
		secretKey = b
		GetLogger().Warn("JWT_SECRET not set, using an ephemeral signing key")
	})
	return secretKey
}

// GenerateSessionToken signs a token whose subject is the client session key.
func GenerateSessionToken(sessionKey string, duration time.Duration) (string, error) {
	if sessionKey == "" {
		return "", errors.New("session key is required")
	}
	claims := jwt.MapClaims{
		"sub": sessionKey,
		"typ": "session",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// HashToken computes a SHA-256 hash of the token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return signingKey(), nil
	})
}

// ExtractSessionKey validates a session token and returns its subject.
func ExtractSessionKey(tokenString string) (string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		GetLogger().Debug("session token rejected", zap.Error(err))
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != "session" {
		return "", errors.New("token is not a session token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}
	return sub, nil
}
