// Package server provides the ProcSentry Gin-based REST API.
//
// Two kinds of callers authenticate against it: human operators, who trade
// credentials for a signed HS256 JWT at /api/login, and external collectors,
// which push snapshots under a pre-shared token. Both present
// "Authorization: Bearer <credential>", but only operators ever hold a JWT.
package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// RoleOperator is the only role /api/login issues. A JWT claiming any other
// role did not come from us and is rejected.
const RoleOperator = "operator"

// AuthConfig carries the credential material for both audiences.
type AuthConfig struct {
	JWTSecret   string
	Issuer      string
	TokenTTL    time.Duration
	IngestToken string
}

var authCfg AuthConfig

// ConfigureAuth installs the credential material; call before registering
// routes. Zero issuer / TTL fall back to sane values.
func ConfigureAuth(cfg AuthConfig) {
	if cfg.Issuer == "" {
		cfg.Issuer = "procsentry"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	authCfg = cfg
}

// Claims is the payload embedded in every operator JWT.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed operator token using the configured issuer
// and lifetime.
func GenerateJWT(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		Role:     RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    authCfg.Issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authCfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(authCfg.JWTSecret))
}

// parseOperatorToken validates signature, issuer, expiry, and role.
func parseOperatorToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return []byte(authCfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(authCfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleOperator {
		return nil, fmt.Errorf("role %q lacks operator access", claims.Role)
	}
	return claims, nil
}

// bearerToken pulls the credential out of an "Authorization: Bearer <...>"
// header. ok is false when the header is absent or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	raw := c.GetHeader("Authorization")
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// OperatorAuth guards the operator API. On success the username from the
// token claims is stored in the Gin context as "username".
func OperatorAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "operator token required: Authorization: Bearer <jwt>",
			})
			return
		}
		claims, err := parseOperatorToken(cred)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}
		c.Set("username", claims.Username)
		c.Next()
	}
}

// IngestAuth guards the snapshot push endpoint with the pre-shared collector
// token. The comparison is constant-time so the token cannot be recovered
// through timing probes, and an unconfigured (empty) token closes the
// endpoint rather than opening it.
func IngestAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := bearerToken(c)
		if !ok || authCfg.IngestToken == "" ||
			subtle.ConstantTimeCompare([]byte(cred), []byte(authCfg.IngestToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing ingest token",
			})
			return
		}
		c.Next()
	}
}
