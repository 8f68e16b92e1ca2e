package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"notifybell/internal/domain"
	"notifybell/internal/http/dto"
	"notifybell/internal/http/resp"
)

const identityKey = "identity"

// Claims is the bearer token payload issued by the dashboard login.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// GenerateToken signs an HS256 token for id, valid for ttl.
func GenerateToken(secret string, id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   id.UserID,
		},
		UserID: id.UserID,
		Email:  id.Email,
		Role:   string(id.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// JWTAuth verifies the bearer token, applies the email domain gate and
// stores the caller's identity in the context.
func JWTAuth(secret, allowedDomain string, logger *zap.Logger) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		if secret == "" {
			logger.Error("jwt secret not configured")
			abort(c, http.StatusUnauthorized, resp.CodeUnauthorized, "authentication is not configured")
			return
		}

		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || tokenString == "" {
			abort(c, http.StatusUnauthorized, resp.CodeUnauthorized, "bearer token required")
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Debug("token rejected", zap.Error(err))
			abort(c, http.StatusUnauthorized, resp.CodeUnauthorized, "invalid token")
			return
		}
		if claims.UserID == "" {
			abort(c, http.StatusUnauthorized, resp.CodeUnauthorized, "token has no user")
			return
		}
		if !domain.EmailInDomain(claims.Email, allowedDomain) {
			logger.Warn("email outside allowed domain",
				zap.String("user_id", claims.UserID),
				zap.String("email", claims.Email),
			)
			abort(c, http.StatusForbidden, resp.CodeForbidden, "email domain not allowed")
			return
		}

		c.Set(identityKey, domain.Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   domain.Role(claims.Role),
		})
		c.Next()
	}
}

// RequireAdmin rejects callers outside the admin class.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || !id.IsAdminClass() {
			abort(c, http.StatusForbidden, resp.CodeForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity JWTAuth stored.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Code: code, Message: message})
}
