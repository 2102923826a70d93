package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys set by AuthMiddleware
const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
	CtxEmailKey    = "email"
	CtxRolesKey    = "roles"
)

// ErrInvalidToken is returned by resolvers for rejected credentials.
var ErrInvalidToken = errors.New("invalid or expired token")

// AuthUser represents the user info returned from auth service
type AuthUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// TokenResolver turns a bearer token into the calling user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*AuthUser, error)
}

// AuthClient handles communication with the auth service
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAuthClient creates a new auth client
func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Resolve implements TokenResolver via GetMe.
func (c *AuthClient) Resolve(ctx context.Context, token string) (*AuthUser, error) {
	return c.GetMe(ctx, token)
}

// GetMe retrieves user info and role memberships from auth service using the token
func (c *AuthClient) GetMe(ctx context.Context, token string) (*AuthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("auth service error: %d - %s", resp.StatusCode, string(body))
	}

	var user AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("auth service returned no user id: %w", ErrInvalidToken)
	}

	return &user, nil
}

// AuthMiddleware creates a middleware that resolves the caller from the bearer token.
// It sets "user_id", "username", "email" and "roles" in the gin context if authentication succeeds.
// When allowUnauthenticatedFallback is true (demo mode), missing/invalid tokens fall back to user_id="1" without roles.
// When false (default), returns 401 for missing or invalid tokens and 503 when the resolver itself fails.
func AuthMiddleware(resolver TokenResolver, logger *zap.Logger, allowUnauthenticatedFallback bool) gin.HandlerFunc {
	fallback := func(c *gin.Context) {
		c.Set(CtxUserIDKey, "1")
		c.Set(CtxRolesKey, []string{})
		c.Next()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if allowUnauthenticatedFallback {
				fallback(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			if allowUnauthenticatedFallback {
				fallback(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if allowUnauthenticatedFallback {
				fallback(c)
				return
			}
			if !errors.Is(err, ErrInvalidToken) {
				if logger != nil {
					logger.Error("Auth service unavailable", zap.Error(err))
				}
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication service unavailable"})
				return
			}
			if logger != nil {
				logger.Debug("Auth validation failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		roles := user.Roles
		if roles == nil {
			roles = []string{}
		}
		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxUsernameKey, user.Username)
		c.Set(CtxEmailKey, user.Email)
		c.Set(CtxRolesKey, roles)
		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>" (scheme is case-insensitive).
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
