package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/dungeonfighter/cache"
	"github.com/kasuganosora/dungeonfighter/config"
)

const PlayerNameKey = "player_name"

// ErrSessionExpired is returned for validly signed tokens whose session is
// gone from the cache.
var ErrSessionExpired = errors.New("session expired")

// SessionKey is the cache key marking a guest token as live.
func SessionKey(token string) string { return "session:" + token }

// Authenticate checks the token signature and that its session is still
// cached.
func Authenticate(ctx context.Context, tokenStr string, sec config.SecurityConfig, c cache.Cache) (*Claims, error) {
	claims, err := ParseToken(tokenStr, sec.JWTSecret)
	if err != nil {
		return nil, err
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
	if err != nil || !exists {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := Authenticate(ctx.Request.Context(), strings.TrimPrefix(header, "Bearer "), sec, c)
		if errors.Is(err, ErrSessionExpired) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx.Set(PlayerNameKey, claims.PlayerName)
		ctx.Next()
	}
}

// GetPlayerName retrieves the authenticated player name from the Gin context.
func GetPlayerName(c *gin.Context) string {
	if v, exists := c.Get(PlayerNameKey); exists {
		return v.(string)
	}
	return ""
}
