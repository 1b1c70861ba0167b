package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vuhoang/student-records-api/pkg/config"
)

// ActorKey is the gin context key holding the acting staff ID.
const ActorKey = "actor_staff_id"

// StaffIDHeader lets trusted internal callers name the acting staff member
// without a token.
const StaffIDHeader = "X-Staff-ID"

// Actor resolves who performs each mutation. A bearer token's staff_id claim
// wins, then the X-Staff-ID header, then the configured default. The workflow
// records this identity in registration history.
func Actor(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := cfg.DefaultStaffID

		if header := c.GetHeader(StaffIDHeader); header != "" {
			actor = header
		}
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			if claimed, err := staffIDFromToken(strings.TrimPrefix(auth, "Bearer "), cfg.JWTSecret); err == nil && claimed != "" {
				actor = claimed
			}
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the staff ID resolved for the request.
func ActorFrom(c *gin.Context) string {
	return c.GetString(ActorKey)
}

func staffIDFromToken(raw, secret string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	staffID, _ := claims["staff_id"].(string)
	return staffID, nil
}
