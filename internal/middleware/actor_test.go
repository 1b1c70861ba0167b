package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/vuhoang/student-records-api/pkg/config"
)

func actorForRequest(t *testing.T, cfg config.AuthConfig, decorate func(*http.Request)) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var actor string
	r := gin.New()
	r.Use(Actor(cfg))
	r.GET("/", func(c *gin.Context) {
		actor = ActorFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return actor
}

func TestActorDefault(t *testing.T) {
	actor := actorForRequest(t, config.AuthConfig{DefaultStaffID: "system"}, nil)
	require.Equal(t, "system", actor)
}

func TestActorHeader(t *testing.T) {
	actor := actorForRequest(t, config.AuthConfig{DefaultStaffID: "system"}, func(req *http.Request) {
		req.Header.Set(StaffIDHeader, "staff-42")
	})
	require.Equal(t, "staff-42", actor)
}

func TestActorBearerToken(t *testing.T) {
	secret := "test_secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"staff_id": "staff-7"})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	actor := actorForRequest(t, config.AuthConfig{JWTSecret: secret, DefaultStaffID: "system"}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})
	require.Equal(t, "staff-7", actor)
}

func TestActorInvalidTokenFallsBack(t *testing.T) {
	actor := actorForRequest(t, config.AuthConfig{JWTSecret: "secret", DefaultStaffID: "system"}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not.a.token")
	})
	require.Equal(t, "system", actor)
}
