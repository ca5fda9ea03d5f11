package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret, issuer, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestOperatorAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test-secret"
	const issuer = "fleetops"

	newRouter := func() (*gin.Engine, *string) {
		var seenOperator string
		router := gin.New()
		router.Use(OperatorAuth(secret, issuer))
		router.GET("/test", func(c *gin.Context) {
			seenOperator = GetOperator(c)
			c.Status(http.StatusOK)
		})
		return router, &seenOperator
	}

	t.Run("ValidToken", func(t *testing.T) {
		router, seenOperator := newRouter()
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, secret, issuer, "ops@example.com"))

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops@example.com", *seenOperator)
	})

	t.Run("MissingToken", func(t *testing.T) {
		router, _ := newRouter()
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("WrongSecret", func(t *testing.T) {
		router, _ := newRouter()
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "other-secret", issuer, "ops@example.com"))

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		router, _ := newRouter()
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, secret, "someone-else", "ops@example.com"))

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
