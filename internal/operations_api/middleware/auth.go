package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// OperatorKey is the key used to store the authenticated operator in the context
	OperatorKey = "operator"
)

// OperatorAuth validates the bearer token on operator endpoints and stores
// the operator identity (the token subject) in the request context. Every
// mutating operation records this identity as its actor.
func OperatorAuth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(OperatorKey, subject)
		c.Next()
	}
}

// GetOperator retrieves the authenticated operator identity from the gin context
func GetOperator(c *gin.Context) string {
	if v, exists := c.Get(OperatorKey); exists {
		if operator, ok := v.(string); ok {
			return operator
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, response)
}
