package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
)

// UserIDKey contient le sub du token une fois celui-ci validé
const UserIDKey = "user_id"

func AuthMiddleware(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token requis"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := parser.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
			logs.LogJSON("WARN", "Invalid token", map[string]interface{}{
				"route": c.FullPath(),
				"error": errString(err),
			})
			return
		}

		userID, err := token.Claims.GetSubject()
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID manquant"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
