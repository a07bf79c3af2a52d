package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

// UserFinder est la partie du dépôt utilisateurs dont le middleware a besoin
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// CurrentUserMiddleware charge l'utilisateur du token et le range dans le contexte gin
func CurrentUserMiddleware(users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		userID := c.GetString(UserIDKey)

		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			logs.LogJSON("WARN", "Non-authenticated request", map[string]interface{}{
				"route": route,
			})
			return
		}

		u, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur inconnu"})
				logs.LogJSON("WARN", "Token for unknown user", map[string]interface{}{
					"route":  route,
					"userID": userID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du chargement de l'utilisateur"})
			logs.LogJSON("ERROR", "Current user lookup error", map[string]interface{}{
				"error":  err.Error(),
				"route":  route,
				"userID": userID,
			})
			return
		}

		c.Set(user.ContextKey, *u)
		c.Next()
	}
}
