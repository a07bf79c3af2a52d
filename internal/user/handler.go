package user

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
)

// ContextKey est la clé sous laquelle le middleware range l'utilisateur courant
const ContextKey = "user"

// FromContext récupère l'utilisateur chargé par le middleware
func FromContext(c *gin.Context) (User, bool) {
	v, exists := c.Get(ContextKey)
	if !exists {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}

type Handler struct {
	users *Repository
	now   func() time.Time
}

func NewHandler(users *Repository) *Handler {
	return &Handler{users: users, now: func() time.Time { return time.Now().UTC() }}
}

// GetMe GET /api/me
func (h *Handler) GetMe(c *gin.Context) {
	u, ok := FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":                u.ID,
			"name":              u.Name,
			"email":             u.Email,
			"email_verified_at": u.EmailVerifiedAt,
			"created_at":        u.CreatedAt,
		},
	})
}

// VerifyEmail GET /api/verify-email/:id
func (h *Handler) VerifyEmail(c *gin.Context) {
	route := c.FullPath()
	id := c.Param("id")

	u, ok := FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	// On ne vérifie que son propre compte
	if u.ID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		logs.LogJSON("WARN", "Email verification for another user", map[string]interface{}{
			"route":  route,
			"userID": u.ID,
			"target": id,
		})
		return
	}

	updated, err := h.users.MarkEmailVerified(c.Request.Context(), u.ID, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la vérification de l'email"})
		logs.LogJSON("ERROR", "Email verification error", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": u.ID,
		})
		return
	}

	if !updated {
		c.JSON(http.StatusOK, gin.H{"status": "Email déjà vérifié"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Email vérifié"})
	logs.LogJSON("INFO", "Email verified", map[string]interface{}{
		"route":  route,
		"userID": u.ID,
	})
}

// CheckEmail POST /api/check-email
func (h *Handler) CheckEmail(c *gin.Context) {
	route := c.FullPath()

	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email invalide"})
		return
	}

	exists, err := h.users.ExistsByEmail(c.Request.Context(), input.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de base de données"})
		logs.LogJSON("ERROR", "Database error", map[string]interface{}{
			"error": err.Error(),
			"route": route,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}
