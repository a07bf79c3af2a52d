package like

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// LikePost POST /api/posts/:id/like
func (h *Handler) LikePost(c *gin.Context) {
	h.toggle(c, "like", h.svc.Like)
}

// UnlikePost DELETE /api/posts/:id/like
func (h *Handler) UnlikePost(c *gin.Context) {
	h.toggle(c, "unlike", h.svc.Unlike)
}

// GetLikeStatus GET /api/posts/:id/likes
func (h *Handler) GetLikeStatus(c *gin.Context) {
	route := c.FullPath()

	u, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	postID, err := parsePostID(c)
	if err != nil {
		respondError(c, route, u.ID, c.Param("id"), err)
		return
	}

	status, err := h.svc.Status(c.Request.Context(), u, postID)
	if err != nil {
		respondError(c, route, u.ID, postID, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) toggle(c *gin.Context, action string, apply func(ctx context.Context, u user.User, postID uint) error) {
	route := c.FullPath()

	u, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		logs.LogJSON("WARN", "Unauthenticated user", map[string]interface{}{
			"route":  route,
			"postID": c.Param("id"),
		})
		return
	}

	postID, err := parsePostID(c)
	if err != nil {
		respondError(c, route, u.ID, c.Param("id"), err)
		return
	}

	if err := apply(c.Request.Context(), u, postID); err != nil {
		respondError(c, route, u.ID, postID, err)
		return
	}

	// Retourner le statut mis à jour
	status, err := h.svc.Status(c.Request.Context(), u, postID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, status)
	case action == "unlike" && errors.Is(err, apperr.ErrNotFound):
		// Post devenu privé : le like est retiré mais le compteur n'est plus lisible
		c.JSON(http.StatusOK, gin.H{"post_id": postID, "is_liked": false})
	default:
		respondError(c, route, u.ID, postID, err)
		return
	}

	logs.LogJSON("INFO", "Like "+action+" applied", map[string]interface{}{
		"route":  route,
		"userID": u.ID,
		"postID": postID,
	})
}

// parsePostID traite un identifiant illisible comme un post inexistant
func parsePostID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("post %q: %w", c.Param("id"), apperr.ErrNotFound)
	}
	return uint(id), nil
}

func respondError(c *gin.Context, route, userID string, postID interface{}, err error) {
	c.JSON(apperr.Status(err), apperr.Body(err, "Erreur de base de données"))
	logs.LogJSON(apperr.Level(err), "Like request failed", map[string]interface{}{
		"error":  err.Error(),
		"route":  route,
		"userID": userID,
		"postID": postID,
	})
}
