package post

import (
	"encoding/json"
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
	posts *Repository
}

func NewHandler(posts *Repository) *Handler {
	return &Handler{posts: posts}
}

// ListPosts GET /api/posts?search=&author=&date=&page=
func (h *Handler) ListPosts(c *gin.Context) {
	route := c.FullPath()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	filters := Filters{
		Search: c.Query("search"),
		Author: c.Query("author"),
		Date:   c.Query("date"),
	}

	// Une page illisible retombe sur la première
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	result, err := h.posts.List(c.Request.Context(), u, filters, page)
	if err != nil {
		respondError(c, route, u.ID, nil, err, "Erreur lors de la récupération des posts")
		return
	}

	c.JSON(http.StatusOK, result)
	logs.LogJSON("INFO", "Posts retrieved successfully", map[string]interface{}{
		"route":  route,
		"userID": u.ID,
		"page":   result.Page,
		"total":  result.TotalCount,
	})
}

// GetPost GET /api/posts/:id
func (h *Handler) GetPost(c *gin.Context) {
	route := c.FullPath()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := parseID(c)
	if err != nil {
		respondError(c, route, u.ID, c.Param("id"), err, "")
		return
	}

	p, err := h.posts.Get(c.Request.Context(), u, id)
	if err != nil {
		respondError(c, route, u.ID, id, err, "Erreur lors de la récupération du post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": p})
}

// CreatePost POST /api/posts
func (h *Handler) CreatePost(c *gin.Context) {
	route := c.FullPath()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	in, err := bindInput(c)
	if err != nil {
		respondError(c, route, u.ID, nil, err, "Requête invalide")
		return
	}

	p, err := h.posts.Create(c.Request.Context(), u, in)
	if err != nil {
		respondError(c, route, u.ID, nil, err, "Erreur lors de la création du post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post créé avec succès",
		"post":    p,
	})
	logs.LogJSON("INFO", "Post created successfully", map[string]interface{}{
		"route":  route,
		"userID": u.ID,
		"postID": p.ID,
	})
}

// UpdatePost PUT /api/posts/:id
func (h *Handler) UpdatePost(c *gin.Context) {
	route := c.FullPath()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := parseID(c)
	if err != nil {
		respondError(c, route, u.ID, c.Param("id"), err, "")
		return
	}

	in, err := bindInput(c)
	if err != nil {
		respondError(c, route, u.ID, id, err, "Requête invalide")
		return
	}

	p, err := h.posts.Update(c.Request.Context(), u, id, in)
	if err != nil {
		respondError(c, route, u.ID, id, err, "Erreur lors de la mise à jour du post")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Post mis à jour avec succès",
		"post":    p,
	})
	logs.LogJSON("INFO", "Post updated successfully", map[string]interface{}{
		"route":  route,
		"userID": u.ID,
		"postID": id,
	})
}

// DeletePost DELETE /api/posts/:id
func (h *Handler) DeletePost(c *gin.Context) {
	route := c.FullPath()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := parseID(c)
	if err != nil {
		respondError(c, route, u.ID, c.Param("id"), err, "")
		return
	}

	if err := h.posts.Delete(c.Request.Context(), u, id); err != nil {
		respondError(c, route, u.ID, id, err, "Erreur lors de la suppression du post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post supprimé avec succès"})
	logs.LogJSON("INFO", "Post deleted successfully", map[string]interface{}{
		"route":  route,
		"userID": u.ID,
		"postID": id,
	})
}

func currentUser(c *gin.Context) (user.User, bool) {
	u, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		logs.LogJSON("WARN", "Unauthenticated user", map[string]interface{}{
			"route": c.FullPath(),
		})
	}
	return u, ok
}

// parseID traite un identifiant illisible comme un post inexistant
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("post %q: %w", c.Param("id"), apperr.ErrNotFound)
	}
	return uint(id), nil
}

var errBadRequest = errors.New("bad request body")

// bindInput transforme une erreur de type JSON en erreur de validation sur le champ
func bindInput(c *gin.Context) (Input, error) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return in, &apperr.ValidationError{Fields: map[string]string{typeErr.Field: "Valeur invalide"}}
		}
		return in, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return in, nil
}

func respondError(c *gin.Context, route, userID string, postID interface{}, err error, internalMsg string) {
	status := apperr.Status(err)
	body := apperr.Body(err, internalMsg)
	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
		body = gin.H{"error": internalMsg}
	}

	level := "WARN"
	if status >= http.StatusInternalServerError {
		level = "ERROR"
	}

	c.JSON(status, body)
	logs.LogJSON(level, "Post request failed", map[string]interface{}{
		"error":  err.Error(),
		"route":  route,
		"userID": userID,
		"postID": postID,
	})
}
