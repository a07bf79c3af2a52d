// Package server assemble le routeur gin de l'API.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/MalikAqeelArshad/blog-crud/internal/events"
	"github.com/MalikAqeelArshad/blog-crud/internal/like"
	"github.com/MalikAqeelArshad/blog-crud/internal/middleware"
	"github.com/MalikAqeelArshad/blog-crud/internal/post"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte
	Location  *time.Location
	LikeCache like.CountCache
	Events    events.Publisher
}

func NewRouter(d Deps) *gin.Engine {
	users := user.NewRepository(d.DB)
	posts := post.NewRepository(d.DB, d.Location, d.LikeCache, d.Events)
	likes := like.NewService(d.DB, d.LikeCache, d.Events)

	userHandler := user.NewHandler(users)
	postHandler := post.NewHandler(posts)
	likeHandler := like.NewHandler(likes)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Route publique
	api.POST("/check-email", userHandler.CheckEmail)

	api.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.CurrentUserMiddleware(users))
	api.GET("/me", userHandler.GetMe)
	api.GET("/verify-email/:id", userHandler.VerifyEmail)

	postGroup := api.Group("/posts")
	{
		postGroup.GET("", postHandler.ListPosts)
		postGroup.POST("", postHandler.CreatePost)
		postGroup.GET("/:id", postHandler.GetPost)
		postGroup.PUT("/:id", postHandler.UpdatePost)
		postGroup.DELETE("/:id", postHandler.DeletePost)

		postGroup.POST("/:id/like", likeHandler.LikePost)
		postGroup.DELETE("/:id/like", likeHandler.UnlikePost)
		postGroup.GET("/:id/likes", likeHandler.GetLikeStatus)
	}

	return r
}
