package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MalikAqeelArshad/blog-crud/internal/config"
	"github.com/MalikAqeelArshad/blog-crud/internal/database"
	"github.com/MalikAqeelArshad/blog-crud/internal/events"
	"github.com/MalikAqeelArshad/blog-crud/internal/like"
	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
	"github.com/MalikAqeelArshad/blog-crud/internal/post"
	"github.com/MalikAqeelArshad/blog-crud/internal/server"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

const likeCacheTTL = 5 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	if cfg.DBUrl == "" {
		logs.LogJSON("FATAL", "DATABASE_URL manquant", nil)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logs.LogJSON("WARN", "JWT_SECRET is empty, every token will be rejected", nil)
	}

	db, err := database.Connect(cfg.DBUrl)
	if err != nil {
		logs.LogJSON("FATAL", "Database connection failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db, &user.User{}, &post.Post{}, &like.Like{}); err != nil {
			logs.LogJSON("FATAL", "Database migration failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	var likeCache like.CountCache = like.NopCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logs.LogJSON("WARN", "Redis unavailable, like counts read from the database", map[string]interface{}{
				"error": err.Error(),
				"addr":  cfg.RedisAddr,
			})
		}
		likeCache = like.NewRedisCountCache(rdb, likeCacheTTL)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	gin.SetMode(cfg.GinMode)
	router := server.NewRouter(server.Deps{
		DB:        db,
		JWTSecret: []byte(cfg.JWTSecret),
		Location:  cfg.Location,
		LikeCache: likeCache,
		Events:    publisher,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logs.LogJSON("INFO", "Server started", map[string]interface{}{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.LogJSON("FATAL", "ListenAndServe error", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	<-stop
	logs.LogJSON("INFO", "Shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logs.LogJSON("ERROR", "Server shutdown error", map[string]interface{}{"error": err.Error()})
	}
}
