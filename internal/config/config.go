package config

import (
	"os"
	"strings"
	"time"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
)

type Config struct {
	Port         string
	DBUrl        string
	JWTSecret    string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	Location     *time.Location
	AutoMigrate  bool
	GinMode      string
}

func LoadConfig() *Config {
	return &Config{
		Port:         getEnv("PORT", ":8080"),
		DBUrl:        os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "blog.posts"),
		Location:     loadLocation(getEnv("APP_TIMEZONE", "UTC")),
		AutoMigrate:  getEnv("AUTO_MIGRATE", "true") == "true",
		GinMode:      getEnv("GIN_MODE", "release"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadLocation retombe sur UTC si le fuseau est inconnu
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logs.LogJSON("WARN", "Unknown APP_TIMEZONE, falling back to UTC", map[string]interface{}{
			"timezone": name,
			"error":    err.Error(),
		})
		return time.UTC
	}
	return loc
}
