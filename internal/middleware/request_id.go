package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
)

const RequestIDHeader = "X-Request-ID"

// RequestID reprend l'en-tête X-Request-ID du client ou en génère un
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		logs.LogJSON("INFO", "Request handled", map[string]interface{}{
			"request_id": id,
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		})
	}
}
