package logs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	mu     sync.Mutex
	logger = log.New(os.Stdout, "", 0)
)

// SetOutput redirige les logs (utilisé par les tests)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func LogJSON(level, message string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"severity": level, // "DEBUG", "INFO", "WARN", "ERROR" & "FATAL"
		"message":  message,
		"time":     time.Now().Format(time.RFC3339),
	}
	for k, v := range fields {
		logEntry[k] = v
	}
	jsonLog, _ := json.Marshal(logEntry)

	mu.Lock()
	defer mu.Unlock()
	logger.Println(string(jsonLog))
}
