package middleware

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// LogEntry represents a structured request log entry
type LogEntry struct {
	Timestamp  string `json:"timestamp"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Latency    string `json:"latency"`
	ClientIP   string `json:"client_ip"`
	Error      string `json:"error,omitempty"`
}

// RequestLogger creates a middleware that logs every API request as one
// JSON line.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		entry := LogEntry{
			Timestamp:  time.Now().Format(time.RFC3339),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			Latency:    time.Since(startTime).String(),
			ClientIP:   c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}

		jsonBytes, err := json.Marshal(entry)
		if err != nil {
			fmt.Printf(`{"error": "failed to marshal log entry: %v"}%s`, err, "\n")
			return
		}
		fmt.Println(string(jsonBytes))
	}
}
