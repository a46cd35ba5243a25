package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// fallbackVoiceXML is spoken when a webhook handler panics. Callers must never
// hear a raw protocol error.
const fallbackVoiceXML = `<?xml version="1.0" encoding="UTF-8"?>
<Response><Say>We are sorry, something went wrong on our end. Please call again later.</Say><Hangup/></Response>`

// ErrorHandler is a middleware to catch panics and answer with a graceful hangup
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.Data(http.StatusOK, "application/xml", []byte(fallbackVoiceXML))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}
