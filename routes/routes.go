package routes

import (
	"voicedesk/config"
	"voicedesk/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterWebhookRoutes registers the carrier-facing endpoints.
func RegisterWebhookRoutes(r *gin.Engine, h *handlers.WebhookHandler) {
	webhook := r.Group("/webhook")
	{
		webhook.POST("/voice", h.IncomingCall)    // call start
		webhook.POST("/speech", h.SpeechResult)   // gathered utterance (or silence)
		webhook.POST("/status", h.StatusCallback) // carrier lifecycle callbacks
	}

	// Synthesized audio the carrier plays back.
	r.Static("/audio", config.AppConfig.AudioDir)
}
