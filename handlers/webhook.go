package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voicedesk/models"
	"voicedesk/services/orchestrator"
	"voicedesk/services/speech"
	"voicedesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxRecordingBytes = 5 * 1024 * 1024

// WebhookHandler translates carrier webhook posts into orchestrator events and
// renders the returned directives as carrier XML. All conversation logic lives
// in the orchestrator.
type WebhookHandler struct {
	Orch       orchestrator.Orchestrator
	Recognizer speech.Recognizer
	httpClient *http.Client
}

func NewWebhookHandler(orch orchestrator.Orchestrator, recognizer speech.Recognizer) *WebhookHandler {
	return &WebhookHandler{
		Orch:       orch,
		Recognizer: recognizer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *WebhookHandler) IncomingCall(c *gin.Context) {
	ev := models.IncomingCall{
		CallID: c.PostForm("CallSid"),
		From:   c.PostForm("From"),
		To:     c.PostForm("To"),
	}
	directives, err := h.Orch.HandleIncomingCall(c.Request.Context(), ev)
	h.respond(c, ev.CallID, directives, err)
}

func (h *WebhookHandler) SpeechResult(c *gin.Context) {
	confidence, _ := strconv.ParseFloat(c.PostForm("Confidence"), 64)
	ev := models.SpeechResult{
		CallID:     c.PostForm("CallSid"),
		Text:       c.PostForm("SpeechResult"),
		Confidence: confidence,
	}
	if ev.Text == "" {
		// Some carriers deliver raw audio instead of on-platform transcription.
		if url := c.PostForm("RecordingUrl"); url != "" && h.Recognizer != nil {
			text, confidence, err := h.transcribeRecording(c, url)
			if err != nil {
				utils.GetLogger().Warn("recording transcription failed",
					zap.String("callId", ev.CallID), zap.Error(err))
			} else {
				ev.Text, ev.Confidence = text, confidence
			}
		}
	}
	if ev.Text == "" {
		// An empty gather arrives as a speech post with no text.
		directives, err := h.Orch.HandleSilenceTimeout(c.Request.Context(), models.SilenceTimeout{CallID: ev.CallID})
		h.respond(c, ev.CallID, directives, err)
		return
	}
	directives, err := h.Orch.HandleSpeechResult(c.Request.Context(), ev)
	h.respond(c, ev.CallID, directives, err)
}

func (h *WebhookHandler) transcribeRecording(c *gin.Context, url string) (string, float64, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build recording request: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("recording fetch returned status %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordingBytes))
	if err != nil {
		return "", 0, fmt.Errorf("failed to read recording: %w", err)
	}
	return h.Recognizer.Transcribe(c.Request.Context(), audio, "")
}

func (h *WebhookHandler) StatusCallback(c *gin.Context) {
	duration, _ := strconv.Atoi(c.PostForm("CallDuration"))
	ev := models.StatusCallback{
		CallID:          c.PostForm("CallSid"),
		Status:          c.PostForm("CallStatus"),
		DurationSeconds: duration,
	}
	directives, err := h.Orch.HandleStatusCallback(c.Request.Context(), ev)
	h.respond(c, ev.CallID, directives, err)
}

func (h *WebhookHandler) respond(c *gin.Context, callID string, directives []models.Directive, err error) {
	if err != nil {
		utils.GetLogger().Error("webhook handling failed",
			zap.String("callId", callID), zap.Error(err))
		directives = []models.Directive{
			models.Speak("We are sorry, something went wrong on our end. Please call again later.", ""),
			models.Hangup(),
		}
	}
	c.Data(http.StatusOK, "application/xml", []byte(RenderVoiceXML(directives)))
}

// RenderVoiceXML serializes directives into the carrier's voice markup,
// preserving their order.
func RenderVoiceXML(directives []models.Directive) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<Response>")
	for _, d := range directives {
		switch d.Type {
		case models.DirectiveSpeak:
			if d.AudioRef != "" {
				sb.WriteString("<Play>" + escapeXML(d.AudioRef) + "</Play>")
			} else {
				sb.WriteString("<Say>" + escapeXML(d.Text) + "</Say>")
			}
		case models.DirectiveGather:
			sb.WriteString(`<Gather input="speech" action="/webhook/speech" method="POST" timeout="5"/>`)
		case models.DirectiveRedirect:
			sb.WriteString("<Redirect>" + escapeXML(d.URL) + "</Redirect>")
		case models.DirectiveHangup:
			sb.WriteString("<Hangup/>")
		}
	}
	sb.WriteString("</Response>")
	return sb.String()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
