package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/assistant"
)

const (
	chatSourceName                = "gemini"
	chatStatusOK                  = "ok"
	errorValueMissingMessage      = "missing_message"
	errorValueUpstreamUnavailable = "upstream_unavailable"
)

// ChatCompleter answers one free-text message. Each pool entry is bound to a
// single upstream API key.
type ChatCompleter interface {
	Complete(ctx context.Context, message string) (string, error)
}

// ChatHandlers proxies visitor questions to the generative model, walking
// the completer pool in fixed order when a key is rate limited.
type ChatHandlers struct {
	completers []ChatCompleter
	logger     *zap.Logger
}

func NewChatHandlers(completers []ChatCompleter, logger *zap.Logger) *ChatHandlers {
	return &ChatHandlers{
		completers: completers,
		logger:     logger,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat is stateless between requests; the persona lives in each completer's
// fixed system prompt.
func (handlers *ChatHandlers) Chat(context *gin.Context) {
	var payload chatRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidJSON})
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingMessage})
		return
	}

	for index, completer := range handlers.completers {
		reply, completeErr := completer.Complete(context.Request.Context(), message)
		if completeErr == nil {
			context.JSON(http.StatusOK, gin.H{
				"status":       chatStatusOK,
				"source":       chatSourceName,
				jsonKeyMessage: reply,
			})
			return
		}

		if assistant.IsRateLimited(completeErr) {
			handlers.logger.Warn("chat_key_rate_limited", zap.Int("key_index", index), zap.Error(completeErr))
			continue
		}

		// Non-retryable upstream failure: stop walking the pool.
		handlers.logger.Warn("chat_upstream_failed", zap.Int("key_index", index), zap.Error(completeErr))
		break
	}

	context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueUpstreamUnavailable})
}
