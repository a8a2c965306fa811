package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-chat/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de sesiones y chat.
type ChatHandler struct {
	logger  *zap.Logger
	chatSvc *service.ChatService
	backend string
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatSvc *service.ChatService, backend string) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		chatSvc: chatSvc,
		backend: backend,
	}
}

// Health maneja GET /api/health.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "store": h.backend})
}

// CreateSession maneja POST /api/session.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	id, err := h.chatSvc.NewSession(c.Request.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": id})
}

// GetHistory maneja GET /api/history/:sessionId.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	history, err := h.chatSvc.History(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("get history failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// DeleteHistory maneja DELETE /api/history/:sessionId.
func (h *ChatHandler) DeleteHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := h.chatSvc.ClearHistory(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("clear history failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PostChat maneja POST /api/chat. Un turno degradado tambien responde 200.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
		TopK      int    `json:"topK"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.chatSvc.HandleTurn(c.Request.Context(), req.SessionID, req.Message, req.TopK)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("chat turn failed", zap.String("session_id", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process message"})
		return
	}

	c.JSON(http.StatusOK, reply)
}
