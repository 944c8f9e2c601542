package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dp-auto/internal/domain"
	"dp-auto/internal/service"
)

// ChatHandler expone el asistente de urbanismo.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{
		logger: logger,
		chat:   chat,
	}
}

func (h *ChatHandler) Enabled() bool {
	return h.chat.Enabled()
}

// PostMessage maneja POST /api/chat/message.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Message             string               `json:"message"`
		ConversationHistory []domain.ChatMessage `json:"conversationHistory"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Message requis"})
		return
	}

	h.logger.Info("chat message", zap.Int("length", len(req.Message)), zap.Int("history_len", len(req.ConversationHistory)))
	reply, err := h.chat.Reply(c.Request.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		h.writeError(c, err, "Erreur lors de la génération de la réponse IA")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":   reply,
			"timestamp": time.Now().UTC(),
		},
	})
}

// AnalyzeCerfa maneja POST /api/chat/analyze-cerfa.
func (h *ChatHandler) AnalyzeCerfa(c *gin.Context) {
	var req struct {
		FormData *domain.CerfaForm `json:"formData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.FormData == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Données du formulaire requises"})
		return
	}

	h.logger.Info("cerfa analysis", zap.String("nature_projet", req.FormData.NatureProjet))
	analysis, err := h.chat.AnalyzeCerfa(c.Request.Context(), *req.FormData)
	if err != nil {
		h.writeError(c, err, "Erreur lors de l'analyse du formulaire CERFA")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"analysis":  analysis,
			"timestamp": time.Now().UTC(),
		},
	})
}

// CreateConversation maneja POST /api/chat/conversation.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	// el body es opcional
	_ = c.ShouldBindJSON(&req)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.chat.NewConversation(req.Title)})
}

// ListConversations maneja GET /api/chat/conversations.
// El historial vive en el cliente, el servidor no guarda conversaciones.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"conversations": []domain.Conversation{}},
	})
}

func (h *ChatHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Message requis"})
	case errors.Is(err, service.ErrInvalidForm):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Données du formulaire requises"})
	case errors.Is(err, service.ErrChatDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Assistant IA non configuré"})
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": fallback})
	}
}
