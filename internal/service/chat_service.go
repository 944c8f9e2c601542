package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dp-auto/internal/domain"
	"dp-auto/internal/llm"
)

const (
	// El front inserta un saludo fijo del asistente con este id.
	greetingMessageID        = "1"
	defaultConversationTitle = "Nouvelle conversation"
)

var (
	ErrEmptyMessage     = errors.New("message required")
	ErrInvalidForm      = errors.New("cerfa form incomplete")
	ErrChatDisabled     = errors.New("chat assistant not configured")
	ErrGenerationFailed = errors.New("response generation failed")
)

// ChatService reenvia preguntas al modelo con la instruccion de urbanismo.
type ChatService struct {
	llmClient llm.LLMClient
	logger    *zap.Logger
	now       func() time.Time
}

func NewChatService(llmClient llm.LLMClient, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		llmClient: llmClient,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) Enabled() bool {
	return s != nil && s.llmClient != nil
}

func (s *ChatService) Reply(ctx context.Context, message string, history []domain.ChatMessage) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	return s.generate(ctx, BuildHistory(history), buildUserPrompt(message))
}

func (s *ChatService) AnalyzeCerfa(ctx context.Context, form domain.CerfaForm) (string, error) {
	if strings.TrimSpace(form.NatureProjet) == "" {
		return "", ErrInvalidForm
	}
	return s.generate(ctx, nil, buildUserPrompt(buildCerfaPrompt(form)))
}

func (s *ChatService) NewConversation(title string) domain.Conversation {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}
	return domain.Conversation{
		ID:        "conv_" + uuid.NewString(),
		Title:     title,
		CreatedAt: s.now(),
	}
}

func (s *ChatService) generate(ctx context.Context, history []llm.Turn, prompt string) (string, error) {
	if !s.Enabled() {
		return "", ErrChatDisabled
	}
	text, err := s.llmClient.Generate(ctx, history, prompt)
	if err != nil {
		s.logger.Warn("llm generate failed", zap.Error(err), zap.Int("history_len", len(history)))
		return "", ErrGenerationFailed
	}
	return text, nil
}

// BuildHistory convierte el historial del front al formato del modelo.
// Descarta el saludo inicial y garantiza que el primer turno sea del usuario.
func BuildHistory(messages []domain.ChatMessage) []llm.Turn {
	turns := make([]llm.Turn, 0, len(messages))
	for _, m := range messages {
		if m.Role == "assistant" && m.ID == greetingMessageID {
			continue
		}
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}
	if len(turns) > 0 && turns[0].Role != llm.RoleUser {
		turns = turns[1:]
	}
	return turns
}
