package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rag-chat/internal/domain"
	"rag-chat/internal/llm"
	"rag-chat/internal/retrieval"
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrInvalidInput             = errors.New("sessionId and message required")
)

// TurnStore es el almacen de sesiones que consume el orquestador.
type TurnStore interface {
	Append(ctx context.Context, sessionID string, turn domain.Turn) error
	GetHistory(ctx context.Context, sessionID string) ([]domain.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

// TurnObserver recibe eventos del ciclo de un turno (metricas).
type TurnObserver interface {
	ObserveTurn(degraded bool)
	ObserveGenerationAttempt(result string)
	ObserveRetrievalFailure()
}

// ChatService orquesta un turno: guarda el mensaje del usuario, recupera
// contexto, llama al generador con reintentos acotados y guarda siempre una
// respuesta del asistente.
type ChatService struct {
	logger           *zap.Logger
	store            TurnStore
	retriever        retrieval.Retriever
	generator        llm.LLMClient
	retry            RetryPolicy
	retrievalTimeout time.Duration
	observer         TurnObserver
	now              func() time.Time
	newID            func() string
}

func NewChatService(
	logger *zap.Logger,
	store TurnStore,
	retriever retrieval.Retriever,
	generator llm.LLMClient,
	retry RetryPolicy,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		logger:    logger,
		store:     store,
		retriever: retriever,
		generator: generator,
		retry:     retry,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithObserver registra un observador de turnos.
func (s *ChatService) WithObserver(o TurnObserver) *ChatService {
	s.observer = o
	return s
}

// WithRetrievalTimeout acota cada llamada al retriever.
func (s *ChatService) WithRetrievalTimeout(d time.Duration) *ChatService {
	s.retrievalTimeout = d
	return s
}

// HandleTurn procesa un mensaje del usuario y devuelve el turno del asistente.
// Solo falla por validacion o por errores del almacen; los fallos de
// retrieval y generacion se absorben en la respuesta.
func (s *ChatService) HandleTurn(ctx context.Context, sessionID, message string, topK int) (domain.Turn, error) {
	if s == nil || s.store == nil || s.generator == nil {
		return domain.Turn{}, ErrChatServiceNotConfigured
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.TrimSpace(message) == "" {
		return domain.Turn{}, ErrInvalidInput
	}
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}

	userTurn := domain.Turn{
		Role:      domain.RoleUser,
		Content:   message,
		Timestamp: s.now().UTC(),
	}
	if err := s.store.Append(ctx, sessionID, userTurn); err != nil {
		s.logger.Error("append user turn failed", zap.String("session_id", sessionID), zap.Error(err))
		return domain.Turn{}, fmt.Errorf("append user turn: %w", err)
	}

	contexts := s.retrieve(ctx, sessionID, message, topK)
	prompt := BuildAnswerPrompt(contexts, message)
	result := s.retry.Run(ctx, s.generator, prompt, s.attemptHook(sessionID))

	var reply domain.Turn
	if result.State == StateSucceeded {
		text := result.Text
		if strings.TrimSpace(text) == "" {
			text = EmptyAnswerText
		}
		reply = domain.Turn{
			Role:      domain.RoleAssistant,
			Content:   text,
			Contexts:  contexts,
			Timestamp: s.now().UTC(),
		}
	} else {
		content, top := BuildDegradedAnswer(contexts)
		reply = domain.Turn{
			Role:      domain.RoleAssistant,
			Content:   content,
			Contexts:  top,
			Timestamp: s.now().UTC(),
			Degraded:  true,
		}
		s.logger.Warn("generation exhausted, answering in degraded mode",
			zap.String("session_id", sessionID),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err),
		)
	}

	if reply.Contexts == nil {
		reply.Contexts = []domain.Context{}
	}

	// El turno del usuario ya quedo guardado; la respuesta se guarda aunque el caller se haya ido.
	if err := s.store.Append(context.WithoutCancel(ctx), sessionID, reply); err != nil {
		s.logger.Error("append assistant turn failed", zap.String("session_id", sessionID), zap.Error(err))
		return domain.Turn{}, fmt.Errorf("append assistant turn: %w", err)
	}

	if s.observer != nil {
		s.observer.ObserveTurn(reply.Degraded)
	}
	return reply, nil
}

// NewSession genera un id nuevo y limpia cualquier estado previo bajo ese id.
func (s *ChatService) NewSession(ctx context.Context) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrChatServiceNotConfigured
	}
	id := s.newID()
	if err := s.store.Clear(ctx, id); err != nil {
		return "", fmt.Errorf("reset session: %w", err)
	}
	return id, nil
}

// History devuelve los turnos de la sesion en orden de insercion.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if s == nil || s.store == nil {
		return nil, ErrChatServiceNotConfigured
	}
	return s.store.GetHistory(ctx, strings.TrimSpace(sessionID))
}

// ClearHistory borra la sesion; es idempotente.
func (s *ChatService) ClearHistory(ctx context.Context, sessionID string) error {
	if s == nil || s.store == nil {
		return ErrChatServiceNotConfigured
	}
	return s.store.Clear(ctx, strings.TrimSpace(sessionID))
}

// retrieve nunca falla: cualquier error se degrada a cero pasajes.
func (s *ChatService) retrieve(ctx context.Context, sessionID, query string, topK int) []domain.Context {
	if s.retriever == nil {
		return []domain.Context{}
	}
	if s.retrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.retrievalTimeout)
		defer cancel()
	}

	contexts, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		s.logger.Warn("retrieval failed, continuing without context",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if s.observer != nil {
			s.observer.ObserveRetrievalFailure()
		}
		return []domain.Context{}
	}
	if contexts == nil {
		return []domain.Context{}
	}
	return contexts
}

func (s *ChatService) attemptHook(sessionID string) AttemptHook {
	return func(attempt int, err error, retryable bool) {
		result := "ok"
		if err != nil {
			result = "fatal"
			if retryable {
				result = "retryable"
			}
			s.logger.Warn("generation attempt failed",
				zap.String("session_id", sessionID),
				zap.Int("attempt", attempt),
				zap.Bool("retryable", retryable),
				zap.Error(err),
			)
		}
		if s.observer != nil {
			s.observer.ObserveGenerationAttempt(result)
		}
	}
}
