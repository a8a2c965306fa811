// Package store guarda el historial de turnos por sesion con expiracion por
// inactividad. Una unica variante de Backend (redis o memoria) se elige al
// arrancar el proceso y no cambia durante su vida.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rag-chat/internal/domain"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "chat:"
)

var (
	ErrStore            = errors.New("session store failure")
	ErrEmptySessionID   = errors.New("empty session id")
	ErrStoreUnavailable = errors.New("session store not configured")
)

// StoreError envuelve cualquier fallo del backend despues de la seleccion.
type StoreError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s session=%q: %v", e.Op, e.SessionID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Backend es la variante de almacenamiento. Guarda registros ya codificados
// en una lista ordenada por clave y renueva el TTL de la clave en cada Push.
type Backend interface {
	Name() string
	Push(ctx context.Context, key, payload string, ttl time.Duration) error
	Range(ctx context.Context, key string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// OpObserver recibe el resultado de cada operacion contra el backend.
type OpObserver interface {
	ObserveStoreOp(backend, op string, err error)
}

// SessionStore es el unico dueño del almacenamiento de turnos; los callers solo conocen el id.
type SessionStore struct {
	backend  Backend
	ttl      time.Duration
	logger   *zap.Logger
	observer OpObserver
	now      func() time.Time
}

func NewSessionStore(logger *zap.Logger, backend Backend, ttl time.Duration) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionStore{
		backend: backend,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// WithObserver registra un observador de operaciones (metricas).
func (s *SessionStore) WithObserver(o OpObserver) *SessionStore {
	s.observer = o
	return s
}

// BackendName indica la variante activa ("redis" o "memory").
func (s *SessionStore) BackendName() string {
	if s == nil || s.backend == nil {
		return ""
	}
	return s.backend.Name()
}

// TTL devuelve la ventana de inactividad configurada.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Append codifica el turno, lo agrega al final del log de la sesion y renueva su TTL.
func (s *SessionStore) Append(ctx context.Context, sessionID string, turn domain.Turn) error {
	if s == nil || s.backend == nil {
		return &StoreError{Op: "append", SessionID: sessionID, Err: ErrStoreUnavailable}
	}
	if strings.TrimSpace(sessionID) == "" {
		return &StoreError{Op: "append", SessionID: sessionID, Err: ErrEmptySessionID}
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}
	if turn.Contexts == nil {
		turn.Contexts = []domain.Context{}
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return &StoreError{Op: "append", SessionID: sessionID, Err: fmt.Errorf("encode turn: %w", err)}
	}

	err = s.backend.Push(ctx, sessionKey(sessionID), string(payload), s.ttl)
	s.observe("append", err)
	if err != nil {
		return &StoreError{Op: "append", SessionID: sessionID, Err: err}
	}
	return nil
}

// GetHistory devuelve los turnos en orden de insercion. Una sesion desconocida
// o expirada devuelve una lista vacia.
func (s *SessionStore) GetHistory(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if s == nil || s.backend == nil {
		return nil, &StoreError{Op: "history", SessionID: sessionID, Err: ErrStoreUnavailable}
	}
	if strings.TrimSpace(sessionID) == "" {
		return []domain.Turn{}, nil
	}

	items, err := s.backend.Range(ctx, sessionKey(sessionID))
	s.observe("history", err)
	if err != nil {
		return nil, &StoreError{Op: "history", SessionID: sessionID, Err: err}
	}

	turns := make([]domain.Turn, 0, len(items))
	for i, item := range items {
		var t domain.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			s.logger.Warn("skipping undecodable turn",
				zap.String("session_id", sessionID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if t.Contexts == nil {
			t.Contexts = []domain.Context{}
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear borra todos los turnos y cancela la expiracion pendiente. Es idempotente.
func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.backend == nil {
		return &StoreError{Op: "clear", SessionID: sessionID, Err: ErrStoreUnavailable}
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	err := s.backend.Delete(ctx, sessionKey(sessionID))
	s.observe("clear", err)
	if err != nil {
		return &StoreError{Op: "clear", SessionID: sessionID, Err: err}
	}
	return nil
}

// Close libera el backend (cliente redis o timers en memoria).
func (s *SessionStore) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *SessionStore) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveStoreOp(s.backend.Name(), op, err)
	}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}
