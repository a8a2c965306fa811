package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"rag-chat/internal/llm"
)

const (
	DefaultMaxAttempts = 2
	DefaultBaseDelay   = 500 * time.Millisecond
	MaxBackoff         = 30 * time.Second

	// statusOverloaded es el codigo que algunos proveedores usan para "overloaded".
	statusOverloaded = 529
)

var retryableMessage = regexp.MustCompile(`(?i)overloaded|try again later`)

// AttemptState es el estado de la maquina de reintentos de generacion.
type AttemptState int

const (
	StateAttempting AttemptState = iota
	StateSucceeded
	StateExhausted
)

func (s AttemptState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// RetryPolicy acota las llamadas al generador: como mucho MaxAttempts intentos,
// esperando BaseDelay*2^(n-1) antes del intento n+1.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// GenerationResult es el resultado final de la maquina: Succeeded o Exhausted.
type GenerationResult struct {
	State    AttemptState
	Text     string
	Attempts int
	Err      error
}

// AttemptHook se invoca despues de cada intento.
type AttemptHook func(attempt int, err error, retryable bool)

// Run ejecuta Attempting(1) hasta llegar a Succeeded o Exhausted.
func (p RetryPolicy) Run(ctx context.Context, gen llm.LLMClient, prompt string, hook AttemptHook) GenerationResult {
	p = p.normalized()
	res := GenerationResult{State: StateAttempting}

	for n := 1; res.State == StateAttempting; n++ {
		res.Attempts = n
		text, err := p.attempt(ctx, gen, prompt)
		retryable := err != nil && IsRetryable(err)
		if hook != nil {
			hook(n, err, retryable)
		}

		res.State = p.transition(n, err)
		switch res.State {
		case StateSucceeded:
			res.Text = text
			res.Err = nil
		case StateExhausted:
			res.Err = err
		case StateAttempting:
			if waitErr := p.sleep(ctx, p.Backoff(n)); waitErr != nil {
				res.State = StateExhausted
				res.Err = errors.Join(err, waitErr)
			}
		}
	}
	return res
}

// transition decide el estado siguiente a Attempting(n) segun el resultado del intento.
func (p RetryPolicy) transition(n int, err error) AttemptState {
	if err == nil {
		return StateSucceeded
	}
	if !IsRetryable(err) || n >= p.MaxAttempts {
		return StateExhausted
	}
	return StateAttempting
}

// Backoff devuelve la espera previa al intento n+1, acotada por MaxBackoff.
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		if d >= MaxBackoff/2 {
			return MaxBackoff
		}
		d *= 2
	}
	return min(d, MaxBackoff)
}

func (p RetryPolicy) attempt(ctx context.Context, gen llm.LLMClient, prompt string) (string, error) {
	if p.AttemptTimeout <= 0 {
		return gen.Generate(ctx, prompt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return gen.Generate(attemptCtx, prompt)
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// IsRetryable clasifica errores del generador: overloaded, rate limited o un
// mensaje del tipo "overloaded / try again later".
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *llm.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, statusOverloaded:
			return true
		}
	}
	return retryableMessage.MatchString(err.Error())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
