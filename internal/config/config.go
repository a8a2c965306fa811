package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"4000"`

	RedisURL         string        `env:"REDIS_URL"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	RedisPingTimeout time.Duration `env:"REDIS_PING_TIMEOUT" envDefault:"2s"`

	SessionTTLSeconds int `env:"SESSION_TTL_SECONDS" envDefault:"86400"`

	LLMProvider       string `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai"`
	LLMAPIKey         string `env:"LLM_API_KEY"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gemini-1.5-flash"`
	LLMEmbeddingModel string `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-004"`

	GenMaxAttempts    int           `env:"GEN_MAX_ATTEMPTS" envDefault:"2"`
	GenBaseDelayMS    int           `env:"GEN_BASE_DELAY_MS" envDefault:"500"`
	GenAttemptTimeout time.Duration `env:"GEN_ATTEMPT_TIMEOUT" envDefault:"30s"`

	RAGBaseURL       string        `env:"RAG_BASE_URL" envDefault:"http://127.0.0.1:8000"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT" envDefault:"5s"`
	RetrievalTimeout    time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"10s"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SessionTTL devuelve la ventana de expiracion por inactividad.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// GenerationBaseDelay devuelve el backoff base entre intentos de generacion.
func (c *Config) GenerationBaseDelay() time.Duration {
	if c.GenBaseDelayMS < 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.GenBaseDelayMS) * time.Millisecond
}
