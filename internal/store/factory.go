package store

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options describe el destino redis y la ventana de inactividad.
type Options struct {
	RedisURL      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PingTimeout   time.Duration
	TTL           time.Duration
}

// Open elige el backend una sola vez: redis si hay destino configurado y
// responde al PING; en cualquier otro caso, memoria para toda la vida del proceso.
func Open(ctx context.Context, logger *zap.Logger, opts Options) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	var backend Backend = NewMemoryBackend()
	if client := connectRedis(ctx, logger, opts); client != nil {
		backend = NewRedisBackend(client)
	}

	logger.Info("session store backend selected",
		zap.String("backend", backend.Name()),
		zap.Duration("ttl", opts.TTL),
	)
	return NewSessionStore(logger, backend, opts.TTL)
}

func connectRedis(ctx context.Context, logger *zap.Logger, opts Options) *redis.Client {
	redisURL := strings.TrimSpace(opts.RedisURL)
	redisAddr := strings.TrimSpace(opts.RedisAddr)
	if redisURL == "" && redisAddr == "" {
		return nil
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var redisOpts *redis.Options
	if redisURL != "" {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using memory store", zap.Error(err))
			return nil
		}
		redisOpts = parsed
	} else {
		redisOpts = &redis.Options{
			Addr:     redisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}
	}
	redisOpts.MaxRetries = -1
	redisOpts.DialTimeout = timeout

	client := redis.NewClient(redisOpts)
	ctxPing, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, using memory store", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
