package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	items []string
	timer *time.Timer
	gen   uint64
}

// MemoryBackend es la variante en proceso. Cada clave tiene su propio timer de
// expiracion que se reprograma en cada Push.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*memoryEntry)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Push(_ context.Context, key, payload string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		entry = &memoryEntry{}
		b.entries[key] = entry
	}
	entry.items = append(entry.items, payload)
	b.scheduleLocked(key, entry, ttl)
	return nil
}

func (b *MemoryBackend) Range(_ context.Context, key string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return []string{}, nil
	}
	out := make([]string, len(entry.items))
	copy(out, entry.items)
	return out, nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.entries[key]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(b.entries, key)
	}
	return nil
}

// Close detiene todos los timers y vacia el mapa.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, entry := range b.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(b.entries, key)
	}
	return nil
}

// scheduleLocked reemplaza el timer de la clave; el caller debe tener b.mu.
// Un disparo en vuelo solo borra si la entrada y su gen siguen siendo las que lo programaron.
func (b *MemoryBackend) scheduleLocked(key string, entry *memoryEntry, ttl time.Duration) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.gen++
	gen := entry.gen
	entry.timer = time.AfterFunc(ttl, func() {
		b.expire(key, entry, gen)
	})
}

func (b *MemoryBackend) expire(key string, entry *memoryEntry, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.entries[key]
	if !ok || cur != entry || cur.gen != gen {
		return
	}
	delete(b.entries, key)
}
