package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"rag-chat/internal/domain"
)

func TestMemoryBackend_ExpiresAfterIdleWindow(t *testing.T) {
	s := NewSessionStore(zap.NewNop(), NewMemoryBackend(), 50*time.Millisecond)
	ctx := context.Background()

	if err := s.Append(ctx, "s1", domain.Turn{Role: domain.RoleUser, Content: "x"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	out, err := s.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected expired session to be empty, got %+v", out)
	}
}

func TestMemoryBackend_AppendRefreshesWindow(t *testing.T) {
	s := NewSessionStore(zap.NewNop(), NewMemoryBackend(), 150*time.Millisecond)
	ctx := context.Background()

	_ = s.Append(ctx, "s1", domain.Turn{Role: domain.RoleUser, Content: "1"})
	time.Sleep(100 * time.Millisecond)
	_ = s.Append(ctx, "s1", domain.Turn{Role: domain.RoleAssistant, Content: "2"})
	time.Sleep(100 * time.Millisecond)

	out, _ := s.GetHistory(ctx, "s1")
	if len(out) != 2 {
		t.Fatalf("expected refreshed session to keep 2 turns, got %d", len(out))
	}

	time.Sleep(200 * time.Millisecond)
	out, _ = s.GetHistory(ctx, "s1")
	if len(out) != 0 {
		t.Fatalf("expected session expired after idle window, got %d turns", len(out))
	}
}

func TestMemoryBackend_ReadDoesNotRefresh(t *testing.T) {
	s := NewSessionStore(zap.NewNop(), NewMemoryBackend(), 100*time.Millisecond)
	ctx := context.Background()

	_ = s.Append(ctx, "s1", domain.Turn{Role: domain.RoleUser, Content: "1"})
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		_, _ = s.GetHistory(ctx, "s1")
	}
	out, _ := s.GetHistory(ctx, "s1")
	if len(out) != 0 {
		t.Fatalf("expected reads not to extend lifetime, got %d turns", len(out))
	}
}

func TestMemoryBackend_ClearCancelsTimer(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	_ = b.Push(ctx, "k", "a", 30*time.Millisecond)
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_ = b.Push(ctx, "k", "b", time.Hour)
	time.Sleep(60 * time.Millisecond)

	items, _ := b.Range(ctx, "k")
	if len(items) != 1 || items[0] != "b" {
		t.Fatalf("expected stale timer not to delete recreated key, got %+v", items)
	}
}

func TestMemoryBackend_RangeReturnsCopy(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	_ = b.Push(ctx, "k", "a", time.Hour)

	items, _ := b.Range(ctx, "k")
	items[0] = "mutated"

	again, _ := b.Range(ctx, "k")
	if again[0] != "a" {
		t.Fatalf("expected internal state untouched, got %q", again[0])
	}
}

func TestMemoryBackend_CloseStopsEverything(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	_ = b.Push(ctx, "k1", "a", time.Hour)
	_ = b.Push(ctx, "k2", "b", time.Hour)

	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	items, _ := b.Range(ctx, "k1")
	if len(items) != 0 {
		t.Fatalf("expected empty after close, got %+v", items)
	}
}

func TestMemoryBackend_StaleTimerDoesNotDropRecreatedKey(t *testing.T) {
	ctx := context.Background()

	t.Run("disparo viejo tras borrar y recrear", func(t *testing.T) {
		b := NewMemoryBackend()
		defer b.Close()

		_ = b.Push(ctx, "chat:s1", "old", time.Hour)
		b.mu.Lock()
		old := b.entries["chat:s1"]
		oldGen := old.gen
		b.mu.Unlock()

		_ = b.Delete(ctx, "chat:s1")
		_ = b.Push(ctx, "chat:s1", "new", time.Hour)

		// El callback del timer viejo ya estaba en vuelo cuando se borro la clave.
		b.expire("chat:s1", old, oldGen)

		out, _ := b.Range(ctx, "chat:s1")
		if len(out) != 1 || out[0] != "new" {
			t.Fatalf("expected recreated key to survive, got %v", out)
		}
	})

	t.Run("timer real bloqueado durante borrar y recrear", func(t *testing.T) {
		b := NewMemoryBackend()
		defer b.Close()

		_ = b.Push(ctx, "chat:s1", "old", 5*time.Millisecond)
		b.mu.Lock()
		entry, ok := b.entries["chat:s1"]
		if !ok {
			b.mu.Unlock()
			t.Skip("timer expired before the lock was taken")
		}
		// El timer dispara y su goroutine queda esperando b.mu.
		time.Sleep(30 * time.Millisecond)
		entry.timer.Stop()
		delete(b.entries, "chat:s1")
		fresh := &memoryEntry{items: []string{"new"}}
		b.entries["chat:s1"] = fresh
		b.scheduleLocked("chat:s1", fresh, time.Hour)
		b.mu.Unlock()

		time.Sleep(30 * time.Millisecond)
		out, _ := b.Range(ctx, "chat:s1")
		if len(out) != 1 || out[0] != "new" {
			t.Fatalf("expected recreated key to keep its full window, got %v", out)
		}
	})

	t.Run("disparo vigente si borra", func(t *testing.T) {
		b := NewMemoryBackend()
		defer b.Close()

		_ = b.Push(ctx, "chat:s1", "x", time.Hour)
		b.mu.Lock()
		cur := b.entries["chat:s1"]
		gen := cur.gen
		b.mu.Unlock()

		b.expire("chat:s1", cur, gen)
		out, _ := b.Range(ctx, "chat:s1")
		if len(out) != 0 {
			t.Fatalf("expected current timer to expire the key, got %v", out)
		}
	})
}
