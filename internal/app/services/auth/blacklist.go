package auth

import (
	"context"
	"sync"
	"time"
)

// Blacklist tracks revoked access tokens until they would have expired
// anyway. Logout is the only writer.
type Blacklist interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// MemoryBlacklist keeps revocations in process memory. It implements the
// lifecycle interface so the manager can run its janitor, which drops
// entries once their expiry passes.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	janitorMu sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewMemoryBlacklist builds an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, token string, until time.Time) error {
	b.mu.Lock()
	b.entries[token] = until
	b.mu.Unlock()
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	until, ok := b.entries[token]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		b.mu.Lock()
		delete(b.entries, token)
		b.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Name implements the lifecycle interface.
func (b *MemoryBlacklist) Name() string { return "token-blacklist" }

// Start launches the janitor that purges expired revocations.
func (b *MemoryBlacklist) Start(ctx context.Context) error {
	b.janitorMu.Lock()
	defer b.janitorMu.Unlock()
	if b.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				b.purge(time.Now())
			}
		}
	}()
	return nil
}

// Stop halts the janitor.
func (b *MemoryBlacklist) Stop(ctx context.Context) error {
	b.janitorMu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.janitorMu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBlacklist) purge(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, until := range b.entries {
		if now.After(until) {
			delete(b.entries, token)
		}
	}
}
