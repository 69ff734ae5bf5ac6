package services

import (
	"context"
	"sync"
	"time"
)

// localLocker is the Locker used when no Redis is configured. Keys expire after their
// TTL like the Redis locks do.
type localLocker struct {
	mu   sync.Mutex
	seq  uint64
	held map[string]localLease
}

type localLease struct {
	token   uint64
	expires time.Time
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[string]localLease)}
}

func (l *localLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if lease, ok := l.held[key]; ok && now.Before(lease.expires) {
		return nil, false, nil
	}
	l.seq++
	token := l.seq
	l.held[key] = localLease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.held[key]; ok && lease.token == token {
			delete(l.held, key)
		}
		return nil
	}, true, nil
}
