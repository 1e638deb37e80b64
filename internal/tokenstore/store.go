// Package tokenstore persists the single bearer token between runs. There is
// exactly one slot: saving replaces, clearing removes, there are no sessions.
package tokenstore

import (
	"context"
	"sync"
)

type Store interface {
	// Load returns "" with a nil error when nothing is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
