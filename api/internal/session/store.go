package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Store: сессии в памяти процесса. Ничего не сохраняется на диск.
type Store struct {
	mu sync.Mutex
	m  map[string]*Session
}

func NewStore() *Store {
	return &Store{m: map[string]*Session{}}
}

func NewID() string { return uuid.NewString() }

// Get возвращает сессию по id, создавая её при необходимости.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.m[id]; ok {
		return s
	}
	s := New(id)
	st.m[id] = s
	return s
}

func (st *Store) Lookup(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.m[id]
	return s, ok
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.m, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.m)
}

// Sweep удаляет сессии без активности дольше maxIdle (кроме ожидающих ответа).
func (st *Store) Sweep(maxIdle time.Duration) int {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.m {
		if s.idleFor(now) > maxIdle {
			delete(st.m, id)
			n++
		}
	}
	return n
}

// RunSweeper чистит хранилище каждые maxIdle/2, пока жив ctx.
func (st *Store) RunSweeper(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	t := time.NewTicker(maxIdle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.Sweep(maxIdle); n > 0 {
				klog.V(2).Infof("session: evicted %d idle sessions", n)
			}
		}
	}
}
