package kv

import (
	"context"
	"time"
)

var _ Store = &MemoryStore{}

// MemoryStore an in memory store. A single goroutine owns the map, entries
// with a TTL are removed by a janitor once stale.
type MemoryStore struct {
	ttl              time.Duration
	janitorFrequency time.Duration

	gets  chan memGetop
	sets  chan memSetop
	clean chan bool
	done  <-chan struct{}
}

type memEntry struct {
	value string
	stale time.Time
}

type memGetop struct {
	key  string
	resp chan memEntry
	miss chan struct{}
}

type memSetop struct {
	key   string
	entry memEntry
	resp  chan struct{}
}

// NewMemoryStore starts a store which lives until ctx is done. A zero ttl
// keeps entries forever.
func NewMemoryStore(ctx context.Context, ttl time.Duration) *MemoryStore {
	m := newMemoryStore(ctx, ttl, 5*time.Second)
	go m.operate(ctx)
	go m.janitor(ctx)
	return m
}

func newMemoryStore(ctx context.Context, ttl, janitorFrequency time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:              ttl,
		janitorFrequency: janitorFrequency,
		gets:             make(chan memGetop),
		sets:             make(chan memSetop),
		clean:            make(chan bool),
		done:             ctx.Done(),
	}
}

// Get a value.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	op := memGetop{
		key:  key,
		resp: make(chan memEntry, 1),
		miss: make(chan struct{}, 1),
	}
	if m.closed() {
		return "", false, ErrClosed
	}
	select {
	case m.gets <- op:
	case <-m.done:
		return "", false, ErrClosed
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	select {
	case e := <-op.resp:
		return e.value, true, nil
	case <-op.miss:
		return "", false, nil
	}
}

// Set a value.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	op := memSetop{
		key:   key,
		entry: memEntry{value: value},
		resp:  make(chan struct{}, 1),
	}
	if m.ttl > 0 {
		op.entry.stale = time.Now().Add(m.ttl)
	}
	if m.closed() {
		return ErrClosed
	}
	select {
	case m.sets <- op:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-op.resp
	return nil
}

func (m *MemoryStore) operate(ctx context.Context) {
	store := map[string]memEntry{}
	for {
		select {
		case get := <-m.gets:
			e, ok := store[get.key]
			if !ok || e.expired(time.Now()) {
				get.miss <- struct{}{}
			} else {
				get.resp <- e
			}
		case set := <-m.sets:
			store[set.key] = set.entry
			set.resp <- struct{}{}
		case <-m.clean:
			now := time.Now()
			for k, v := range store {
				if v.expired(now) {
					delete(store, k)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *MemoryStore) janitor(ctx context.Context) {
	janitor := time.NewTicker(m.janitorFrequency)
	defer janitor.Stop()
	for {
		select {
		case <-janitor.C:
			select {
			case m.clean <- true:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *MemoryStore) closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (e memEntry) expired(now time.Time) bool {
	return !e.stale.IsZero() && !now.Before(e.stale)
}
