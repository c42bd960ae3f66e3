package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/playsum/internal/shared"
)

// Key identifies a cached query.
type Key string

const (
	JobsKey          Key = "jobs"
	ConversationsKey Key = "conversations"
	CurrentUserKey   Key = "currentUser"
)

// JobKey identifies a single job.
func JobKey(id string) Key { return Key("jobs/" + id) }

// ConversationsPageKey identifies one page of the conversation list. All pages share the [ConversationsKey] prefix.
func ConversationsPageKey(limit, offset int) Key {
	return Key(fmt.Sprintf("%s?limit=%d&offset=%d", ConversationsKey, limit, offset))
}

// ConversationKey identifies a single conversation detail.
func ConversationKey(id string) Key { return Key("conversation/" + id) }

// Entry is a cached value with its freshness metadata.
type Entry struct {
	Value     any
	FetchedAt time.Time
	Stale     bool
}

// EventKind describes what happened to an entry.
type EventKind int

const (
	EventSet EventKind = iota
	EventInvalidated
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventSet:
		return "set"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after an entry changes.
type Event struct {
	Key   Key
	Kind  EventKind
	Entry Entry
}

// Listener receives store events. Listeners run on the writer's goroutine, outside the store lock.
type Listener func(Event)

type subscription struct {
	keys     map[Key]struct{}
	listener Listener
}

func (s subscription) wants(key Key) bool {
	if len(s.keys) == 0 {
		return true
	}
	_, ok := s.keys[key]
	return ok
}

// StoreOpts configures a [Store].
type StoreOpts struct {
	Logger *log.Logger
	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time
}

// Store is a keyed cache with subscription and invalidation.
type Store struct {
	mu      sync.Mutex
	entries map[Key]Entry
	subs    map[int]subscription
	nextSub int
	group   singleflight.Group
	now     func() time.Time
	logger  *log.Logger
}

// NewStore creates an empty store.
func NewStore(opts StoreOpts) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		entries: make(map[Key]Entry),
		subs:    make(map[int]subscription),
		now:     opts.Clock,
		logger:  shared.WithLogger(opts.Logger, "component", "cache"),
	}
}

// Get returns the entry for key.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Set replaces the value for key and marks it fresh.
func (s *Store) Set(key Key, value any) {
	s.mu.Lock()
	e := Entry{Value: value, FetchedAt: s.now()}
	s.entries[key] = e
	subs := s.listenersFor(key)
	s.mu.Unlock()

	s.notify(subs, Event{Key: key, Kind: EventSet, Entry: e})
}

// Update computes a new value from the current one while holding the store lock.
//
// fn receives the current value and whether the key exists; returning false leaves the entry untouched.
// Update reports whether a write happened.
func (s *Store) Update(key Key, fn func(old any, ok bool) (any, bool)) bool {
	s.mu.Lock()
	old, ok := s.entries[key]
	next, write := fn(old.Value, ok)
	if !write {
		s.mu.Unlock()
		return false
	}
	e := Entry{Value: next, FetchedAt: s.now()}
	s.entries[key] = e
	subs := s.listenersFor(key)
	s.mu.Unlock()

	s.notify(subs, Event{Key: key, Kind: EventSet, Entry: e})
	return true
}

// Invalidate marks the entry stale so the next [Store.Fetch] refetches it. Missing keys are ignored.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.Stale {
		s.mu.Unlock()
		return
	}
	e.Stale = true
	s.entries[key] = e
	subs := s.listenersFor(key)
	s.mu.Unlock()

	s.logger.Debug("invalidated", "key", key)
	s.notify(subs, Event{Key: key, Kind: EventInvalidated, Entry: e})
}

// InvalidatePrefix marks every entry whose key starts with prefix stale.
func (s *Store) InvalidatePrefix(prefix Key) {
	for _, k := range s.KeysWithPrefix(prefix) {
		s.Invalidate(k)
	}
}

// Remove deletes the entry for key.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	subs := s.listenersFor(key)
	s.mu.Unlock()

	s.notify(subs, Event{Key: key, Kind: EventRemoved, Entry: e})
}

// Subscribe registers listener for changes to keys (all keys when none are given).
// The returned function unsubscribes and is safe to call more than once.
func (s *Store) Subscribe(listener Listener, keys ...Key) func() {
	sub := subscription{keys: make(map[Key]struct{}, len(keys)), listener: listener}
	for _, k := range keys {
		sub.keys[k] = struct{}{}
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Fetcher loads a fresh value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Fetch returns the cached value when it is present, not invalidated, and younger than staleTime.
// Otherwise it calls fetch, stores the result, and returns it. A failed fetch leaves the entry as it was.
func (s *Store) Fetch(ctx context.Context, key Key, staleTime time.Duration, fetch Fetcher) (any, error) {
	if e, ok := s.Get(key); ok && s.fresh(e, staleTime) {
		return e.Value, nil
	}

	ch := s.group.DoChan(string(key), func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.logger.Debug("fetch failed", "key", key, "err", res.Err)
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refetch ignores freshness and always calls fetch.
func (s *Store) Refetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	s.Invalidate(key)
	return s.Fetch(ctx, key, 0, fetch)
}

// KeysWithPrefix returns the cached keys starting with prefix, sorted.
func (s *Store) KeysWithPrefix(prefix Key) []Key {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		if strings.HasPrefix(string(k), string(prefix)) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// restore writes e back verbatim, or deletes key when existed is false.
func (s *Store) restore(key Key, e Entry, existed bool) {
	s.mu.Lock()
	kind := EventSet
	if existed {
		s.entries[key] = e
	} else {
		if _, ok := s.entries[key]; !ok {
			s.mu.Unlock()
			return
		}
		delete(s.entries, key)
		kind = EventRemoved
	}
	subs := s.listenersFor(key)
	s.mu.Unlock()

	s.notify(subs, Event{Key: key, Kind: kind, Entry: e})
}

func (s *Store) fresh(e Entry, staleTime time.Duration) bool {
	if e.Stale {
		return false
	}
	return s.now().Sub(e.FetchedAt) < staleTime
}

// listenersFor must be called with s.mu held.
func (s *Store) listenersFor(key Key) []Listener {
	var out []Listener
	for _, sub := range s.subs {
		if sub.wants(key) {
			out = append(out, sub.listener)
		}
	}
	return out
}

func (s *Store) notify(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}

// GetAs returns the cached value for key when it holds a T.
func GetAs[T any](s *Store, key Key) (T, bool) {
	var zero T
	e, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := e.Value.(T)
	return v, ok
}

// FetchAs is the typed form of [Store.Fetch].
func FetchAs[T any](ctx context.Context, s *Store, key Key, staleTime time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.Fetch(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return typed, nil
}

// UpdateAs is the typed form of [Store.Update]. Entries holding another type are treated as missing.
func UpdateAs[T any](s *Store, key Key, fn func(old T, ok bool) (T, bool)) bool {
	return s.Update(key, func(old any, ok bool) (any, bool) {
		typed, isT := old.(T)
		return fn(typed, ok && isT)
	})
}
