package replace

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Key identifies the rules that apply to one book from one source.
type Key struct {
	BookName string
	Origin   string
}

func (k Key) String() string {
	return k.BookName + "\x00" + k.Origin
}

// Snapshot is an immutable view of an entry's rules. Callers must not modify
// the slices.
type Snapshot struct {
	Title   []Rule
	Content []Rule
}

// Entry holds the enabled rules for one key. Readers always see a complete
// snapshot; Refresh replaces both lists in a single swap.
type Entry struct {
	key    Key
	source RuleSource
	snap   atomic.Pointer[Snapshot]
}

func newEntry(key Key, source RuleSource) *Entry {
	e := &Entry{key: key, source: source}
	e.snap.Store(&Snapshot{})
	return e
}

// Key returns the entry's key.
func (e *Entry) Key() Key {
	return e.key
}

// Snapshot returns the current rule lists.
func (e *Entry) Snapshot() *Snapshot {
	return e.snap.Load()
}

// TitleRules returns the current title-scope rules.
func (e *Entry) TitleRules() []Rule {
	return e.snap.Load().Title
}

// ContentRules returns the current content-scope rules.
func (e *Entry) ContentRules() []Rule {
	return e.snap.Load().Content
}

// Refresh reloads both lists from the rule source. On failure the previous
// snapshot stays in place.
func (e *Entry) Refresh() error {
	title, err := e.source.EnabledTitleRules(e.key.BookName, e.key.Origin)
	if err != nil {
		return fmt.Errorf("failed to load title rules: %w", err)
	}
	content, err := e.source.EnabledContentRules(e.key.BookName, e.key.Origin)
	if err != nil {
		return fmt.Errorf("failed to load content rules: %w", err)
	}

	e.snap.Store(&Snapshot{
		Title:   append([]Rule(nil), title...),
		Content: append([]Rule(nil), content...),
	})
	return nil
}

// Registry caches one Entry per key. It is owned by the application or
// reading session; entries live until released or evicted as least recently
// used once MaxEntries is exceeded.
type Registry struct {
	source     RuleSource
	maxEntries int
	logger     zerolog.Logger

	mu      sync.Mutex
	entries map[Key]*list.Element
	lru     *list.List
	loads   singleflight.Group
}

// NewRegistry creates a registry backed by source. maxEntries <= 0 disables
// eviction.
func NewRegistry(source RuleSource, maxEntries int, logger zerolog.Logger) *Registry {
	return &Registry{
		source:     source,
		maxEntries: maxEntries,
		logger:     logger,
		entries:    make(map[Key]*list.Element),
		lru:        list.New(),
	}
}

// Get returns the entry for key, loading and registering it on a miss.
// Concurrent misses on the same key share one load.
func (r *Registry) Get(key Key) *Entry {
	if e := r.lookup(key); e != nil {
		return e
	}

	v, _, _ := r.loads.Do(key.String(), func() (any, error) {
		if e := r.lookup(key); e != nil {
			return e, nil
		}

		e := newEntry(key, r.source)
		if err := e.Refresh(); err != nil {
			r.logger.Error().Err(err).
				Str("book", key.BookName).
				Str("origin", key.Origin).
				Msg("Failed to load replace rules")
		}
		r.insert(e)
		return e, nil
	})
	return v.(*Entry)
}

func (r *Registry) lookup(key Key) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.entries[key]
	if !ok {
		return nil
	}
	r.lru.MoveToFront(el)
	return el.Value.(*Entry)
}

func (r *Registry) insert(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.entries[e.key]; ok {
		el.Value = e
		r.lru.MoveToFront(el)
		return
	}
	r.entries[e.key] = r.lru.PushFront(e)

	for r.maxEntries > 0 && r.lru.Len() > r.maxEntries {
		oldest := r.lru.Back()
		r.lru.Remove(oldest)
		delete(r.entries, oldest.Value.(*Entry).key)
	}
}

// Release drops the entry for key. Holders of the entry may keep using it.
func (r *Registry) Release(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.entries[key]
	if !ok {
		return false
	}
	r.lru.Remove(el)
	delete(r.entries, key)
	return true
}

// Refresh reloads the entry for key if it is registered.
func (r *Registry) Refresh(key Key) error {
	r.mu.Lock()
	el, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return el.Value.(*Entry).Refresh()
}

// RefreshAll reloads every registered entry. Failures are joined; entries
// that fail keep their previous rules.
func (r *Registry) RefreshAll() error {
	r.mu.Lock()
	entries := make([]*Entry, 0, r.lru.Len())
	for el := r.lru.Front(); el != nil; el = el.Next() {
		entries = append(entries, el.Value.(*Entry))
	}
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.Refresh(); err != nil {
			r.logger.Error().Err(err).
				Str("book", e.key.BookName).
				Str("origin", e.key.Origin).
				Msg("Failed to refresh replace rules")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}
