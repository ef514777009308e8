// Package memory implements every repository port with mutex-guarded maps.
// It backs tests and the single-process development mode.
package memory

import (
	"sync"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

type row[S any] struct {
	version int
	state   S
}

// table stores state snapshots keyed by aggregate id with a version check.
type table[S any] struct {
	mu   sync.RWMutex
	rows map[string]row[S]
}

func newTable[S any]() *table[S] {
	return &table[S]{rows: make(map[string]row[S])}
}

func (t *table[S]) save(op, aggregateType, id string, expected, version int, state S) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, exists := t.rows[id]
	switch {
	case expected == 0 && exists:
		return repository.VersionConflict(op, aggregateType, id, expected)
	case expected != 0 && (!exists || current.version != expected):
		return repository.VersionConflict(op, aggregateType, id, expected)
	}
	t.rows[id] = row[S]{version: version, state: state}
	return nil
}

func (t *table[S]) get(id string) (row[S], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	return r, ok
}

// find returns the first row matching the predicate.
func (t *table[S]) find(match func(S) bool) (string, row[S], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, r := range t.rows {
		if match(r.state) {
			return id, r, true
		}
	}
	return "", row[S]{}, false
}

func (t *table[S]) filter(match func(S) bool) map[string]row[S] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]row[S])
	for id, r := range t.rows {
		if match(r.state) {
			out[id] = r
		}
	}
	return out
}
