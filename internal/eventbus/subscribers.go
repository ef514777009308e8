package eventbus

import "sync"

// subscriberSet maps event types to handler lists. Writers replace the slice
// instead of mutating it, so a snapshot stays valid while it is iterated.
type subscriberSet struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{handlers: make(map[string][]Handler)}
}

// add registers h and reports whether it is the first handler for eventType.
// Adding a handler twice keeps one registration.
func (s *subscriberSet) add(eventType string, h Handler) (first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.handlers[eventType]
	for _, existing := range current {
		if existing == h {
			return false
		}
	}
	next := make([]Handler, len(current), len(current)+1)
	copy(next, current)
	s.handlers[eventType] = append(next, h)
	return len(current) == 0
}

// remove drops h and reports whether it was registered and whether no handler
// is left for eventType.
func (s *subscriberSet) remove(eventType string, h Handler) (found, last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.handlers[eventType]
	next := make([]Handler, 0, len(current))
	for _, existing := range current {
		if existing == h {
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		return false, false
	}
	if len(next) == 0 {
		delete(s.handlers, eventType)
		return true, true
	}
	s.handlers[eventType] = next
	return true, false
}

func (s *subscriberSet) snapshot(eventType string) []Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[eventType]
}

func (s *subscriberSet) count(eventType string) int {
	return len(s.snapshot(eventType))
}

func (s *subscriberSet) eventTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.handlers))
	for t := range s.handlers {
		out = append(out, t)
	}
	return out
}

func (s *subscriberSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[string][]Handler)
}
