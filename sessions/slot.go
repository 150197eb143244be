package sessions

import (
	"sync"
	"sync/atomic"
)

var _ Store = (*Slot)(nil)

// Observer is notified after a session became active.
type Observer func(current Session, previous *Session)

// Slot is the in-memory, process-wide session Store.
type Slot struct {
	current   atomic.Pointer[Session]
	mu        sync.Mutex // serialises writers and guards observers
	observers []Observer
}

// NewSlot creates an empty session slot
func NewSlot() *Slot {
	return &Slot{}
}

// OnActivate registers an observer called after every Replace.
func (s *Slot) OnActivate(observer Observer) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Replace swaps in a copy of session; latest write wins.
func (s *Slot) Replace(session Session) *Session {
	s.mu.Lock()
	next := session
	previous := s.current.Swap(&next)
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, observer := range observers {
		observer(next, previous)
	}
	return previous
}

func (s *Slot) Current() (Session, bool) {
	current := s.current.Load()
	if current == nil {
		return Session{}, false
	}
	return *current, true
}
