package timer

import (
	"sync"

	"github.com/mcdev12/studyroom/go/internal/models"
)

// State is what the UI observes about a room timer.
type State struct {
	TimerDuration         int    `json:"timerDuration"`
	TimerDescription      string `json:"timerDescription"`
	IsTimerRunning        bool   `json:"isTimerRunning"`
	OriginalTimerDuration int    `json:"originalTimerDuration"`
}

// DefaultState is the idle state a timer resets to.
func DefaultState() State {
	return State{
		TimerDuration:         models.DefaultTimerDurationSeconds,
		OriginalTimerDuration: models.DefaultTimerDurationSeconds,
	}
}

// Store holds the observable timer state and notifies subscribers on change.
type Store struct {
	mu          sync.RWMutex
	state       State
	nextID      int
	subscribers map[int]func(State)
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	return &Store{
		state:       initial,
		subscribers: make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the state. Subscribers are only called if something changed.
func (s *Store) Set(next State) {
	s.Update(func(State) State { return next })
}

// Update applies fn to the current state.
func (s *Store) Update(fn func(State) State) {
	s.mu.Lock()
	prev := s.state
	s.state = fn(prev)
	changed := s.state != prev
	current := s.state
	subs := s.subscriberList()
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, sub := range subs {
		sub(current)
	}
}

// Reset restores DefaultState.
func (s *Store) Reset() {
	s.Set(DefaultState())
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) subscriberList() []func(State) {
	subs := make([]func(State), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	return subs
}
