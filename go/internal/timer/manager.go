package timer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Manager owns one Session per open room and routes pushed events to them.
type Manager struct {
	newRepo  RepositoryFactory
	backend  Backend
	notifier Notifier
	opts     Options

	mu       sync.Mutex
	sessions map[string]*managedSession
	onOpen   []func(*Session)

	dispatched  atomic.Uint64
	lastEventAt atomic.Int64 // unix millis of the last dispatched event
}

type managedSession struct {
	session *Session
	done    chan struct{}
}

// NewManager creates a manager; sessions share the backend, notifier and options.
func NewManager(newRepo RepositoryFactory, backend Backend, notifier Notifier, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		newRepo:  newRepo,
		backend:  backend,
		notifier: notifier,
		opts:     opts,
		sessions: make(map[string]*managedSession),
	}
}

// OnOpen registers fn to be called for every session the manager opens.
func (m *Manager) OnOpen(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOpen = append(m.onOpen, fn)
}

// Open returns the session for roomID, creating it and starting its sync loop
// if needed. The loop stops when ctx is cancelled or the room is closed.
func (m *Manager) Open(ctx context.Context, roomID string) *Session {
	m.mu.Lock()
	if ms, ok := m.sessions[roomID]; ok {
		m.mu.Unlock()
		return ms.session
	}

	session := NewSession(ctx, roomID, m.newRepo(roomID), m.backend, m.notifier, m.opts)
	ms := &managedSession{session: session, done: make(chan struct{})}
	m.sessions[roomID] = ms
	hooks := append([]func(*Session){}, m.onOpen...)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(session)
	}

	go func() {
		defer close(ms.done)
		if err := session.Run(ctx); err != nil && !errors.Is(err, ErrSessionDisposed) {
			log.Error().Err(err).Str("room_id", roomID).Msg("timer sync loop failed")
		}
	}()

	log.Info().Str("room_id", roomID).Msg("opened timer session")
	return session
}

// Get returns the open session for roomID.
func (m *Manager) Get(roomID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[roomID]
	if !ok {
		return nil, false
	}
	return ms.session, true
}

// Rooms lists the open rooms in sorted order.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]string, 0, len(m.sessions))
	for roomID := range m.sessions {
		rooms = append(rooms, roomID)
	}
	sort.Strings(rooms)
	return rooms
}

// Dispatch hands a parsed event to its room's session. Events for rooms that are
// not open are dropped.
func (m *Manager) Dispatch(ctx context.Context, event Event) {
	session, ok := m.Get(event.Room())
	if !ok {
		log.Debug().
			Str("room_id", event.Room()).
			Str("event_kind", string(event.Kind())).
			Msg("event for unopened room - ignoring")
		return
	}
	m.dispatched.Add(1)
	m.lastEventAt.Store(m.opts.Clock.Now().UnixMilli())
	session.HandleEvent(ctx, event)
}

// Stats returns how many events reached an open session and when the last one
// arrived. last is zero until the first event.
func (m *Manager) Stats() (dispatched uint64, last time.Time) {
	dispatched = m.dispatched.Load()
	if millis := m.lastEventAt.Load(); millis != 0 {
		last = time.UnixMilli(millis)
	}
	return dispatched, last
}

// SyncAll runs one Sync on every open session, e.g. after a transport reconnect.
func (m *Manager) SyncAll(ctx context.Context) {
	for _, roomID := range m.Rooms() {
		if session, ok := m.Get(roomID); ok {
			session.Sync(ctx)
		}
	}
}

// Close disposes the room's session and waits for its loop to exit.
func (m *Manager) Close(roomID string) {
	m.mu.Lock()
	ms, ok := m.sessions[roomID]
	delete(m.sessions, roomID)
	m.mu.Unlock()

	if !ok {
		return
	}
	ms.session.Dispose()
	<-ms.done
	log.Info().Str("room_id", roomID).Msg("closed timer session")
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	for _, roomID := range m.Rooms() {
		m.Close(roomID)
	}
}
