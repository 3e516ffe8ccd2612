package timer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/mcdev12/studyroom/go/internal/timer/repository"
	"github.com/stretchr/testify/require"
)

const (
	testRoom = "ROOM42"
	testUser = "alice"
)

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type studyTimeCall struct {
	roomID  string
	minutes int
}

type fakeBackend struct {
	mu        sync.Mutex
	startErr  error
	stopErr   error
	starts    int
	stops     int
	studyTime []studyTimeCall
}

func (b *fakeBackend) StartTimer(_ context.Context, _ string, _ int, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	return b.startErr
}

func (b *fakeBackend) StopTimer(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	return b.stopErr
}

func (b *fakeBackend) LogStudyTime(_ context.Context, roomID string, minutes int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.studyTime = append(b.studyTime, studyTimeCall{roomID: roomID, minutes: minutes})
	return nil
}

func (b *fakeBackend) studyTimeCalls() []studyTimeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]studyTimeCall(nil), b.studyTime...)
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []timer.Notification
	reveals       int
}

func (n *recordingNotifier) Notify(_ string, notification timer.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

func (n *recordingNotifier) RevealTimer(string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reveals++
}

func (n *recordingNotifier) all() []timer.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]timer.Notification(nil), n.notifications...)
}

func (n *recordingNotifier) titles() []string {
	var titles []string
	for _, notification := range n.all() {
		titles = append(titles, notification.Title)
	}
	return titles
}

func (n *recordingNotifier) countLevel(level timer.NotificationLevel) int {
	count := 0
	for _, notification := range n.all() {
		if notification.Level == level {
			count++
		}
	}
	return count
}

type fixture struct {
	clock    *clockwork.FakeClock
	storage  *repository.MemoryStorage
	repo     *repository.Repository
	backend  *fakeBackend
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(testEpoch)
	storage := repository.NewMemoryStorage()
	return &fixture{
		clock:    clock,
		storage:  storage,
		repo:     repository.NewRepository(storage, clock, testRoom, repository.Config{Username: testUser}),
		backend:  &fakeBackend{},
		notifier: &recordingNotifier{},
	}
}

func (f *fixture) newSession(t *testing.T) *timer.Session {
	t.Helper()
	session := timer.NewSession(context.Background(), testRoom, f.repo, f.backend, f.notifier, timer.Options{Clock: f.clock})
	t.Cleanup(session.Dispose)
	return session
}

func (f *fixture) record(t *testing.T) *timer.Snapshot {
	t.Helper()
	snapshot, ok := f.repo.Validate(context.Background(), false)
	require.True(t, ok, "expected a valid local timer record")
	return snapshot
}

func (f *fixture) hasRecord() bool {
	_, err := f.storage.Get(context.Background(), repository.Key(testRoom, testUser))
	return err == nil
}
