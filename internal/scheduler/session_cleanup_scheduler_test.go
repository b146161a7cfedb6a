package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleanupService struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeCleanupService) PurgeIdleSessions(now time.Time) (*service.CleanupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	if f.err != nil {
		return nil, f.err
	}
	return &service.CleanupResult{CartsDeleted: 2, FavoritesDeleted: 1}, nil
}

func (f *fakeCleanupService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSessionCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewSessionCleanupScheduler(&fakeCleanupService{}, "not a schedule")
	assert.Error(t, s.Start())
}

func TestSessionCleanupScheduler_RunOncePassesClock(t *testing.T) {
	fake := &fakeCleanupService{}
	s := NewSessionCleanupScheduler(fake, "@daily")
	fixed := time.Date(2026, 3, 1, 3, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.runOnce()

	require.Equal(t, 1, fake.callCount())
	assert.Equal(t, fixed, fake.calls[0])
}

func TestSessionCleanupScheduler_RunOnceSurvivesFailure(t *testing.T) {
	fake := &fakeCleanupService{err: errors.New("db down")}
	s := NewSessionCleanupScheduler(fake, "@daily")

	assert.NotPanics(t, s.runOnce)
	assert.Equal(t, 1, fake.callCount())
}

func TestSessionCleanupScheduler_FiresOnSchedule(t *testing.T) {
	fake := &fakeCleanupService{}
	s := NewSessionCleanupScheduler(fake, "@every 1s")
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return fake.callCount() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
