// Package session defines the registry of anonymous session tokens handed
// out to visitors who have not signed in.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/sneakers-backend/pkg/logger"
)

// Store registers, checks and retires anonymous session tokens.
type Store interface {
	Create(ctx context.Context, token string) error
	Exists(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) error
}

// NewToken mints a fresh session token.
func NewToken() string {
	return uuid.NewString()
}

// StatelessStore accepts any well-formed token without remembering it.
// Deleted tokens are not tracked, so a retired token whose cart was merged
// simply resolves to an empty cart afterwards.
type StatelessStore struct{}

func NewStatelessStore() *StatelessStore {
	return &StatelessStore{}
}

func (s *StatelessStore) Create(ctx context.Context, token string) error {
	return nil
}

func (s *StatelessStore) Exists(ctx context.Context, token string) (bool, error) {
	_, err := uuid.Parse(token)
	return err == nil, nil
}

func (s *StatelessStore) Delete(ctx context.Context, token string) error {
	return nil
}

// Tracker remembers when a session token was last presented, so idle
// anonymous data can be told apart from data of a session still in use.
type Tracker interface {
	Touch(token string, at time.Time) error
	Forget(token string) error
}

// TrackingStore records activity in a Tracker on every successful Create or
// Exists. Tracking failures are logged and never fail the request.
type TrackingStore struct {
	store   Store
	tracker Tracker
	now     func() time.Time
}

func NewTrackingStore(store Store, tracker Tracker) *TrackingStore {
	return &TrackingStore{store: store, tracker: tracker, now: time.Now}
}

func (s *TrackingStore) Create(ctx context.Context, token string) error {
	if err := s.store.Create(ctx, token); err != nil {
		return err
	}
	s.touch(token)
	return nil
}

func (s *TrackingStore) Exists(ctx context.Context, token string) (bool, error) {
	ok, err := s.store.Exists(ctx, token)
	if err != nil || !ok {
		return ok, err
	}
	s.touch(token)
	return true, nil
}

func (s *TrackingStore) Delete(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	if err := s.tracker.Forget(token); err != nil {
		logger.Warn("Failed to forget session activity", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

func (s *TrackingStore) touch(token string) {
	if err := s.tracker.Touch(token, s.now()); err != nil {
		logger.Warn("Failed to record session activity", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
