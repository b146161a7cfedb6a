package service

import (
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/pkg/logger"
)

type CleanupResult struct {
	CartsDeleted     int64
	FavoritesDeleted int64
	SessionsExpired  int64
}

// SessionCleanupService removes anonymous carts and favorites whose session
// has been idle for longer than the session lifetime. A session counts as
// idle only when it was neither presented nor modified its data since the
// cutoff.
type SessionCleanupService interface {
	PurgeIdleSessions(now time.Time) (*CleanupResult, error)
}

type sessionCleanupService struct {
	cartRepo     repository.CartRepository
	favoriteRepo repository.FavoriteRepository
	activityRepo repository.SessionActivityRepository
	ttl          time.Duration
}

func NewSessionCleanupService(
	cartRepo repository.CartRepository,
	favoriteRepo repository.FavoriteRepository,
	activityRepo repository.SessionActivityRepository,
	ttl time.Duration,
) SessionCleanupService {
	return &sessionCleanupService{
		cartRepo:     cartRepo,
		favoriteRepo: favoriteRepo,
		activityRepo: activityRepo,
		ttl:          ttl,
	}
}

func (s *sessionCleanupService) PurgeIdleSessions(now time.Time) (*CleanupResult, error) {
	cutoff := now.Add(-s.ttl)
	logger.Info("Purging idle anonymous sessions", map[string]interface{}{
		"cutoff": cutoff,
	})

	favorites, err := s.favoriteRepo.DeleteStaleSessionFavorites(cutoff)
	if err != nil {
		logger.Error("Failed to purge idle session favorites", err)
		return nil, err
	}

	carts, err := s.cartRepo.DeleteIdleSessionCarts(cutoff)
	if err != nil {
		logger.Error("Failed to purge idle session carts", err)
		return nil, err
	}

	// must run after the purges above, which read it
	expired, err := s.activityRepo.DeleteSeenBefore(cutoff)
	if err != nil {
		logger.Error("Failed to purge expired session activity", err)
		return nil, err
	}

	result := &CleanupResult{CartsDeleted: carts, FavoritesDeleted: favorites, SessionsExpired: expired}
	logger.Info("Idle anonymous sessions purged", map[string]interface{}{
		"carts_deleted":     result.CartsDeleted,
		"favorites_deleted": result.FavoritesDeleted,
		"sessions_expired":  result.SessionsExpired,
	})
	return result, nil
}
