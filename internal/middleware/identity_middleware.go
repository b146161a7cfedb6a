package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/config"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/internal/session"
	"github.com/ikkim/sneakers-backend/pkg/util"
)

const (
	CartOwnerKey       = "cart_owner"
	ExistingSessionKey = "existing_session"
)

// IdentityResolver decides who a request acts for: the signed-in user, or
// otherwise an anonymous session that is created on first contact.
type IdentityResolver struct {
	auth     *AuthMiddleware
	sessions session.Store
	cfg      config.SessionConfig
}

func NewIdentityResolver(auth *AuthMiddleware, sessions session.Store, cfg config.SessionConfig) *IdentityResolver {
	return &IdentityResolver{
		auth:     auth,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Resolve stores exactly one CartOwner in the context. A presented bearer
// token must be valid; requests without one get a session, minted and
// returned in the cookie and header when the presented one is missing or
// unknown.
func (r *IdentityResolver) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, err := bearerToken(c)
		if err != nil {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}
		if token != "" {
			claims, err := r.auth.parseAccessToken(token)
			if err != nil {
				log.Warn("Rejected bearer token while resolving identity", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"error": err.Error(),
				})
				if errors.Is(err, util.ErrExpiredToken) {
					apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Token has expired")
				} else {
					apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid or expired token")
				}
				c.Abort()
				return
			}
			setClaims(c, claims)
			c.Set(CartOwnerKey, model.UserOwner(claims.UserID))
			c.Next()
			return
		}

		sessionID, ok, err := r.presentedSession(c)
		if err != nil {
			log.Error("Session store lookup failed", err, map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !ok {
			sessionID = session.NewToken()
			if err := r.sessions.Create(c.Request.Context(), sessionID); err != nil {
				log.Error("Failed to register new session", err, map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				apperrors.InternalError(c, "")
				c.Abort()
				return
			}
			log.Debug("Minted anonymous session", model.SessionOwner(sessionID).LogFields())
		}

		r.attachSession(c, sessionID)
		c.Set(CartOwnerKey, model.SessionOwner(sessionID))
		c.Next()
	}
}

// ExistingSession exposes a presented, still valid session token without
// ever minting one.
func (r *IdentityResolver) ExistingSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok, err := r.presentedSession(c)
		if err != nil {
			GetLoggerFromContext(c).Warn("Session store lookup failed, ignoring session", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
		}
		if ok {
			c.Set(ExistingSessionKey, sessionID)
		}
		c.Next()
	}
}

// ClearSession expires the session cookie, used once a session has been
// merged into an account.
func (r *IdentityResolver) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(r.cfg.CookieName, "", -1, "/", "", r.cfg.CookieSecure, true)
}

// presentedSession checks the cookie first, then the header. A header token
// is still tried when the cookie carries a token the store no longer knows.
func (r *IdentityResolver) presentedSession(c *gin.Context) (string, bool, error) {
	var candidates []string
	if cookie, err := c.Cookie(r.cfg.CookieName); err == nil && cookie != "" {
		candidates = append(candidates, cookie)
	}
	if header := c.GetHeader(r.cfg.HeaderName); header != "" && (len(candidates) == 0 || header != candidates[0]) {
		candidates = append(candidates, header)
	}

	for _, sessionID := range candidates {
		exists, err := r.sessions.Exists(c.Request.Context(), sessionID)
		if err != nil {
			return "", false, err
		}
		if exists {
			return sessionID, true, nil
		}
	}
	return "", false, nil
}

func (r *IdentityResolver) attachSession(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(r.cfg.CookieName, sessionID, int(r.cfg.TTL.Seconds()), "/", "", r.cfg.CookieSecure, true)
	c.Header(r.cfg.HeaderName, sessionID)
}

// GetCartOwner returns the owner stored by Resolve.
func GetCartOwner(c *gin.Context) (model.CartOwner, bool) {
	v, exists := c.Get(CartOwnerKey)
	if !exists {
		return model.CartOwner{}, false
	}
	owner, ok := v.(model.CartOwner)
	return owner, ok
}

// GetExistingSession returns the session stored by ExistingSession, or nil.
func GetExistingSession(c *gin.Context) *string {
	v, exists := c.Get(ExistingSessionKey)
	if !exists {
		return nil
	}
	sessionID, ok := v.(string)
	if !ok {
		return nil
	}
	return &sessionID
}
