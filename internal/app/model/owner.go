package model

import (
	"errors"
	"fmt"
)

var ErrInvalidOwner = errors.New("owner must be exactly one of user or session")

// CartOwner identifies whose cart, favorites or orders an operation touches:
// a registered user or an anonymous session, never both.
type CartOwner struct {
	UserID    *uint
	SessionID *string
}

func UserOwner(userID uint) CartOwner {
	return CartOwner{UserID: &userID}
}

func SessionOwner(token string) CartOwner {
	return CartOwner{SessionID: &token}
}

func (o CartOwner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != 0
	hasSession := o.SessionID != nil && *o.SessionID != ""
	if hasUser == hasSession {
		return ErrInvalidOwner
	}
	if o.UserID != nil && o.SessionID != nil {
		return ErrInvalidOwner
	}
	return nil
}

func (o CartOwner) IsUser() bool {
	return o.UserID != nil
}

// Key is a stable string form used in logs and for routing push events.
func (o CartOwner) Key() string {
	switch {
	case o.UserID != nil:
		return fmt.Sprintf("user:%d", *o.UserID)
	case o.SessionID != nil:
		return "session:" + *o.SessionID
	default:
		return "unknown"
	}
}

// LogFields never includes the raw session token.
func (o CartOwner) LogFields() map[string]interface{} {
	if o.UserID != nil {
		return map[string]interface{}{"user_id": *o.UserID}
	}
	if o.SessionID != nil {
		token := *o.SessionID
		if len(token) > 8 {
			token = token[:8]
		}
		return map[string]interface{}{"session": token}
	}
	return map[string]interface{}{}
}
