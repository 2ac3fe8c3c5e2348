package session

import (
	"time"

	"horsemarket-web/internal/api"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side counterpart of the browser's persisted
// credentials: the API bearer token, the API cookies and the probed identity.
type Session struct {
	ID        uuid.UUID
	Token     string
	APICookie string
	User      *api.User
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Credentials() api.Credentials {
	if s == nil {
		return api.Credentials{}
	}
	return api.Credentials{Token: s.Token, Cookie: s.APICookie}
}

func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
