package models

import "time"

// Session is the server-side record of one refresh-token lineage. Only
// the argon2id hash of the refresh token is stored; the raw token lives
// in the client cookie. A session is exchangeable iff it is not revoked
// and ExpiresAt is in the future.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	IPAddress        string
	IsRevoked        bool
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

func (s Session) Active(now time.Time) bool {
	return !s.IsRevoked && s.ExpiresAt.After(now)
}
