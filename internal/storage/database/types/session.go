package types

import (
	"time"
)

// AdminSession is a bearer credential issued after a successful admin
// login. A session is valid iff the current time is before ExpiresAt;
// expiry is checked on every validation, and expired rows are removed
// by background housekeeping.
type AdminSession struct {
	ID           int64     `bun:",pk,autoincrement"`
	SessionToken string    `bun:",notnull,unique"` // Cryptographically random token
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	ExpiresAt    time.Time `bun:",notnull"`
}

// IsExpired reports whether the session has passed its expiry.
func (s *AdminSession) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}
