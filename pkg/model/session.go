package model

import "time"

// Session represents an active authenticated connection (in-memory only).
// A session exists from a successful LOGIN until LOGOUT or disconnect.
type Session struct {
	ID        uint64
	UserID    int64
	Username  string
	Role      Role
	Remote    string
	CreatedAt time.Time
}
