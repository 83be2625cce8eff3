package models

import "time"

// Authenticated caller identity
type Session struct {
	Email     string
	ExpiresAt time.Time
}
