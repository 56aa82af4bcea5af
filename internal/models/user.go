// Package models holds persisted entities shared by repositories and
// services.
package models

import "time"

// User is a platform user known to the bot. FirstSeenAt is written once on
// first contact and never mutated afterwards except by an explicit
// administrative window reset.
type User struct {
	ID          string
	ExternalID  int64
	FirstSeenAt time.Time
}
