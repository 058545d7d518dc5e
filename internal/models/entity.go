package models

import (
	"time"
)

// Entity is an organizational unit that scopes visibility
type Entity struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Color              string    `json:"color" db:"color"`
	NotificationEmails []string  `json:"notification_emails" db:"notification_emails"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// DigestType is one of the recurring digest cadences
type DigestType string

const (
	DigestWeekly    DigestType = "weekly"
	DigestMonthly   DigestType = "monthly"
	DigestQuarterly DigestType = "quarterly"
	DigestYearly    DigestType = "yearly"
)

// ValidDigestTypes defines allowed digest cadences
var ValidDigestTypes = map[DigestType]bool{
	DigestWeekly:    true,
	DigestMonthly:   true,
	DigestQuarterly: true,
	DigestYearly:    true,
}

// NotificationPreference holds a user's digest opt-ins for one entity
type NotificationPreference struct {
	UserID    string    `json:"user_id" db:"user_id"`
	EntityID  string    `json:"entity_id" db:"entity_id"`
	Weekly    bool      `json:"weekly" db:"weekly"`
	Monthly   bool      `json:"monthly" db:"monthly"`
	Quarterly bool      `json:"quarterly" db:"quarterly"`
	Yearly    bool      `json:"yearly" db:"yearly"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference is the all-enabled preference created lazily for a membership
func DefaultPreference(userID, entityID string) NotificationPreference {
	return NotificationPreference{
		UserID:    userID,
		EntityID:  entityID,
		Weekly:    true,
		Monthly:   true,
		Quarterly: true,
		Yearly:    true,
	}
}

// Enabled reports whether the preference opts in to the given digest
func (p NotificationPreference) Enabled(t DigestType) bool {
	switch t {
	case DigestWeekly:
		return p.Weekly
	case DigestMonthly:
		return p.Monthly
	case DigestQuarterly:
		return p.Quarterly
	case DigestYearly:
		return p.Yearly
	}
	return false
}
