package models

import (
	"encoding/json"
	"time"
)

// AuditLog is an immutable record of a mutating operation
type AuditLog struct {
	ID         string          `json:"id" db:"id"`
	ActorID    *string         `json:"actor_id" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	TargetType string          `json:"target_type" db:"target_type"`
	TargetID   string          `json:"target_id" db:"target_id"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	TargetType string `schema:"target_type"`
	TargetID   string `schema:"target_id"`
	Limit      int    `schema:"limit"`
}

// SystemSetting is a single runtime key/value setting
type SystemSetting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	Revision  int64     `json:"revision" db:"revision"`
	UpdatedBy *string   `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
