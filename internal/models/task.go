package models

import (
	"time"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatuses defines allowed task statuses
var ValidTaskStatuses = map[TaskStatus]bool{
	TaskStatusPending:    true,
	TaskStatusInProgress: true,
	TaskStatusCompleted:  true,
}

// TaskPriority orders tasks for the assignee
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ValidPriorities defines allowed task priorities
var ValidPriorities = map[TaskPriority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Task is a unit of onboarding work
type Task struct {
	ID              string       `json:"id" db:"id"`
	StarterID       *string      `json:"starter_id" db:"starter_id"`
	EntityID        *string      `json:"entity_id" db:"entity_id"`
	TemplateID      *string      `json:"template_id,omitempty" db:"template_id"`
	TaskType        string       `json:"task_type" db:"task_type"`
	Title           string       `json:"title" db:"title"`
	Description     string       `json:"description" db:"description"`
	Status          TaskStatus   `json:"status" db:"status"`
	Priority        TaskPriority `json:"priority" db:"priority"`
	DueDate         *time.Time   `json:"due_date,omitempty" db:"due_date"`
	AssigneeID      *string      `json:"assignee_id" db:"assignee_id"`
	CreatedBy       *string      `json:"created_by,omitempty" db:"created_by"`
	CompletedBy     *string      `json:"completed_by,omitempty" db:"completed_by"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	CompletionNotes string       `json:"completion_notes,omitempty" db:"completion_notes"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// TaskFilter narrows task listings
type TaskFilter struct {
	StarterID  string     `schema:"starter_id"`
	Status     TaskStatus `schema:"status"`
	AssigneeID string     `schema:"assignee_id"`
}

// TaskTemplate is expanded into tasks when a starter is created.
// A nil EntityID applies to every entity.
type TaskTemplate struct {
	ID            string       `json:"id" db:"id"`
	EntityID      *string      `json:"entity_id" db:"entity_id"`
	TaskType      string       `json:"task_type" db:"task_type"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description" db:"description"`
	Priority      TaskPriority `json:"priority" db:"priority"`
	DueOffsetDays *int         `json:"due_offset_days,omitempty" db:"due_offset_days"`
	Active        bool         `json:"active" db:"active"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// TaskAssignment names the user responsible for a task type within an entity.
// A nil EntityID is the global fallback for the task type.
type TaskAssignment struct {
	ID        string    `json:"id" db:"id"`
	EntityID  *string   `json:"entity_id" db:"entity_id"`
	TaskType  string    `json:"task_type" db:"task_type"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
