package models

// EntityInput is the payload for creating or updating an entity
type EntityInput struct {
	Name               string   `json:"name"`
	Color              string   `json:"color"`
	NotificationEmails []string `json:"notification_emails"`
}

// StarterInput is the payload for creating or updating a starter.
// StartDate accepts YYYY-MM-DD or RFC 3339.
type StarterInput struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	JobTitle   string  `json:"job_title"`
	Department string  `json:"department"`
	Notes      string  `json:"notes"`
	StartDate  string  `json:"start_date"`
	EntityID   *string `json:"entity_id"`
}

// CancelStarterInput is the payload for cancelling a starter
type CancelStarterInput struct {
	Reason string `json:"reason"`
}

// TaskInput is the payload for creating or updating a task
type TaskInput struct {
	StarterID   *string      `json:"starter_id"`
	EntityID    *string      `json:"entity_id"`
	TaskType    string       `json:"task_type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *string      `json:"due_date"`
	AssigneeID  *string      `json:"assignee_id"`
}

// CompleteTaskInput is the payload for completing a task
type CompleteTaskInput struct {
	Notes string `json:"notes"`
}

// TaskTemplateInput is the payload for creating or updating a task template
type TaskTemplateInput struct {
	EntityID      *string      `json:"entity_id"`
	TaskType      string       `json:"task_type"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Priority      TaskPriority `json:"priority"`
	DueOffsetDays *int         `json:"due_offset_days"`
	Active        *bool        `json:"active"`
}

// AssignmentInput sets the responsible user for (entity, task type)
type AssignmentInput struct {
	EntityID *string `json:"entity_id"`
	TaskType string  `json:"task_type"`
	UserID   string  `json:"user_id"`
}

// RoomInput is the payload for creating or updating a room
type RoomInput struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	Capacity   int    `json:"capacity"`
	CalendarID string `json:"calendar_id"`
	Active     *bool  `json:"active"`
}

// BookingInput is the payload for booking a room; times are RFC 3339
type BookingInput struct {
	RoomID  string `json:"room_id"`
	Title   string `json:"title"`
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

// UserInput is the payload for an admin creating a user
type UserInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Password string `json:"password,omitempty"`
}

// RoleInput changes a user's role
type RoleInput struct {
	Role Role `json:"role"`
}

// MembershipInput sets a user's membership in an entity
type MembershipInput struct {
	CanEdit bool `json:"can_edit"`
}

// PreferenceInput updates digest opt-ins; nil fields are left unchanged
type PreferenceInput struct {
	Weekly    *bool `json:"weekly"`
	Monthly   *bool `json:"monthly"`
	Quarterly *bool `json:"quarterly"`
	Yearly    *bool `json:"yearly"`
}

// SettingInput sets a system setting value
type SettingInput struct {
	Value string `json:"value"`
}

// LoginInput is the credentials sign-in payload
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SSOInput carries an identity already verified by the sign-in provider
type SSOInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
