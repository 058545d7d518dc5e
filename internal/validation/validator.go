package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/models"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	colorRegex    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	taskTypeRegex = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
)

const dateLayout = "2006-01-02"

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a list of field failures; it is an error when non-empty
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Field+": "+ve.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil for an empty list so callers never hold a typed-nil error
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e *Errors) add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{Field: field, Message: message, Value: value})
}

// ParseDate accepts YYYY-MM-DD (midnight in loc) or RFC 3339
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ValidateEntity validates an entity payload
func ValidateEntity(in *models.EntityInput) error {
	var errs Errors

	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "name is required", nil)
	}
	if in.Color != "" && !colorRegex.MatchString(in.Color) {
		errs.add("color", "color must be a #rrggbb hex value", in.Color)
	}
	for i, email := range in.NotificationEmails {
		if !emailRegex.MatchString(email) {
			errs.add(fmt.Sprintf("notification_emails[%d]", i), "invalid email format", email)
		}
	}

	return errs.Err()
}

// ValidateStarter validates a starter payload and returns the parsed start date
func ValidateStarter(in *models.StarterInput, loc *time.Location) (time.Time, error) {
	var errs Errors
	var start time.Time

	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "name is required", nil)
	}
	if in.Email != "" && !emailRegex.MatchString(in.Email) {
		errs.add("email", "invalid email format", in.Email)
	}
	if in.StartDate == "" {
		errs.add("start_date", "start_date is required", nil)
	} else if t, err := ParseDate(in.StartDate, loc); err != nil {
		errs.add("start_date", "start_date must be YYYY-MM-DD or RFC 3339", in.StartDate)
	} else {
		start = t
	}
	checkOptionalUUID(&errs, "entity_id", in.EntityID)

	return start, errs.Err()
}

// ValidateTask validates a task payload and returns the parsed due date, if any
func ValidateTask(in *models.TaskInput, loc *time.Location) (*time.Time, error) {
	var errs Errors
	var due *time.Time

	if !taskTypeRegex.MatchString(in.TaskType) {
		errs.add("task_type", "task_type must be a lowercase slug", in.TaskType)
	}
	if strings.TrimSpace(in.Title) == "" {
		errs.add("title", "title is required", nil)
	}
	if in.Status != "" && !models.ValidTaskStatuses[in.Status] {
		errs.add("status", "status must be one of: pending, in_progress, completed", in.Status)
	}
	if in.Priority != "" && !models.ValidPriorities[in.Priority] {
		errs.add("priority", "priority must be one of: low, medium, high, urgent", in.Priority)
	}
	if in.DueDate != nil && *in.DueDate != "" {
		if t, err := ParseDate(*in.DueDate, loc); err != nil {
			errs.add("due_date", "due_date must be YYYY-MM-DD or RFC 3339", *in.DueDate)
		} else {
			due = &t
		}
	}
	checkOptionalUUID(&errs, "starter_id", in.StarterID)
	checkOptionalUUID(&errs, "entity_id", in.EntityID)
	checkOptionalUUID(&errs, "assignee_id", in.AssigneeID)

	return due, errs.Err()
}

// ValidateTaskTemplate validates a task template payload
func ValidateTaskTemplate(in *models.TaskTemplateInput) error {
	var errs Errors

	if !taskTypeRegex.MatchString(in.TaskType) {
		errs.add("task_type", "task_type must be a lowercase slug", in.TaskType)
	}
	if strings.TrimSpace(in.Title) == "" {
		errs.add("title", "title is required", nil)
	}
	if in.Priority != "" && !models.ValidPriorities[in.Priority] {
		errs.add("priority", "priority must be one of: low, medium, high, urgent", in.Priority)
	}
	if in.DueOffsetDays != nil && (*in.DueOffsetDays < -365 || *in.DueOffsetDays > 365) {
		errs.add("due_offset_days", "due_offset_days must be within one year of the start date", *in.DueOffsetDays)
	}
	checkOptionalUUID(&errs, "entity_id", in.EntityID)

	return errs.Err()
}

// ValidateAssignment validates a task assignment payload
func ValidateAssignment(in *models.AssignmentInput) error {
	var errs Errors

	if !taskTypeRegex.MatchString(in.TaskType) {
		errs.add("task_type", "task_type must be a lowercase slug", in.TaskType)
	}
	if in.UserID == "" {
		errs.add("user_id", "user_id is required", nil)
	} else if !isValidUUID(in.UserID) {
		errs.add("user_id", "invalid UUID format", in.UserID)
	}
	checkOptionalUUID(&errs, "entity_id", in.EntityID)

	return errs.Err()
}

// ValidateRoom validates a room payload
func ValidateRoom(in *models.RoomInput) error {
	var errs Errors

	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "name is required", nil)
	}
	if in.Capacity < 1 {
		errs.add("capacity", "capacity must be at least 1", in.Capacity)
	}

	return errs.Err()
}

// ValidateBooking validates a booking payload and returns the parsed interval
func ValidateBooking(in *models.BookingInput, maxDuration time.Duration) (time.Time, time.Time, error) {
	var errs Errors
	var start, end time.Time

	if in.RoomID == "" {
		errs.add("room_id", "room_id is required", nil)
	} else if !isValidUUID(in.RoomID) {
		errs.add("room_id", "invalid UUID format", in.RoomID)
	}
	if strings.TrimSpace(in.Title) == "" {
		errs.add("title", "title is required", nil)
	}

	startOK, endOK := false, false
	if t, err := time.Parse(time.RFC3339, in.StartAt); err != nil {
		errs.add("start_at", "start_at must be RFC 3339", in.StartAt)
	} else {
		start, startOK = t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, in.EndAt); err != nil {
		errs.add("end_at", "end_at must be RFC 3339", in.EndAt)
	} else {
		end, endOK = t.UTC(), true
	}
	if startOK && endOK {
		if !end.After(start) {
			errs.add("end_at", "end_at must be after start_at", in.EndAt)
		} else if maxDuration > 0 && end.Sub(start) > maxDuration {
			errs.add("end_at", fmt.Sprintf("booking may not exceed %s", maxDuration), in.EndAt)
		}
	}

	return start, end, errs.Err()
}

// ValidateUser validates a user payload
func ValidateUser(in *models.UserInput) error {
	var errs Errors

	if in.Email == "" {
		errs.add("email", "email is required", nil)
	} else if !emailRegex.MatchString(in.Email) {
		errs.add("email", "invalid email format", in.Email)
	}
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "name is required", nil)
	}
	if in.Role != "" && !models.ValidRoles[in.Role] {
		errs.add("role", "invalid role, must be one of: admin, entity-editor, entity-viewer, global-viewer, none", in.Role)
	}
	if in.Password != "" && len(in.Password) < 12 {
		errs.add("password", "password must be at least 12 characters", nil)
	}

	return errs.Err()
}

// ValidateRole validates a role change
func ValidateRole(role models.Role) error {
	var errs Errors
	if !models.ValidRoles[role] {
		errs.add("role", "invalid role, must be one of: admin, entity-editor, entity-viewer, global-viewer, none", role)
	}
	return errs.Err()
}

// SettingKind is the value type of a known system setting
type SettingKind int

const (
	SettingBool SettingKind = iota
	SettingInt
	SettingString
)

// KnownSettings lists the settings the application reads
var KnownSettings = map[string]SettingKind{
	"digest.enabled":      SettingBool,
	"booking.max_hours":   SettingInt,
	"mail.subject_prefix": SettingString,
}

// ValidateSetting validates a system setting value against its kind
func ValidateSetting(key, value string) error {
	var errs Errors

	kind, ok := KnownSettings[key]
	if !ok {
		errs.add("key", "unknown setting", key)
		return errs.Err()
	}
	switch kind {
	case SettingBool:
		if _, err := strconv.ParseBool(value); err != nil {
			errs.add("value", "value must be a boolean", value)
		}
	case SettingInt:
		if n, err := strconv.Atoi(value); err != nil || n < 1 {
			errs.add("value", "value must be a positive integer", value)
		}
	case SettingString:
		if len(value) > 200 {
			errs.add("value", "value must be at most 200 characters", nil)
		}
	}

	return errs.Err()
}

// IsUUID reports whether s is a valid UUID
func IsUUID(s string) bool {
	return isValidUUID(s)
}

func checkOptionalUUID(errs *Errors, field string, value *string) {
	if value != nil && *value != "" && !isValidUUID(*value) {
		errs.add(field, "invalid UUID format", *value)
	}
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
