package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/onboarding-booking-api/internal/models"
)

const validUUID = "550e8400-e29b-41d4-a716-446655440000"

func strPtr(s string) *string { return &s }

func fieldsOf(err error) []string {
	var errs Errors
	if !errors.As(err, &errs) {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}

func checkFields(t *testing.T, err error, want []string) {
	t.Helper()
	got := fieldsOf(err)
	if len(want) == 0 {
		if err != nil {
			t.Errorf("Expected no errors, got %v", err)
		}
		return
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d errors %v, got %d: %v", len(want), want, len(got), err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected error on field %q, got %q", want[i], got[i])
		}
	}
}

func TestErrors_Err(t *testing.T) {
	var errs Errors
	if errs.Err() != nil {
		t.Error("Expected nil for an empty list")
	}
	errs.add("name", "name is required", nil)
	err := errs.Err()
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "name: name is required") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestParseDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	d, err := ParseDate("2024-03-20", berlin)
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.Location() != berlin || d.Hour() != 0 || d.Day() != 20 {
		t.Errorf("Expected midnight in Berlin, got %v", d)
	}

	r, err := ParseDate("2024-03-20T10:00:00Z", berlin)
	if err != nil {
		t.Fatalf("ParseDate RFC 3339 failed: %v", err)
	}
	if r.Hour() != 10 {
		t.Errorf("Expected 10:00, got %v", r)
	}

	if _, err := ParseDate("20/03/2024", berlin); err == nil {
		t.Error("Expected an error for an unknown layout")
	}
}

func TestValidateEntity(t *testing.T) {
	tests := []struct {
		name       string
		in         *models.EntityInput
		wantFields []string
	}{
		{"valid", &models.EntityInput{Name: "Berlin", Color: "#1a2B3c", NotificationEmails: []string{"hr@example.com"}}, nil},
		{"missing name", &models.EntityInput{Name: "  "}, []string{"name"}},
		{"bad color", &models.EntityInput{Name: "Berlin", Color: "red"}, []string{"color"}},
		{"bad notification email", &models.EntityInput{Name: "Berlin", NotificationEmails: []string{"ok@example.com", "nope"}}, []string{"notification_emails[1]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkFields(t, ValidateEntity(tt.in), tt.wantFields)
		})
	}
}

func TestValidateStarter(t *testing.T) {
	tests := []struct {
		name       string
		in         *models.StarterInput
		wantFields []string
	}{
		{"valid", &models.StarterInput{Name: "Ada", StartDate: "2024-03-20", EntityID: strPtr(validUUID)}, nil},
		{"valid without entity", &models.StarterInput{Name: "Ada", StartDate: "2024-03-20T00:00:00Z"}, nil},
		{"missing name and date", &models.StarterInput{}, []string{"name", "start_date"}},
		{"bad date", &models.StarterInput{Name: "Ada", StartDate: "next monday"}, []string{"start_date"}},
		{"bad email", &models.StarterInput{Name: "Ada", StartDate: "2024-03-20", Email: "ada@"}, []string{"email"}},
		{"bad entity", &models.StarterInput{Name: "Ada", StartDate: "2024-03-20", EntityID: strPtr("berlin")}, []string{"entity_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateStarter(tt.in, time.UTC)
			checkFields(t, err, tt.wantFields)
		})
	}
}

func TestValidateTask(t *testing.T) {
	tests := []struct {
		name       string
		in         *models.TaskInput
		wantFields []string
	}{
		{"valid", &models.TaskInput{TaskType: "it-setup", Title: "Laptop", Priority: models.PriorityHigh, DueDate: strPtr("2024-03-18")}, nil},
		{"empty due date is no due date", &models.TaskInput{TaskType: "desk", Title: "Desk", DueDate: strPtr("")}, nil},
		{"bad task type", &models.TaskInput{TaskType: "IT Setup", Title: "Laptop"}, []string{"task_type"}},
		{"bad status and priority", &models.TaskInput{TaskType: "desk", Title: "Desk", Status: "done", Priority: "asap"}, []string{"status", "priority"}},
		{"bad due date", &models.TaskInput{TaskType: "desk", Title: "Desk", DueDate: strPtr("soon")}, []string{"due_date"}},
		{"bad references", &models.TaskInput{TaskType: "desk", Title: "Desk", StarterID: strPtr("x"), AssigneeID: strPtr("y")}, []string{"starter_id", "assignee_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTask(tt.in, time.UTC)
			checkFields(t, err, tt.wantFields)
		})
	}
}

func TestValidateTask_ReturnsDueDate(t *testing.T) {
	due, err := ValidateTask(&models.TaskInput{TaskType: "desk", Title: "Desk", DueDate: strPtr("2024-03-18")}, time.UTC)
	if err != nil {
		t.Fatalf("ValidateTask failed: %v", err)
	}
	if due == nil || !due.Equal(time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected due date %v", due)
	}
}

func TestValidateTaskTemplateAndAssignment(t *testing.T) {
	checkFields(t, ValidateTaskTemplate(&models.TaskTemplateInput{TaskType: "desk", Title: "Desk", DueOffsetDays: intPtr(-3)}), nil)
	checkFields(t, ValidateTaskTemplate(&models.TaskTemplateInput{TaskType: "desk", Title: "Desk", DueOffsetDays: intPtr(400)}), []string{"due_offset_days"})
	checkFields(t, ValidateTaskTemplate(&models.TaskTemplateInput{TaskType: "", Title: ""}), []string{"task_type", "title"})

	checkFields(t, ValidateAssignment(&models.AssignmentInput{TaskType: "desk", UserID: validUUID}), nil)
	checkFields(t, ValidateAssignment(&models.AssignmentInput{TaskType: "desk", UserID: "bob"}), []string{"user_id"})
}

func TestValidateBooking(t *testing.T) {
	base := func() *models.BookingInput {
		return &models.BookingInput{
			RoomID:  validUUID,
			Title:   "Planning",
			StartAt: "2024-03-05T10:00:00+01:00",
			EndAt:   "2024-03-05T11:00:00+01:00",
		}
	}

	start, end, err := ValidateBooking(base(), 8*time.Hour)
	if err != nil {
		t.Fatalf("ValidateBooking failed: %v", err)
	}
	if start.Location() != time.UTC || start.Hour() != 9 || end.Sub(start) != time.Hour {
		t.Errorf("Expected a UTC interval of one hour, got %v - %v", start, end)
	}

	tests := []struct {
		name       string
		modify     func(*models.BookingInput)
		max        time.Duration
		wantFields []string
	}{
		{"end before start", func(b *models.BookingInput) { b.EndAt = "2024-03-05T09:00:00+01:00" }, 0, []string{"end_at"}},
		{"zero length", func(b *models.BookingInput) { b.EndAt = b.StartAt }, 0, []string{"end_at"}},
		{"too long", func(b *models.BookingInput) { b.EndAt = "2024-03-05T20:00:00+01:00" }, 8 * time.Hour, []string{"end_at"}},
		{"no limit", func(b *models.BookingInput) { b.EndAt = "2024-03-05T20:00:00+01:00" }, 0, nil},
		{"bad times", func(b *models.BookingInput) { b.StartAt, b.EndAt = "10:00", "11:00" }, 0, []string{"start_at", "end_at"}},
		{"missing room and title", func(b *models.BookingInput) { b.RoomID, b.Title = "", "" }, 0, []string{"room_id", "title"}},
		{"bad room", func(b *models.BookingInput) { b.RoomID = "turing" }, 0, []string{"room_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.modify(in)
			_, _, err := ValidateBooking(in, tt.max)
			checkFields(t, err, tt.wantFields)
		})
	}
}

func TestValidateUserAndRole(t *testing.T) {
	tests := []struct {
		name       string
		in         *models.UserInput
		wantFields []string
	}{
		{"valid", &models.UserInput{Email: "a@example.com", Name: "A", Role: models.RoleAdmin, Password: "correct horse battery"}, nil},
		{"missing everything", &models.UserInput{}, []string{"email", "name"}},
		{"bad role", &models.UserInput{Email: "a@example.com", Name: "A", Role: "root"}, []string{"role"}},
		{"short password", &models.UserInput{Email: "a@example.com", Name: "A", Password: "hunter2"}, []string{"password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkFields(t, ValidateUser(tt.in), tt.wantFields)
		})
	}

	checkFields(t, ValidateRole(models.RoleGlobalViewer), nil)
	checkFields(t, ValidateRole("superadmin"), []string{"role"})
}

func TestValidateSetting(t *testing.T) {
	tests := []struct {
		key, value string
		wantFields []string
	}{
		{"digest.enabled", "false", nil},
		{"digest.enabled", "sometimes", []string{"value"}},
		{"booking.max_hours", "4", nil},
		{"booking.max_hours", "0", []string{"value"}},
		{"mail.subject_prefix", "[HR]", nil},
		{"mail.subject_prefix", strings.Repeat("x", 201), []string{"value"}},
		{"theme", "dark", []string{"key"}},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			checkFields(t, ValidateSetting(tt.key, tt.value), tt.wantFields)
		})
	}
}

func intPtr(n int) *int { return &n }

func BenchmarkValidateBooking(b *testing.B) {
	in := &models.BookingInput{
		RoomID:  validUUID,
		Title:   "Planning",
		StartAt: "2024-03-05T10:00:00+01:00",
		EndAt:   "2024-03-05T11:00:00+01:00",
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, _ = ValidateBooking(in, 8*time.Hour)
	}
}
