package service_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/internal/validation"
)

// onboardingSetup is a Berlin entity with an editor, two responsible users and templates
type onboardingSetup struct {
	*fixture
	admin      *models.User
	editor     *models.User
	it         *models.User
	facilities *models.User
	berlin     *models.Entity
	paris      *models.Entity
}

func newOnboardingSetup(t *testing.T) *onboardingSetup {
	t.Helper()
	f := newFixture(t)
	s := &onboardingSetup{
		fixture:    f,
		admin:      f.addUser(models.RoleAdmin, "admin@example.com"),
		editor:     f.addUser(models.RoleEntityEditor, "editor@example.com"),
		it:         f.addUser(models.RoleNone, "it@example.com"),
		facilities: f.addUser(models.RoleNone, "facilities@example.com"),
		berlin:     f.addEntity("Berlin", "hr-berlin@example.com"),
		paris:      f.addEntity("Paris", "hr-paris@example.com"),
	}
	f.addMember(s.editor, s.berlin, true)

	addTemplate := func(entityID *string, taskType, title string, offset *int, active bool) {
		tpl := &models.TaskTemplate{
			ID:            uuid.New().String(),
			EntityID:      entityID,
			TaskType:      taskType,
			Title:         title,
			Priority:      models.PriorityHigh,
			DueOffsetDays: offset,
			Active:        active,
		}
		f.store.Templates[tpl.ID] = tpl
	}
	addTemplate(nil, "it-setup", "Prepare laptop", ptr(-3), true)
	addTemplate(nil, "desk", "Generic desk", nil, true)
	addTemplate(&s.berlin.ID, "desk", "Berlin desk", ptr(0), true)
	addTemplate(&s.paris.ID, "desk", "Paris desk", nil, true)
	addTemplate(nil, "parking", "Parking badge", nil, false)

	addAssignment := func(entityID *string, taskType string, user *models.User) {
		a := &models.TaskAssignment{ID: uuid.New().String(), EntityID: entityID, TaskType: taskType, UserID: user.ID}
		f.store.Assignments[a.ID] = a
	}
	addAssignment(nil, "it-setup", s.it)
	addAssignment(&s.berlin.ID, "desk", s.facilities)

	return s
}

func (s *onboardingSetup) createStarter(t *testing.T, name, startDate string) (*models.Starter, []*models.Task) {
	t.Helper()
	starter, tasks, err := s.svc.Starters.Create(s.ctx, s.editor, &models.StarterInput{
		Name:      name,
		JobTitle:  "Engineer",
		StartDate: startDate,
		EntityID:  &s.berlin.ID,
	})
	if err != nil {
		t.Fatalf("Create starter failed: %v", err)
	}
	return starter, tasks
}

func tasksByType(tasks []*models.Task) map[string]*models.Task {
	m := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		m[t.TaskType] = t
	}
	return m
}

func TestStarterService_CreateGeneratesAssignedTasks(t *testing.T) {
	s := newOnboardingSetup(t)

	starter, tasks := s.createStarter(t, "Ada Lovelace", "2024-03-20")

	if starter.WeekYear != 2024 || starter.WeekNumber != 12 {
		t.Errorf("Expected ISO week 2024-W12, got %d-W%d", starter.WeekYear, starter.WeekNumber)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks (inactive template skipped), got %d", len(tasks))
	}

	byType := tasksByType(tasks)
	desk := byType["desk"]
	if desk == nil || desk.Title != "Berlin desk" {
		t.Fatalf("Expected the Berlin desk template to override the global one, got %+v", desk)
	}
	if desk.AssigneeID == nil || *desk.AssigneeID != s.facilities.ID {
		t.Error("Expected the desk task to go to the Berlin facilities user")
	}

	laptop := byType["it-setup"]
	if laptop == nil {
		t.Fatal("Expected an it-setup task")
	}
	if laptop.AssigneeID == nil || *laptop.AssigneeID != s.it.ID {
		t.Error("Expected the global IT assignment to apply")
	}
	wantDue := time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC)
	if laptop.DueDate == nil || !laptop.DueDate.Equal(wantDue) {
		t.Errorf("Expected due date %v, got %v", wantDue, laptop.DueDate)
	}
	if laptop.Priority != models.PriorityHigh || laptop.Status != models.TaskStatusPending {
		t.Errorf("Unexpected priority/status: %s/%s", laptop.Priority, laptop.Status)
	}
	if laptop.EntityID == nil || *laptop.EntityID != s.berlin.ID {
		t.Error("Expected generated tasks to carry the starter's entity")
	}

	if len(s.store.Starters) != 1 || len(s.store.Tasks) != 2 {
		t.Errorf("Expected 1 starter and 2 tasks stored, got %d and %d", len(s.store.Starters), len(s.store.Tasks))
	}
	if !hasAction(s.store, "starter.created") {
		t.Error("Expected a starter.created audit record")
	}

	sent := s.mail.Messages()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(sent))
	}
	wantTo := []string{"facilities@example.com", "hr-berlin@example.com", "it@example.com"}
	if !reflect.DeepEqual(sent[0].To, wantTo) {
		t.Errorf("Expected recipients %v, got %v", wantTo, sent[0].To)
	}
	if sent[0].Subject != "[Onboarding] New starter: Ada Lovelace" {
		t.Errorf("Unexpected subject %q", sent[0].Subject)
	}
}

func TestStarterService_CreatePermissions(t *testing.T) {
	s := newOnboardingSetup(t)
	viewer := s.addUser(models.RoleEntityViewer, "viewer@example.com")
	s.addMember(viewer, s.berlin, false)

	tests := []struct {
		name    string
		actor   *models.User
		entity  *string
		wantErr error
	}{
		{"view-only membership", viewer, &s.berlin.ID, service.ErrForbidden},
		{"editor outside their entity", s.editor, &s.paris.ID, service.ErrForbidden},
		{"editor with no entity", s.editor, nil, service.ErrForbidden},
		{"editor in their entity", s.editor, &s.berlin.ID, nil},
		{"admin with no entity", s.admin, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.svc.Starters.Create(s.ctx, tt.actor, &models.StarterInput{
				Name: "Grace Hopper", StartDate: "2024-04-01", EntityID: tt.entity,
			})
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStarterService_CreateValidation(t *testing.T) {
	s := newOnboardingSetup(t)

	tests := []struct {
		name  string
		input models.StarterInput
		field string
	}{
		{"missing name", models.StarterInput{StartDate: "2024-04-01"}, "name"},
		{"bad date", models.StarterInput{Name: "A", StartDate: "01/04/2024"}, "start_date"},
		{"unknown entity", models.StarterInput{Name: "A", StartDate: "2024-04-01", EntityID: ptr(uuid.New().String())}, "entity_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			_, _, err := s.svc.Starters.Create(s.ctx, s.admin, &in)
			var verrs validation.Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected validation errors, got %v", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("Expected error on %s, got %s", tt.field, verrs[0].Field)
			}
		})
	}
	if len(s.store.Starters) != 0 {
		t.Error("Expected nothing to be stored")
	}
}

func TestStarterService_ListIsScoped(t *testing.T) {
	s := newOnboardingSetup(t)
	viewer := s.addUser(models.RoleEntityViewer, "viewer@example.com")
	s.addMember(viewer, s.berlin, false)
	global := s.addUser(models.RoleGlobalViewer, "global@example.com")
	nobody := s.addUser(models.RoleNone, "nobody@example.com")

	s.createStarter(t, "Berlin Starter", "2024-04-01")
	if _, _, err := s.svc.Starters.Create(s.ctx, s.admin, &models.StarterInput{
		Name: "Paris Starter", StartDate: "2024-04-01", EntityID: &s.paris.ID,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := s.svc.Starters.Create(s.ctx, s.admin, &models.StarterInput{
		Name: "Unassigned Starter", StartDate: "2024-04-01",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tests := []struct {
		name  string
		actor *models.User
		want  int
	}{
		{"admin", s.admin, 3},
		{"global viewer skips the unassigned starter", global, 2},
		{"berlin viewer", viewer, 1},
		{"no memberships", nobody, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.svc.Starters.List(s.ctx, tt.actor, models.StarterFilter{})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if got == nil {
				t.Fatal("Expected an empty slice, not nil")
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d starters, got %d", tt.want, len(got))
			}
		})
	}
}

func TestStarterService_UpdateNeedsRightsOnBothEntities(t *testing.T) {
	s := newOnboardingSetup(t)
	starter, _ := s.createStarter(t, "Ada Lovelace", "2024-03-20")

	_, err := s.svc.Starters.Update(s.ctx, s.editor, starter.ID, &models.StarterInput{
		Name: "Ada Lovelace", StartDate: "2024-03-20", EntityID: &s.paris.ID,
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden when moving to a foreign entity, got %v", err)
	}

	updated, err := s.svc.Starters.Update(s.ctx, s.editor, starter.ID, &models.StarterInput{
		Name: "Ada King", StartDate: "2024-03-27", EntityID: &s.berlin.ID,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Ada King" || updated.WeekNumber != 13 {
		t.Errorf("Expected renamed starter in week 13, got %s week %d", updated.Name, updated.WeekNumber)
	}
	if !hasAction(s.store, "starter.updated") {
		t.Error("Expected a starter.updated audit record")
	}
}

func TestStarterService_MoveCarriesTasksToNewEntity(t *testing.T) {
	s := newOnboardingSetup(t)
	starter, generated := s.createStarter(t, "Ada Lovelace", "2024-03-20")
	s.addMember(s.editor, s.paris, true)
	parisEditor := s.addUser(models.RoleEntityEditor, "paris-editor@example.com")
	s.addMember(parisEditor, s.paris, true)
	berlinEditor := s.addUser(models.RoleEntityEditor, "berlin-editor@example.com")
	s.addMember(berlinEditor, s.berlin, true)

	_, err := s.svc.Starters.Update(s.ctx, s.editor, starter.ID, &models.StarterInput{
		Name: starter.Name, JobTitle: starter.JobTitle, StartDate: "2024-03-20", EntityID: &s.paris.ID,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	moved, err := s.svc.Tasks.List(s.ctx, parisEditor, models.TaskFilter{StarterID: starter.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(moved) != len(generated) {
		t.Fatalf("Expected %d tasks visible in Paris, got %d", len(generated), len(moved))
	}
	for _, task := range moved {
		if task.EntityID == nil || *task.EntityID != s.paris.ID {
			t.Errorf("Expected task %s to belong to Paris", task.ID)
		}
	}
	if _, err := s.svc.Tasks.Get(s.ctx, parisEditor, generated[0].ID); err != nil {
		t.Errorf("Expected the Paris editor to read the task, got %v", err)
	}
	if _, err := s.svc.Tasks.Reopen(s.ctx, berlinEditor, generated[0].ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected the Berlin editor to lose the task, got %v", err)
	}
	left, err := s.svc.Tasks.List(s.ctx, berlinEditor, models.TaskFilter{StarterID: starter.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("Expected no tasks left in Berlin, got %d", len(left))
	}
}

func TestStarterService_AuditFailureKeepsNothing(t *testing.T) {
	s := newOnboardingSetup(t)
	s.store.AuditErr = errors.New("audit table unavailable")

	_, _, err := s.svc.Starters.Create(s.ctx, s.editor, &models.StarterInput{
		Name: "Ada Lovelace", StartDate: "2024-03-20", EntityID: &s.berlin.ID,
	})
	if err == nil {
		t.Fatal("Expected the create to fail with the audit write")
	}
	if len(s.store.Starters) != 0 || len(s.store.Tasks) != 0 {
		t.Errorf("Expected no starter or tasks, got %d and %d", len(s.store.Starters), len(s.store.Tasks))
	}
	if len(s.mail.Messages()) != 0 {
		t.Error("Expected no announcement for a rolled back starter")
	}

	s.store.AuditErr = nil
	starter, _ := s.createStarter(t, "Ada Lovelace", "2024-03-20")

	s.store.AuditErr = errors.New("audit table unavailable")
	if _, err := s.svc.Starters.Cancel(s.ctx, s.editor, starter.ID, "declined"); err == nil {
		t.Fatal("Expected the cancel to fail with the audit write")
	}
	if s.store.Starters[starter.ID].IsCancelled {
		t.Error("Expected the starter to stay active")
	}
}

func TestStarterService_Cancel(t *testing.T) {
	s := newOnboardingSetup(t)
	starter, _ := s.createStarter(t, "Ada Lovelace", "2024-03-20")

	cancelled, err := s.svc.Starters.Cancel(s.ctx, s.editor, starter.ID, "  declined the offer ")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !cancelled.IsCancelled || cancelled.CancelReason != "declined the offer" {
		t.Errorf("Unexpected cancelled starter: %+v", cancelled)
	}
	if cancelled.CancelledBy == nil || *cancelled.CancelledBy != s.editor.ID {
		t.Error("Expected cancelled_by to be the editor")
	}
	if cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(testNow) {
		t.Errorf("Expected cancelled_at %v, got %v", testNow, cancelled.CancelledAt)
	}

	sent := s.mail.Messages()
	if len(sent) != 2 {
		t.Fatalf("Expected creation and cancellation emails, got %d", len(sent))
	}
	if sent[1].Subject != "[Onboarding] Starter cancelled: Ada Lovelace" {
		t.Errorf("Unexpected subject %q", sent[1].Subject)
	}
	if len(sent[1].To) != 3 {
		t.Errorf("Expected entity and open-task assignees to be told, got %v", sent[1].To)
	}

	if _, err := s.svc.Starters.Cancel(s.ctx, s.editor, starter.ID, ""); !errors.Is(err, service.ErrConflict) {
		t.Errorf("Expected ErrConflict on second cancel, got %v", err)
	}

	active, err := s.svc.Starters.List(s.ctx, s.editor, models.StarterFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected cancelled starters to be hidden by default, got %d", len(active))
	}
	all, err := s.svc.Starters.List(s.ctx, s.editor, models.StarterFilter{IncludeCancelled: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected the cancelled starter with include_cancelled, got %d", len(all))
	}
}

func TestStarterService_CancelSurvivesMailFailure(t *testing.T) {
	s := newOnboardingSetup(t)
	starter, _ := s.createStarter(t, "Ada Lovelace", "2024-03-20")
	s.mail.FailFor["hr-berlin@example.com"] = true

	if _, err := s.svc.Starters.Cancel(s.ctx, s.editor, starter.ID, "no show"); err != nil {
		t.Fatalf("Expected cancel to succeed when mail fails, got %v", err)
	}
	if !s.store.Starters[starter.ID].IsCancelled {
		t.Error("Expected the starter to be cancelled")
	}
}

func TestStarterService_DeleteIsAdminOnly(t *testing.T) {
	s := newOnboardingSetup(t)
	starter, _ := s.createStarter(t, "Ada Lovelace", "2024-03-20")

	if err := s.svc.Starters.Delete(s.ctx, s.editor, starter.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if err := s.svc.Starters.Delete(s.ctx, s.admin, starter.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(s.store.Starters) != 0 || len(s.store.Tasks) != 0 {
		t.Error("Expected the starter and its tasks to be removed")
	}
	if _, err := s.svc.Starters.Get(s.ctx, s.admin, starter.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
