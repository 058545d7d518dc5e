package service_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
)

type digestSetup struct {
	*fixture
	admin  *models.User
	berlin *models.Entity
	paris  *models.Entity
}

// newDigestSetup has starters around the weekly window of testNow and these readers:
//
//	admin@      preference for Berlin only, no membership
//	berlin@     Berlin member
//	multi@      Berlin and Paris member
//	paris@      Paris member with weekly disabled
//	stranger@   Paris preference without membership
func newDigestSetup(t *testing.T) *digestSetup {
	t.Helper()
	f := newFixture(t)
	s := &digestSetup{
		fixture: f,
		admin:   f.addUser(models.RoleAdmin, "admin@example.com"),
		berlin:  f.addEntity("Berlin"),
		paris:   f.addEntity("Paris"),
	}

	prefer := func(u *models.User, e *models.Entity, weekly bool) {
		p := models.DefaultPreference(u.ID, e.ID)
		p.Weekly = weekly
		f.store.SetPreference(p)
	}

	prefer(s.admin, s.berlin, true)

	berliner := f.addUser(models.RoleEntityViewer, "berlin@example.com")
	f.addMember(berliner, s.berlin, false)
	prefer(berliner, s.berlin, true)

	multi := f.addUser(models.RoleEntityViewer, "multi@example.com")
	f.addMember(multi, s.berlin, false)
	f.addMember(multi, s.paris, false)
	prefer(multi, s.berlin, true)
	prefer(multi, s.paris, true)

	parisian := f.addUser(models.RoleEntityViewer, "paris@example.com")
	f.addMember(parisian, s.paris, false)
	prefer(parisian, s.paris, false)

	stranger := f.addUser(models.RoleEntityViewer, "stranger@example.com")
	prefer(stranger, s.paris, true)

	nextMonday := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	s.addStarter("Ada Lovelace", &s.berlin.ID, nextMonday, false)
	s.addStarter("Grace Hopper", &s.paris.ID, nextMonday, false)
	s.addStarter("Cancelled Person", &s.berlin.ID, nextMonday, true)
	s.addStarter("No Entity", nil, nextMonday, false)
	s.addStarter("Next Day", &s.berlin.ID, nextMonday.AddDate(0, 0, 1), false)
	s.addStarter("February Hire", &s.berlin.ID, time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC), false)

	return s
}

func (s *digestSetup) addStarter(name string, entityID *string, start time.Time, cancelled bool) {
	st := &models.Starter{ID: uuid.New().String(), Name: name, EntityID: entityID, IsCancelled: cancelled}
	st.SetStartDate(start)
	s.store.Starters[st.ID] = st
}

func recipientEmails(rs []digest.Recipient) []string {
	emails := make([]string, 0, len(rs))
	for _, r := range rs {
		emails = append(emails, r.Email)
	}
	return emails
}

func TestDigestService_PreviewWeekly(t *testing.T) {
	s := newDigestSetup(t)

	plan, err := s.svc.Digests.Preview(s.ctx, models.DigestWeekly, testNow)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	wantStart := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	if !plan.Window.Start.Equal(wantStart) || !plan.Window.End.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("Unexpected window %v - %v", plan.Window.Start, plan.Window.End)
	}
	if plan.Starters != 2 {
		t.Errorf("Expected 2 eligible starters, got %d", plan.Starters)
	}

	want := []string{"admin@example.com", "berlin@example.com", "multi@example.com"}
	if got := recipientEmails(plan.Recipients); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected recipients %v, got %v", want, got)
	}

	counts := map[string]int{}
	for _, r := range plan.Recipients {
		counts[r.Email] = r.Count
	}
	if counts["admin@example.com"] != 1 || counts["berlin@example.com"] != 1 || counts["multi@example.com"] != 2 {
		t.Errorf("Unexpected counts %v", counts)
	}
	if names := plan.Recipients[2].EntityNames; !reflect.DeepEqual(names, []string{"Berlin", "Paris"}) {
		t.Errorf("Expected groups ordered by entity name, got %v", names)
	}

	if len(s.mail.Messages()) != 0 {
		t.Error("Expected preview not to send mail")
	}
}

func TestDigestService_SendMatchesPreview(t *testing.T) {
	s := newDigestSetup(t)

	plan, err := s.svc.Digests.Preview(s.ctx, models.DigestWeekly, testNow)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	result, err := s.svc.Digests.Send(s.ctx, models.DigestWeekly, testNow)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if result.Skipped || result.Recipients != len(plan.Recipients) || result.Sent != len(plan.Recipients) || result.Failed != 0 {
		t.Errorf("Unexpected result %+v", result)
	}

	sentTo := map[string]string{}
	for _, msg := range s.mail.Messages() {
		if len(msg.To) != 1 {
			t.Fatalf("Expected one recipient per message, got %v", msg.To)
		}
		sentTo[msg.To[0]] = msg.Subject
	}
	for _, r := range plan.Recipients {
		if _, ok := sentTo[r.Email]; !ok {
			t.Errorf("Expected a digest for %s", r.Email)
		}
	}
	if got := sentTo["multi@example.com"]; got != "[Onboarding] Weekly digest: 2 starters" {
		t.Errorf("Unexpected subject %q", got)
	}
}

func TestDigestService_SendCountsFailures(t *testing.T) {
	s := newDigestSetup(t)
	s.mail.FailFor["berlin@example.com"] = true

	result, err := s.svc.Digests.Send(s.ctx, models.DigestWeekly, testNow)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if result.Recipients != 3 || result.Sent != 2 || result.Failed != 1 {
		t.Errorf("Expected 2 sent and 1 failed, got %+v", result)
	}

	var entry *models.AuditLog
	for _, e := range s.store.Audit {
		if e.Action == "digest.sent" {
			entry = e
		}
	}
	if entry == nil {
		t.Fatal("Expected a digest.sent audit record")
	}
	if entry.ActorID != nil {
		t.Errorf("Expected a system actor, got %v", *entry.ActorID)
	}
	var meta service.DigestResult
	if err := json.Unmarshal(entry.Metadata, &meta); err != nil {
		t.Fatalf("Unmarshal metadata failed: %v", err)
	}
	if meta.Failed != 1 || meta.Type != models.DigestWeekly {
		t.Errorf("Unexpected audit metadata %+v", meta)
	}
}

func TestDigestService_SendSkipsWhenDisabled(t *testing.T) {
	s := newDigestSetup(t)
	if _, err := s.svc.Settings.Set(s.ctx, s.admin, service.SettingDigestEnabled, "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := s.svc.Digests.Send(s.ctx, models.DigestWeekly, testNow)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !result.Skipped || result.Sent != 0 {
		t.Errorf("Expected a skipped run, got %+v", result)
	}
	if len(s.mail.Messages()) != 0 {
		t.Error("Expected no mail while digests are disabled")
	}
}

func TestDigestService_Monthly(t *testing.T) {
	s := newDigestSetup(t)

	plan, err := s.svc.Digests.Preview(s.ctx, models.DigestMonthly, testNow)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	wantStart := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !plan.Window.Start.Equal(wantStart) || !plan.Window.End.Equal(wantEnd) {
		t.Errorf("Unexpected window %v - %v", plan.Window.Start, plan.Window.End)
	}
	if plan.Starters != 1 {
		t.Errorf("Expected the February starter only, got %d", plan.Starters)
	}
	// parisian keeps monthly enabled but has no Paris starters in February
	want := []string{"admin@example.com", "berlin@example.com", "multi@example.com"}
	if got := recipientEmails(plan.Recipients); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected recipients %v, got %v", want, got)
	}
}

func TestDigestService_UnknownType(t *testing.T) {
	s := newDigestSetup(t)
	if _, err := s.svc.Digests.Preview(s.ctx, models.DigestType("daily"), testNow); err == nil {
		t.Error("Expected an error for an unknown digest type")
	}
	if _, err := s.svc.Digests.Send(s.ctx, models.DigestType("daily"), testNow); err == nil {
		t.Error("Expected an error for an unknown digest type")
	}
}
