package digest

import (
	"fmt"
	"testing"
	"time"

	"github.com/onboarding-booking-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func starter(id, entity string, start time.Time) *models.Starter {
	s := &models.Starter{ID: id, Name: "Starter " + id}
	if entity != "" {
		s.EntityID = strPtr(entity)
	}
	s.SetStartDate(start)
	return s
}

func pref(userID, entityID string, weekly bool) models.NotificationPreference {
	p := models.DefaultPreference(userID, entityID)
	p.Weekly = weekly
	return p
}

var entityNames = map[string]string{"ent-a": "Acme Ltd", "ent-b": "Beta GmbH"}

func weeklyWindow(t *testing.T) Window {
	t.Helper()
	w, err := WindowFor(models.DigestWeekly, date(2024, 6, 1))
	require.NoError(t, err)
	return w
}

func TestCompute_StarterSelection(t *testing.T) {
	w := weeklyWindow(t)
	cancelled := starter("s-cancelled", "ent-a", time.Date(2024, 6, 8, 9, 0, 0, 0, time.UTC))
	now := time.Now()
	cancelled.IsCancelled = true
	cancelled.CancelledAt = &now

	starters := []*models.Starter{
		starter("s-in", "ent-a", time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC)),
		starter("s-next-day", "ent-a", date(2024, 6, 9)),
		starter("s-no-entity", "", time.Date(2024, 6, 8, 11, 0, 0, 0, time.UTC)),
		cancelled,
	}
	admin := Candidate{
		User:        &models.User{ID: "admin", Email: "admin@test.com", Role: models.RoleAdmin},
		Preferences: []models.NotificationPreference{pref("admin", "ent-a", true)},
	}

	plan := Compute(models.DigestWeekly, w, starters, []Candidate{admin}, entityNames)

	assert.Equal(t, 1, plan.Starters)
	require.Len(t, plan.Recipients, 1)
	r := plan.Recipients[0]
	assert.Equal(t, 1, r.Count)
	assert.Equal(t, []string{"Acme Ltd"}, r.EntityNames)
	assert.Equal(t, "s-in", r.Groups[0].Starters[0].ID)
}

func TestCompute_PreferenceWithoutMembershipExcludesNonAdmin(t *testing.T) {
	w := weeklyWindow(t)
	starters := []*models.Starter{starter("s1", "ent-a", date(2024, 6, 8))}

	viewer := Candidate{
		User:        &models.User{ID: "viewer", Email: "viewer@test.com", Role: models.RoleEntityViewer},
		Preferences: []models.NotificationPreference{pref("viewer", "ent-a", true)},
	}
	admin := Candidate{
		User:        &models.User{ID: "admin", Email: "admin@test.com", Role: models.RoleAdmin},
		Preferences: []models.NotificationPreference{pref("admin", "ent-a", true)},
	}

	plan := Compute(models.DigestWeekly, w, starters, []Candidate{viewer, admin}, entityNames)

	require.Len(t, plan.Recipients, 1)
	assert.Equal(t, "admin", plan.Recipients[0].UserID)
}

func TestCompute_MembershipAndPreferenceIntersection(t *testing.T) {
	w := weeklyWindow(t)
	starters := []*models.Starter{
		starter("s-a", "ent-a", date(2024, 6, 8)),
		starter("s-b", "ent-b", time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)),
	}

	member := Candidate{
		User: &models.User{
			ID: "m", Email: "m@test.com", Role: models.RoleEntityEditor,
			Memberships: []models.Membership{{EntityID: "ent-a"}, {EntityID: "ent-b"}},
		},
		Preferences: []models.NotificationPreference{
			pref("m", "ent-a", true),
			pref("m", "ent-b", false),
		},
	}

	plan := Compute(models.DigestWeekly, w, starters, []Candidate{member}, entityNames)

	require.Len(t, plan.Recipients, 1)
	assert.Equal(t, 1, plan.Recipients[0].Count)
	assert.Equal(t, []string{"Acme Ltd"}, plan.Recipients[0].EntityNames)
}

func TestCompute_SkipsUsersWithoutMatchesOrOptIn(t *testing.T) {
	w := weeklyWindow(t)
	starters := []*models.Starter{starter("s-a", "ent-a", date(2024, 6, 8))}

	optedOut := Candidate{
		User: &models.User{ID: "o", Email: "o@test.com", Role: models.RoleAdmin},
		Preferences: []models.NotificationPreference{
			pref("o", "ent-a", false),
		},
	}
	otherEntity := Candidate{
		User: &models.User{
			ID: "x", Email: "x@test.com", Role: models.RoleEntityViewer,
			Memberships: []models.Membership{{EntityID: "ent-b"}},
		},
		Preferences: []models.NotificationPreference{pref("x", "ent-b", true)},
	}

	plan := Compute(models.DigestWeekly, w, starters, []Candidate{optedOut, otherEntity}, entityNames)
	assert.Empty(t, plan.Recipients)
	assert.NotNil(t, plan.Recipients)
}

func TestCompute_GroupsAndOrdering(t *testing.T) {
	w, err := WindowFor(models.DigestMonthly, date(2024, 7, 15))
	require.NoError(t, err)

	starters := []*models.Starter{
		starter("b1", "ent-b", date(2024, 6, 20)),
		starter("a2", "ent-a", date(2024, 6, 18)),
		starter("a1", "ent-a", date(2024, 6, 3)),
		starter("unknown", "ent-z", date(2024, 6, 4)),
	}
	c := func(id string) Candidate {
		return Candidate{
			User: &models.User{ID: id, Email: id + "@test.com", Role: models.RoleAdmin},
			Preferences: []models.NotificationPreference{
				models.DefaultPreference(id, "ent-a"),
				models.DefaultPreference(id, "ent-b"),
				models.DefaultPreference(id, "ent-z"),
			},
		}
	}

	plan := Compute(models.DigestMonthly, w, starters, []Candidate{c("zed"), c("amy")}, entityNames)

	require.Len(t, plan.Recipients, 2)
	assert.Equal(t, "amy@test.com", plan.Recipients[0].Email)
	r := plan.Recipients[0]
	assert.Equal(t, 4, r.Count)
	assert.Equal(t, []string{"Acme Ltd", "Beta GmbH", "ent-z"}, r.EntityNames)
	assert.Equal(t, "a1", r.Groups[0].Starters[0].ID)
	assert.Equal(t, "a2", r.Groups[0].Starters[1].ID)
}

func TestCompute_IsDeterministic(t *testing.T) {
	w := weeklyWindow(t)
	starters := []*models.Starter{starter("s1", "ent-a", date(2024, 6, 8))}
	candidates := []Candidate{{
		User:        &models.User{ID: "a", Email: "a@test.com", Role: models.RoleAdmin},
		Preferences: []models.NotificationPreference{models.DefaultPreference("a", "ent-a")},
	}}

	first := Compute(models.DigestWeekly, w, starters, candidates, entityNames)
	second := Compute(models.DigestWeekly, w, starters, candidates, entityNames)
	assert.Equal(t, first, second)
}

func BenchmarkCompute(b *testing.B) {
	w, _ := WindowFor(models.DigestYearly, date(2025, 1, 1))
	var starters []*models.Starter
	for i := 0; i < 2000; i++ {
		starters = append(starters, starter(fmt.Sprintf("s%d", i), fmt.Sprintf("ent-%d", i%20), date(2024, time.Month(i%12+1), i%28+1)))
	}
	var candidates []Candidate
	for i := 0; i < 200; i++ {
		u := &models.User{ID: fmt.Sprintf("u%d", i), Email: fmt.Sprintf("u%d@test.com", i), Role: models.RoleEntityViewer}
		var prefs []models.NotificationPreference
		for e := 0; e < 20; e += 3 {
			id := fmt.Sprintf("ent-%d", (e+i)%20)
			u.Memberships = append(u.Memberships, models.Membership{EntityID: id})
			prefs = append(prefs, models.DefaultPreference(u.ID, id))
		}
		candidates = append(candidates, Candidate{User: u, Preferences: prefs})
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Compute(models.DigestYearly, w, starters, candidates, nil)
	}
}
