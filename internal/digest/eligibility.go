// Package digest selects who receives a periodic starter digest and what each recipient sees.
// Everything here is pure: the same inputs always give the same recipients, which is what lets
// the preview endpoint and the send job share it.
package digest

import (
	"sort"
	"strings"

	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"golang.org/x/exp/slices"
)

// Candidate is a user together with their notification preferences.
// User.Memberships must be populated.
type Candidate struct {
	User        *models.User
	Preferences []models.NotificationPreference
}

// Group is the starters of one entity shown to a recipient
type Group struct {
	EntityID   string            `json:"entity_id"`
	EntityName string            `json:"entity_name"`
	Starters   []*models.Starter `json:"starters"`
}

// Recipient is one user to notify and the starters they may see
type Recipient struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Count       int      `json:"count"`
	EntityNames []string `json:"entity_names"`
	Groups      []Group  `json:"groups"`
}

// Plan is the full outcome of a digest computation
type Plan struct {
	Type       models.DigestType `json:"type"`
	Window     Window            `json:"window"`
	Starters   int               `json:"starters"`
	Recipients []Recipient       `json:"recipients"`
}

// Eligible reports whether a starter belongs in a digest covering w
func Eligible(s *models.Starter, w Window) bool {
	return s != nil && !s.IsCancelled && s.EntityID != nil && w.Contains(s.StartDate)
}

// AccessibleEntities returns the entity IDs whose starters c may receive for dt.
// Admins get every entity with an enabled preference; everyone else gets the
// intersection of their memberships and their enabled preferences.
func AccessibleEntities(c Candidate, dt models.DigestType) map[string]bool {
	enabled := make(map[string]bool)
	for _, p := range c.Preferences {
		if p.Enabled(dt) {
			enabled[p.EntityID] = true
		}
	}
	if access.IsAdmin(c.User) {
		return enabled
	}

	accessible := make(map[string]bool)
	for _, m := range c.User.Memberships {
		if enabled[m.EntityID] {
			accessible[m.EntityID] = true
		}
	}
	return accessible
}

// Compute builds the digest plan for dt over w.
// entityNames maps entity IDs to display names; unknown IDs fall back to the ID.
func Compute(dt models.DigestType, w Window, starters []*models.Starter, candidates []Candidate, entityNames map[string]string) Plan {
	matching := make([]*models.Starter, 0, len(starters))
	for _, s := range starters {
		if Eligible(s, w) {
			matching = append(matching, s)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].StartDate.Before(matching[j].StartDate)
	})

	plan := Plan{Type: dt, Window: w, Starters: len(matching), Recipients: []Recipient{}}

	for _, c := range candidates {
		if c.User == nil || !optedIn(c, dt) {
			continue
		}
		allowed := AccessibleEntities(c, dt)
		if len(allowed) == 0 {
			continue
		}

		byEntity := make(map[string][]*models.Starter)
		count := 0
		for _, s := range matching {
			if allowed[*s.EntityID] {
				byEntity[*s.EntityID] = append(byEntity[*s.EntityID], s)
				count++
			}
		}
		if count == 0 {
			continue
		}

		groups := make([]Group, 0, len(byEntity))
		for id, list := range byEntity {
			name := entityNames[id]
			if name == "" {
				name = id
			}
			groups = append(groups, Group{EntityID: id, EntityName: name, Starters: list})
		}
		slices.SortFunc(groups, func(a, b Group) int {
			return strings.Compare(a.EntityName, b.EntityName)
		})

		names := make([]string, 0, len(groups))
		for _, g := range groups {
			if !slices.Contains(names, g.EntityName) {
				names = append(names, g.EntityName)
			}
		}

		plan.Recipients = append(plan.Recipients, Recipient{
			UserID:      c.User.ID,
			Email:       c.User.Email,
			Name:        c.User.Name,
			Count:       count,
			EntityNames: names,
			Groups:      groups,
		})
	}

	slices.SortFunc(plan.Recipients, func(a, b Recipient) int {
		return strings.Compare(a.Email, b.Email)
	})
	return plan
}

func optedIn(c Candidate, dt models.DigestType) bool {
	return slices.ContainsFunc(c.Preferences, func(p models.NotificationPreference) bool {
		return p.Enabled(dt)
	})
}
