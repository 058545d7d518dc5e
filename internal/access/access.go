// Package access decides which entities, starters and tasks a user may see or change.
//
// Roles form a closed set; each maps to a fixed capability set in one table, and every
// check goes through Authorize. Outside of edit-all, the only source of mutation rights is
// a membership with CanEdit set. Records without an entity need view-unowned.
package access

import (
	"github.com/onboarding-booking-api/internal/models"
	"golang.org/x/exp/slices"
)

// Capability is a bit in a role's capability set
type Capability uint8

const (
	ViewAll Capability = 1 << iota
	EditAll
	ViewOwnEntities
	EditOwnEntities
	ViewUnowned
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{ViewAll, "view-all"},
	{EditAll, "edit-all"},
	{ViewOwnEntities, "view-own-entities"},
	{EditOwnEntities, "edit-own-entities"},
	{ViewUnowned, "view-unowned"},
}

var roleCapabilities = map[models.Role]Capability{
	models.RoleAdmin:        ViewAll | EditAll | ViewUnowned,
	models.RoleGlobalViewer: ViewAll | ViewOwnEntities | EditOwnEntities,
	models.RoleEntityEditor: ViewOwnEntities | EditOwnEntities,
	models.RoleEntityViewer: ViewOwnEntities | EditOwnEntities,
	models.RoleNone:         ViewOwnEntities | EditOwnEntities,
}

// Action is what a caller wants to do with a record
type Action int

const (
	View Action = iota
	Edit
)

// CapabilitiesOf returns the capability set of a role; unknown roles get nothing
func CapabilitiesOf(role models.Role) Capability {
	return roleCapabilities[role]
}

// Has reports whether c contains every bit of other
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Names lists the capability names in c, in table order
func (c Capability) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for _, cn := range capabilityNames {
		if c.Has(cn.cap) {
			names = append(names, cn.name)
		}
	}
	return names
}

// IsAdmin reports whether the user's role grants edit-all
func IsAdmin(u *models.User) bool {
	return u != nil && CapabilitiesOf(u.Role).Has(EditAll)
}

// Authorize decides whether u may perform action on a record owned by entityID.
// A nil entityID means the record belongs to no entity.
func Authorize(u *models.User, action Action, entityID *string) bool {
	if u == nil {
		return false
	}
	caps := CapabilitiesOf(u.Role)

	switch action {
	case View:
		if entityID == nil {
			return caps.Has(ViewUnowned)
		}
		if caps.Has(ViewAll) {
			return true
		}
		if !caps.Has(ViewOwnEntities) {
			return false
		}
		_, ok := membershipFor(u, *entityID)
		return ok
	case Edit:
		if caps.Has(EditAll) {
			return true
		}
		if entityID == nil || !caps.Has(EditOwnEntities) {
			return false
		}
		m, ok := membershipFor(u, *entityID)
		return ok && m.CanEdit
	}
	return false
}

// CanView is Authorize(u, View, entityID)
func CanView(u *models.User, entityID *string) bool {
	return Authorize(u, View, entityID)
}

// CanEdit is Authorize(u, Edit, entityID)
func CanEdit(u *models.User, entityID *string) bool {
	return Authorize(u, Edit, entityID)
}

// Scope describes the entity set a user can view: either everything or a list of IDs.
// Repositories use it to push the visibility filter into SQL.
type Scope struct {
	All bool
	// ExcludeNull drops records without an entity from an all-scope
	ExcludeNull bool
	EntityIDs   []string
}

// ViewScope returns the view scope of u
func ViewScope(u *models.User) Scope {
	if u == nil {
		return Scope{EntityIDs: []string{}}
	}
	caps := CapabilitiesOf(u.Role)
	if caps.Has(ViewAll) {
		return Scope{All: true, ExcludeNull: !caps.Has(ViewUnowned)}
	}
	ids := make([]string, 0, len(u.Memberships))
	if caps.Has(ViewOwnEntities) {
		for _, m := range u.Memberships {
			ids = append(ids, m.EntityID)
		}
	}
	return Scope{EntityIDs: ids}
}

// Includes reports whether the scope covers a record owned by entityID
func (s Scope) Includes(entityID *string) bool {
	if s.All {
		return entityID != nil || !s.ExcludeNull
	}
	return entityID != nil && slices.Contains(s.EntityIDs, *entityID)
}

// FilterEntities returns the entities u may see, preserving order
func FilterEntities(u *models.User, entities []*models.Entity) []*models.Entity {
	return Filter(u, entities, func(e *models.Entity) *string { return &e.ID })
}

// FilterStarters returns the starters u may see, preserving order
func FilterStarters(u *models.User, starters []*models.Starter) []*models.Starter {
	return Filter(u, starters, func(s *models.Starter) *string { return s.EntityID })
}

// FilterTasks returns the tasks u may see, preserving order
func FilterTasks(u *models.User, tasks []*models.Task) []*models.Task {
	return Filter(u, tasks, func(t *models.Task) *string { return t.EntityID })
}

// Filter keeps the items whose owning entity u may view. The result is never nil.
func Filter[T any](u *models.User, items []T, entityOf func(T) *string) []T {
	scope := ViewScope(u)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if scope.Includes(entityOf(item)) {
			out = append(out, item)
		}
	}
	return out
}

func membershipFor(u *models.User, entityID string) (models.Membership, bool) {
	i := slices.IndexFunc(u.Memberships, func(m models.Membership) bool {
		return m.EntityID == entityID
	})
	if i < 0 {
		return models.Membership{}, false
	}
	return u.Memberships[i], true
}
