package service

import (
	"context"
	"sort"

	"github.com/onboarding-booking-api/internal/mailer"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/rs/zerolog"
)

// notifier sends best-effort lifecycle emails. Failures are logged, never returned,
// so a broken mail transport cannot fail the operation that triggered the email.
type notifier struct {
	sender   mailer.Sender
	renderer *mailer.Renderer
	settings SettingsService
	users    repository.UserRepository
	log      zerolog.Logger
}

func newNotifier(sender mailer.Sender, renderer *mailer.Renderer, settings SettingsService, users repository.UserRepository, log zerolog.Logger) *notifier {
	return &notifier{
		sender:   sender,
		renderer: renderer,
		settings: settings,
		users:    users,
		log:      log.With().Str("component", "notifier").Logger(),
	}
}

func (n *notifier) starterCreated(ctx context.Context, s *models.Starter, entity *models.Entity, tasks []*models.Task) {
	to := n.recipients(ctx, entity, tasks)
	if len(to) == 0 {
		return
	}
	msg, err := n.renderer.StarterCreated(s, entityName(entity), tasks, to, n.subjectPrefix(ctx))
	if err != nil {
		n.log.Error().Err(err).Str("starter_id", s.ID).Msg("Failed to render new starter email")
		return
	}
	n.deliver(ctx, msg, "starter_created", s.ID)
}

func (n *notifier) starterCancelled(ctx context.Context, s *models.Starter, entity *models.Entity, openTasks []*models.Task) {
	to := n.recipients(ctx, entity, openTasks)
	if len(to) == 0 {
		return
	}
	msg, err := n.renderer.StarterCancelled(s, entityName(entity), to, n.subjectPrefix(ctx))
	if err != nil {
		n.log.Error().Err(err).Str("starter_id", s.ID).Msg("Failed to render cancellation email")
		return
	}
	n.deliver(ctx, msg, "starter_cancelled", s.ID)
}

func (n *notifier) deliver(ctx context.Context, msg mailer.Message, kind, starterID string) {
	if n.sender == nil {
		return
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.log.Error().Err(err).
			Str("kind", kind).
			Str("starter_id", starterID).
			Strs("to", msg.To).
			Msg("Failed to send notification email")
		return
	}
	n.log.Debug().Str("kind", kind).Str("starter_id", starterID).Int("recipients", len(msg.To)).Msg("Notification sent")
}

// recipients returns the entity's notification addresses plus the task assignees, deduplicated
func (n *notifier) recipients(ctx context.Context, entity *models.Entity, tasks []*models.Task) []string {
	seen := make(map[string]bool)
	if entity != nil {
		for _, e := range entity.NotificationEmails {
			seen[e] = true
		}
	}

	looked := make(map[string]bool)
	for _, t := range tasks {
		if t.AssigneeID == nil || looked[*t.AssigneeID] {
			continue
		}
		looked[*t.AssigneeID] = true
		u, err := n.users.GetByID(ctx, *t.AssigneeID)
		if err != nil {
			n.log.Warn().Err(err).Str("user_id", *t.AssigneeID).Msg("Failed to load assignee for notification")
			continue
		}
		if u != nil {
			seen[u.Email] = true
		}
	}

	to := make([]string, 0, len(seen))
	for e := range seen {
		to = append(to, e)
	}
	sort.Strings(to)
	return to
}

func (n *notifier) subjectPrefix(ctx context.Context) string {
	snap, err := n.settings.Snapshot(ctx)
	if err != nil {
		n.log.Warn().Err(err).Msg("Failed to load settings, using default subject prefix")
		return settingDefaults[SettingSubjectPrefix]
	}
	return snap.String(SettingSubjectPrefix)
}

func entityName(e *models.Entity) string {
	if e == nil {
		return ""
	}
	return e.Name
}
