package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/onboarding-booking-api/internal/config"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DigestResult summarizes one digest send run
type DigestResult struct {
	Type       models.DigestType `json:"type"`
	Window     digest.Window     `json:"window"`
	Recipients int               `json:"recipients"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Skipped    bool              `json:"skipped"`
}

// digestService is the concrete implementation of DigestService
type digestService struct {
	starters    repository.StarterRepository
	preferences repository.PreferenceRepository
	entities    repository.EntityRepository
	notify      *notifier
	settings    SettingsService
	audit       *auditor
	loc         *time.Location
	concurrency int
	log         zerolog.Logger
}

func newDigestService(repos *repository.Repositories, notify *notifier, settings SettingsService, audit *auditor, cfg config.DigestConfig, log zerolog.Logger) *digestService {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &digestService{
		starters:    repos.Starter,
		preferences: repos.Preference,
		entities:    repos.Entity,
		notify:      notify,
		settings:    settings,
		audit:       audit,
		loc:         cfg.Location(),
		concurrency: concurrency,
		log:         log.With().Str("service", "digest").Logger(),
	}
}

// Preview computes who would receive the digest of type dt run on today, without sending
func (s *digestService) Preview(ctx context.Context, dt models.DigestType, today time.Time) (*digest.Plan, error) {
	return s.plan(ctx, dt, today)
}

// Send computes the digest exactly as Preview does and mails every recipient.
// Per-recipient failures are counted and logged; the run itself does not fail on them.
func (s *digestService) Send(ctx context.Context, dt models.DigestType, today time.Time) (*DigestResult, error) {
	ctx, span := tracer.Start(ctx, "digest.send")
	defer span.End()
	span.SetAttributes(attribute.String("digest.type", string(dt)))

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Bool(SettingDigestEnabled) {
		w, err := digest.WindowFor(dt, today.In(s.loc))
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("type", string(dt)).Msg("Digests disabled, skipping send")
		return &DigestResult{Type: dt, Window: w, Skipped: true}, nil
	}

	plan, err := s.plan(ctx, dt, today)
	if err != nil {
		return nil, err
	}
	prefix := snap.String(SettingSubjectPrefix)

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, rcpt := range plan.Recipients {
		rcpt := rcpt
		g.Go(func() error {
			if err := s.deliver(ctx, plan, rcpt, prefix); err != nil {
				failed.Add(1)
				s.log.Error().Err(err).
					Str("type", string(dt)).
					Str("email", rcpt.Email).
					Msg("Failed to send digest")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := &DigestResult{
		Type:       dt,
		Window:     plan.Window,
		Recipients: len(plan.Recipients),
		Sent:       int(sent.Load()),
		Failed:     int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("digest.recipients", result.Recipients),
		attribute.Int("digest.failed", result.Failed),
	)

	if err := s.audit.record(ctx, nil, "digest.sent", "digest", string(dt), result); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("type", string(dt)).
		Int("recipients", result.Recipients).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("Digest run finished")

	return result, nil
}

func (s *digestService) deliver(ctx context.Context, plan *digest.Plan, rcpt digest.Recipient, prefix string) error {
	if s.notify.sender == nil {
		return errors.New("no mail sender configured")
	}
	msg, err := s.notify.renderer.Digest(*plan, rcpt, prefix)
	if err != nil {
		return err
	}
	return s.notify.sender.Send(ctx, msg)
}

// plan loads the starters and candidates for dt and runs the eligibility engine.
// today is interpreted in the configured digest time zone.
func (s *digestService) plan(ctx context.Context, dt models.DigestType, today time.Time) (*digest.Plan, error) {
	w, err := digest.WindowFor(dt, today.In(s.loc))
	if err != nil {
		return nil, err
	}

	starters, err := s.starters.ListInWindow(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	candidates, err := s.preferences.ListCandidates(ctx, dt)
	if err != nil {
		return nil, err
	}
	entities, err := s.entities.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}

	plan := digest.Compute(dt, w, starters, candidates, names)
	return &plan, nil
}
