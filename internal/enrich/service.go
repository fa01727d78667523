// Package enrich runs the per-call pipeline: resolve the caller in the CRM,
// gather their deal, note and emails, and push an insight card to the call.
package enrich

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callcard-relay/internal/apperror"
	"callcard-relay/internal/card"
	"callcard-relay/internal/model"
)

// EmailLimit is how many recent emails are shown on a card.
const EmailLimit = 3

// CRM is the subset of the CRM client used by the pipeline.
type CRM interface {
	FindPersonByPhone(ctx context.Context, phone string) (*model.Person, error)
	OpenDeal(ctx context.Context, personID int) (*model.Deal, error)
	LatestNote(ctx context.Context, personID int) (*model.Note, error)
	RecentEmails(ctx context.Context, personID, limit int) ([]model.EmailSummary, error)
}

// StageResolver maps stage ids to names.
type StageResolver interface {
	Resolve(ctx context.Context, id int) (string, error)
}

// CardSender delivers a card to a live call.
type CardSender interface {
	SendInsightCard(ctx context.Context, callID string, rows []model.CardRow) error
}

// Outcome describes how a call event was handled.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeNoNumber Outcome = "no_number"
	OutcomeUnknown  Outcome = "unknown_contact"
	OutcomeEnriched Outcome = "enriched"
	OutcomeFailed   Outcome = "failed"
)

type invocationKey struct{}

// WithInvocationID tags ctx with the id of the background task processing an event.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey{}, id)
}

// InvocationID returns the id set by WithInvocationID, or "".
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey{}).(string)
	return id
}

// Service is the enrichment pipeline. It is safe for concurrent use.
type Service struct {
	log       *zap.Logger
	crm       CRM
	stages    StageResolver
	formatter *card.Formatter
	sender    CardSender
	validate  *validator.Validate
}

// New creates a Service.
func New(log *zap.Logger, crm CRM, stages StageResolver, f *card.Formatter, sender CardSender, v *validator.Validate) *Service {
	return &Service{log: log, crm: crm, stages: stages, formatter: f, sender: sender, validate: v}
}

// Handle processes one webhook event. Failures are logged and reported only
// through the returned Outcome, since the provider was already acknowledged.
func (s *Service) Handle(ctx context.Context, ev model.CallEvent) Outcome {
	log := s.log.With(
		zap.String("invocation_id", InvocationID(ctx)),
		zap.String("call_id", ev.Data.ID.String()),
		zap.String("event", ev.Event))

	outcome, err := s.run(ctx, log, ev)
	if err != nil {
		log.Error("enrichment failed",
			zap.String("outcome", string(outcome)),
			zap.Int("upstream_status", apperror.StatusCode(err)),
			zap.Error(err))
		return outcome
	}

	if outcome == OutcomeIgnored {
		log.Debug("event ignored")
		return outcome
	}
	log.Info("enrichment finished", zap.String("outcome", string(outcome)))
	return outcome
}

func (s *Service) run(ctx context.Context, log *zap.Logger, ev model.CallEvent) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("panic: %v", r)
			log.Error("enrichment panicked", zap.Stack("stack"))
		}
	}()

	if ev.Event != model.EventCallCreated {
		return OutcomeIgnored, nil
	}
	if err := s.validate.Struct(ev); err != nil {
		log.Warn("invalid call event", zap.Any("fields", apperror.CustomValidationError(err)))
		return OutcomeInvalid, nil
	}

	phone := ev.CallerNumber()
	if phone == "" {
		log.Warn("call event has no caller number")
		return OutcomeNoNumber, nil
	}

	person, err := s.crm.FindPersonByPhone(ctx, phone)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("find person by phone: %w", err)
	}

	if person == nil {
		log.Info("no contact matches caller", zap.String("phone", phone))
		if err := s.send(ctx, ev.Data.ID.String(), card.Unknown(phone)); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeUnknown, nil
	}

	log = log.With(zap.Int("person_id", person.ID))
	deal, note, emails := s.gather(ctx, log, person.ID)

	var stageName string
	if deal != nil && deal.StageID != 0 {
		stageName, err = s.stages.Resolve(ctx, deal.StageID)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("resolve stage %d: %w", deal.StageID, err)
		}
	}

	rows := s.formatter.Build(*person, deal, stageName, emails, note)
	if err := s.send(ctx, ev.Data.ID.String(), rows); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeEnriched, nil
}

// gather fetches the deal, note and emails concurrently. A failed lookup
// degrades to an empty value without affecting the other two.
func (s *Service) gather(ctx context.Context, log *zap.Logger, personID int) (*model.Deal, *model.Note, []model.EmailSummary) {
	var (
		deal   *model.Deal
		note   *model.Note
		emails []model.EmailSummary
		g      errgroup.Group
	)

	g.Go(func() error {
		d, err := s.crm.OpenDeal(ctx, personID)
		if err != nil {
			log.Warn("open deal lookup failed", zap.Error(err))
			return nil
		}
		deal = d
		return nil
	})
	g.Go(func() error {
		n, err := s.crm.LatestNote(ctx, personID)
		if err != nil {
			log.Warn("latest note lookup failed", zap.Error(err))
			return nil
		}
		note = n
		return nil
	})
	g.Go(func() error {
		e, err := s.crm.RecentEmails(ctx, personID, EmailLimit)
		if err != nil {
			log.Warn("recent emails lookup failed", zap.Error(err))
			return nil
		}
		if len(e) > EmailLimit {
			e = e[:EmailLimit]
		}
		emails = e
		return nil
	})

	// Every lookup recovers its own error.
	_ = g.Wait()
	return deal, note, emails
}

func (s *Service) send(ctx context.Context, callID string, rows []model.CardRow) error {
	if err := s.sender.SendInsightCard(ctx, callID, rows); err != nil {
		return fmt.Errorf("send insight card: %w", err)
	}
	return nil
}
