package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerRepo "tutorhive/database/repository/ledger"
	"tutorhive/models"

	"go.uber.org/zap"
)

// DefaultLedgerService implements Service. All ledger mutations flow through
// Reconcile and ConsumeCredit; nothing else in the system writes credits.
type DefaultLedgerService struct {
	Repo     ledgerRepo.Repository
	Billing  BillingClient
	Notifier Notifier
	Cache    *EntitlementCache
	Logger   *zap.Logger

	locks keyedMutex
}

// Reconcile applies one plan-change event. The sequence is:
//
//  1. resolve plan units from the provider when the event does not carry them
//     (aborts with ErrUpstreamLookupFailed before anything is written),
//  2. resolve the acting student (authenticated id on the fallback channel,
//     customer-id lookup otherwise),
//  3. under the student's lock: drop duplicates by subscription id, compute
//     the new balance, journal the change, upsert keyed on studentId.
//
// A duplicate event is a no-op returning the current state, not an error.
func (s *DefaultLedgerService) Reconcile(ctx context.Context, event models.PlanChangeEvent) (*models.CreditLedgerState, error) {
	switch event.Type {
	case models.EventNewSubscription, models.EventRenewal, models.EventPlanChange, models.EventSubscriptionEnded:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, event.Type)
	}

	if err := s.resolveUnits(ctx, &event); err != nil {
		return nil, err
	}

	studentID, existing, err := s.resolveStudent(ctx, event)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(studentID)
	defer unlock()

	// Re-read under the lock so concurrent reconciliations for the same
	// student observe each other's writes.
	state, err := s.Repo.GetByStudentID(ctx, studentID)
	if err != nil && !errors.Is(err, ledgerRepo.ErrNotFound) {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}
	if state == nil {
		if existing != nil {
			state = existing
		} else {
			state = &models.CreditLedgerState{
				StudentID: studentID,
				SubscriptionInfo: models.SubscriptionJournal{
					SchemaVersion: models.JournalSchemaVersion,
				},
			}
		}
	}

	if s.isDuplicate(state, event) {
		s.Logger.Info("duplicate plan-change event ignored",
			zap.String("studentID", studentID),
			zap.String("subscriptionID", event.SubscriptionID),
			zap.String("channel", string(event.Channel)))
		return state, nil
	}

	s.apply(ctx, state, event)

	if err := s.Repo.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist ledger state: %w", err)
	}

	if s.Cache != nil {
		s.Cache.Invalidate(ctx, studentID)
	}
	if s.Notifier != nil {
		s.Notifier.LedgerChanged(ctx, state)
	}

	s.Logger.Info("ledger reconciled",
		zap.String("studentID", studentID),
		zap.String("event", string(event.Type)),
		zap.String("channel", string(event.Channel)),
		zap.Int("credits", state.Credits),
		zap.Bool("hasAccess", state.HasAccess))
	return state, nil
}

// ReconcileCheckoutSession is the synchronous fallback trigger. It resolves
// the checkout session upstream, stamps the authenticated student identity on
// the resulting event, and runs the exact same Reconcile path the webhook
// uses.
func (s *DefaultLedgerService) ReconcileCheckoutSession(ctx context.Context, studentID, sessionID string) (*models.CreditLedgerState, error) {
	event, err := s.Billing.ResolveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: checkout session %s: %v", ErrUpstreamLookupFailed, sessionID, err)
	}
	event.Type = models.EventNewSubscription
	event.Channel = models.ChannelFallback
	event.StudentID = studentID
	return s.Reconcile(ctx, *event)
}

func (s *DefaultLedgerService) Get(ctx context.Context, studentID string) (*models.CreditLedgerState, error) {
	return s.Repo.GetByStudentID(ctx, studentID)
}

func (s *DefaultLedgerService) Entitled(ctx context.Context, studentID string) (bool, error) {
	if s.Cache != nil {
		if entitled, ok := s.Cache.Get(ctx, studentID); ok {
			return entitled, nil
		}
	}
	state, err := s.Repo.GetByStudentID(ctx, studentID)
	if errors.Is(err, ledgerRepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	entitled := state.Entitled()
	if s.Cache != nil {
		s.Cache.Set(ctx, studentID, entitled)
	}
	return entitled, nil
}

// ConsumeCredit debits one credit for a completed occurrence. The balance
// floors at zero; a debit against an empty balance is logged and skipped so
// no event sequence can drive credits negative.
func (s *DefaultLedgerService) ConsumeCredit(ctx context.Context, studentID, occurrenceID string) (*models.CreditLedgerState, error) {
	unlock := s.locks.lock(studentID)
	defer unlock()

	state, err := s.Repo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}
	if state.Credits <= 0 {
		s.Logger.Warn("credit debit skipped on empty balance",
			zap.String("studentID", studentID),
			zap.String("occurrenceID", occurrenceID))
		return state, nil
	}

	now := time.Now().UTC()
	state.Credits--
	state.SubscriptionInfo.ConsumptionHistory = append(state.SubscriptionInfo.ConsumptionHistory, models.DebitEntry{
		Date:         now,
		OccurrenceID: occurrenceID,
		Credits:      1,
	})
	state.SubscriptionInfo.LastUpdated = now

	if err := s.Repo.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist credit debit: %w", err)
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, studentID)
	}
	if s.Notifier != nil {
		s.Notifier.LedgerChanged(ctx, state)
	}
	return state, nil
}

// resolveUnits fills PlanUnits/PlanName/PlanInterval from the provider when
// the event only carries a price id. Runs before any state is read or
// written, so a lookup failure aborts cleanly.
func (s *DefaultLedgerService) resolveUnits(ctx context.Context, event *models.PlanChangeEvent) error {
	if event.Type == models.EventSubscriptionEnded {
		return nil
	}
	if event.PlanUnits > 0 || event.PriceID == "" {
		return nil
	}
	details, err := s.Billing.ResolvePlan(ctx, event.PriceID)
	if err != nil {
		return fmt.Errorf("%w: price %s: %v", ErrUpstreamLookupFailed, event.PriceID, err)
	}
	event.PlanUnits = details.Units
	if event.PlanName == "" {
		event.PlanName = details.Name
	}
	if event.PlanInterval == "" {
		event.PlanInterval = details.Interval
	}
	return nil
}

// resolveStudent maps the event to a student id. The fallback channel
// carries the authenticated identity; every other event must resolve through
// an existing customer mapping or it is dropped with ErrUnknownCustomer.
func (s *DefaultLedgerService) resolveStudent(ctx context.Context, event models.PlanChangeEvent) (string, *models.CreditLedgerState, error) {
	if event.StudentID != "" {
		state, err := s.Repo.GetByStudentID(ctx, event.StudentID)
		if err != nil && !errors.Is(err, ledgerRepo.ErrNotFound) {
			return "", nil, fmt.Errorf("failed to resolve student: %w", err)
		}
		return event.StudentID, state, nil
	}

	state, err := s.Repo.GetByCustomerID(ctx, event.CustomerID)
	if errors.Is(err, ledgerRepo.ErrNotFound) {
		s.Logger.Error("plan-change event for unknown customer dropped",
			zap.String("customerID", event.CustomerID),
			zap.String("event", string(event.Type)),
			zap.String("subscriptionID", event.SubscriptionID))
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, event.CustomerID)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve customer: %w", err)
	}
	return state.StudentID, state, nil
}

// isDuplicate detects re-delivery of an already-applied event. The
// subscription id is the idempotency key: an event for the current
// subscription was applied when that subscription became current, and an
// event for any id the journal has already seen is a stale re-delivery of a
// superseded subscription. Without the stale check, a late re-delivery of
// the original subscription's event after an upgrade would re-enter as a
// fresh plan change and mark the new paid subscription for cancellation.
// A Renewal of the current subscription additionally matches on the period
// end it extends to, since each billing cycle is a distinct event under the
// same id.
func (s *DefaultLedgerService) isDuplicate(state *models.CreditLedgerState, event models.PlanChangeEvent) bool {
	if event.SubscriptionID == "" {
		return false
	}
	current := state.SubscriptionInfo.CurrentSubscriptionID
	switch event.Type {
	case models.EventNewSubscription, models.EventPlanChange:
		if current == event.SubscriptionID {
			return true
		}
		return journaledSubscription(state, event.SubscriptionID)
	case models.EventRenewal:
		if current == event.SubscriptionID {
			return state.PackageExpirationUTC != nil && event.PeriodEndUTC != nil &&
				state.PackageExpirationUTC.Equal(*event.PeriodEndUTC)
		}
		return journaledSubscription(state, event.SubscriptionID)
	case models.EventSubscriptionEnded:
		// Only the current subscription ending revokes access. A superseded
		// subscription lapsing at period end after an upgrade ends nothing.
		return current != event.SubscriptionID
	}
	return false
}

// journaledSubscription reports whether the ledger has already applied an
// event for the given subscription id.
func journaledSubscription(state *models.CreditLedgerState, subscriptionID string) bool {
	if state.SubscriptionInfo.PreviousSubscriptionID == subscriptionID {
		return true
	}
	for _, entry := range state.SubscriptionInfo.PlanChangeHistory {
		if entry.SubscriptionID == subscriptionID {
			return true
		}
	}
	return false
}

// apply mutates state in place per the event. Journal entries record the
// actual delta applied, so folding PlanChangeHistory reconstructs the
// balance mechanically.
func (s *DefaultLedgerService) apply(ctx context.Context, state *models.CreditLedgerState, event models.PlanChangeEvent) {
	now := time.Now().UTC()
	fromPlan := state.PackageName
	priorCredits := state.Credits

	if event.CustomerID != "" {
		state.CustomerID = event.CustomerID
	}

	switch event.Type {
	case models.EventNewSubscription, models.EventPlanChange:
		// A different subscription already active for this student means an
		// upgrade or downgrade: the prior subscription lapses at period end
		// (non-prorated, no clawback) and unused credits carry over.
		priorActive := state.HasAccess &&
			state.SubscriptionInfo.CurrentSubscriptionID != "" &&
			state.SubscriptionInfo.CurrentSubscriptionID != event.SubscriptionID

		if priorActive {
			prior := state.SubscriptionInfo.CurrentSubscriptionID
			if err := s.Billing.MarkCancelAtPeriodEnd(ctx, prior); err != nil {
				s.Logger.Warn("failed to mark prior subscription for period-end cancellation",
					zap.String("subscriptionID", prior), zap.Error(err))
			}
			state.SubscriptionInfo.PreviousSubscriptionID = prior
			state.SubscriptionInfo.IsUpgradeOrDowngrade = true
			state.Credits = priorCredits + event.PlanUnits
		} else {
			state.SubscriptionInfo.IsUpgradeOrDowngrade = false
			state.Credits = event.PlanUnits
		}

		state.HasAccess = true
		state.PackageName = event.PlanName
		state.PackageExpirationUTC = event.PeriodEndUTC
		state.SubscriptionInfo.CurrentSubscriptionID = event.SubscriptionID
		state.SubscriptionInfo.PlanInterval = event.PlanInterval
		state.SubscriptionInfo.PlanUnits = event.PlanUnits

	case models.EventRenewal:
		units := event.PlanUnits
		if units == 0 {
			units = state.SubscriptionInfo.PlanUnits
		}
		state.Credits = priorCredits + units
		state.HasAccess = true
		if event.PeriodEndUTC != nil {
			state.PackageExpirationUTC = event.PeriodEndUTC
		}
		if event.SubscriptionID != "" {
			state.SubscriptionInfo.CurrentSubscriptionID = event.SubscriptionID
		}

	case models.EventSubscriptionEnded:
		// Access ends; already-purchased credits are not clawed back.
		state.HasAccess = false
		state.PackageExpirationUTC = nil
		state.SubscriptionInfo.PreviousSubscriptionID = state.SubscriptionInfo.CurrentSubscriptionID
		state.SubscriptionInfo.CurrentSubscriptionID = ""
	}

	state.SubscriptionInfo.PlanChangeHistory = append(state.SubscriptionInfo.PlanChangeHistory, models.PlanChangeEntry{
		Date:                    now,
		SubscriptionID:          event.SubscriptionID,
		FromPlan:                fromPlan,
		ToPlan:                  state.PackageName,
		CreditsAdded:            state.Credits - priorCredits,
		TotalCreditsAfterChange: state.Credits,
	})
	state.SubscriptionInfo.LastUpdated = now
}
