package ledger

import (
	"context"

	"tutorhive/models"
)

// Service is the credit ledger and entitlement reconciler. Reconcile is the
// single code path both delivery channels invoke; there is deliberately no
// separate fallback algorithm.
type Service interface {
	// Reconcile applies one plan-change event to the student's ledger,
	// exactly once per distinct event regardless of delivery order or
	// duplication.
	Reconcile(ctx context.Context, event models.PlanChangeEvent) (*models.CreditLedgerState, error)

	// ReconcileCheckoutSession is the synchronous fallback trigger: it
	// resolves the provider checkout session into a NewSubscription event
	// for the authenticated student and feeds it through Reconcile.
	ReconcileCheckoutSession(ctx context.Context, studentID, sessionID string) (*models.CreditLedgerState, error)

	// Get returns the student's current ledger state.
	Get(ctx context.Context, studentID string) (*models.CreditLedgerState, error)

	// Entitled reports whether the student currently has access and at
	// least one credit. Reads may be served from the bounded-TTL cache.
	Entitled(ctx context.Context, studentID string) (bool, error)

	// ConsumeCredit debits one credit for a completed class occurrence,
	// flooring at zero.
	ConsumeCredit(ctx context.Context, studentID, occurrenceID string) (*models.CreditLedgerState, error)
}

// PlanDetails is what the upstream price lookup resolves.
type PlanDetails struct {
	Name     string
	Interval string
	Units    int
}

// BillingClient is the payment-provider lookup surface the reconciler
// depends on. The production implementation talks to Stripe; tests inject a
// fake.
type BillingClient interface {
	ResolveCheckoutSession(ctx context.Context, sessionID string) (*models.PlanChangeEvent, error)
	ResolvePlan(ctx context.Context, priceID string) (*PlanDetails, error)

	// MarkCancelAtPeriodEnd schedules the provider-side subscription to lapse
	// at the end of its paid period instead of immediately, so an upgraded
	// student never loses access mid-period.
	MarkCancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// Notifier is fired after every successful ledger write. Transports (push,
// socket, polling) subscribe to whichever implementation the deployment
// wires in; the reconciler itself stays transport-agnostic.
type Notifier interface {
	LedgerChanged(ctx context.Context, state *models.CreditLedgerState)
}
