package ledger

import "errors"

var (
	// ErrUpstreamLookupFailed means the payment-provider lookup needed to
	// resolve plan or unit details failed or timed out. It is the only
	// retryable reconciliation error; retrying is safe because Reconcile is
	// idempotent. No partial state is ever written before the lookup.
	ErrUpstreamLookupFailed = errors.New("upstreamLookupFailed")

	// ErrUnknownCustomer means the event references a customer id no ledger
	// record maps to. Terminal: the event is logged and dropped rather than
	// creating an orphan record. The fallback-channel NewSubscription is the
	// one exception, since it carries an authenticated student identity.
	ErrUnknownCustomer = errors.New("unknownCustomer")

	// ErrUnsupportedEvent is returned for event types the reconciler does
	// not understand.
	ErrUnsupportedEvent = errors.New("unsupportedEvent")
)
