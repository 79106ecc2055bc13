package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tutorhive/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/price"
	"github.com/stripe/stripe-go/v76/subscription"
)

// unitsMetadataKey is the price metadata entry carrying the monthly class
// credits the plan grants.
const unitsMetadataKey = "class_credits"

// StripeBillingClient implements BillingClient against the Stripe API. The
// global stripe.Key is set at startup.
type StripeBillingClient struct{}

func (StripeBillingClient) ResolveCheckoutSession(ctx context.Context, sessionID string) (*models.PlanChangeEvent, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("subscription.items.data.price")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("checkout session lookup failed: %w", err)
	}
	if sess.Subscription == nil {
		return nil, fmt.Errorf("checkout session %s carries no subscription", sessionID)
	}

	event := &models.PlanChangeEvent{
		SubscriptionID: sess.Subscription.ID,
	}
	if sess.Customer != nil {
		event.CustomerID = sess.Customer.ID
	}
	if end := sess.Subscription.CurrentPeriodEnd; end > 0 {
		t := time.Unix(end, 0).UTC()
		event.PeriodEndUTC = &t
	}
	if items := sess.Subscription.Items; items != nil && len(items.Data) > 0 && items.Data[0].Price != nil {
		p := items.Data[0].Price
		event.PriceID = p.ID
		event.PlanName = p.Nickname
		if p.Recurring != nil {
			event.PlanInterval = string(p.Recurring.Interval)
		}
		if units, err := unitsFromMetadata(p.Metadata); err == nil {
			event.PlanUnits = units
		}
	}
	return event, nil
}

func (StripeBillingClient) ResolvePlan(ctx context.Context, priceID string) (*PlanDetails, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	p, err := price.Get(priceID, params)
	if err != nil {
		return nil, fmt.Errorf("price lookup failed: %w", err)
	}
	units, err := unitsFromMetadata(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", priceID, err)
	}
	details := &PlanDetails{Name: p.Nickname, Units: units}
	if p.Recurring != nil {
		details.Interval = string(p.Recurring.Interval)
	}
	return details, nil
}

func (StripeBillingClient) MarkCancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	_, err := subscription.Update(subscriptionID, params)
	return err
}

func unitsFromMetadata(metadata map[string]string) (int, error) {
	raw, ok := metadata[unitsMetadataKey]
	if !ok {
		return 0, fmt.Errorf("metadata key %q missing", unitsMetadataKey)
	}
	units, err := strconv.Atoi(raw)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("metadata key %q invalid: %q", unitsMetadataKey, raw)
	}
	return units, nil
}
