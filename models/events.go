package models

import "time"

// PlanEventType enumerates the plan-change events the reconciler understands.
type PlanEventType string

const (
	EventNewSubscription   PlanEventType = "new_subscription"
	EventRenewal           PlanEventType = "renewal"
	EventPlanChange        PlanEventType = "plan_change"
	EventSubscriptionEnded PlanEventType = "subscription_ended"
)

// EventChannel identifies which delivery path produced an event. The two
// channels run the exact same reconciliation; the channel only matters for
// the unknown-customer rule (the fallback channel may create the record).
type EventChannel string

const (
	ChannelWebhook  EventChannel = "webhook"
	ChannelFallback EventChannel = "fallback"
)

// PlanChangeEvent is the normalized form of a payment-provider event, shared
// by both delivery channels. SubscriptionID is the idempotency key: a second
// delivery carrying the same id must not mutate the ledger again.
type PlanChangeEvent struct {
	Type           PlanEventType `json:"type"`
	Channel        EventChannel  `json:"channel"`
	StudentID      string        `json:"studentId,omitempty"`
	CustomerID     string        `json:"customerId"`
	SubscriptionID string        `json:"subscriptionId"`
	PriceID        string        `json:"priceId,omitempty"`
	PlanName       string        `json:"planName,omitempty"`
	PlanInterval   string        `json:"planInterval,omitempty"`
	PlanUnits      int           `json:"planUnits,omitempty"`
	PeriodEndUTC   *time.Time    `json:"periodEndUtc,omitempty"`
}
