package models

import "time"

// JournalSchemaVersion tags the persisted journal layout so future migrations
// can tell old documents apart.
const JournalSchemaVersion = 1

// CreditLedgerState is the per-student entitlement record. It is mutated
// exclusively by the reconciler (plan-change events) and by the booking
// completion debit; nothing else may touch Credits.
type CreditLedgerState struct {
	StudentID            string              `bson:"studentId" json:"studentId"`
	CustomerID           string              `bson:"customerId" json:"customerId"`
	Credits              int                 `bson:"credits" json:"credits"`
	HasAccess            bool                `bson:"hasAccess" json:"hasAccess"`
	PackageName          string              `bson:"packageName,omitempty" json:"packageName,omitempty"`
	PackageExpirationUTC *time.Time          `bson:"packageExpirationUtc,omitempty" json:"packageExpirationUtc,omitempty"`
	SubscriptionInfo     SubscriptionJournal `bson:"subscriptionInfo" json:"subscriptionInfo"`
}

// Entitled reports whether the student may book a class right now.
func (s CreditLedgerState) Entitled() bool {
	return s.HasAccess && s.Credits > 0
}

// SubscriptionJournal is the append-only structured journal embedded in the
// ledger state. Replaying PlanChangeHistory in date order reconstructs the
// credit balance from zero, modulo class-consumption debits which are
// journaled in ConsumptionHistory.
type SubscriptionJournal struct {
	SchemaVersion          int               `bson:"schemaVersion" json:"schemaVersion"`
	CurrentSubscriptionID  string            `bson:"currentSubscriptionId" json:"currentSubscriptionId"`
	PreviousSubscriptionID string            `bson:"previousSubscriptionId,omitempty" json:"previousSubscriptionId,omitempty"`
	PlanInterval           string            `bson:"planInterval" json:"planInterval"`
	PlanUnits              int               `bson:"planUnits" json:"planUnits"`
	IsUpgradeOrDowngrade   bool              `bson:"isUpgradeOrDowngrade" json:"isUpgradeOrDowngrade"`
	PlanChangeHistory      []PlanChangeEntry `bson:"planChangeHistory" json:"planChangeHistory"`
	ConsumptionHistory     []DebitEntry      `bson:"consumptionHistory,omitempty" json:"consumptionHistory,omitempty"`
	LastUpdated            time.Time         `bson:"lastUpdated" json:"lastUpdated"`
}

// PlanChangeEntry records a single credit-affecting plan change. The
// subscription id it was applied for doubles as the idempotency trail: any
// event carrying an already-journaled id is a stale re-delivery.
type PlanChangeEntry struct {
	Date                    time.Time `bson:"date" json:"date"`
	SubscriptionID          string    `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	FromPlan                string    `bson:"fromPlan,omitempty" json:"fromPlan,omitempty"`
	ToPlan                  string    `bson:"toPlan" json:"toPlan"`
	CreditsAdded            int       `bson:"creditsAdded" json:"creditsAdded"`
	TotalCreditsAfterChange int       `bson:"totalCreditsAfterChange" json:"totalCreditsAfterChange"`
}

// DebitEntry records one class-consumption debit.
type DebitEntry struct {
	Date         time.Time `bson:"date" json:"date"`
	OccurrenceID string    `bson:"occurrenceId" json:"occurrenceId"`
	Credits      int       `bson:"credits" json:"credits"`
}

// ReplayBalance folds PlanChangeHistory in order and returns the balance it
// implies, starting from zero. Used by tests and reconciliation audits.
func (j SubscriptionJournal) ReplayBalance() int {
	total := 0
	for _, e := range j.PlanChangeHistory {
		total += e.CreditsAdded
	}
	return total
}
