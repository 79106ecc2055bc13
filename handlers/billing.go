package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tutorhive/config"
	ledgerRepo "tutorhive/database/repository/ledger"
	"tutorhive/models"
	"tutorhive/services/ledger"
	"tutorhive/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// BillingHandler serves both reconciliation channels: the asynchronous
// provider webhook and the authenticated synchronous fallback. Both feed the
// same Reconcile path.
type BillingHandler struct {
	Ledger  ledger.Service
	Billing ledger.BillingClient
	Logger  *zap.Logger
}

func NewBillingHandler(ledgerSvc ledger.Service, billing ledger.BillingClient, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{Ledger: ledgerSvc, Billing: billing, Logger: logger}
}

// WebhookHandler verifies and applies provider events. Responses steer the
// provider's at-least-once retry: 500 asks for a retry (safe, reconciliation
// is idempotent), 200 acknowledges handled, ignored and terminal events.
func (h *BillingHandler) WebhookHandler(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to read webhook payload", err.Error())
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Webhook signature verification failed", err.Error())
		return
	}

	planEvent, ok, err := h.mapEvent(c, event)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to map webhook event", err.Error())
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if _, err := h.Ledger.Reconcile(c.Request.Context(), *planEvent); err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownCustomer):
			// Terminal: logged for manual investigation, never retried.
			c.JSON(http.StatusOK, gin.H{"status": "dropped", "reason": "unknown customer"})
		case errors.Is(err, ledger.ErrUpstreamLookupFailed):
			utils.JSONError(c, http.StatusInternalServerError, "Upstream lookup failed, retry expected", err.Error())
		default:
			utils.JSONError(c, http.StatusInternalServerError, "Reconciliation failed", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reconciled"})
}

// mapEvent normalizes a provider webhook event into a PlanChangeEvent.
// Returns ok=false for event types the engine does not consume.
func (h *BillingHandler) mapEvent(c *gin.Context, event stripe.Event) (*models.PlanChangeEvent, bool, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, false, err
		}
		planEvent, err := h.Billing.ResolveCheckoutSession(c.Request.Context(), sess.ID)
		if err != nil {
			return nil, false, err
		}
		planEvent.Type = models.EventNewSubscription
		planEvent.Channel = models.ChannelWebhook
		return planEvent, true, nil

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, false, err
		}
		if sub.CancelAtPeriodEnd {
			// This is the provider echoing the period-end cancellation the
			// reconciler itself requested on a superseded subscription. No
			// price changed; re-entering it as a plan change would corrupt
			// the upgrade that triggered it.
			return nil, false, nil
		}
		planEvent := subscriptionToEvent(&sub)
		planEvent.Type = models.EventPlanChange
		planEvent.Channel = models.ChannelWebhook
		return planEvent, true, nil

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, false, err
		}
		if invoice.BillingReason != stripe.InvoiceBillingReasonSubscriptionCycle {
			// First-period invoices are covered by checkout.session.completed.
			return nil, false, nil
		}
		planEvent := &models.PlanChangeEvent{
			Type:    models.EventRenewal,
			Channel: models.ChannelWebhook,
		}
		if invoice.Customer != nil {
			planEvent.CustomerID = invoice.Customer.ID
		}
		if invoice.Subscription != nil {
			planEvent.SubscriptionID = invoice.Subscription.ID
		}
		if invoice.Lines != nil && len(invoice.Lines.Data) > 0 {
			line := invoice.Lines.Data[0]
			if line.Price != nil {
				planEvent.PriceID = line.Price.ID
			}
			if line.Period != nil && line.Period.End > 0 {
				end := time.Unix(line.Period.End, 0).UTC()
				planEvent.PeriodEndUTC = &end
			}
		}
		return planEvent, true, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, false, err
		}
		planEvent := &models.PlanChangeEvent{
			Type:           models.EventSubscriptionEnded,
			Channel:        models.ChannelWebhook,
			SubscriptionID: sub.ID,
		}
		if sub.Customer != nil {
			planEvent.CustomerID = sub.Customer.ID
		}
		return planEvent, true, nil
	}
	return nil, false, nil
}

func subscriptionToEvent(sub *stripe.Subscription) *models.PlanChangeEvent {
	planEvent := &models.PlanChangeEvent{SubscriptionID: sub.ID}
	if sub.Customer != nil {
		planEvent.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		planEvent.PeriodEndUTC = &end
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		planEvent.PriceID = price.ID
		planEvent.PlanName = price.Nickname
		if price.Recurring != nil {
			planEvent.PlanInterval = string(price.Recurring.Interval)
		}
	}
	return planEvent
}

type syncRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// SyncHandler is the client-triggered fallback used when the asynchronous
// event has not arrived yet. The authenticated student identity is trusted
// for record creation; the reconciliation itself is the shared path.
func (h *BillingHandler) SyncHandler(c *gin.Context) {
	studentID := c.GetString("studentID")

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid sync request", err.Error())
		return
	}

	state, err := h.Ledger.ReconcileCheckoutSession(c.Request.Context(), studentID, req.SessionID)
	if err != nil {
		if errors.Is(err, ledger.ErrUpstreamLookupFailed) {
			// Non-blocking for the user: the webhook channel self-heals.
			utils.JSONCodedError(c, http.StatusBadGateway, "upstreamLookupFailed",
				"Payment confirmation is still processing")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to sync subscription", err.Error())
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetLedgerHandler returns the authenticated student's ledger state.
func (h *BillingHandler) GetLedgerHandler(c *gin.Context) {
	studentID := c.GetString("studentID")

	state, err := h.Ledger.Get(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrNotFound) {
			utils.JSONCodedError(c, http.StatusNotFound, "noLedger", "No ledger record for student")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load ledger", err.Error())
		return
	}
	c.JSON(http.StatusOK, state)
}
