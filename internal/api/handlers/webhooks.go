// webhooks.go handles the two inbound webhook shapes described in §6:
// billing subscription.* events (plan/subscription-state updates) and
// identity membership.accepted events (invite-status updates). Neither
// touches schedule state.
package handlers

import (
	"net/http"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/gin-gonic/gin"
)

type billingWebhook struct {
	Type   string `json:"type"`
	Tenant struct {
		ID           string `json:"id"`
		PlanID       string `json:"plan_id"`
		Subscription string `json:"subscription"`
	} `json:"tenant"`
}

func (h *Handler) BillingWebhook(c *gin.Context) {
	var payload billingWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.repo.UpdateTenantSubscription(payload.Tenant.ID, payload.Tenant.PlanID, core.SubscriptionState(payload.Tenant.Subscription)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tenant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type identityWebhook struct {
	Type  string `json:"type"`
	Entry struct {
		ID     string `json:"monitoring_entry_id"`
		Status string `json:"status"`
	} `json:"entry"`
}

func (h *Handler) IdentityWebhook(c *gin.Context) {
	var payload identityWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.repo.UpdateMonitoringEntryMode(payload.Entry.ID, core.ModeOpen); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update monitoring entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
