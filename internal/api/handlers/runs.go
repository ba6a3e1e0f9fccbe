// runs.go implements C9's run pipeline hooks exposed over HTTP:
// triggerNow, listDue, completeRun (the latter exposed read-only here as
// getRun, since completeRun itself is only ever called by the executor
// inside cmd/worker, never over the wire).
package handlers

import (
	"net/http"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/arnavsood/statuspulse/internal/queue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TriggerNow opens a run record synchronously (so the caller's runId is
// valid immediately) and pushes the job onto the trigger queue for
// cmd/worker's single loop to execute, per §4.9.
func (h *Handler) TriggerNow(c *gin.Context) {
	entryID := c.Param("id")
	tenantID := c.GetString("tenant_id")

	entry, err := h.repo.GetMonitoringEntry(entryID)
	if err != nil || entry.TenantID != tenantID {
		c.JSON(http.StatusNotFound, gin.H{"error": "monitoring entry not found"})
		return
	}

	if h.cache != nil {
		accepted, err := h.cache.MarkTriggered(c.Request.Context(), entryID, h.dedupWindow)
		if err == nil && !accepted {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "trigger already accepted, retry later"})
			return
		}
	}

	run, err := h.repo.CreateRun(entry, core.TriggerManual, time.Now(), time.Now())
	if err != nil {
		h.logger.Error("triggerNow: failed to open run", zap.String("entry", entryID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open run"})
		return
	}

	job := &queue.TriggerJob{RunID: run.ID, EntryID: entry.ID, CreatedAt: time.Now()}
	if err := h.queue.Push(c.Request.Context(), job); err != nil {
		h.logger.Error("triggerNow: failed to enqueue job", zap.String("run", run.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue trigger"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID})
}

// ListDue exposes listDueMonitoringEntries for an external worker
// deployment per §4.9's "exposed over HTTP for an external worker".
func (h *Handler) ListDue(c *gin.Context) {
	entries, err := h.repo.ListDueMonitoringEntries(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list due entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetRun is a thin read pass-through over a run record.
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.repo.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}
