package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"
	"github.com/GustavoAl5317/momentusi-sub000/internal/errors"

	"github.com/go-redsync/redsync/v4"
)

// ReconcileDecision is the outcome of comparing a local payment against the
// gateway's authoritative state.
type ReconcileDecision struct {
	NewStatus string
	// ShouldPublish the timeline must end up published. Raised for every
	// approved gateway payment, including already-succeeded local rows, so
	// a crash between "mark succeeded" and "publish" is repaired on the
	// next webhook, sync or sweep.
	ShouldPublish bool
	// Changed the local status moved. Drives the sync reply's updated flag.
	Changed bool
}

// Reconcile maps (local status, gateway status, webhook action) to the next
// local status. Transitions are monotonic: pending may move to succeeded or
// failed, terminal states never move. Every entry point (webhook, sync,
// cron sweep) funnels through this one function.
func Reconcile(localStatus, gatewayStatus, action string) ReconcileDecision {
	approved := gatewayStatus == constants.GatewayStatusApproved || action == "payment.created"

	switch localStatus {
	case constants.PaymentStatusSucceeded:
		return ReconcileDecision{NewStatus: localStatus, ShouldPublish: approved}
	case constants.PaymentStatusFailed:
		return ReconcileDecision{NewStatus: localStatus}
	}

	if approved {
		return ReconcileDecision{NewStatus: constants.PaymentStatusSucceeded, ShouldPublish: true, Changed: true}
	}
	switch gatewayStatus {
	case constants.GatewayStatusRejected, constants.GatewayStatusCancelled,
		constants.GatewayStatusRefunded, constants.GatewayStatusChargedBack:
		return ReconcileDecision{NewStatus: constants.PaymentStatusFailed, Changed: true}
	}
	// pending, in_process, or anything unrecognized: stay put
	return ReconcileDecision{NewStatus: constants.PaymentStatusPending}
}

// applyGatewayPayment runs the shared transition: update the payment row
// (including the two-phase gateway id overwrite) and publish the timeline
// when due, inside one transaction. The confirmation email goes out after
// the commit, best effort.
func (uc *PaymentUsecase) applyGatewayPayment(ctx context.Context, p *Payment, gw *GatewayPayment, action string) (bool, error) {
	d := Reconcile(p.Status, gw.Status, action)

	idChanged := gw.ID != "" && gw.ID != p.GatewayID
	updated := d.Changed || idChanged

	var publishedNow *Timeline
	err := uc.tm.Exec(ctx, func(ctx context.Context) error {
		if updated {
			if idChanged {
				p.GatewayID = gw.ID
			}
			p.Status = d.NewStatus
			p.UpdatedAt = time.Now().UTC()
			if err := uc.paymentRepo.UpdatePayment(ctx, p); err != nil {
				return err
			}
		}
		if !d.ShouldPublish {
			return nil
		}
		t, err := uc.timelineRepo.GetTimelineByID(ctx, p.TimelineID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("payment %d references missing timeline %s", p.ID, p.TimelineID)
		}
		if t.IsPublished {
			return nil
		}
		if err := uc.timelineRepo.SetPublished(ctx, t.ID, p.Plan); err != nil {
			return err
		}
		t.IsPublished = true
		t.PlanType = p.Plan
		publishedNow = t
		return nil
	})
	if err != nil {
		return false, err
	}

	if publishedNow != nil {
		uc.log.Infof("Timeline %s published (payment=%d, plan=%s)", publishedNow.ID, p.ID, p.Plan)
		uc.sendConfirmationEmail(ctx, p, publishedNow)
	}
	return updated, nil
}

func (uc *PaymentUsecase) sendConfirmationEmail(ctx context.Context, p *Payment, t *Timeline) {
	if uc.email == nil || p.PayerEmail == "" {
		return
	}
	base := ResolveBaseURL(uc.config.App, "", "")
	publicURL := base + "/timeline/" + t.Slug
	editURL := base + "/edit/" + t.ID + "?token=" + t.EditToken
	if err := uc.email.SendPaymentConfirmation(ctx, p.PayerEmail, publicURL, editURL); err != nil {
		// never fail the flow over email
		uc.log.Warnf("Failed to send confirmation email for timeline %s: %v", t.ID, err)
	}
}

// WebhookNotification is the gateway's asynchronous callback payload.
type WebhookNotification struct {
	Type              string
	Action            string
	DataID            string
	Status            string
	ExternalReference string
}

// HandleWebhook processes an asynchronous payment notification. The body's
// status is not trusted: Pix payments may report pending in the webhook
// while already approved at the source, so the authoritative status is
// re-fetched from the gateway by id.
func (uc *PaymentUsecase) HandleWebhook(ctx context.Context, n *WebhookNotification) error {
	if n.Type != "payment" {
		uc.log.Infof("Ignoring webhook type %q (action=%s)", n.Type, n.Action)
		return nil
	}
	uc.log.Infof("Webhook: payment id=%s action=%s reference=%s", n.DataID, n.Action, n.ExternalReference)

	p, err := uc.locatePayment(ctx, n.ExternalReference, n.DataID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no local payment for reference=%s id=%s", n.ExternalReference, n.DataID)
	}

	gw, err := uc.gateway.GetPayment(ctx, n.DataID)
	if err != nil {
		return fmt.Errorf("failed to verify payment %s at gateway: %w", n.DataID, err)
	}
	if gw == nil {
		return fmt.Errorf("gateway has no payment %s", n.DataID)
	}

	updated, err := uc.applyGatewayPayment(ctx, p, gw, n.Action)
	if err != nil {
		return err
	}
	uc.log.Infof("Webhook applied: payment=%d status=%s updated=%v", p.ID, p.Status, updated)
	return nil
}

// locatePayment finds the local payment row for a webhook: latest row for
// the external reference (the timeline id), falling back to a match on the
// stored gateway id.
func (uc *PaymentUsecase) locatePayment(ctx context.Context, externalReference, gatewayID string) (*Payment, error) {
	if externalReference != "" {
		p, err := uc.paymentRepo.GetLatestPaymentByTimeline(ctx, externalReference)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	if gatewayID != "" {
		return uc.paymentRepo.GetPaymentByGatewayID(ctx, gatewayID)
	}
	return nil, nil
}

// SyncResult is the synchronization poller's reply.
type SyncResult struct {
	Updated       bool
	PaymentID     string
	Status        string
	GatewayStatus string
}

// SyncPayment actively pulls the gateway state for a timeline's latest
// payment and reconciles local state. Covers missed or delayed webhooks;
// invoked by the client's polling loop and by the cron sweeper.
func (uc *PaymentUsecase) SyncPayment(ctx context.Context, timelineID string) (*SyncResult, error) {
	p, err := uc.paymentRepo.GetLatestPaymentByTimeline(ctx, timelineID)
	if err != nil {
		uc.log.Errorf("Failed to load payment for timeline %s: %v", timelineID, err)
		return nil, errors.Internal(errors.ErrCodePaymentNotFound, "failed to load payment")
	}
	if p == nil {
		return nil, errors.NotFound(errors.ErrCodePaymentNotFound, "no payment found for this timeline")
	}

	gw, err := uc.fetchGatewayPayment(ctx, p)
	if err != nil {
		return nil, errors.Internal(errors.ErrCodeGatewayUnavailable, "gateway error: %v", err)
	}
	if gw == nil {
		return nil, errors.NotFound(errors.ErrCodeGatewayPaymentNotFound,
			"payment not found at the gateway; the webhook may not have processed yet, try again later")
	}

	updated, err := uc.applyGatewayPayment(ctx, p, gw, "")
	if err != nil {
		uc.log.Errorf("Failed to apply gateway payment for timeline %s: %v", timelineID, err)
		return nil, errors.Internal(errors.ErrCodeGatewayUnavailable, "failed to reconcile payment")
	}

	return &SyncResult{
		Updated:       updated,
		PaymentID:     p.GatewayID,
		Status:        p.Status,
		GatewayStatus: gw.Status,
	}, nil
}

// fetchGatewayPayment resolves the gateway's view of a local payment. A
// preference-style placeholder id cannot be fetched directly, so the search
// by external reference is used; a direct fetch that fails also falls back
// to the search.
func (uc *PaymentUsecase) fetchGatewayPayment(ctx context.Context, p *Payment) (*GatewayPayment, error) {
	ref := ParseGatewayRef(p.GatewayID)
	if ref.Kind == GatewayRefPayment {
		gw, err := uc.gateway.GetPayment(ctx, ref.ID)
		if err == nil && gw != nil {
			return gw, nil
		}
		if err != nil {
			uc.log.Warnf("Direct fetch of payment %s failed, falling back to search: %v", ref.ID, err)
		}
	}
	return uc.gateway.SearchPaymentByReference(ctx, p.TimelineID)
}

// Publish is the manual recovery action of the payment/publish saga: it
// publishes a timeline that already has a succeeded payment, for clients
// that confirmed success through other means.
func (uc *PaymentUsecase) Publish(ctx context.Context, timelineID string) (string, error) {
	t, err := uc.timelineRepo.GetTimelineByID(ctx, timelineID)
	if err != nil {
		uc.log.Errorf("Failed to load timeline %s: %v", timelineID, err)
		return "", errors.Internal(errors.ErrCodeTimelineNotFound, "failed to load timeline")
	}
	if t == nil {
		return "", errors.NotFound(errors.ErrCodeTimelineNotFound, "timeline not found")
	}

	paid, err := uc.paymentRepo.HasSucceededPayment(ctx, timelineID)
	if err != nil {
		uc.log.Errorf("Failed to check payments for timeline %s: %v", timelineID, err)
		return "", errors.Internal(errors.ErrCodePaymentNotFound, "failed to check payments")
	}
	if !paid {
		return "", errors.Forbidden(errors.ErrCodeNotPaid, "timeline has no confirmed payment")
	}

	if !t.IsPublished {
		p, err := uc.paymentRepo.GetLatestPaymentByTimeline(ctx, timelineID)
		if err != nil {
			return "", errors.Internal(errors.ErrCodePaymentNotFound, "failed to load payment")
		}
		plan := t.PlanType
		if p != nil && p.Plan != "" {
			plan = p.Plan
		}
		if err := uc.timelineRepo.SetPublished(ctx, timelineID, plan); err != nil {
			uc.log.Errorf("Failed to publish timeline %s: %v", timelineID, err)
			return "", errors.Internal(errors.ErrCodeTimelineNotFound, "failed to publish timeline")
		}
		uc.log.Infof("Timeline %s published via recovery endpoint", timelineID)
	}
	return t.Slug, nil
}

// SweepPendingPayments re-checks stale pending payments against the
// gateway. This moves retry ownership server-side: reconciliation completes
// even when the user closed the tab and no webhook ever arrived. A
// per-payment redsync mutex keeps concurrent sweep instances off the same
// row; webhook and sync stay lock-free since the transition is monotonic
// and convergent.
func (uc *PaymentUsecase) SweepPendingPayments(ctx context.Context) (checked, updated int, err error) {
	cutoff := time.Now().UTC().Add(-constants.ReconcileSweepMinAge)
	pending, err := uc.paymentRepo.ListStalePending(ctx, cutoff, constants.ReconcileSweepBatchSize)
	if err != nil {
		uc.log.Errorf("Failed to list stale pending payments: %v", err)
		return 0, 0, err
	}

	for _, p := range pending {
		var mutex *redsync.Mutex
		if uc.rs != nil {
			mutex = uc.rs.NewMutex(
				fmt.Sprintf("reconcile_lock:payment:%d", p.ID),
				redsync.WithExpiry(constants.ReconcileLockExpiration),
				redsync.WithTries(constants.ReconcileLockRetries),
			)
			if err := mutex.LockContext(ctx); err != nil {
				uc.log.Infof("Skipping payment %d: lock busy", p.ID)
				continue
			}
		}

		checked++
		gw, gerr := uc.fetchGatewayPayment(ctx, p)
		if gerr == nil && gw != nil {
			changed, aerr := uc.applyGatewayPayment(ctx, p, gw, "")
			if aerr != nil {
				uc.log.Errorf("Sweep failed to apply payment %d: %v", p.ID, aerr)
			} else if changed {
				updated++
			}
		} else if gerr != nil {
			uc.log.Warnf("Sweep could not fetch payment %d from gateway: %v", p.ID, gerr)
		}

		if mutex != nil {
			if _, uerr := mutex.UnlockContext(ctx); uerr != nil {
				uc.log.Warnf("Failed to unlock payment %d: %v", p.ID, uerr)
			}
		}
	}

	uc.log.Infof("Reconciliation sweep done: checked=%d updated=%d", checked, updated)
	return checked, updated, nil
}

// CleanupAbandonedDrafts removes unpublished timelines past the retention
// window. Returns the number of removed drafts.
func (uc *PaymentUsecase) CleanupAbandonedDrafts(ctx context.Context) (int, error) {
	days := constants.DefaultDraftRetentionDays
	if uc.config.App != nil && uc.config.App.DraftRetentionDays > 0 {
		days = uc.config.App.DraftRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	n, err := uc.timelineRepo.DeleteUnpublishedBefore(ctx, cutoff)
	if err != nil {
		uc.log.Errorf("Failed to clean up abandoned drafts: %v", err)
		return 0, err
	}
	uc.log.Infof("Cleaned up %d abandoned drafts older than %d days", n, days)
	return n, nil
}
