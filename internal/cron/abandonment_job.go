package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/resale-backend/internal/notifications"
	"github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/internal/payments"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/resale-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
)

const (
	AbandonmentJobName = "order-abandonment"

	defaultGracePeriod = 5 * time.Minute
	defaultBatchSize   = 100
)

type abandonmentOrders interface {
	AbandonmentCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, input orders.CancelInput) (bool, error)
	ReleaseStock(ctx context.Context, order *models.Order) (bool, error)
}

type sessionLookup interface {
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type paymentConfirmer interface {
	Confirm(ctx context.Context, orderID uuid.UUID, source string) (*payments.Result, error)
}

// AbandonmentJobParams configure the abandoned checkout sweeper.
type AbandonmentJobParams struct {
	Logger      *logger.Logger
	Orders      abandonmentOrders
	Sessions    sessionLookup
	Payments    paymentConfirmer
	Notifier    notifications.Notifier
	GracePeriod time.Duration
	BatchSize   int
}

// SweepSummary counts what a single sweep did.
type SweepSummary struct {
	Examined  int `json:"examined"`
	Cancelled int `json:"cancelled"`
	Recovered int `json:"recovered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// AbandonmentJob cancels card orders whose payment never completed. Orders
// whose session turns out to be paid are confirmed instead.
type AbandonmentJob struct {
	logg      *logger.Logger
	orders    abandonmentOrders
	sessions  sessionLookup
	payments  paymentConfirmer
	notifier  notifications.Notifier
	grace     time.Duration
	batchSize int
	now       func() time.Time
}

func NewAbandonmentJob(params AbandonmentJobParams) (*AbandonmentJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session lookup required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment confirmer required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &AbandonmentJob{
		logg:      params.Logger,
		orders:    params.Orders,
		sessions:  params.Sessions,
		payments:  params.Payments,
		notifier:  params.Notifier,
		grace:     grace,
		batchSize: batch,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *AbandonmentJob) Name() string { return AbandonmentJobName }

func (j *AbandonmentJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep processes one batch of candidates. A failing order never stops the
// batch; failures are combined and returned once every candidate was visited.
func (j *AbandonmentJob) Sweep(ctx context.Context) (*SweepSummary, error) {
	cutoff := j.now().Add(-j.grace)
	candidates, err := j.orders.AbandonmentCandidates(ctx, cutoff, j.batchSize)
	if err != nil {
		return nil, fmt.Errorf("load abandonment candidates: %w", err)
	}

	summary := &SweepSummary{Examined: len(candidates)}
	var errs error
	for i := range candidates {
		order := &candidates[i]
		orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
		if err := j.sweepOrder(orderCtx, order, summary); err != nil {
			summary.Failed++
			j.logg.Error(orderCtx, "abandonment sweep failed for order", err)
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"examined":  summary.Examined,
		"cancelled": summary.Cancelled,
		"recovered": summary.Recovered,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
	j.logg.Info(logCtx, "abandonment sweep complete")
	return summary, errs
}

func (j *AbandonmentJob) sweepOrder(ctx context.Context, order *models.Order, summary *SweepSummary) error {
	if j.sessionPaid(ctx, order) {
		res, err := j.payments.Confirm(ctx, order.ID, payments.SourceReconcile)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			// purged since the candidate query ran
			summary.Skipped++
			return nil
		}
		if err != nil {
			return fmt.Errorf("confirm paid session: %w", err)
		}
		if res.Outcome == payments.OutcomeConfirmed {
			summary.Recovered++
		} else {
			summary.Skipped++
		}
		return nil
	}

	cancelled, err := j.orders.Cancel(ctx, order.ID, orders.CancelInput{
		Reason:                enums.CancellationReasonAbandoned,
		RequirePaymentPending: true,
	})
	if err != nil {
		return err
	}
	if !cancelled {
		// paid or cancelled since the candidate query ran
		summary.Skipped++
		return nil
	}
	summary.Cancelled++

	if _, err := j.orders.ReleaseStock(ctx, order); err != nil {
		j.logg.Error(ctx, "restock for abandoned order failed", err)
	}

	reason := enums.CancellationReasonAbandoned
	cancelledAt := j.now()
	order.PaymentStatus = enums.PaymentStatusCancelled
	order.FulfillmentStatus = enums.FulfillmentStatusCancelled
	order.CancellationReason = &reason
	order.CancelledAt = &cancelledAt
	j.notifier.Send(ctx, enums.NotificationKindOrderCancelled, order)
	return nil
}

func (j *AbandonmentJob) sessionPaid(ctx context.Context, order *models.Order) bool {
	if order.PaymentSessionID == nil || *order.PaymentSessionID == "" {
		return false
	}
	session, err := j.sessions.GetCheckoutSession(ctx, *order.PaymentSessionID)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "checkout session lookup failed; treating order as abandoned")
		return false
	}
	return pkgstripe.SessionPaid(session)
}
