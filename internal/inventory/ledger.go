package inventory

import (
	"context"
	"fmt"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Outcome classifies what happened to a single line.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeExempt covers lines without a variant and products that track no variants.
	OutcomeExempt  Outcome = "exempt"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

const (
	opReserve = "reserve"
	opRelease = "release"
)

// Line identifies a quantity of one product variant.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// LinesFromOrder maps order line items onto ledger lines.
func LinesFromOrder(order *models.Order) []Line {
	if order == nil {
		return nil
	}
	lines := make([]Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, Line{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return lines
}

// Adjustment reports the result for one line.
type Adjustment struct {
	Line      Line
	VariantID *uuid.UUID
	Outcome   Outcome
	Reason    string
}

// ReleaseOptions tunes restocking.
type ReleaseOptions struct {
	// FallbackToDefault restocks lines whose variant no longer exists into the
	// product's default bucket instead of dropping them.
	FallbackToDefault bool
}

// Ledger applies best-effort stock adjustments. Missing products or variants
// are skipped with a warning; only storage failures are reported as errors.
type Ledger interface {
	Reserve(ctx context.Context, lines []Line) ([]Adjustment, error)
	Release(ctx context.Context, lines []Line, opts ReleaseOptions) ([]Adjustment, error)
}

// LedgerParams wires the ledger dependencies.
type LedgerParams struct {
	Repo    Repository
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
}

type ledger struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewLedger builds the stock ledger.
func NewLedger(params LedgerParams) (Ledger, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ledger{repo: params.Repo, logg: params.Logger, metrics: params.Metrics}, nil
}

func (l *ledger) Reserve(ctx context.Context, lines []Line) ([]Adjustment, error) {
	results := make([]Adjustment, 0, len(lines))
	var errs error
	for _, line := range lines {
		adj, err := l.reserveLine(ctx, line)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		l.record(ctx, opReserve, adj)
		results = append(results, adj)
	}
	return results, errs
}

func (l *ledger) reserveLine(ctx context.Context, line Line) (Adjustment, error) {
	adj := Adjustment{Line: line}
	if line.VariantID == nil {
		adj.Outcome, adj.Reason = OutcomeExempt, "line has no variant"
		return adj, nil
	}
	if line.Quantity < 1 {
		adj.Outcome, adj.Reason = OutcomeSkipped, "quantity must be positive"
		return adj, nil
	}

	product, err := l.repo.FindProduct(ctx, line.ProductID)
	if err != nil {
		adj.Outcome, adj.Reason = OutcomeFailed, "product lookup failed"
		return adj, fmt.Errorf("load product %s: %w", line.ProductID, err)
	}
	if product == nil {
		adj.Outcome, adj.Reason = OutcomeSkipped, "product not found"
		return adj, nil
	}
	if len(product.Variants) == 0 {
		adj.Outcome, adj.Reason = OutcomeExempt, "product tracks no variants"
		return adj, nil
	}
	if findVariant(product, *line.VariantID) == nil {
		adj.Outcome, adj.Reason = OutcomeSkipped, "variant not found"
		return adj, nil
	}

	ok, err := l.repo.DecrementFloor(ctx, line.ProductID, *line.VariantID, line.Quantity)
	if err != nil {
		adj.Outcome, adj.Reason = OutcomeFailed, "decrement failed"
		return adj, fmt.Errorf("decrement variant %s: %w", *line.VariantID, err)
	}
	if !ok {
		adj.Outcome, adj.Reason = OutcomeSkipped, "variant not found"
		return adj, nil
	}
	adj.Outcome, adj.VariantID = OutcomeApplied, line.VariantID
	return adj, nil
}

func (l *ledger) Release(ctx context.Context, lines []Line, opts ReleaseOptions) ([]Adjustment, error) {
	results := make([]Adjustment, 0, len(lines))
	var errs error
	for _, line := range lines {
		adj, err := l.releaseLine(ctx, line, opts)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		l.record(ctx, opRelease, adj)
		results = append(results, adj)
	}
	return results, errs
}

func (l *ledger) releaseLine(ctx context.Context, line Line, opts ReleaseOptions) (Adjustment, error) {
	adj := Adjustment{Line: line}
	if line.VariantID == nil {
		adj.Outcome, adj.Reason = OutcomeExempt, "line has no variant"
		return adj, nil
	}
	if line.Quantity < 1 {
		adj.Outcome, adj.Reason = OutcomeSkipped, "quantity must be positive"
		return adj, nil
	}

	product, err := l.repo.FindProduct(ctx, line.ProductID)
	if err != nil {
		adj.Outcome, adj.Reason = OutcomeFailed, "product lookup failed"
		return adj, fmt.Errorf("load product %s: %w", line.ProductID, err)
	}
	if product == nil {
		adj.Outcome, adj.Reason = OutcomeSkipped, "product not found"
		return adj, nil
	}

	target := line.VariantID
	if findVariant(product, *line.VariantID) == nil {
		if !opts.FallbackToDefault {
			adj.Outcome, adj.Reason = OutcomeSkipped, "variant not found"
			return adj, nil
		}
		bucket, err := l.repo.EnsureDefaultVariant(ctx, product)
		if err != nil {
			adj.Outcome, adj.Reason = OutcomeFailed, "default bucket unavailable"
			return adj, fmt.Errorf("default variant for product %s: %w", product.ID, err)
		}
		target = &bucket.ID
		adj.Reason = "restocked into default variant"
	}

	ok, err := l.repo.Increment(ctx, line.ProductID, *target, line.Quantity)
	if err != nil {
		adj.Outcome, adj.Reason = OutcomeFailed, "increment failed"
		return adj, fmt.Errorf("increment variant %s: %w", *target, err)
	}
	if !ok {
		adj.Outcome, adj.Reason = OutcomeSkipped, "variant not found"
		return adj, nil
	}
	adj.Outcome, adj.VariantID = OutcomeApplied, target
	return adj, nil
}

func (l *ledger) record(ctx context.Context, op string, adj Adjustment) {
	l.metrics.IncInventory(op, string(adj.Outcome))
	if adj.Outcome != OutcomeSkipped && adj.Outcome != OutcomeFailed {
		return
	}
	fields := map[string]any{
		"op":         op,
		"product_id": adj.Line.ProductID.String(),
		"quantity":   adj.Line.Quantity,
		"reason":     adj.Reason,
	}
	if adj.Line.VariantID != nil {
		fields["variant_id"] = adj.Line.VariantID.String()
	}
	l.logg.Warn(l.logg.WithFields(ctx, fields), "inventory line not adjusted")
}

func findVariant(product *models.Product, variantID uuid.UUID) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}
