package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
)

// priceScale matches the numeric(12,2) money columns.
const priceScale = 2

// LineInput is a cart line as submitted by the storefront.
type LineInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineViolation describes why a submitted line was rejected.
type LineViolation struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"product_id,omitempty"`
	Reason    string    `json:"reason"`
}

// ValidateLines ensures the checkout has at least one well-formed line.
func ValidateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one item")
	}
	var violations []LineViolation
	for i, line := range lines {
		switch {
		case line.ProductID == uuid.Nil:
			violations = append(violations, LineViolation{Index: i, Reason: "product id required"})
		case line.Quantity < 1:
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: "quantity must be at least 1"})
		case line.UnitPrice.IsNegative():
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: "unit price must not be negative"})
		case !line.UnitPrice.Equal(line.UnitPrice.Round(priceScale)):
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: "unit price must have at most 2 decimal places"})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d checkout item(s) invalid", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// RedirectBaseURL parses the configured storefront origin used for processor
// redirects. It must be an absolute http(s) URL.
func RedirectBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout base url not configured")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "checkout base url invalid")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout base url must be an absolute http(s) url")
	}
	return u, nil
}
