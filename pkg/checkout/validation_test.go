package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
)

func TestValidateLines_NoViolations(t *testing.T) {
	lines := []LineInput{
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(0)},
		{ProductID: uuid.New(), Quantity: 3, UnitPrice: decimal.RequireFromString("9.50")},
	}
	if err := ValidateLines(lines); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateLines_Empty(t *testing.T) {
	err := ValidateLines(nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateLines_Violations(t *testing.T) {
	lines := []LineInput{
		{ProductID: uuid.New(), Quantity: 0, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: uuid.Nil, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(-1)},
	}
	err := ValidateLines(lines)
	if err == nil {
		t.Fatalf("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map")
	}
	violations, ok := details["violations"].([]LineViolation)
	if !ok || len(violations) != 3 {
		t.Fatalf("expected 3 violations, got %#v", details["violations"])
	}
	if violations[1].Reason != "product id required" {
		t.Fatalf("unexpected reason %q", violations[1].Reason)
	}
}

func TestValidateLines_RejectsSubCentPrice(t *testing.T) {
	lines := []LineInput{
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("19.99")},
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("10.005")},
	}
	err := ValidateLines(lines)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	violations := typed.Details().(map[string]any)["violations"].([]LineViolation)
	if len(violations) != 1 || violations[0].Index != 1 {
		t.Fatalf("expected one violation on line 1, got %#v", violations)
	}
}

func TestRedirectBaseURL(t *testing.T) {
	if _, err := RedirectBaseURL("https://shop.example.com"); err != nil {
		t.Fatalf("expected valid url, got %v", err)
	}
	for _, raw := range []string{"", "shop.example.com", "ftp://shop.example.com", "/relative"} {
		_, err := RedirectBaseURL(raw)
		if !pkgerrors.IsCode(err, pkgerrors.CodeConfiguration) {
			t.Fatalf("expected configuration error for %q, got %v", raw, err)
		}
	}
}
