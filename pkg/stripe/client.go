package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultTimeout = 5 * time.Second

	// MetadataOrderIDKey tags checkout sessions with the local order id.
	MetadataOrderIDKey = "orderId"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
	timeout       time.Duration
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		api:           api,
		environment:   env,
		signingSecret: signingSecret,
		timeout:       timeout,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

// CheckoutLine is one priced line on a hosted checkout page.
type CheckoutLine struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CheckoutSessionInput describes a hosted card checkout for one order.
type CheckoutSessionInput struct {
	OrderID       uuid.UUID
	Currency      string
	Lines         []CheckoutLine
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CreateCheckoutSession opens a hosted payment session tagged with the order id
// in both the metadata and the client reference.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.api.V1CheckoutSessions.Create(ctx, BuildCheckoutSessionParams(in))
}

// GetCheckoutSession retrieves the live state of a checkout session.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.api.V1CheckoutSessions.Retrieve(ctx, id, &stripe.CheckoutSessionRetrieveParams{})
}

// BuildCheckoutSessionParams maps the input onto Stripe's create params.
func BuildCheckoutSessionParams(in CheckoutSessionInput) *stripe.CheckoutSessionCreateParams {
	orderID := in.OrderID.String()
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(orderID),
		Metadata:          map[string]string{MetadataOrderIDKey: orderID},
	}
	if email := strings.TrimSpace(in.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	for _, line := range in.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionCreateLineItemParams{
			Quantity: stripe.Int64(int64(line.Quantity)),
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(ToMinorUnits(line.UnitPrice)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}
	return params
}

// ToMinorUnits converts a decimal amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// OrderIDFromSession resolves the order id from the session metadata, falling
// back to the client reference id.
func OrderIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, bool) {
	if session == nil {
		return uuid.Nil, false
	}
	candidates := []string{session.Metadata[MetadataOrderIDKey], session.ClientReferenceID}
	for _, raw := range candidates {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// SessionPaid reports whether the processor considers the session paid.
func SessionPaid(session *stripe.CheckoutSession) bool {
	if session == nil {
		return false
	}
	return session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}
