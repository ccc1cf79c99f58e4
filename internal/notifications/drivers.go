package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/resale-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	DriverLog      = "log"
	DriverSendgrid = "sendgrid"
	DriverPubSub   = "pubsub"
)

// LogGateway writes notifications to the structured log. Used in development.
type LogGateway struct {
	logg *logger.Logger
}

func NewLogGateway(logg *logger.Logger) *LogGateway {
	return &LogGateway{logg: logg}
}

func (g *LogGateway) Notify(ctx context.Context, msg Message) error {
	if g.logg == nil {
		return nil
	}
	ctx = g.logg.WithFields(ctx, map[string]any{
		"order_id":     msg.OrderID.String(),
		"notification": string(msg.Kind),
		"to":           msg.To.Email,
		"subject":      msg.Subject,
	})
	g.logg.Info(ctx, "notification dispatched to log driver")
	return nil
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridGateway delivers notifications as email.
type SendgridGateway struct {
	client   mailSender
	from     string
	fromName string
}

func NewSendgridGateway(cfg config.SendgridConfig) (*SendgridGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from email required")
	}
	return &SendgridGateway{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     cfg.DefaultFrom,
		fromName: cfg.FromName,
	}, nil
}

func (g *SendgridGateway) Notify(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(
		mail.NewEmail(g.fromName, g.from),
		msg.Subject,
		mail.NewEmail(msg.To.Name, msg.To.Email),
		msg.Text,
		msg.HTML,
	)
	email.SetHeader("X-Order-ID", msg.OrderID.String())

	resp, err := g.client.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid request failed")
	}
	if resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, "sendgrid rejected message").
			WithDetails(map[string]any{"status": resp.StatusCode, "body": resp.Body})
	}
	return nil
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type pubsubPublisher struct {
	p *gcppubsub.Publisher
}

func (p pubsubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.p.Publish(ctx, msg)
}

// PubSubGateway hands notifications to the downstream email/SMS worker.
type PubSubGateway struct {
	pub publisher
	now func() time.Time
}

func NewPubSubGateway(p *gcppubsub.Publisher) (*PubSubGateway, error) {
	if p == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubGateway{pub: pubsubPublisher{p: p}, now: time.Now}, nil
}

func (g *PubSubGateway) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification")
	}
	result := g.pub.Publish(ctx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind":       string(msg.Kind),
			"order_id":   msg.OrderID.String(),
			"created_at": g.now().UTC().Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "publisher returned nil result")
	}
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish notification")
	}
	return nil
}

// GatewayDeps carries the clients a driver may need.
type GatewayDeps struct {
	Logger    *logger.Logger
	Sendgrid  config.SendgridConfig
	Publisher func() *gcppubsub.Publisher
}

// NewGateway resolves the configured driver once at startup.
func NewGateway(driver string, deps GatewayDeps) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverLog:
		return NewLogGateway(deps.Logger), nil
	case DriverSendgrid:
		gw, err := NewSendgridGateway(deps.Sendgrid)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case DriverPubSub:
		if deps.Publisher == nil {
			return nil, fmt.Errorf("pubsub publisher required")
		}
		gw, err := NewPubSubGateway(deps.Publisher())
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown notification driver %q", driver)
	}
}
