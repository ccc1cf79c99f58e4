package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
	"github.com/google/uuid"
)

const defaultNotifyTimeout = 5 * time.Second

// Notifier sends the customer message for an order event. It never fails the
// caller; the return value reports whether a message left the process.
type Notifier interface {
	Send(ctx context.Context, kind enums.NotificationKind, order *models.Order) bool
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

type outletLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Outlet, error)
}

// DispatcherParams wires the notification dispatcher.
type DispatcherParams struct {
	Gateway Gateway
	Users   userLookup
	Outlets outletLookup
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
	Timeout time.Duration
}

// Dispatcher resolves the customer contact, renders the template and hands the
// message to the configured gateway.
type Dispatcher struct {
	gateway Gateway
	users   userLookup
	outlets outletLookup
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	timeout time.Duration
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("notification gateway required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users lookup required")
	}
	if params.Outlets == nil {
		return nil, fmt.Errorf("outlets lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &Dispatcher{
		gateway: params.Gateway,
		users:   params.Users,
		outlets: params.Outlets,
		logg:    params.Logger,
		metrics: params.Metrics,
		timeout: timeout,
	}, nil
}

func (d *Dispatcher) Send(ctx context.Context, kind enums.NotificationKind, order *models.Order) bool {
	if order == nil {
		return false
	}
	ctx = d.logg.WithFields(d.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"notification": string(kind),
	})

	to, err := d.resolveRecipient(ctx, order)
	if err != nil {
		d.logg.Error(ctx, "notification contact lookup failed", err)
		d.metrics.IncNotification(string(kind), "failed")
		return false
	}
	if to.Email == "" {
		d.logg.Warn(ctx, "notification skipped: no contact email")
		d.metrics.IncNotification(string(kind), "skipped")
		return false
	}
	ctx = d.logg.WithField(ctx, "to", to.Email)

	subject, text, html, err := Render(kind, d.templateData(ctx, order, to))
	if err != nil {
		d.logg.Error(ctx, "notification render failed", err)
		d.metrics.IncNotification(string(kind), "failed")
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err = d.gateway.Notify(sendCtx, Message{
		Kind:    kind,
		OrderID: order.ID,
		To:      to,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		d.logg.Error(d.logg.WithField(ctx, "error_code", errorCode(err)), "notification dispatch failed", err)
		d.metrics.IncNotification(string(kind), "failed")
		return false
	}
	d.metrics.IncNotification(string(kind), "sent")
	d.logg.Info(ctx, "notification sent")
	return true
}

func (d *Dispatcher) resolveRecipient(ctx context.Context, order *models.Order) (Recipient, error) {
	if order.UserID != nil {
		user, err := d.users.FindByID(ctx, *order.UserID)
		if err != nil {
			return Recipient{}, err
		}
		if user == nil {
			return Recipient{}, nil
		}
		return Recipient{Name: user.Name, Email: strings.TrimSpace(user.Email), Phone: user.Phone}, nil
	}
	if order.GuestContact != nil {
		c := order.GuestContact.Normalize()
		return Recipient{Name: c.Name, Email: c.Email, Phone: c.Phone}, nil
	}
	return Recipient{}, nil
}

// templateData loads seller and outlet details. Lookup failures degrade the
// message instead of blocking it.
func (d *Dispatcher) templateData(ctx context.Context, order *models.Order, to Recipient) TemplateData {
	data := TemplateData{
		CustomerName: to.Name,
		OrderID:      order.ID.String(),
		OrderRef:     orderRef(order.ID),
		Total:        order.Total.StringFixed(2),
		Currency:     strings.ToUpper(order.Currency),
	}
	if data.CustomerName == "" {
		data.CustomerName = "there"
	}
	if order.TrackingNumber != nil {
		data.TrackingNumber = *order.TrackingNumber
	}
	if order.CancellationReason != nil {
		data.CancelReason = strings.ReplaceAll(string(*order.CancellationReason), "_", " ")
	}
	if !order.IsPickup() && order.ShippingAddress != nil {
		data.ShippingTo = order.ShippingAddress.OneLine()
	}

	sellerNames := d.sellerNames(ctx, order)
	for _, item := range order.Items {
		data.Items = append(data.Items, ItemData{
			Name:       item.ProductName,
			SellerName: sellerNames[item.SellerID],
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			LineTotal:  item.LineTotal().StringFixed(2),
		})
	}

	if order.OutletID != nil {
		outlet, err := d.outlets.FindByID(ctx, *order.OutletID)
		if err != nil {
			d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "notification outlet lookup failed")
		} else if outlet != nil {
			od := &OutletData{Name: outlet.Name, Address: outlet.Address.OneLine()}
			if outlet.Phone != nil {
				od.Phone = *outlet.Phone
			}
			if outlet.OpeningHours != nil {
				od.Hours = *outlet.OpeningHours
			}
			data.Outlet = od
		}
	}
	return data
}

func (d *Dispatcher) sellerNames(ctx context.Context, order *models.Order) map[uuid.UUID]string {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	sellers, err := d.users.FindByIDs(ctx, ids)
	if err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "notification seller lookup failed")
		return names
	}
	for _, s := range sellers {
		names[s.ID] = s.Name
	}
	return names
}

func orderRef(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func errorCode(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "UNKNOWN"
}
