package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/resale-backend/api/middleware"
	"github.com/angelmondragon/resale-backend/api/responses"
	"github.com/angelmondragon/resale-backend/api/validators"
	"github.com/angelmondragon/resale-backend/internal/fulfillment"
	internalorders "github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/pagination"
)

const maxTrackingNumberLength = 64

type orderLister interface {
	List(ctx context.Context, query internalorders.ListQuery) (*internalorders.OrderList, error)
}

type orderTracker interface {
	Track(ctx context.Context, query internalorders.TrackQuery) (*internalorders.TrackingView, error)
}

// BuyerList returns the caller's own orders, newest first.
func BuyerList(svc orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required"))
			return
		}
		query, err := pageQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query.UserID = &userID
		writeList(w, r, svc, query, logg)
	}
}

// SellerList returns orders containing at least one of the caller's items.
func SellerList(svc orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required"))
			return
		}
		query, err := pageQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := applyStatusFilters(r, &query); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query.SellerID = &sellerID
		writeList(w, r, svc, query, logg)
	}
}

// AdminList returns every order, optionally filtered by status and payment method.
func AdminList(svc orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := pageQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := applyStatusFilters(r, &query); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_method")); raw != "" {
			method, err := enums.ParsePaymentMethod(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method"))
				return
			}
			query.PaymentMethod = &method
		}
		writeList(w, r, svc, query, logg)
	}
}

// Track is the anonymous order lookup by id or tracking number.
func Track(svc orderTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.QueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := internalorders.TrackQuery{
			OrderID:        orderID,
			TrackingNumber: validators.QueryText(r, "tracking_number", maxTrackingNumberLength),
		}

		view, err := svc.Track(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type processRequest struct {
	TrackingNumber *string `json:"tracking_number,omitempty" validate:"omitempty,max=64"`
	IsPickup       *bool   `json:"is_pickup,omitempty"`
}

// Process moves an order to processing on behalf of a seller or admin.
func Process(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, actor, err := transitionTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload processRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkProcessing(r.Context(), fulfillment.ProcessInput{
			OrderID:        orderID,
			Actor:          actor,
			TrackingNumber: payload.TrackingNumber,
			IsPickup:       payload.IsPickup,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

// Cancel cancels an order that has not started processing.
func Cancel(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, actor, err := transitionTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), fulfillment.CancelInput{OrderID: orderID, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

func transitionTarget(r *http.Request) (uuid.UUID, fulfillment.Actor, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, fulfillment.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	rawOrderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if rawOrderID == "" {
		return uuid.Nil, fulfillment.Actor{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return uuid.Nil, fulfillment.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, fulfillment.Actor{UserID: userID, Role: middleware.RoleFromContext(r.Context())}, nil
}

func pageQuery(r *http.Request) (internalorders.ListQuery, error) {
	limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internalorders.ListQuery{}, err
	}
	cursor, err := pagination.ParseCursor(validators.QueryText(r, "cursor", 0))
	if err != nil {
		return internalorders.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return internalorders.ListQuery{Limit: limit, Cursor: cursor}, nil
}

func applyStatusFilters(r *http.Request, query *internalorders.ListQuery) error {
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		query.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("fulfillment_status")); raw != "" {
		status, err := enums.ParseFulfillmentStatus(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment_status")
		}
		query.FulfillmentStatus = &status
	}
	return nil
}

func writeList(w http.ResponseWriter, r *http.Request, svc orderLister, query internalorders.ListQuery, logg *logger.Logger) {
	list, err := svc.List(r.Context(), query)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, list)
}
