package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resale-backend/api/middleware"
	"github.com/angelmondragon/resale-backend/api/responses"
	"github.com/angelmondragon/resale-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/resale-backend/internal/checkout"
	"github.com/angelmondragon/resale-backend/internal/orders"
	pkgcheckout "github.com/angelmondragon/resale-backend/pkg/checkout"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/types"
)

type checkoutItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type cardCheckoutRequest struct {
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Guest           *types.GuestContact   `json:"guest,omitempty" validate:"omitempty"`
	DeliveryMethod  enums.DeliveryMethod  `json:"delivery_method,omitempty"`
	OutletID        *uuid.UUID            `json:"outlet_id,omitempty"`
	ShippingAddress *types.Address        `json:"shipping_address,omitempty" validate:"omitempty"`
}

type pickupCheckoutRequest struct {
	Items    []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Guest    *types.GuestContact   `json:"guest,omitempty" validate:"omitempty"`
	OutletID *uuid.UUID            `json:"outlet_id" validate:"required"`
	Total    *decimal.Decimal      `json:"total,omitempty"`
}

// CheckoutCard opens a hosted card payment for the submitted cart and returns
// the redirect target.
func CheckoutCard(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload cardCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.DeliveryMethod != "" && !payload.DeliveryMethod.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method"))
			return
		}

		result, err := svc.StartCardCheckout(r.Context(), checkoutsvc.CardCheckoutInput{
			Customer:        customerFromRequest(r, payload.Guest),
			Items:           toLineInputs(payload.Items),
			DeliveryMethod:  payload.DeliveryMethod,
			OutletID:        payload.OutletID,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutPickup places a cash order collected at an outlet.
func CheckoutPickup(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload pickupCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlacePickupOrder(r.Context(), checkoutsvc.PickupInput{
			Customer:    customerFromRequest(r, payload.Guest),
			Items:       toLineInputs(payload.Items),
			OutletID:    payload.OutletID,
			ClientTotal: payload.Total,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(order))
	}
}

func customerFromRequest(r *http.Request, guest *types.GuestContact) checkoutsvc.Customer {
	if userID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
		return checkoutsvc.Customer{UserID: &userID}
	}
	return checkoutsvc.Customer{Guest: guest}
}

func toLineInputs(items []checkoutItemRequest) []pkgcheckout.LineInput {
	lines := make([]pkgcheckout.LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, pkgcheckout.LineInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}
