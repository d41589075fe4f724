package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/checkout"
	"github.com/rizkyfp/go-storefront/internal/inventory"
	"github.com/rizkyfp/go-storefront/internal/orders"
	"github.com/rizkyfp/go-storefront/internal/payment"
)

type OrdersHandler struct {
	Checkout *checkout.Orchestrator
	Orders   orders.Store
	Log      *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/order/{orderId}", h.getOrder)
		r.Get("/orders/{userId}", h.listOrders)
	})
}

type createOrderReq struct {
	Items           []checkout.Line        `json:"items"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   payment.Method         `json:"paymentMethod"`
	Currency        string                 `json:"currency"`
	Token           string                 `json:"token"`
	PaymentID       string                 `json:"paymentId"`
	PayerID         string                 `json:"payerId"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The charge is a network round-trip; give the pipeline room beyond the
	// usual handler budget.
	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	ord, err := h.Checkout.PlaceOrder(ctx, checkout.Request{
		UserID:          callerID(r),
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		Method:          req.PaymentMethod,
		Currency:        req.Currency,
		Token:           req.Token,
		PaymentID:       req.PaymentID,
		PayerID:         req.PayerID,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   ord,
	})
}

func (h *OrdersHandler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *checkout.ValidationError
		pnf *checkout.ProductNotFoundError
		ise *inventory.InsufficientStockError
		rej *payment.RejectedError
	)
	switch {
	case errors.As(err, &ve):
		writeMessage(w, http.StatusBadRequest, ve.Msg)
	case errors.As(err, &pnf):
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("Product %s not found", pnf.ProductID))
	case errors.Is(err, inventory.ErrProductNotFound):
		writeMessage(w, http.StatusNotFound, "Product not found")
	case errors.As(err, &ise):
		writeMessage(w, http.StatusBadRequest,
			fmt.Sprintf("Insufficient stock for %s. Available: %d", ise.ProductID, ise.Available))
	case errors.As(err, &rej):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Payment processing failed",
			"error":   rej.Reason,
		})
	case errors.Is(err, payment.ErrGatewayUnavailable):
		writeMessage(w, http.StatusBadGateway,
			"Payment provider is unavailable. No charge was made; please try again.")
	case errors.Is(err, checkout.ErrSettlementInconsistency):
		// Retrying could double-charge; steer the customer to support.
		h.Log.Error("checkout settlement inconsistency", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError,
			"Your payment was received but the order could not be finalized. Please contact support; do not retry the payment.")
	default:
		h.Log.Error("create order failed",
			zap.String("user_id", callerID(r)), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error creating order")
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != callerID(r) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Orders.FindByUser(ctx, userID)
	if err != nil {
		h.Log.Error("list orders failed", zap.String("user_id", userID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error fetching orders")
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Orders.FindByID(ctx, orderID, callerID(r))
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, orders.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case err != nil:
		h.Log.Error("get order failed", zap.String("order_id", orderID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error fetching order")
	default:
		writeJSON(w, http.StatusOK, ord)
	}
}
