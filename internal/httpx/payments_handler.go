package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/payment"
)

// maxChargeAmount bounds a single charge; anything above it is assumed to be
// a client bug rather than a real purchase.
var maxChargeAmount = decimal.NewFromInt(100000)

type PaymentsHandler struct {
	Gateway *payment.Dispatcher
	PayPal  *payment.PayPalGateway
	Log     *zap.Logger
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/payments/charge", h.charge)
		r.Post("/payments/create-paypal-payment", h.createPayPalPayment)
	})
}

type chargeReq struct {
	PaymentMethod payment.Method  `json:"paymentMethod"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Items         []payment.Item  `json:"items"`
	Token         string          `json:"token"`
	PaymentID     string          `json:"paymentId"`
	PayerID       string          `json:"payerId"`
}

func (h *PaymentsHandler) charge(w http.ResponseWriter, r *http.Request) {
	var req chargeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PaymentMethod == "" || len(req.Items) == 0 {
		writeMessage(w, http.StatusBadRequest, "Missing required payment information")
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) || req.Amount.GreaterThan(maxChargeAmount) {
		writeMessage(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	switch req.PaymentMethod {
	case payment.MethodStripe:
		if req.Token == "" {
			writeMessage(w, http.StatusBadRequest, "Stripe token is required")
			return
		}
	case payment.MethodPayPal:
		if req.PaymentID == "" || req.PayerID == "" {
			writeMessage(w, http.StatusBadRequest, "PayPal payment ID and payer ID are required")
			return
		}
	default:
		writeMessage(w, http.StatusBadRequest, `Invalid payment method. Use "stripe" or "paypal"`)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Gateway.Charge(ctx, payment.ChargeRequest{
		Method:    req.PaymentMethod,
		Amount:    req.Amount,
		Currency:  req.Currency,
		UserID:    callerID(r),
		Items:     req.Items,
		Token:     req.Token,
		PaymentID: req.PaymentID,
		PayerID:   req.PayerID,
	})
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Payment processed successfully",
		"payment": res,
	})
}

type createPayPalReq struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Items    []payment.Item  `json:"items"`
}

func (h *PaymentsHandler) createPayPalPayment(w http.ResponseWriter, r *http.Request) {
	var req createPayPalReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) || len(req.Items) == 0 {
		writeMessage(w, http.StatusBadRequest, "Amount and items are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	intent, err := h.PayPal.CreatePayment(ctx, req.Amount, req.Currency, req.Items)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, intent)
}

func (h *PaymentsHandler) writeGatewayError(w http.ResponseWriter, err error) {
	var rej *payment.RejectedError
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Payment processing failed",
			"error":   rej.Reason,
		})
	case errors.Is(err, payment.ErrGatewayUnavailable):
		writeMessage(w, http.StatusBadGateway,
			"Payment provider is unavailable. Please try again.")
	default:
		h.Log.Error("payment processing failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error processing payment")
	}
}
