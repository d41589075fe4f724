package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodStripe Method = "stripe"
	MethodPayPal Method = "paypal"
)

// Result is the one shape both provider variants normalize into. Everything
// downstream of the gateway dispatch is variant-agnostic.
type Result struct {
	Success   bool            `json:"success"`
	PaymentID string          `json:"paymentId"`
	Method    Method          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

// ErrGatewayUnavailable covers transport failures and timeouts talking to a
// provider. Safe for the customer to retry manually; never retried here.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// RejectedError carries the provider's decline reason so the customer can
// self-correct (try another card, re-approve the payment).
type RejectedError struct {
	Provider Method
	Reason   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected payment: %s", e.Provider, e.Reason)
}

type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ChargeRequest carries what either variant needs to settle a payment.
// Token belongs to the direct-charge variant; PaymentID/PayerID to the
// redirect variant's execute phase.
type ChargeRequest struct {
	Method    Method
	Amount    decimal.Decimal
	Currency  string
	UserID    string
	Items     []Item
	Token     string
	PaymentID string
	PayerID   string
}

type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (Result, error)
}

// Dispatcher picks the provider variant once, at the top of the pipeline.
type Dispatcher struct {
	Stripe Charger
	PayPal Charger
}

func (d *Dispatcher) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	switch req.Method {
	case MethodStripe:
		return d.Stripe.Charge(ctx, req)
	case MethodPayPal:
		return d.PayPal.Charge(ctx, req)
	default:
		return Result{}, &RejectedError{Provider: req.Method, Reason: "unknown payment method"}
	}
}

// MinorUnits converts a decimal amount into the processor's minor unit
// (cents for USD): round(amount * 100), half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func orDefault(currency, def string) string {
	if currency == "" {
		return def
	}
	return currency
}
