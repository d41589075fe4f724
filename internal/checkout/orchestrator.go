package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/catalog"
	"github.com/rizkyfp/go-storefront/internal/inventory"
	kafkax "github.com/rizkyfp/go-storefront/internal/kafka"
	"github.com/rizkyfp/go-storefront/internal/orders"
	"github.com/rizkyfp/go-storefront/internal/payment"
)

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Request is one checkout attempt. Every invocation is a fresh attempt;
// duplicate-submission protection belongs to the client-token layer above.
type Request struct {
	UserID          string
	Items           []Line
	ShippingAddress orders.ShippingAddress

	Method    payment.Method
	Currency  string
	Token     string
	PaymentID string
	PayerID   string
}

// Catalog is the read side used for pricing. The orchestrator never decides
// stock sufficiency from it; that is the ledger's call.
type Catalog interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

type Invalidator interface {
	InvalidateProducts(ctx context.Context) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Orchestrator runs the checkout pipeline:
// validate -> reserve -> charge -> persist -> invalidate.
// Any failure after reservation releases the reserved stock in reverse
// order; nothing in the charge path is ever retried automatically.
type Orchestrator struct {
	Catalog   Catalog
	Ledger    inventory.Ledger
	Gateway   payment.Charger
	Store     orders.Store
	Cache     Invalidator
	Settled   Publisher
	Incidents Publisher
	Service   string
	Log       *zap.Logger
}

func (o *Orchestrator) PlaceOrder(ctx context.Context, req Request) (*orders.Order, error) {
	// Validating: price every line from the catalog and compute the total
	// server-side. A client-supplied total is never part of the request.
	if len(req.Items) == 0 {
		return nil, &ValidationError{Msg: "order must contain at least one item"}
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	items := make([]orders.Item, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Msg: fmt.Sprintf("invalid quantity for product %s", line.ProductID)}
		}
		p, err := o.Catalog.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: line.ProductID}
			}
			return nil, fmt.Errorf("validate product %s: %w", line.ProductID, err)
		}
		items = append(items, orders.Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
	}
	total := orders.Total(items)

	// Reserving: each line is an atomic check-and-set at the ledger. On the
	// first failure, everything reserved so far is released in reverse
	// order; a rejected checkout leaves no reservation standing.
	reserved := make([]Line, 0, len(req.Items))
	for _, line := range req.Items {
		if err := o.Ledger.ReserveAndDecrement(ctx, line.ProductID, line.Quantity); err != nil {
			o.releaseReserved(reserved)
			return nil, err
		}
		reserved = append(reserved, line)
	}

	// Charging: one dispatch to the selected provider variant with the
	// validated total. Stock is never held against an unpaid order.
	res, err := o.Gateway.Charge(ctx, payment.ChargeRequest{
		Method:    req.Method,
		Amount:    total,
		Currency:  req.Currency,
		UserID:    req.UserID,
		Items:     toPaymentItems(items),
		Token:     req.Token,
		PaymentID: req.PaymentID,
		PayerID:   req.PayerID,
	})
	if err != nil {
		o.releaseReserved(reserved)
		return nil, err
	}
	if !res.Amount.Equal(total) {
		// Money moved for the wrong amount. Reject the order, give the
		// stock back, and hand the mismatch to reconciliation.
		o.releaseReserved(reserved)
		o.publishIncident(req.UserID, "", res,
			fmt.Sprintf("settled amount %s does not match order total %s", res.Amount, total))
		o.Log.Error("settlement amount mismatch",
			zap.String("user_id", req.UserID),
			zap.String("payment_id", res.PaymentID),
			zap.String("settled", res.Amount.String()),
			zap.String("expected", total.String()))
		return nil, fmt.Errorf("payment %s: %w", res.PaymentID, ErrSettlementInconsistency)
	}

	// Persisting: the aggregate snapshots prices at purchase time and is
	// immutable apart from fulfillment status transitions.
	ord := &orders.Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		PaymentID:       res.PaymentID,
		Status:          orders.StatusProcessing,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.Store.Create(ctx, ord); err != nil {
		o.releaseReserved(reserved)
		o.publishIncident(req.UserID, ord.ID, res, "order persistence failed: "+err.Error())
		o.Log.Error("settlement inconsistency: charge confirmed, order not recorded",
			zap.String("order_id", ord.ID),
			zap.String("user_id", req.UserID),
			zap.String("payment_id", res.PaymentID),
			zap.String("amount", total.String()),
			zap.Error(err))
		return nil, fmt.Errorf("order %s payment %s: %w", ord.ID, res.PaymentID, ErrSettlementInconsistency)
	}

	// Invalidating: stale listings are a performance problem, not a
	// correctness one. Log and move on.
	if o.Cache != nil {
		if err := o.Cache.InvalidateProducts(ctx); err != nil {
			o.Log.Warn("product cache invalidation failed",
				zap.String("order_id", ord.ID), zap.Error(err))
		}
	}

	o.publishSettled(ord, res)
	return ord, nil
}

// releaseReserved compensates in reverse reservation order. It runs on a
// detached context: the caller disconnecting must not leak stock.
func (o *Orchestrator) releaseReserved(reserved []Line) {
	if len(reserved) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(reserved) - 1; i >= 0; i-- {
		line := reserved[i]
		if err := o.Ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			o.Log.Error("failed to release reservation",
				zap.String("product_id", line.ProductID),
				zap.Int("qty", line.Quantity),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) publishSettled(ord *orders.Order, res payment.Result) {
	if o.Settled == nil {
		return
	}
	o.publish(o.Settled, EventOrderSettled, ord.ID, OrderSettledPayload{
		OrderID:   ord.ID,
		UserID:    ord.UserID,
		PaymentID: res.PaymentID,
		Method:    string(res.Method),
		Total:     ord.TotalAmount.String(),
	})
}

func (o *Orchestrator) publishIncident(userID, orderID string, res payment.Result, reason string) {
	if o.Incidents == nil {
		return
	}
	correlation := orderID
	if correlation == "" {
		// No order was ever created; key the event by the charge instead.
		correlation = res.PaymentID
	}
	o.publish(o.Incidents, EventSettlementIncident, correlation, SettlementIncidentPayload{
		OrderID:   orderID,
		UserID:    userID,
		PaymentID: res.PaymentID,
		Method:    string(res.Method),
		Amount:    res.Amount.String(),
		Reason:    reason,
	})
}

func (o *Orchestrator) publish(p Publisher, eventType, orderID string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      o.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func toPaymentItems(items []orders.Item) []payment.Item {
	out := make([]payment.Item, 0, len(items))
	for _, it := range items {
		out = append(out, payment.Item{
			ID:       it.ProductID,
			Name:     it.Name,
			Price:    it.UnitPrice,
			Quantity: it.Quantity,
		})
	}
	return out
}
