package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/checkout"
	kafkax "github.com/rizkyfp/go-storefront/internal/kafka"
	"github.com/rizkyfp/go-storefront/internal/redisx"
)

// Recorder persists settlement incidents (a confirmed charge with no order
// behind it) so operators can reconcile them against the provider. It is a
// recording sink only; it never re-attempts the charge or the order write.
type Recorder struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
	Log   *zap.Logger
}

// HandleIncident runs as a consumer handler on the incident topic.
func (r *Recorder) HandleIncident(ctx context.Context, m kafkago.Message) error {
	var env checkout.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != checkout.EventSettlementIncident {
		return nil
	}

	// Event-id dedup: consumer-group rebalances can redeliver.
	dkey := fmt.Sprintf(redisx.KeyDedup, "reconcile", env.EventID)
	if seen, _ := redisx.Exists(ctx, r.Redis, dkey); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[checkout.SettlementIncidentPayload](env.Payload)
	if err != nil {
		return err
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO settlement_incidents(event_id, order_id, user_id, payment_id, method, amount, reason, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (event_id) DO NOTHING`,
		env.EventID, p.OrderID, p.UserID, p.PaymentID, p.Method, p.Amount, p.Reason, env.OccurredAt)
	if err != nil {
		return fmt.Errorf("record incident %s: %w", env.EventID, err)
	}

	_ = r.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	r.Log.Warn("settlement incident recorded",
		zap.String("event_id", env.EventID),
		zap.String("order_id", p.OrderID),
		zap.String("payment_id", p.PaymentID),
		zap.String("amount", p.Amount),
		zap.String("reason", p.Reason))
	return nil
}
