package checkout

import (
	"encoding/json"
	"time"
)

const (
	TopicOrderSettled       = "order.settled"
	TopicSettlementIncident = "order.settlement.incident"

	EventOrderSettled       = "OrderSettled"
	EventSettlementIncident = "SettlementIncident"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderSettledPayload struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
	Total     string `json:"total"`
}

// SettlementIncidentPayload records a confirmed charge with no durable
// order behind it. Amount is the settled amount as reported by the provider.
type SettlementIncidentPayload struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}

// Partition key = order id, so every event for one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
