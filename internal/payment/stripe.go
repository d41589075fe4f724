package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StripeGateway is the direct-charge variant: one synchronous call
// authorizes and settles using a client-supplied card token. A failed call
// is never retried automatically; a duplicate charge costs more than making
// the customer press the button again.
type StripeGateway struct {
	APIURL    string
	SecretKey string
	HTTP      *http.Client
	Log       *zap.Logger
}

func NewStripeGateway(apiURL, secretKey string, log *zap.Logger) *StripeGateway {
	return &StripeGateway{
		APIURL:    apiURL,
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		Log:       log,
	}
}

type stripeChargeResp struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	if req.Token == "" {
		return Result{}, &RejectedError{Provider: MethodStripe, Reason: "card token is required"}
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(MinorUnits(req.Amount), 10))
	form.Set("currency", strings.ToLower(orDefault(req.Currency, "usd")))
	form.Set("source", req.Token)
	form.Set("description", fmt.Sprintf("Order payment for user %s", req.UserID))
	form.Set("metadata[user_id]", req.UserID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.APIURL+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("stripe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTP.Do(httpReq)
	if err != nil {
		g.Log.Error("stripe transport failure", zap.Error(err))
		return Result{}, fmt.Errorf("stripe charge: %w", ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	var body stripeChargeResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("stripe response: %w", ErrGatewayUnavailable)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		g.Log.Error("stripe server error", zap.Int("status", resp.StatusCode))
		return Result{}, fmt.Errorf("stripe charge: %w", ErrGatewayUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		g.Log.Warn("stripe declined charge",
			zap.Int("status", resp.StatusCode),
			zap.String("reason", body.Error.Message))
		return Result{}, &RejectedError{Provider: MethodStripe, Reason: body.Error.Message}
	}

	return Result{
		Success:   true,
		PaymentID: body.ID,
		Method:    MethodStripe,
		Amount:    decimal.NewFromInt(body.Amount).Div(decimal.NewFromInt(100)),
		Status:    body.Status,
	}, nil
}
