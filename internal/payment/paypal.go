package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PayPalGateway is the redirect-settlement variant. CreatePayment registers
// a pending payment and yields the approval URL the customer is sent to;
// Charge executes an approved payment after the provider redirects the
// customer back. Between the two calls the payment lives in a pending state
// owned by the provider, not by us; an abandoned approval needs no cleanup
// on our side.
type PayPalGateway struct {
	APIURL    string
	ClientID  string
	Secret    string
	ReturnURL string
	CancelURL string
	HTTP      *http.Client
	Log       *zap.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPayPalGateway(apiURL, clientID, secret, returnURL, cancelURL string, log *zap.Logger) *PayPalGateway {
	return &PayPalGateway{
		APIURL:    apiURL,
		ClientID:  clientID,
		Secret:    secret,
		ReturnURL: returnURL,
		CancelURL: cancelURL,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		Log:       log,
	}
}

// Intent is the created-but-not-yet-approved payment handed back to the
// client, which redirects the customer to ApprovalURL.
type Intent struct {
	PaymentID   string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
}

type paypalAmount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type paypalPaymentResp struct {
	ID           string `json:"id"`
	State        string `json:"state"`
	Links        []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	Transactions []struct {
		Amount paypalAmount `json:"amount"`
	} `json:"transactions"`
	Message string `json:"message"`
}

func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && time.Now().Before(g.tokenExp) {
		return g.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.APIURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("paypal token request: %w", err)
	}
	req.SetBasicAuth(g.ClientID, g.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token: %w", ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token status %d: %w", resp.StatusCode, ErrGatewayUnavailable)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("paypal token response: %w", ErrGatewayUnavailable)
	}

	g.token = body.AccessToken
	g.tokenExp = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return g.token, nil
}

// CreatePayment registers a pending payment with the provider. No money
// moves and no stock is reserved for it.
func (g *PayPalGateway) CreatePayment(ctx context.Context, amount decimal.Decimal, currency string, items []Item) (Intent, error) {
	currency = strings.ToUpper(orDefault(currency, "USD"))

	type paypalItem struct {
		Name     string `json:"name"`
		SKU      string `json:"sku"`
		Price    string `json:"price"`
		Currency string `json:"currency"`
		Quantity int    `json:"quantity"`
	}
	reqItems := make([]paypalItem, 0, len(items))
	for _, it := range items {
		reqItems = append(reqItems, paypalItem{
			Name:     it.Name,
			SKU:      it.ID,
			Price:    it.Price.StringFixed(2),
			Currency: currency,
			Quantity: it.Quantity,
		})
	}

	payload := map[string]any{
		"intent": "sale",
		"payer":  map[string]string{"payment_method": "paypal"},
		"redirect_urls": map[string]string{
			"return_url": g.ReturnURL,
			"cancel_url": g.CancelURL,
		},
		"transactions": []map[string]any{{
			"item_list":   map[string]any{"items": reqItems},
			"amount":      paypalAmount{Currency: currency, Total: amount.StringFixed(2)},
			"description": "E-commerce purchase",
		}},
	}

	var body paypalPaymentResp
	if err := g.post(ctx, "/v1/payments/payment", payload, &body); err != nil {
		return Intent{}, err
	}

	for _, l := range body.Links {
		if l.Rel == "approval_url" {
			return Intent{PaymentID: body.ID, ApprovalURL: l.Href}, nil
		}
	}
	return Intent{}, &RejectedError{Provider: MethodPayPal, Reason: "no approval URL in provider response"}
}

// Charge executes an approved payment. The provider rejects payments that
// are invalid, expired, or already executed.
func (g *PayPalGateway) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	if req.PaymentID == "" || req.PayerID == "" {
		return Result{}, &RejectedError{Provider: MethodPayPal, Reason: "payment ID and payer ID are required"}
	}
	currency := strings.ToUpper(orDefault(req.Currency, "USD"))

	payload := map[string]any{
		"payer_id": req.PayerID,
		"transactions": []map[string]any{{
			"amount": paypalAmount{Currency: currency, Total: req.Amount.StringFixed(2)},
		}},
	}

	var body paypalPaymentResp
	if err := g.post(ctx, "/v1/payments/payment/"+req.PaymentID+"/execute", payload, &body); err != nil {
		return Result{}, err
	}

	settled := req.Amount
	if len(body.Transactions) > 0 {
		if amt, err := decimal.NewFromString(body.Transactions[0].Amount.Total); err == nil {
			settled = amt
		}
	}

	return Result{
		Success:   true,
		PaymentID: body.ID,
		Method:    MethodPayPal,
		Amount:    settled,
		Status:    body.State,
	}, nil
}

func (g *PayPalGateway) post(ctx context.Context, path string, payload any, out *paypalPaymentResp) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("paypal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.APIURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(req)
	if err != nil {
		g.Log.Error("paypal transport failure", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("paypal %s: %w", path, ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("paypal response: %w", ErrGatewayUnavailable)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		g.Log.Error("paypal server error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("paypal %s: %w", path, ErrGatewayUnavailable)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		g.Log.Warn("paypal rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", rejectReason(out)))
		return &RejectedError{Provider: MethodPayPal, Reason: rejectReason(out)}
	}
	return nil
}

func rejectReason(r *paypalPaymentResp) string {
	if r.Message != "" {
		return r.Message
	}
	return "payment could not be processed"
}
