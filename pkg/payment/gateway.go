package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/config"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("payment gateway base url is required")
	errLoggerRequired  = errors.New("payment logger is required")
)

// Gateway talks to the external payment service over HTTP. Responses
// are mapped onto domain errors so callers never see transport detail.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logger.Logger
}

// NewGateway validates the config and builds the HTTP provider.
func NewGateway(cfg config.PaymentConfig, logg *logger.Logger) (*Gateway, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.GatewayBaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	return &Gateway{
		baseURL: baseURL,
		apiKey:  cfg.GatewayAPIKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logg,
	}, nil
}

type intentRequest struct {
	OrderID  uuid.UUID       `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type refundRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

func (g *Gateway) CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, currency string) (*Intent, error) {
	var intent Intent
	err := g.post(ctx, "/v1/intents", intentRequest{OrderID: orderID, Amount: amount, Currency: currency}, &intent)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (g *Gateway) Verify(ctx context.Context, reference string) (*CaptureResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	var result CaptureResult
	if err := g.get(ctx, "/v1/captures/"+reference, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *Gateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) error {
	if strings.TrimSpace(reference) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	return g.post(ctx, "/v1/refunds", refundRequest{Reference: reference, Amount: amount}, nil)
}

func (g *Gateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *Gateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out any) error {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment gateway returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment reference not found")
	case resp.StatusCode >= http.StatusBadRequest:
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment gateway rejected request with %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	return nil
}
