package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	domainerrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

const (
	operationCreateOrder = "create_order"
	operationGetOrder    = "get_order"

	defaultTimeout = 5 * time.Second
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "gateway_requests_total",
			Help:      "Total number of payment gateway calls by outcome",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "gateway_request_duration_seconds",
			Help:      "Duration of payment gateway calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

// Config carries credentials and transport settings for the gateway.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	Timeout      time.Duration
	// RPS limits outgoing calls per second; zero disables limiting.
	RPS float64
}

// Client exposes order operations of the payment gateway.
type Client interface {
	CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (*model.GatewayOrder, error)
	GetOrder(ctx context.Context, orderID string) (*model.GatewayOrder, error)
}

// HTTPClient implements Client over the gateway REST API.
type HTTPClient struct {
	baseURL    *url.URL
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

// orderResponse mirrors the order entity returned by the gateway.
type orderResponse struct {
	OrderID          string          `json:"order_id"`
	OrderAmount      float64         `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	OrderStatus      string          `json:"order_status"`
	PaymentSessionID string          `json:"payment_session_id"`
	PaymentMethod    json.RawMessage `json:"payment_method,omitempty"`
}

// NewHTTPClient validates cfg and builds a gateway client.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("gateway credentials must be set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &HTTPClient{
		baseURL: parsed,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// CreateOrder opens a gateway order and returns its payment session.
func (c *HTTPClient) CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (*model.GatewayOrder, error) {
	payload := createOrderRequest{
		OrderID:       req.OrderID,
		OrderAmount:   req.Amount,
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    req.Customer.ID,
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: orderMeta{ReturnURL: req.ReturnURL},
		OrderNote: req.Note,
	}

	var resp orderResponse
	if err := c.do(ctx, operationCreateOrder, http.MethodPost, c.baseURL.JoinPath("pg", "orders"), payload, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// GetOrder fetches the authoritative gateway state of an order.
func (c *HTTPClient) GetOrder(ctx context.Context, orderID string) (*model.GatewayOrder, error) {
	if orderID == "" {
		return nil, domainerrors.InvalidRequest("order id is required")
	}
	if !model.ValidOrderID(orderID) {
		return nil, domainerrors.InvalidRequest("malformed order id")
	}

	endpoint := c.baseURL.JoinPath("pg", "orders", url.PathEscape(orderID))

	var resp orderResponse
	if err := c.do(ctx, operationGetOrder, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *HTTPClient) do(ctx context.Context, operation, method string, endpoint *url.URL, body, out any) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		requestsTotal.WithLabelValues(operation, outcome).Inc()
		requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domainerrors.GatewayError{Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-api-version", c.cfg.APIVersion)
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-client-secret", c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("gateway request failed", slog.String("operation", operation), slog.String("error", err.Error()))
		return &domainerrors.GatewayError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domainerrors.GatewayError{Err: fmt.Errorf("read gateway response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		outcome = "rejected"
		c.logger.Error("gateway rejected request",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(data)),
		)
		return &domainerrors.GatewayError{StatusCode: resp.StatusCode, Body: data}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &domainerrors.GatewayError{Err: fmt.Errorf("decode gateway response: %w", err)}
	}
	outcome = "ok"
	return nil
}

func (r orderResponse) toModel() *model.GatewayOrder {
	return &model.GatewayOrder{
		OrderID:          r.OrderID,
		Amount:           r.OrderAmount,
		Currency:         r.OrderCurrency,
		Status:           r.OrderStatus,
		PaymentSessionID: r.PaymentSessionID,
		PaymentMethod:    r.PaymentMethod,
	}
}

