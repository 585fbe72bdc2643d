package esewa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ProductPrefix = "BOOKSHARE_"

	maxVerifyBody = 64 << 10
)

//go:generate mockgen -source=client.go -destination=mocks/client_mock.go -package=esewamocks

// Gateway builds the hosted checkout form and re-checks a completed payment.
type Gateway interface {
	CheckoutForm(paymentID string, amount decimal.Decimal) models.CheckoutForm
	Verify(ctx context.Context, req VerifyRequest) (bool, error)
}

type VerifyRequest struct {
	Amount    decimal.Decimal
	RefID     string
	ProductID string
}

type Config struct {
	MerchantCode string
	FormURL      string
	VerifyURL    string
	SuccessURL   string
	FailureURL   string
	Timeout      time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// ProductID is the gateway-side identifier of a local payment.
func ProductID(paymentID string) string {
	return ProductPrefix + paymentID
}

// ParsePaymentID extracts the payment id from a gateway product id.
func ParsePaymentID(productID string) (string, error) {
	raw, ok := strings.CutPrefix(productID, ProductPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unknown product id %q", pkgerrors.ErrInvalidInput, productID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed product id %q", pkgerrors.ErrInvalidInput, productID)
	}
	return id.String(), nil
}

// CheckoutForm returns the fields the browser posts to the hosted payment
// page. No service charge, tax or delivery charge is applied.
func (c *Client) CheckoutForm(paymentID string, amount decimal.Decimal) models.CheckoutForm {
	amt := amount.StringFixed(2)
	return models.CheckoutForm{
		Action: c.cfg.FormURL,
		Method: http.MethodPost,
		Fields: map[string]string{
			"amt":   amt,
			"tAmt":  amt,
			"txAmt": "0",
			"psc":   "0",
			"pdc":   "0",
			"scd":   c.cfg.MerchantCode,
			"pid":   ProductID(paymentID),
			"su":    c.cfg.SuccessURL,
			"fu":    c.cfg.FailureURL,
		},
	}
}

// Verify asks the gateway whether the reference id settled the product. The
// gateway answers in plain text; any body mentioning "success" counts.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (ok bool, err error) {
	ctx, span := otel.Tracer("esewa-gateway").Start(ctx, "VerifyPayment")
	span.SetAttributes(attribute.String("pid", req.ProductID), attribute.String("rid", req.RefID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	q := url.Values{}
	q.Set("amt", req.Amount.StringFixed(2))
	q.Set("rid", req.RefID)
	q.Set("pid", req.ProductID)
	q.Set("scd", c.cfg.MerchantCode)

	endpoint := c.cfg.VerifyURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build verification request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		slog.Error("payment verification request failed", "pid", req.ProductID, "error", err)
		return false, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerifyBody))
	if err != nil {
		return false, fmt.Errorf("failed to read verification response: %w", err)
	}
	if resp.StatusCode >= 300 {
		err = fmt.Errorf("verification failed: %s", resp.Status)
		slog.Error("payment verification rejected", "pid", req.ProductID, "status", resp.StatusCode)
		return false, err
	}

	ok = strings.Contains(strings.ToLower(string(body)), "success")
	slog.Info("payment verification answered", "pid", req.ProductID, "rid", req.RefID, "success", ok)
	return ok, nil
}
