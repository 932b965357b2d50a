// Package asaas клиент REST API платёжного шлюза Asaas: клиенты, подписки, платежи.
//
// Исходящие запросы ограничиваются по частоте и оборачиваются в span'ы
// OpenTelemetry. Повторных попыток клиент не делает.
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/buscaaqui/internal/config"
)

const pageSize = 100

// Client клиент API шлюза.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	log        *slog.Logger
}

// NewClient создаёт клиента по настройкам шлюза.
func NewClient(cfg config.Asaas, log *slog.Logger) *Client {
	rps := rate.Limit(cfg.RequestsPerSec)
	if cfg.RequestsPerSec <= 0 {
		rps = rate.Inf
	}
	burst := cfg.RequestsBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rps, burst),
		tracer:     otel.Tracer("github.com/magabrotheeeer/buscaaqui/internal/asaas"),
		log:        log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "asaas "+method+" "+spanPath(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "buscaaqui")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Warn("failed to close response body", slog.String("error", closeErr.Error()))
		}
	}()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// spanPath убирает id из пути, чтобы имена span'ов не разрастались.
func spanPath(path string) string {
	path, _, _ = strings.Cut(path, "?")
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.Contains(p, "_") {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// CreateCustomer создаёт клиента.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	const op = "asaas.CreateCustomer"
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// GetCustomer возвращает клиента по id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	const op = "asaas.GetCustomer"
	var out Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// CreateSubscription создаёт подписку клиента.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	const op = "asaas.CreateSubscription"
	var out Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// GetSubscription возвращает подписку по id.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	const op = "asaas.GetSubscription"
	var out Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// ListSubscriptions возвращает все подписки клиента, проходя по страницам.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	const op = "asaas.ListSubscriptions"
	var result []Subscription
	for offset := 0; ; offset += pageSize {
		q := url.Values{}
		q.Set("customer", customerID)
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page listResponse[Subscription]
		if err := c.do(ctx, http.MethodGet, "/subscriptions?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			return result, nil
		}
	}
}

// CancelSubscription удаляет подписку в шлюзе. Будущие списания отменяются.
func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	const op = "asaas.CancelSubscription"
	if err := c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptionPayments возвращает платежи подписки.
func (c *Client) ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]Payment, error) {
	const op = "asaas.ListSubscriptionPayments"
	var page listResponse[Payment]
	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/payments?limit=" + strconv.Itoa(pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return page.Data, nil
}
