package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bricksync/internal/loader"
	"bricksync/internal/metrics"
	"bricksync/internal/remote"
	"bricksync/internal/sales"

	"go.uber.org/zap"
)

// ReferentialIntegrityError blocks deleting a customer that still has
// sales or payments.
type ReferentialIntegrityError struct {
	Customer string
	Sales    int
	Payments int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("Cannot delete: Found %d sales and %d payments. Delete them first.", e.Sales, e.Payments)
}

type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// API is the subset of the remote client used for writes.
type API interface {
	Get(ctx context.Context, baseURL, resource string, query url.Values) ([]byte, error)
	Post(ctx context.Context, baseURL, resource string, body any) ([]byte, error)
	Delete(ctx context.Context, baseURL, resource, key string) error
}

// Reloader refreshes a view after a successful write.
type Reloader interface {
	Load(ctx context.Context, view loader.View, r loader.Renderer) (loader.Outcome, error)
}

// LogClearer truncates the locally kept log.
type LogClearer interface {
	Clear(ctx context.Context) error
}

type Option func(*Client)

// WithLocalLogs makes ClearLogs truncate logs instead of calling the API.
func WithLocalLogs(logs LogClearer) Option {
	return func(c *Client) { c.logs = logs }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// Client performs create and delete operations against the API and reloads
// the affected view afterwards.
type Client struct {
	resolver Resolver
	api      API
	reloader Reloader
	logs     LogClearer
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func New(resolver Resolver, api API, reloader Reloader, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		resolver: resolver,
		api:      api,
		reloader: reloader,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateCustomer adds a customer by name.
func (c *Client) CreateCustomer(ctx context.Context, name string, r loader.Renderer) (sales.Customer, error) {
	name, err := sales.ValidateCustomerName(name)
	if err != nil {
		return sales.Customer{}, err
	}

	customer := sales.Customer{Name: name}
	err = c.run(ctx, "create_customer", loader.Customers, r, func(ctx context.Context, base string) error {
		body, err := c.api.Post(ctx, base, remote.Customers, customer)
		if err != nil {
			return failure(err, "Failed to add customer")
		}
		c.decodeInto(body, &customer)
		return nil
	})
	if err != nil {
		return sales.Customer{}, err
	}
	c.logger.Info("customer added", zap.String("customer", customer.Name))
	return customer, nil
}

// CreateSale records a sale. The amount is always recomputed locally.
func (c *Client) CreateSale(ctx context.Context, sale sales.Sale, r loader.Renderer) (sales.Sale, error) {
	sale.Normalize()
	if err := sales.ValidateSale(sale); err != nil {
		return sales.Sale{}, err
	}

	err := c.run(ctx, "create_sale", loader.Sales, r, func(ctx context.Context, base string) error {
		body, err := c.api.Post(ctx, base, remote.Sales, sale)
		if err != nil {
			return failure(err, "Failed to add sale")
		}
		c.decodeInto(body, &sale)
		return nil
	})
	if err != nil {
		return sales.Sale{}, err
	}
	c.logger.Info("sale added", zap.String("customer", sale.CustomerName), zap.Float64("amount", sale.Amount))
	return sale, nil
}

// CreatePayment records a payment.
func (c *Client) CreatePayment(ctx context.Context, payment sales.Payment, r loader.Renderer) (sales.Payment, error) {
	payment.Normalize()
	if err := sales.ValidatePayment(payment); err != nil {
		return sales.Payment{}, err
	}

	err := c.run(ctx, "create_payment", loader.Payments, r, func(ctx context.Context, base string) error {
		body, err := c.api.Post(ctx, base, remote.Payments, payment)
		if err != nil {
			return failure(err, "Failed to add payment")
		}
		c.decodeInto(body, &payment)
		return nil
	})
	if err != nil {
		return sales.Payment{}, err
	}
	c.logger.Info("payment added", zap.String("customer", payment.CustomerName), zap.Float64("amount", payment.PaymentReceived))
	return payment, nil
}

// DeleteCustomer removes a customer that has no sales or payments left.
func (c *Client) DeleteCustomer(ctx context.Context, key string, r loader.Renderer) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &sales.ValidationError{Fields: map[string]string{"Customer Name": "required"}}
	}

	return c.run(ctx, "delete_customer", loader.Customers, r, func(ctx context.Context, base string) error {
		salesCount, err := c.countRecords(ctx, base, remote.Sales, key)
		if err != nil {
			return failure(err, "Failed to check customer sales")
		}
		paymentCount, err := c.countRecords(ctx, base, remote.Payments, key)
		if err != nil {
			return failure(err, "Failed to check customer payments")
		}
		if salesCount > 0 || paymentCount > 0 {
			c.logger.Warn("customer still referenced",
				zap.String("customer", key),
				zap.Int("sales", salesCount),
				zap.Int("payments", paymentCount),
			)
			return &ReferentialIntegrityError{Customer: key, Sales: salesCount, Payments: paymentCount}
		}

		if err := c.api.Delete(ctx, base, remote.Customers, key); err != nil {
			return failure(err, "Failed to delete customer")
		}
		c.logger.Info("customer deleted", zap.String("customer", key))
		return nil
	})
}

func (c *Client) DeleteSale(ctx context.Context, id string, r loader.Renderer) error {
	return c.deleteRecord(ctx, "delete_sale", loader.Sales, remote.Sales, "Sale ID", id, r, "Failed to delete sale")
}

func (c *Client) DeletePayment(ctx context.Context, id string, r loader.Renderer) error {
	return c.deleteRecord(ctx, "delete_payment", loader.Payments, remote.Payments, "Payment ID", id, r, "Failed to delete payment")
}

// ClearLogs empties the activity log, locally or on the server depending on
// the log mode.
func (c *Client) ClearLogs(ctx context.Context, r loader.Renderer) error {
	if c.logs != nil {
		r.SetBusy(loader.Logs.String(), true)
		defer r.SetBusy(loader.Logs.String(), false)

		err := c.logs.Clear(ctx)
		c.metrics.ObserveMutation("clear_logs", err)
		if err != nil {
			return fmt.Errorf("clear local logs: %w", err)
		}
		c.reload(ctx, loader.Logs, r)
		return nil
	}

	return c.run(ctx, "clear_logs", loader.Logs, r, func(ctx context.Context, base string) error {
		if err := c.api.Delete(ctx, base, remote.Logs, ""); err != nil {
			return failure(err, "Failed to clear logs")
		}
		return nil
	})
}

func (c *Client) deleteRecord(ctx context.Context, op string, view loader.View, resource, field, id string, r loader.Renderer, fallback string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &sales.ValidationError{Fields: map[string]string{field: "required"}}
	}
	return c.run(ctx, op, view, r, func(ctx context.Context, base string) error {
		if err := c.api.Delete(ctx, base, resource, id); err != nil {
			return failure(err, fallback)
		}
		c.logger.Info("record deleted", zap.String("resource", resource), zap.String("id", id))
		return nil
	})
}

// run holds the busy indicator of view while resolving the endpoint and
// calling fn, then reloads view on success.
func (c *Client) run(ctx context.Context, op string, view loader.View, r loader.Renderer, fn func(ctx context.Context, base string) error) (err error) {
	r.SetBusy(view.String(), true)
	defer r.SetBusy(view.String(), false)
	defer func() { c.metrics.ObserveMutation(op, err) }()

	base, err := c.resolver.Resolve(ctx)
	if err != nil {
		c.logger.Warn("mutation without endpoint", zap.String("op", op), zap.Error(err))
		return loader.ErrNoEndpoint
	}

	if err := fn(ctx, base); err != nil {
		c.logger.Error("mutation failed", zap.String("op", op), zap.Error(err))
		return err
	}

	c.reload(ctx, view, r)
	return nil
}

// reload failures are logged only: the write itself succeeded.
func (c *Client) reload(ctx context.Context, view loader.View, r loader.Renderer) {
	if c.reloader == nil {
		return
	}
	if _, err := c.reloader.Load(ctx, view, r); err != nil && !errors.Is(err, loader.ErrSuperseded) {
		c.logger.Warn("reload after mutation failed", zap.String("view", view.String()), zap.Error(err))
	}
}

// countRecords counts the records of resource the server files under
// customer. The server does the filtering.
func (c *Client) countRecords(ctx context.Context, base, resource, customer string) (int, error) {
	body, err := c.api.Get(ctx, base, resource, url.Values{"customerName": {customer}})
	if err != nil {
		return 0, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return 0, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return 0, fmt.Errorf("decode %s: %w", resource, err)
	}
	return len(records), nil
}

// failure keeps the server's message when there is one and falls back to a
// generic one otherwise.
func failure(err error, fallback string) error {
	var herr *remote.HTTPError
	if errors.As(err, &herr) {
		if herr.Message != "" {
			return herr
		}
		cp := *herr
		cp.Message = fallback
		return &cp
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// decodeInto merges a JSON object response into v. Anything else is ignored.
func (c *Client) decodeInto(body []byte, v any) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return
	}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		c.logger.Debug("ignoring malformed response body", zap.Error(err))
	}
}
