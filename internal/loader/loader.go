package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"bricksync/internal/metrics"
	"bricksync/internal/remote"
	"bricksync/internal/sales"
	"bricksync/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoEndpoint means no endpoint answered and nothing was cached.
	ErrNoEndpoint = errors.New("No valid API available. Please check Settings.")
	// ErrSuperseded means a newer load started before this one could render.
	ErrSuperseded = errors.New("load superseded by a newer one")
)

type Status string

const (
	StatusSuccess    Status = "success"
	StatusDegraded   Status = "degraded"
	StatusFailure    Status = "failure"
	StatusSuperseded Status = "superseded"
)

// Outcome describes how a load ended.
type Outcome struct {
	LoadID  string `json:"loadId"`
	View    View   `json:"view"`
	Status  Status `json:"status"`
	BaseURL string `json:"baseUrl,omitempty"`
	Message string `json:"message,omitempty"`
}

type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

type Fetcher interface {
	Get(ctx context.Context, baseURL, resource string, query url.Values) ([]byte, error)
}

// LogSource serves the logs view from local storage.
type LogSource interface {
	Raw(ctx context.Context) ([]byte, error)
}

type Option func(*Loader)

// WithLocalLogs serves the logs view from src instead of the remote API.
func WithLocalLogs(src LogSource) Option {
	return func(l *Loader) { l.logs = src }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(l *Loader) { l.metrics = m }
}

// Loader fetches the resources a view needs, caches them and renders the
// view. Only the most recent load renders.
type Loader struct {
	resolver  Resolver
	fetcher   Fetcher
	snapshots *storage.SnapshotStore
	logs      LogSource
	metrics   *metrics.Collector
	logger    *zap.Logger

	generation atomic.Uint64
	// held from the generation check to the last draw of a render
	renderMu sync.Mutex
}

func New(resolver Resolver, fetcher Fetcher, snapshots *storage.SnapshotStore, logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{
		resolver:  resolver,
		fetcher:   fetcher,
		snapshots: snapshots,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LocalLogs reports whether the logs view is served locally.
func (l *Loader) LocalLogs() bool { return l.logs != nil }

// Load runs one load of view into r. The error is nil for success and
// degraded outcomes.
func (l *Loader) Load(ctx context.Context, view View, r Renderer) (out Outcome, err error) {
	deps, ok := dependencies[view]
	if !ok {
		return Outcome{View: view, Status: StatusFailure}, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	gen := l.generation.Add(1)
	out = Outcome{LoadID: uuid.NewString(), View: view}
	logger := l.logger.With(zap.String("load_id", out.LoadID), zap.String("view", view.String()))
	ctx = remote.WithRequestID(ctx, out.LoadID)

	start := time.Now()
	defer func() {
		l.metrics.ObserveLoad(view.String(), string(out.Status), time.Since(start))
		logger.Debug("load finished", zap.String("status", string(out.Status)), zap.Duration("took", time.Since(start)))
	}()

	if len(deps) == 0 {
		return l.render(gen, view, nil, r, out, StatusSuccess)
	}

	if view == Logs && l.logs != nil {
		raw, err := l.logs.Raw(ctx)
		if err != nil {
			out.Status = StatusFailure
			out.Message = err.Error()
			return out, fmt.Errorf("read local logs: %w", err)
		}
		return l.render(gen, view, map[string][]byte{remote.Logs: raw}, r, out, StatusSuccess)
	}

	// 1. Find an endpoint, or fall back to what is cached.
	base, err := l.resolver.Resolve(ctx)
	if err != nil {
		logger.Warn("endpoint unresolved", zap.Error(err))
		return l.fromSnapshots(ctx, gen, view, deps, r, out, logger)
	}
	out.BaseURL = base

	// 2. Fetch every dependency in order, caching each as it arrives.
	payloads := make(map[string][]byte, len(deps))
	for _, res := range deps {
		body, err := l.fetcher.Get(ctx, base, res, nil)
		if err != nil {
			logger.Error("fetch failed", zap.String("resource", res), zap.Error(err))
			out.Status = StatusFailure
			out.Message = err.Error()
			return out, fmt.Errorf("fetch %s: %w", res, err)
		}
		if err := l.snapshots.Put(ctx, res, body); err != nil {
			logger.Warn("snapshot write failed", zap.String("resource", res), zap.Error(err))
		}
		payloads[res] = body
	}

	// 3. Render.
	return l.render(gen, view, payloads, r, out, StatusSuccess)
}

func (l *Loader) fromSnapshots(ctx context.Context, gen uint64, view View, deps []string, r Renderer, out Outcome, logger *zap.Logger) (Outcome, error) {
	payloads := make(map[string][]byte, len(deps))
	for _, res := range deps {
		raw, ok, err := l.snapshots.Get(ctx, res)
		if err != nil {
			logger.Warn("snapshot read failed", zap.String("resource", res), zap.Error(err))
			continue
		}
		if ok && !isEmptyJSON(raw) {
			payloads[res] = raw
		}
	}

	if len(payloads) == 0 {
		out.Status = StatusFailure
		out.Message = ErrNoEndpoint.Error()
		return out, ErrNoEndpoint
	}

	logger.Warn("rendering cached data", zap.Int("cached", len(payloads)), zap.Int("needed", len(deps)))
	out.Message = "API unreachable, showing cached data"
	return l.render(gen, view, payloads, r, out, StatusDegraded)
}

// render decodes payloads and draws them unless a newer load has started.
// Renders never interleave, so a newer load that starts mid-draw renders
// after this one and wins.
func (l *Loader) render(gen uint64, view View, payloads map[string][]byte, r Renderer, out Outcome, status Status) (Outcome, error) {
	data, err := decodeAll(payloads)
	if err != nil {
		out.Status = StatusFailure
		out.Message = err.Error()
		return out, err
	}

	l.renderMu.Lock()
	defer l.renderMu.Unlock()

	if l.generation.Load() != gen {
		out.Status = StatusSuperseded
		return out, ErrSuperseded
	}

	switch view {
	case Dashboard:
		r.RenderDashboard(data.customers)
		r.RenderDashboardCharts(sales.Summarize(data.customers, data.balances, data.sales, data.payments))
	case Customers:
		r.RenderCustomers(data.customers)
	case Sales:
		r.PopulateCustomerDropdowns(data.customers, view.String())
		r.RenderSales(data.sales)
	case Payments:
		r.PopulateCustomerDropdowns(data.customers, view.String())
		r.RenderPayments(data.payments)
	case Transactions:
		r.PopulateCustomerDropdowns(data.customers, view.String())
		r.RenderTransactions(data.transactions)
	case Balances:
		r.RenderBalances(data.balances)
	case Logs:
		r.RenderLogs(data.logs)
	}
	if s, ok := r.(ViewSwitcher); ok {
		s.Show(view)
	}

	out.Status = status
	return out, nil
}

type viewData struct {
	customers    []sales.Customer
	sales        []sales.Sale
	payments     []sales.Payment
	transactions []sales.Transaction
	balances     []sales.Balance
	logs         []sales.LogEntry
}

func decodeAll(payloads map[string][]byte) (viewData, error) {
	var (
		d   viewData
		err error
	)
	if d.customers, err = decode[sales.Customer](payloads, remote.Customers); err != nil {
		return d, err
	}
	if d.sales, err = decode[sales.Sale](payloads, remote.Sales); err != nil {
		return d, err
	}
	if d.payments, err = decode[sales.Payment](payloads, remote.Payments); err != nil {
		return d, err
	}
	if d.transactions, err = decode[sales.Transaction](payloads, remote.Transactions); err != nil {
		return d, err
	}
	if d.balances, err = decode[sales.Balance](payloads, remote.Balances); err != nil {
		return d, err
	}
	if d.logs, err = decode[sales.LogEntry](payloads, remote.Logs); err != nil {
		return d, err
	}
	return d, nil
}

// decode reads a JSON array of T. Missing or empty payloads decode to an
// empty slice and a single object decodes to a one-element slice.
func decode[T any](payloads map[string][]byte, resource string) ([]T, error) {
	raw := bytes.TrimSpace(payloads[resource])
	if isEmptyJSON(raw) {
		return []T{}, nil
	}
	if raw[0] == '{' {
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("decode %s: %w", resource, err)
		}
		return []T{one}, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	return list, nil
}

// isEmptyJSON reports whether raw holds no usable array or object.
func isEmptyJSON(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return true
}
