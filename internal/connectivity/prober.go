package connectivity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bricksync/internal/metrics"
	"bricksync/internal/remote"

	"go.uber.org/zap"
)

// ProbeResult is the outcome of a single reachability check.
type ProbeResult struct {
	URL        string
	Reachable  bool
	StatusCode int
	Err        error
}

type Prober interface {
	Probe(ctx context.Context, baseURL string) ProbeResult
}

// HTTPProber checks a base URL with a bounded GET of the customers resource.
type HTTPProber struct {
	client  *remote.Client
	timeout time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewHTTPProber(client *remote.Client, timeout time.Duration, m *metrics.Collector, logger *zap.Logger) *HTTPProber {
	return &HTTPProber{client: client, timeout: timeout, metrics: m, logger: logger}
}

func (p *HTTPProber) Probe(ctx context.Context, baseURL string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res := ProbeResult{URL: baseURL}
	_, err := p.client.Get(ctx, baseURL, remote.Customers, nil)
	switch {
	case err == nil:
		res.Reachable = true
		res.StatusCode = http.StatusOK
	default:
		res.Err = err
		var herr *remote.HTTPError
		if errors.As(err, &herr) {
			res.StatusCode = herr.StatusCode
		}
	}

	p.metrics.ObserveProbe(res.Reachable)
	p.logger.Debug("probe",
		zap.String("url", baseURL),
		zap.Bool("reachable", res.Reachable),
		zap.Int("status", res.StatusCode),
	)
	return res
}
