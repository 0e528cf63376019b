package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bricksync/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnresolved    = errors.New("no reachable API endpoint")
	ErrInvalidURL    = errors.New("invalid base URL")
	ErrUnknownDevice = errors.New("unknown device type")
)

// Endpoints are the fallback base URLs tried after the configured one.
type Endpoints struct {
	Default  string
	Loopback string
}

// Resolver picks a reachable base URL: the configured one, then the
// default, then loopback on mobile devices. Each URL is probed at most once
// per pass.
type Resolver struct {
	state     *State
	prober    Prober
	prefs     *storage.Preferences
	endpoints Endpoints
	logger    *zap.Logger
	group     singleflight.Group
}

func NewResolver(state *State, prober Prober, prefs *storage.Preferences, endpoints Endpoints, logger *zap.Logger) *Resolver {
	return &Resolver{
		state:     state,
		prober:    prober,
		prefs:     prefs,
		endpoints: endpoints,
		logger:    logger,
	}
}

func (r *Resolver) State() *State { return r.state }

// Resolve returns a usable base URL or ErrUnresolved. Concurrent callers
// with the same device class share one pass, which outlives any single
// caller's cancellation; each probe is bounded by the prober's timeout.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if r.state.Validated() {
		return r.state.BaseURL(), nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mobile := IsMobile(r.state.DeviceType(), UserAgent(ctx))
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan("resolve:"+strconv.FormatBool(mobile), func() (any, error) {
		return r.resolve(shared, mobile)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, mobile bool) (string, error) {
	configured := r.state.BaseURL()
	if r.state.Validated() {
		return configured, nil
	}

	candidates := []string{configured, r.endpoints.Default}
	if mobile {
		candidates = append(candidates, r.endpoints.Loopback)
	}

	tried := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		key := normalize(candidate)
		if key == "" || tried[key] {
			continue
		}
		tried[key] = true

		res := r.prober.Probe(ctx, candidate)
		if res.Reachable {
			r.adopt(ctx, candidate, configured)
			return candidate, nil
		}
		r.logger.Warn("endpoint unreachable",
			zap.String("url", candidate),
			zap.Int("status", res.StatusCode),
			zap.Error(res.Err),
		)
	}

	r.logger.Error("no reachable endpoint", zap.String("configured", configured), zap.Bool("mobile", mobile))
	return "", ErrUnresolved
}

func (r *Resolver) adopt(ctx context.Context, u, previous string) {
	r.state.markValidated(u)
	if !sameURL(u, previous) {
		r.logger.Info("switched endpoint", zap.String("from", previous), zap.String("to", u))
	}
	if err := r.prefs.SetBaseURL(ctx, u); err != nil {
		r.logger.Warn("persist base url", zap.Error(err))
	}
	if err := r.prefs.SetValidatedURL(ctx, u); err != nil {
		r.logger.Warn("persist validated url", zap.Error(err))
	}
}

// Override stores a manually entered base URL. It is probed on next use.
func (r *Resolver) Override(ctx context.Context, raw string) (string, error) {
	u, err := parseBaseURL(raw)
	if err != nil {
		return "", err
	}
	r.state.Override(u)
	if err := r.prefs.SetBaseURL(ctx, u); err != nil {
		return "", fmt.Errorf("persist base url: %w", err)
	}
	r.logger.Info("base url overridden", zap.String("url", u))
	return u, nil
}

// ApplyDevice stores the device preference and switches to the matching
// URL: loopback for mobile, the default otherwise. The preference stays
// saved even when the new URL does not answer.
func (r *Resolver) ApplyDevice(ctx context.Context, deviceType string) (string, error) {
	if !ValidDeviceType(deviceType) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, deviceType)
	}

	u := r.endpoints.Default
	if deviceType == DeviceMobile {
		u = r.endpoints.Loopback
	}

	r.state.SetDeviceType(deviceType)
	r.state.Override(u)
	if err := r.prefs.SetDeviceType(ctx, deviceType); err != nil {
		return "", fmt.Errorf("persist device type: %w", err)
	}
	if err := r.prefs.SetBaseURL(ctx, u); err != nil {
		return "", fmt.Errorf("persist base url: %w", err)
	}

	res := r.prober.Probe(ctx, u)
	if !res.Reachable {
		r.logger.Warn("device endpoint unreachable", zap.String("device", deviceType), zap.String("url", u), zap.Error(res.Err))
		return u, fmt.Errorf("%s: %w", u, ErrUnresolved)
	}
	r.adopt(ctx, u, u)
	return u, nil
}

func parseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return normalize(raw), nil
}
