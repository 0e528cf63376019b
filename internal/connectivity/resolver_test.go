package connectivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bricksync/internal/remote"
	"bricksync/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	defaultURL  = "http://192.168.1.125:3000"
	loopbackURL = "http://localhost:3000"
)

type fakeProber struct {
	mu        sync.Mutex
	reachable map[string]bool
	calls     []string
}

func (f *fakeProber) Probe(_ context.Context, baseURL string) ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, baseURL)
	if f.reachable[baseURL] {
		return ProbeResult{URL: baseURL, Reachable: true, StatusCode: http.StatusOK}
	}
	return ProbeResult{URL: baseURL, Err: errors.New("connection refused")}
}

func (f *fakeProber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newResolver(t *testing.T, baseURL, device string, reachable ...string) (*Resolver, *fakeProber, *storage.Preferences) {
	t.Helper()
	p := &fakeProber{reachable: map[string]bool{}}
	for _, u := range reachable {
		p.reachable[u] = true
	}
	prefs := storage.NewPreferences(storage.NewLocalStorage())
	r := NewResolver(NewState(baseURL, device), p, prefs, Endpoints{Default: defaultURL, Loopback: loopbackURL}, zaptest.NewLogger(t))
	return r, p, prefs
}

func TestResolveConfiguredReachable(t *testing.T) {
	r, p, prefs := newResolver(t, "http://10.0.0.5:3000", "", "http://10.0.0.5:3000")

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:3000", got)
	assert.Equal(t, []string{"http://10.0.0.5:3000"}, p.Calls())
	assert.True(t, r.State().Validated())

	valid, _ := prefs.ValidatedURL(context.Background())
	assert.Equal(t, "http://10.0.0.5:3000", valid)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r, p, prefs := newResolver(t, "http://10.0.0.5:3000", "", defaultURL)
	ctx := context.Background()

	got, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultURL, got)
	assert.Equal(t, []string{"http://10.0.0.5:3000", defaultURL}, p.Calls())

	base, _ := prefs.BaseURL(ctx)
	valid, _ := prefs.ValidatedURL(ctx)
	assert.Equal(t, defaultURL, base)
	assert.Equal(t, defaultURL, valid)
	assert.Equal(t, defaultURL, r.State().BaseURL())
}

func TestResolveFastPathDoesNotProbe(t *testing.T) {
	r, p, _ := newResolver(t, defaultURL, "", defaultURL)
	ctx := context.Background()

	_, err := r.Resolve(ctx)
	require.NoError(t, err)
	got, err := r.Resolve(ctx)
	require.NoError(t, err)

	assert.Equal(t, defaultURL, got)
	assert.Len(t, p.Calls(), 1)
}

func TestResolveNeverProbesTwice(t *testing.T) {
	r, p, _ := newResolver(t, defaultURL+"/", DeviceMobile)

	_, err := r.Resolve(context.Background())
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, []string{defaultURL + "/", loopbackURL}, p.Calls())
}

func TestResolveLoopbackOnlyOnMobile(t *testing.T) {
	t.Run("desktop", func(t *testing.T) {
		r, p, _ := newResolver(t, "http://10.0.0.5:3000", "", loopbackURL)
		_, err := r.Resolve(context.Background())
		require.ErrorIs(t, err, ErrUnresolved)
		assert.NotContains(t, p.Calls(), loopbackURL)
		assert.False(t, r.State().Validated())
	})

	t.Run("mobile user agent", func(t *testing.T) {
		r, p, _ := newResolver(t, "http://10.0.0.5:3000", "", loopbackURL)
		ctx := WithUserAgent(context.Background(), "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
		got, err := r.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, loopbackURL, got)
		assert.Equal(t, []string{"http://10.0.0.5:3000", defaultURL, loopbackURL}, p.Calls())
	})

	t.Run("desktop preference beats user agent", func(t *testing.T) {
		r, p, _ := newResolver(t, "http://10.0.0.5:3000", DeviceDesktop, loopbackURL)
		ctx := WithUserAgent(context.Background(), "Android")
		_, err := r.Resolve(ctx)
		require.ErrorIs(t, err, ErrUnresolved)
		assert.Len(t, p.Calls(), 2)
	})
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	r, p, _ := newResolver(t, "http://10.0.0.5:3000", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Calls())
}

// gatedProber blocks every probe until release is closed.
type gatedProber struct {
	fakeProber
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedProber) Probe(ctx context.Context, baseURL string) ProbeResult {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.fakeProber.Probe(ctx, baseURL)
}

func TestResolveSharedPassSurvivesCallerCancel(t *testing.T) {
	p := &gatedProber{
		fakeProber: fakeProber{reachable: map[string]bool{"http://10.0.0.5:3000": true}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	prefs := storage.NewPreferences(storage.NewLocalStorage())
	r := NewResolver(NewState("http://10.0.0.5:3000", ""), p, prefs, Endpoints{Default: defaultURL, Loopback: loopbackURL}, zaptest.NewLogger(t))

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(firstCtx)
		firstErr <- err
	}()
	<-p.entered

	type result struct {
		url string
		err error
	}
	second := make(chan result, 1)
	go func() {
		u, err := r.Resolve(context.Background())
		second <- result{u, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(p.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "http://10.0.0.5:3000", res.url)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, []string{"http://10.0.0.5:3000"}, p.Calls())
	assert.True(t, r.State().Validated())
}

func TestApplyDeviceMobile(t *testing.T) {
	r, p, prefs := newResolver(t, defaultURL, "", loopbackURL)
	ctx := context.Background()

	got, err := r.ApplyDevice(ctx, DeviceMobile)
	require.NoError(t, err)
	assert.Equal(t, loopbackURL, got)
	assert.Equal(t, []string{loopbackURL}, p.Calls())
	assert.True(t, r.State().Validated())

	device, _ := prefs.DeviceType(ctx)
	base, _ := prefs.BaseURL(ctx)
	assert.Equal(t, DeviceMobile, device)
	assert.Equal(t, loopbackURL, base)
}

func TestApplyDeviceUnreachableKeepsPreference(t *testing.T) {
	r, _, prefs := newResolver(t, loopbackURL, DeviceMobile)
	ctx := context.Background()

	got, err := r.ApplyDevice(ctx, DeviceDesktop)
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, defaultURL, got)

	device, _ := prefs.DeviceType(ctx)
	assert.Equal(t, DeviceDesktop, device)
	assert.False(t, r.State().Validated())

	_, err = r.ApplyDevice(ctx, "tablet")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestOverrideClearsValidation(t *testing.T) {
	r, p, _ := newResolver(t, defaultURL, "", defaultURL, "http://10.0.0.9:3000")
	ctx := context.Background()

	_, err := r.Resolve(ctx)
	require.NoError(t, err)

	got, err := r.Override(ctx, " http://10.0.0.9:3000/ ")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.9:3000", got)
	assert.False(t, r.State().Validated())

	_, err = r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{defaultURL, "http://10.0.0.9:3000"}, p.Calls())

	_, err = r.Override(ctx, "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestHTTPProber(t *testing.T) {
	var path string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer up.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	logger := zaptest.NewLogger(t)
	client := remote.NewClient(5*time.Second, logger)
	defer client.Close()
	p := NewHTTPProber(client, 100*time.Millisecond, nil, logger)
	ctx := context.Background()

	res := p.Probe(ctx, up.URL)
	assert.True(t, res.Reachable)
	assert.Equal(t, "/customers", path)

	res = p.Probe(ctx, failing.URL)
	assert.False(t, res.Reachable)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	res = p.Probe(ctx, slow.URL)
	assert.False(t, res.Reachable)
	assert.Error(t, res.Err)
}

func TestIsMobile(t *testing.T) {
	assert.True(t, IsMobile("", "Mozilla/5.0 (Linux; Android 14)"))
	assert.True(t, IsMobile("", "opera mini/9"))
	assert.False(t, IsMobile("", "Mozilla/5.0 (X11; Linux x86_64)"))
	assert.True(t, IsMobile(DeviceMobile, "Mozilla/5.0 (X11; Linux x86_64)"))
	assert.False(t, IsMobile(DeviceDesktop, "iPad"))
}
