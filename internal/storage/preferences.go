package storage

import "context"

// Keys of the persisted local settings.
const (
	KeyBaseURL    = "apiBaseUrl"
	KeyValidURL   = "apiValid"
	KeyDeviceType = "device-type"
	KeyActiveTab  = "activeTab"
)

// Preferences reads and writes the persisted settings. Missing keys read as "".
type Preferences struct {
	store Store
}

func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store}
}

func (p *Preferences) BaseURL(ctx context.Context) (string, error) {
	return getString(ctx, p.store, KeyBaseURL)
}

func (p *Preferences) SetBaseURL(ctx context.Context, url string) error {
	return p.store.Set(ctx, KeyBaseURL, []byte(url))
}

// ValidatedURL is the last URL that answered a probe. It is informational:
// a new process always probes again.
func (p *Preferences) ValidatedURL(ctx context.Context) (string, error) {
	return getString(ctx, p.store, KeyValidURL)
}

func (p *Preferences) SetValidatedURL(ctx context.Context, url string) error {
	return p.store.Set(ctx, KeyValidURL, []byte(url))
}

func (p *Preferences) DeviceType(ctx context.Context) (string, error) {
	return getString(ctx, p.store, KeyDeviceType)
}

func (p *Preferences) SetDeviceType(ctx context.Context, deviceType string) error {
	return p.store.Set(ctx, KeyDeviceType, []byte(deviceType))
}

func (p *Preferences) ActiveTab(ctx context.Context) (string, error) {
	return getString(ctx, p.store, KeyActiveTab)
}

func (p *Preferences) SetActiveTab(ctx context.Context, tab string) error {
	return p.store.Set(ctx, KeyActiveTab, []byte(tab))
}
