package connectivity

import (
	"strings"
	"sync"
)

// State is the process-wide record of which base URL is in use and whether
// it has answered a probe during this session.
type State struct {
	mu         sync.RWMutex
	baseURL    string
	validURL   string
	deviceType string
}

// NewState starts unvalidated: a previously persisted marker is not trusted.
func NewState(baseURL, deviceType string) *State {
	return &State{baseURL: baseURL, deviceType: deviceType}
}

// Snapshot is a consistent copy of State.
type Snapshot struct {
	BaseURL    string `json:"baseUrl"`
	Validated  bool   `json:"validated"`
	DeviceType string `json:"deviceType"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		BaseURL:    s.baseURL,
		Validated:  s.validatedLocked(),
		DeviceType: s.deviceType,
	}
}

func (s *State) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// Validated reports whether the current base URL answered a probe.
func (s *State) Validated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validatedLocked()
}

func (s *State) validatedLocked() bool {
	return s.validURL != "" && sameURL(s.validURL, s.baseURL)
}

func (s *State) DeviceType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceType
}

func (s *State) SetDeviceType(deviceType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceType = deviceType
}

// Override replaces the base URL and drops the validated flag.
func (s *State) Override(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = url
	s.validURL = ""
}

// Invalidate forces the next resolution to probe again.
func (s *State) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validURL = ""
}

func (s *State) markValidated(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = url
	s.validURL = url
}

func normalize(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

func sameURL(a, b string) bool {
	return normalize(a) == normalize(b)
}
