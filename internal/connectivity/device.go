package connectivity

import (
	"context"
	"regexp"
)

// Device type preferences.
const (
	DeviceMobile  = "mobile"
	DeviceDesktop = "desktop"
)

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

type userAgentKey struct{}

// WithUserAgent attaches the caller's user agent to ctx.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

// UserAgent returns the user agent carried by ctx, if any.
func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua
}

// IsMobile decides whether the loopback fallback applies. An explicit
// preference wins over the user agent.
func IsMobile(deviceType, userAgent string) bool {
	switch deviceType {
	case DeviceMobile:
		return true
	case DeviceDesktop:
		return false
	}
	return mobileAgent.MatchString(userAgent)
}

// ValidDeviceType reports whether t is an accepted preference value.
func ValidDeviceType(t string) bool {
	return t == DeviceMobile || t == DeviceDesktop
}
