// Package device derives a coarse device/browser/OS classification from a user-agent string.
// The result is stored for display and audit only; it is never used for enforcement.
package device

import (
	"strings"

	"github.com/dmitrymomot/foundation/pkg/useragent"

	"session-lifecycle-manager/internal/session/domain"
)

// Unknown is used for browser and OS when the user agent does not identify them.
const Unknown = "Unknown"

var displayNames = map[string]string{
	"chrome":   "Chrome",
	"firefox":  "Firefox",
	"safari":   "Safari",
	"edge":     "Edge",
	"opera":    "Opera",
	"ie":       "Internet Explorer",
	"samsung":  "Samsung Internet",
	"windows":  "Windows",
	"macos":    "macOS",
	"mac os":   "macOS",
	"ios":      "iOS",
	"ipados":   "iPadOS",
	"android":  "Android",
	"linux":    "Linux",
	"chromeos": "ChromeOS",
}

// Fingerprint classifies userAgent. Unknown, bot, TV and console agents fall back to desktop.
func Fingerprint(userAgent, ipAddress string) domain.DeviceInfo {
	info := domain.DeviceInfo{
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		DeviceType: domain.DeviceDesktop,
		Browser:    Unknown,
		OS:         Unknown,
	}
	ua, err := useragent.Parse(userAgent)
	if err != nil {
		return info
	}
	switch ua.DeviceType() {
	case useragent.DeviceTypeMobile:
		info.DeviceType = domain.DeviceMobile
	case useragent.DeviceTypeTablet:
		info.DeviceType = domain.DeviceTablet
	}
	info.Browser = displayName(string(ua.BrowserName()))
	info.OS = displayName(string(ua.OS()))
	return info
}

func displayName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return Unknown
	}
	if name, ok := displayNames[strings.ToLower(s)]; ok {
		return name
	}
	return s
}
