package device

import (
	"testing"

	"session-lifecycle-manager/internal/session/domain"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.1 Mobile/15E148 Safari/604.1"
	ipadUA    = "Mozilla/5.0 (iPad; CPU OS 14_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.1 Mobile/15E148 Safari/604.1"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	botUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestFingerprint_DeviceType(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want domain.DeviceType
	}{
		{"iphone", iphoneUA, domain.DeviceMobile},
		{"ipad", ipadUA, domain.DeviceTablet},
		{"windows chrome", desktopUA, domain.DeviceDesktop},
		{"bot falls back", botUA, domain.DeviceDesktop},
		{"empty falls back", "", domain.DeviceDesktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.ua, "10.0.0.1")
			if got.DeviceType != tt.want {
				t.Errorf("DeviceType = %q, want %q", got.DeviceType, tt.want)
			}
			if got.UserAgent != tt.ua || got.IPAddress != "10.0.0.1" {
				t.Errorf("raw fields not preserved: %+v", got)
			}
		})
	}
}

func TestFingerprint_UnknownAgent(t *testing.T) {
	got := Fingerprint("", "")
	if got.Browser != Unknown || got.OS != Unknown {
		t.Errorf("Browser/OS = %q/%q, want %q", got.Browser, got.OS, Unknown)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(desktopUA, "1.2.3.4")
	b := Fingerprint(desktopUA, "1.2.3.4")
	if a != b {
		t.Errorf("Fingerprint not deterministic: %+v vs %+v", a, b)
	}
	if a.Browser == Unknown {
		t.Errorf("Browser = %q, want a detected browser", a.Browser)
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"chrome":  "Chrome",
		"ios":     "iOS",
		"Windows": "Windows",
		"unknown": Unknown,
		"":        Unknown,
		"vivaldi": "vivaldi",
	}
	for in, want := range tests {
		if got := displayName(in); got != want {
			t.Errorf("displayName(%q) = %q, want %q", in, got, want)
		}
	}
}
