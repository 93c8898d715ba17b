// Package device turns User-Agent strings into short client descriptions for
// logs, e.g. "Chrome on Android" for the field collection app's webview.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns "<browser> on <platform or OS>".
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if ua.Bot() {
		browser = "Bot " + browser
	}

	platform := ua.OS()
	if platform == "" {
		platform = ua.Platform()
	}
	if ua.Mobile() && ua.Platform() != "" && !strings.Contains(platform, ua.Platform()) {
		platform = ua.Platform() + " " + platform
	}
	if platform == "" {
		platform = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + strings.TrimSpace(platform))
}

// IsMobile reports whether the user agent is a phone or tablet.
func IsMobile(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return useragent.New(userAgent).Mobile()
}
