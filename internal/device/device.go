// Package device turns a User-Agent header into what the navigation shell
// shows about the current browser.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info describes the browser a console page is rendered for.
type Info struct {
	Label  string
	Mobile bool
}

// Describe parses a User-Agent header.
func Describe(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Label: "Unknown Device"}
	}
	ua := useragent.New(userAgent)
	return Info{Label: label(ua), Mobile: ua.Mobile()}
}

// Label returns "Browser on OS" (e.g. "Chrome on macOS", "Safari on iPhone").
func Label(userAgent string) string {
	return Describe(userAgent).Label
}

func label(ua *useragent.UserAgent) string {
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)

	if ua.Mobile() {
		if platform := strings.TrimSpace(ua.Platform()); platform != "" {
			if browser == "" {
				browser = "Browser"
			}
			return browser + " on " + platform
		}
	}

	os := strings.TrimSpace(ua.OS())
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
