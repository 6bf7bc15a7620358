package analytics

import (
	"net/http"
	"net/url"
	"strings"
)

const unknown = "Unknown"

// Geolocation headers set by the edge network in front of the service.
const (
	headerCity    = "X-Vercel-IP-City"
	headerRegion  = "X-Vercel-IP-Country-Region"
	headerCountry = "X-Vercel-IP-Country"
)

type browserRule struct {
	token string
	name  string
}

// Order matters: Edge and Opera also advertise Chrome, Chrome advertises Safari.
var browserRules = []browserRule{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"Firefox/", "Firefox"},
	{"FxiOS/", "Firefox"},
	{"CriOS/", "Chrome"},
	{"Chrome/", "Chrome"},
	{"Version/", "Safari"},
}

type osRule struct {
	token string
	name  string
}

var osRules = []osRule{
	{"Windows NT", "Windows"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Android", "Android"},
	{"CrOS", "ChromeOS"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

// DeviceFromHeaders derives the device context of a request. Outside
// production a missing location resolves to fallbackLocation.
func DeviceFromHeaders(h http.Header, fallbackLocation string, production bool) DeviceContext {
	ua := h.Get("User-Agent")
	name, version := browser(ua)
	return DeviceContext{
		DeviceType:     deviceType(ua),
		BrowserName:    name,
		BrowserVersion: version,
		OSName:         osName(ua),
		Location:       location(h, fallbackLocation, production),
	}
}

func deviceType(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case ua == "":
		return unknown
	case strings.Contains(lower, "bot") || strings.Contains(lower, "crawler") || strings.Contains(lower, "spider"):
		return "bot"
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet") ||
		(strings.Contains(ua, "Android") && !strings.Contains(ua, "Mobile")):
		return "tablet"
	case strings.Contains(ua, "Mobi") || strings.Contains(ua, "iPhone"):
		return "mobile"
	default:
		return "desktop"
	}
}

func browser(ua string) (string, string) {
	for _, rule := range browserRules {
		idx := strings.Index(ua, rule.token)
		if idx < 0 {
			continue
		}
		if rule.name == "Safari" && !strings.Contains(ua, "Safari/") {
			continue
		}
		rest := ua[idx+len(rule.token):]
		if end := strings.IndexAny(rest, " ;)"); end >= 0 {
			rest = rest[:end]
		}
		return rule.name, rest
	}
	return unknown, ""
}

func osName(ua string) string {
	for _, rule := range osRules {
		if strings.Contains(ua, rule.token) {
			return rule.name
		}
	}
	return unknown
}

func location(h http.Header, fallback string, production bool) string {
	parts := make([]string, 0, 3)
	for _, key := range []string{headerCity, headerRegion, headerCountry} {
		v := h.Get(key)
		if v == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(v); err == nil {
			v = decoded
		}
		parts = append(parts, v)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if !production && fallback != "" {
		return fallback
	}
	return unknown
}
