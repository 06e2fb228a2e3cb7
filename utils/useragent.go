package utils

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// ClientFamily reduces a User-Agent header to a low-cardinality label
// suitable for metrics: the browser name, "bot", or "unknown".
func ClientFamily(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	parsed := ua.Parse(userAgent)
	if parsed.Bot {
		return "bot"
	}
	if parsed.Name == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Name)
}
