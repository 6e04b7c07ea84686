package scrape

import (
	"fmt"
	"strings"
)

// ExtractUsername pulls the channel username out of a link in any of the
// accepted forms: "@name", "name", or a full profile URL.
func ExtractUsername(channelLink string) string {
	link := strings.TrimSpace(channelLink)

	if i := strings.Index(link, "@"); i >= 0 {
		name := link[i+1:]
		if j := strings.IndexAny(name, "/?"); j >= 0 {
			name = name[:j]
		}
		return strings.TrimSpace(name)
	}
	return strings.Trim(link, "/")
}

// CanonicalURL normalizes a channel link to a full profile URL.
func CanonicalURL(channelLink string) string {
	link := strings.TrimSpace(channelLink)
	if strings.HasPrefix(link, "http") {
		return link
	}
	return "https://www.tiktok.com/@" + ExtractUsername(link)
}

// FormatCount renders an engagement count in compact form: 999, 1.2K, 3.4M,
// 1.1B.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
