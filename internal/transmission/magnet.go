package transmission

import (
	"net/url"
	"strings"
)

// InfoHashFromMagnet extracts the btih info hash from a magnet link,
// lowercased. Returns "" when the link is not a magnet or carries no btih.
func InfoHashFromMagnet(link string) string {
	if !strings.HasPrefix(link, "magnet:") {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	for _, xt := range u.Query()["xt"] {
		if h, ok := strings.CutPrefix(xt, "urn:btih:"); ok && h != "" {
			return strings.ToLower(h)
		}
	}
	return ""
}
