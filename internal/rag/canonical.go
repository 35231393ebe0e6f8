package rag

import (
	"net/url"
	"strings"
)

var trackingParams = map[string]struct{}{
	"fbclid": {}, "gclid": {}, "mc_cid": {}, "mc_eid": {}, "igshid": {},
}

// CanonicalURL normalises a URL so the same article reached through different links
// compares equal: https scheme, lower-case host without "www.", no default port,
// no fragment, no tracking parameters, sorted query, no trailing slash.
// Unparseable input is returned trimmed and lower-cased.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err == nil && u.Host == "" && u.Scheme == "" && !strings.HasPrefix(raw, "/") {
		// Scheme-less links such as "news.example.com/a1".
		u, err = url.Parse("https://" + raw)
	}
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" || scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingParams[lk]; ok {
			q.Del(key)
		}
	}

	out := scheme + "://" + host + path
	if encoded := q.Encode(); encoded != "" { // Encode sorts by key
		out += "?" + encoded
	}
	return out
}
