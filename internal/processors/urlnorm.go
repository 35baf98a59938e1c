package processors

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeURL canonicalises a URL for use as a stable doc_id: lowercase
// scheme and host, https assumed when the scheme is missing, default ports
// stripped, dot segments resolved, empty path replaced by "/", query
// parameters sorted and the fragment dropped. Normalising an already
// normalised URL returns it unchanged.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = stripDefaultPort(u.Scheme, u.Host)
	u.Fragment = ""

	if u.Path == "" {
		u.Path = "/"
	} else {
		cleaned := path.Clean(u.Path)
		// path.Clean strips the trailing slash, which is significant
		// for directory-style URLs.
		if strings.HasSuffix(u.Path, "/") && cleaned != "/" {
			cleaned += "/"
		}
		u.Path = cleaned
	}

	if u.RawQuery != "" {
		q := u.Query()
		u.RawQuery = q.Encode() // Encode emits keys in sorted order.
	}

	return u.String()
}

// stripDefaultPort removes :80 from http hosts and :443 from https hosts.
func stripDefaultPort(scheme, host string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	}
	return host
}
