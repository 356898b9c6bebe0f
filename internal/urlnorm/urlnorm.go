// Package urlnorm defines the canonical URL form used as the identity key
// for quiz idempotency and history grouping.
//
// Policy: lowercase scheme and host, strip default ports, drop query string
// and fragment, collapse duplicate slashes, and strip a single trailing
// slash (the bare root path "/" is kept). Query strings never distinguish
// the articles this service targets.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonical returns the canonical string form of rawURL, or an error when
// the input is not an absolute http(s) URL.
func Canonical(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host")
	}

	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := collapseSlashes(u.EscapedPath())
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return scheme + "://" + host + path, nil
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
