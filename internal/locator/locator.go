// Package locator recognizes and normalizes the links users submit.
package locator

import (
	"errors"
	"net/url"
	"strings"
)

// Instagram is the canonical domain every supported host maps to.
const Instagram = "instagram.com"

// Well-known host aliases. Key: input host. Value: canonical domain.
//
// Only hosts that serve the same Instagram content belong here.
var canonicalDomainByHost = map[string]string{
	"instagram.com":     Instagram,
	"www.instagram.com": Instagram,
	"m.instagram.com":   Instagram,
	"instagr.am":        Instagram,
	"www.instagr.am":    Instagram,
	"ddinstagram.com":   Instagram,
}

// ErrUnsupported is returned when a submission has no supported link.
var ErrUnsupported = errors.New("locator: no supported link")

// ResolveCanonicalDomain returns the canonical domain for host.
//
// host may include a port.
func ResolveCanonicalDomain(host string) string {
	h := normalizeHost(host)
	if h == "" {
		return ""
	}
	if c, ok := canonicalDomainByHost[h]; ok {
		return c
	}
	return h
}

// Supported reports whether the canonical domain of host is one we fetch from.
func Supported(host string) bool {
	return ResolveCanonicalDomain(host) == Instagram
}

// Extract finds the first supported link in a free-form message and returns
// it normalized. Users often paste a link with surrounding text, so every
// whitespace-separated token is tried.
func Extract(text string) (string, error) {
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, "<>()[]\"'")
		if !strings.Contains(strings.ToLower(token), "instagr") {
			continue
		}
		n, err := Normalize(token)
		if err == nil {
			return n, nil
		}
	}
	return "", ErrUnsupported
}

// Normalize canonicalizes a supported link for stable logging and lookup:
// https scheme, canonical host, no userinfo, fragment or query string, and
// no trailing slash. Shared links carry tracking parameters (igsh, utm_*)
// that never change the media.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("missing url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return "", err
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnsupported
	}

	if !Supported(u.Host) {
		return "", ErrUnsupported
	}

	u.Scheme = "https"
	u.Host = "www." + Instagram
	u.User = nil
	u.Fragment = ""
	u.RawQuery = ""
	u.Path = trimTrailingSlash(u.Path)

	return u.String(), nil
}

// Shortcode extracts the media shortcode from /p/, /reel/, /reels/ and /tv/
// links. It returns "" for profile or story links.
func Shortcode(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		switch parts[i] {
		case "p", "reel", "reels", "tv":
			return parts[i+1]
		}
	}
	return ""
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil {
			if parsed.Hostname() != "" {
				h = parsed.Hostname()
			}
		}
	}
	h = strings.TrimSuffix(h, ".")
	return h
}

func trimTrailingSlash(p string) string {
	if p == "" || p == "/" {
		return p
	}
	return strings.TrimRight(p, "/")
}
