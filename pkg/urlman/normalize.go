// Package urlman implements URL normalization, authority scoring, and the
// investigation entity-context coordinator (spec §4.4, §6.1).
package urlman

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// trackingParams are stripped during normalization (spec §6.1 step 4).
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
}

// Normalize canonicalizes a URL per the bit-exact algorithm in spec §6.1.
// The result is idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""

	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	q := u.Query()
	for key := range q {
		if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
			q.Del(key)
		}
	}
	var keys []string
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		for _, v := range q[k] {
			values.Add(k, v)
		}
	}
	u.RawQuery = encodeSorted(values, keys)

	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	if cleanPath != "/" && strings.HasSuffix(u.Path, "/") {
		// path.Clean already drops trailing slash for non-root paths.
	}
	u.Path = cleanPath

	return u.String(), nil
}

// encodeSorted renders values preserving the key order given (already
// sorted) and the original multi-value order within a key (spec §6.1 step 5).
func encodeSorted(values url.Values, keys []string) string {
	var b strings.Builder
	first := true
	for _, k := range keys {
		for _, v := range values[k] {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Host extracts the lowercased hostname from raw, or "" if it does not
// parse. Convenience wrapper for callers (rate limiters, authority lookups)
// that only need the host, not a full Normalize.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Registrable approximates a registrable domain (parent-company
// independence proxy, spec §9 open question) as the last two labels of the
// host, e.g. "www.reuters.com" -> "reuters.com". This is a deliberate
// approximation, not a public-suffix-list lookup.
func Registrable(host string) string {
	host = strings.ToLower(host)
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
