package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize maps equivalent spellings of a resource URL to one form:
//   - scheme and host are lowercased
//   - default ports are omitted (:80 for http, :443 for https)
//   - the fragment is removed
//   - query parameters are kept, sorted by key
//
// Booth image urls carry signing tokens in the query on some CDNs, so the
// query is part of the identity.
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""

	if canonical.RawQuery != "" {
		canonical.RawQuery = canonical.Query().Encode()
	}
	canonical.ForceQuery = false

	return canonical
}

// Resolve interprets raw relative to base (protocol-relative "//host/x"
// included) and returns its canonical string. Only http and https results
// are accepted.
func Resolve(base url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	canonical := Canonicalize(*resolved)
	if canonical.Scheme != "http" && canonical.Scheme != "https" {
		return "", false
	}
	if canonical.Host == "" {
		return "", false
	}
	return canonical.String(), true
}

// Dedupe keeps the first occurrence of every url by canonical form, in order.
// Unparsable entries are kept verbatim and compared as strings.
func Dedupe(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		key := raw
		if u, err := url.Parse(raw); err == nil {
			c := Canonicalize(*u)
			key = c.String()
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, raw)
	}
	return out
}

// lowerASCII converts ASCII characters to lowercase without allocating.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
