package service

import "net/url"

// IsValidURL reports whether candidate is a well-formed absolute URL.
// It is a pure syntax check: no network access, no reachability test.
// Empty strings, relative paths and opaque schemes without a host
// (e.g. mailto:) are rejected.
func IsValidURL(candidate string) bool {
	u, err := url.ParseRequestURI(candidate)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
