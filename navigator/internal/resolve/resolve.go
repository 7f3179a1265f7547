// Package resolve turns the navigation value chosen in a terminal session
// into the next URL to fetch.
//
// A value is absolute when it parses as a URL with a scheme and a host. It is
// relative when it parses but carries no scheme (a path, query or fragment).
// Anything else (an unparseable string, or a scheme without a host such as
// mailto: or javascript:) is neither and cannot be navigated.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrUnresolvable is returned for values that are neither absolute nor
// relative, and for relative values without a base URL.
var ErrUnresolvable = errors.New("resolve: unresolvable navigation value")

// IsAbsolute reports whether value is a fully qualified URL with a host.
func IsAbsolute(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// IsRelative reports whether value only makes sense against a base URL.
func IsRelative(value string) bool {
	if value == "" {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme == ""
}

// IsNavigable reports whether value is absolute or relative.
func IsNavigable(value string) bool {
	return IsAbsolute(value) || IsRelative(value)
}

// Base returns "scheme://host[:port]/" for an absolute URL.
func Base(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: base of %q: %v", ErrUnresolvable, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: base of %q: not an absolute URL", ErrUnresolvable, rawURL)
	}
	base := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	return base.String(), nil
}

// Next resolves value against current. Absolute values are returned
// verbatim. Relative values are resolved against Base(current), so a path
// is always taken from the site root rather than from the current page.
func Next(value, current string) (string, error) {
	if IsAbsolute(value) {
		return value, nil
	}
	if !IsRelative(value) {
		return "", fmt.Errorf("%w: %q", ErrUnresolvable, value)
	}
	if current == "" {
		return "", fmt.Errorf("%w: relative value %q without a current URL", ErrUnresolvable, value)
	}

	base, err := Base(current)
	if err != nil {
		return "", err
	}
	b, _ := url.Parse(base)
	ref, _ := url.Parse(value)
	return b.ResolveReference(ref).String(), nil
}
