package ingest

import (
	"fmt"
	"net/url"
	"strings"

	"websift/internal/util"
)

// NormalizeURL trims surrounding whitespace and drops one trailing slash, so
// "http://x.com/" and "http://x.com" name the same page. Only absolute http(s)
// URLs are accepted.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: url is required", util.ErrValidation)
	}
	s = strings.TrimSuffix(s, "/")
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: parse url: %v", util.ErrValidation, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) url", util.ErrValidation, raw)
	}
	return s, nil
}
