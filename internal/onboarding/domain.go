package onboarding

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeDomain reduces user input such as "https://www.Stripe.com/pricing"
// to a bare host name ("stripe.com"). The result must end in a public suffix
// with at least one label in front of it.
func NormalizeDomain(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	host = strings.TrimPrefix(host, "www.")

	if net.ParseIP(host) != nil {
		return "", fmt.Errorf("%w: %q is an IP address", ErrInvalidDomain, raw)
	}
	for _, r := range host {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '.' {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidDomain, raw, r)
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return "", fmt.Errorf("%w: %q has no registrable suffix", ErrInvalidDomain, raw)
	}
	return host, nil
}
