// Package security checks the endpoints the agent sends conversations to.
package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsafeURL marks endpoints rejected by ValidateEndpoint.
var ErrUnsafeURL = errors.New("unsafe endpoint")

// EndpointPolicy says which completion endpoints are acceptable.
type EndpointPolicy struct {
	// AllowLocal permits plain http and loopback, private or link-local
	// targets, as used by self-hosted OpenAI compatible servers.
	AllowLocal bool
}

// ValidateEndpoint rejects base URLs the conversation should not be sent to:
// unknown schemes, missing hosts, unspecified or multicast addresses and,
// unless the policy allows it, http and local network targets. IP literals
// are checked without DNS lookups.
func ValidateEndpoint(rawURL string, policy EndpointPolicy) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(ErrUnsafeURL, "%s: %v", rawURL, err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !policy.AllowLocal {
			return errors.Wrapf(ErrUnsafeURL, "%s: plain http needs allow_local", rawURL)
		}
	default:
		return errors.Wrapf(ErrUnsafeURL, "%s: unsupported scheme %q", rawURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Wrapf(ErrUnsafeURL, "%s: no host", rawURL)
	}
	if !policy.AllowLocal && isLocalHostname(host) {
		return errors.Wrapf(ErrUnsafeURL, "%s: local hostname needs allow_local", rawURL)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// a hostname
		return nil
	}
	if addr.Zone() != "" && !policy.AllowLocal {
		return errors.Wrapf(ErrUnsafeURL, "%s: zoned address needs allow_local", rawURL)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() {
		return errors.Wrapf(ErrUnsafeURL, "%s: address %s cannot be used", rawURL, addr)
	}
	if !policy.AllowLocal && isLocalAddr(addr) {
		return errors.Wrapf(ErrUnsafeURL, "%s: local address needs allow_local", rawURL)
	}
	return nil
}

func isLocalHostname(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local")
}

func isLocalAddr(addr netip.Addr) bool {
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast()
}
