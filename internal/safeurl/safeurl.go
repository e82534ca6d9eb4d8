package safeurl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Sentinel errors returned by the guard. Callers map these to HTTP
// statuses with errors.Is.
var (
	ErrInvalidURL       = errors.New("invalid url")
	ErrForbiddenHost    = errors.New("forbidden host")
	ErrUnresolvableHost = errors.New("unresolvable host")
)

// Resolver resolves a hostname to all of its addresses. It matches the
// LookupIPAddr method of net.Resolver so tests can stub DNS.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard decides whether a URL is safe to fetch server-side. It blocks
// non-http(s) schemes, local hostnames, private/reserved IPs (including
// any private address in the DNS answer set, which defeats rebinding),
// and hosts outside the optional allowlist.
//
// A Guard holds no state between calls; the zero value uses the default
// resolver and no allowlist.
type Guard struct {
	// Allowlist restricts fetches to the listed hostnames and their
	// subdomains. Empty means any public host.
	Allowlist []string

	// Resolver defaults to net.DefaultResolver.
	Resolver Resolver
}

// AssertSafeURL validates raw and returns the parsed URL when it is
// safe to fetch. Unknown or unparseable input is treated as unsafe.
func (g *Guard) AssertSafeURL(ctx context.Context, raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}

	hostname := normalizeHostname(parsed.Hostname())
	if hostname == "" {
		return nil, fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	if isLocalHostname(hostname) {
		return nil, fmt.Errorf("%w: local hostname %q", ErrForbiddenHost, hostname)
	}

	if len(g.Allowlist) > 0 && !IsHostnameAllowed(hostname, g.Allowlist) {
		return nil, fmt.Errorf("%w: %q is not in the allowlist", ErrForbiddenHost, hostname)
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if IsPrivateIP(hostname) {
			return nil, fmt.Errorf("%w: private ip %s", ErrForbiddenHost, hostname)
		}
		return parsed, nil
	}

	resolver := g.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvableHost, hostname, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q: no records", ErrUnresolvableHost, hostname)
	}

	// Every resolved address must be public. Checking the full answer
	// set (not just the preferred record) closes the DNS-rebinding
	// window where one record is public and another is private.
	for _, addr := range addrs {
		if IsPrivateIP(addr.IP.String()) {
			return nil, fmt.Errorf("%w: %q resolves to private ip %s", ErrForbiddenHost, hostname, addr.IP)
		}
	}
	return parsed, nil
}

// IsHostnameAllowed reports whether hostname equals an allowlist entry
// or is a subdomain of one.
func IsHostnameAllowed(hostname string, allowlist []string) bool {
	normalized := normalizeHostname(hostname)
	for _, entry := range allowlist {
		allowed := normalizeHostname(entry)
		if allowed == "" {
			continue
		}
		if normalized == allowed || strings.HasSuffix(normalized, "."+allowed) {
			return true
		}
	}
	return false
}

// IsPrivateIP reports whether address is a private, loopback,
// link-local, or otherwise reserved IP. Anything that does not parse as
// an IP is treated as private (fail closed).
func IsPrivateIP(address string) bool {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return true
	}
	// To4 also unwraps ::ffff: mapped IPv4, so mapped private addresses
	// fall into the IPv4 ranges below.
	if v4 := ip.To4(); v4 != nil {
		return isPrivateIPv4(v4)
	}
	return isPrivateIPv6(ip)
}

// privateIPv4Ranges are inclusive [start, end] pairs over the 32-bit
// address value: 0.0.0.0/8, 10/8, 100.64/10, 127/8, 169.254/16,
// 172.16/12, 192.0.2/24, 192.168/16, 198.18/15, 198.51.100/24,
// 203.0.113/24, and everything from 224.0.0.0 up (multicast+reserved).
var privateIPv4Ranges = [][2]uint32{
	{0x00000000, 0x00ffffff},
	{0x0a000000, 0x0affffff},
	{0x64400000, 0x647fffff},
	{0x7f000000, 0x7fffffff},
	{0xa9fe0000, 0xa9feffff},
	{0xac100000, 0xac1fffff},
	{0xc0000200, 0xc00002ff},
	{0xc0a80000, 0xc0a8ffff},
	{0xc6120000, 0xc613ffff},
	{0xc6336400, 0xc63364ff},
	{0xcb007100, 0xcb0071ff},
	{0xe0000000, 0xffffffff},
}

func isPrivateIPv4(ip net.IP) bool {
	v := binary.BigEndian.Uint32(ip)
	for _, r := range privateIPv4Ranges {
		if v >= r[0] && v <= r[1] {
			return true
		}
	}
	return false
}

func isPrivateIPv6(ip net.IP) bool {
	switch {
	case ip.IsUnspecified(), ip.IsLoopback():
		return true
	case ip[0] == 0xfc || ip[0] == 0xfd: // unique local fc00::/7
		return true
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return true
	case ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8: // 2001:db8::/32 documentation
		return true
	}
	return false
}

func normalizeHostname(hostname string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(hostname), "."))
}

func isLocalHostname(hostname string) bool {
	return hostname == "localhost" ||
		strings.HasSuffix(hostname, ".localhost") ||
		strings.HasSuffix(hostname, ".local")
}
