package security

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// headerGetter returns every value carried under a header key. Both
// metadata.MD.Get and http.Header.Values have this shape.
type headerGetter func(key string) []string

// defaultHeaderPriority is the ordered list of metadata keys inspected when
// the caller does not provide an explicit HeaderPriority.
var defaultHeaderPriority = []string{"x-real-ip", "x-forwarded-for"}

// resolveClientAddr determines the effective client address of a request
// whose transport peer is peerAddr.
//
// If the peer address is within trustedProxies, the function walks
// headerPriority in order and returns the first valid IP found through get.
// Otherwise (or when no valid header IP is found) it returns the peer
// address itself.
func resolveClientAddr(peerAddr netip.Addr, get headerGetter, trustedProxies []netip.Prefix, headerPriority []string) netip.Addr {
	if isTrustedProxy(peerAddr, trustedProxies) {
		if addr, found := addrFromHeaders(get, headerPriority); found {
			return addr
		}
	}
	return peerAddr
}

// metadataGetter adapts gRPC metadata; a nil md has no headers.
func metadataGetter(md metadata.MD) headerGetter {
	return func(key string) []string {
		if md == nil {
			return nil
		}
		return md.Get(key)
	}
}

// peerAddrFromContext extracts the IP address from the gRPC peer information
// stored in ctx.
func peerAddrFromContext(ctx context.Context) (netip.Addr, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return netip.Addr{}, false
	}
	return addrFromNetAddr(p.Addr)
}

// addrFromNetAddr parses a net.Addr into a netip.Addr, stripping any port.
func addrFromNetAddr(addr net.Addr) (netip.Addr, bool) {
	return parseHostPort(addr.String())
}

// parseHostPort parses "host:port" or a bare host into a netip.Addr.
func parseHostPort(addrStr string) (netip.Addr, bool) {
	// Try parsing as host:port first.
	if host, _, err := net.SplitHostPort(addrStr); err == nil {
		addrStr = host
	}

	ip, err := netip.ParseAddr(addrStr)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip, true
}

// isTrustedProxy reports whether addr falls within any of the given prefixes.
func isTrustedProxy(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// addrFromHeaders walks the header keys in priority order and returns the
// first valid IP address found.  For multi-value headers such as
// X-Forwarded-For the left-most (client) entry is used.
func addrFromHeaders(get headerGetter, priority []string) (netip.Addr, bool) {
	for _, key := range priority {
		vals := get(key)
		for _, v := range vals {
			// X-Forwarded-For may contain comma-separated IPs.
			for part := range strings.SplitSeq(v, ",") {
				trimmed := strings.TrimSpace(part)
				if trimmed == "" {
					continue
				}
				if ip, err := netip.ParseAddr(trimmed); err == nil {
					return ip, true
				}
			}
		}
	}
	return netip.Addr{}, false
}
