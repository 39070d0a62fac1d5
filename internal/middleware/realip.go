package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites r.RemoteAddr to the client address reported by a trusted
// reverse proxy. Forwarding headers are ignored unless the direct peer falls
// inside one of the trusted prefixes, so a client talking to the service
// directly cannot choose its own address.
//
// X-Forwarded-For is walked from the right, skipping trusted hops; the first
// untrusted entry is the client. X-Real-IP is used when X-Forwarded-For is
// absent.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, ok := parseHost(r.RemoteAddr)
			if ok && isTrusted(peer, trusted) {
				if client, found := forwardedClient(r.Header, trusted); found {
					r.RemoteAddr = client.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(h http.Header, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := h.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var last netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			addr = addr.Unmap()
			last = addr
			if !isTrusted(addr, trusted) {
				return addr, true
			}
		}
		// Every parsable hop was a proxy; the leftmost one is the best guess.
		return last, last.IsValid()
	}

	if xri := strings.TrimSpace(h.Get("X-Real-IP")); xri != "" {
		addr, err := netip.ParseAddr(xri)
		if err != nil {
			return netip.Addr{}, false
		}
		return addr.Unmap(), true
	}

	return netip.Addr{}, false
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseHost accepts "host:port" or a bare address.
func parseHost(remoteAddr string) (netip.Addr, bool) {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
