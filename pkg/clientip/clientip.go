package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ProxyHeaders are the headers commonly set by reverse proxies, in the
// order they are usually trusted.
var ProxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// FromRequest returns the client address of r. The named headers are
// checked in order and the first valid address wins; X-Forwarded-For style
// lists yield their first valid entry. RemoteAddr is the fallback.
//
// Only pass headers that a proxy in front of the service overwrites:
// clients can set any of them.
func FromRequest(r *http.Request, headers ...string) string {
	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// normalize returns the canonical form of s or "" when s is not an address.
func normalize(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
