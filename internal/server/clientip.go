package server

import (
	"net"
	"net/http"
	"strings"
)

// clientID identifies the caller by IP. Proxy headers are trusted in order:
// X-Client-IP, Client-IP, then the first hop of X-Forwarded-For.
func clientID(r *http.Request) string {
	for _, h := range []string{"X-Client-IP", "Client-IP"} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v
		}
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
