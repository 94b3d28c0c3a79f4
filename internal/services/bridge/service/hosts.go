package service

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// hostGuard rejects requests whose Host or Origin names a host other than
// loopback or a configured one, which blocks DNS rebinding from browsers.
type hostGuard struct {
	allowed map[string]struct{}
}

func newHostGuard(hosts []string) hostGuard {
	allowed := make(map[string]struct{}, len(hosts))
	for _, entry := range hosts {
		if host := strings.ToLower(strings.TrimSpace(entry)); host != "" {
			allowed[host] = struct{}{}
		}
	}
	return hostGuard{allowed: allowed}
}

func (g hostGuard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.permits(r) {
			http.Error(w, "host not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g hostGuard) permits(r *http.Request) bool {
	if r == nil || !g.allows(r.Host) {
		return false
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	return g.allows(parsed.Host)
}

func (g hostGuard) allows(hostport string) bool {
	host, ok := hostname(hostport)
	if !ok {
		return false
	}
	if isLoopback(host) {
		return true
	}
	_, ok = g.allowed[host]
	return ok
}

// hostname strips any port and IPv6 brackets and lowercases the result.
func hostname(hostport string) (string, bool) {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host), host != ""
	}
	if strings.HasPrefix(hostport, "[") {
		if !strings.HasSuffix(hostport, "]") {
			return "", false
		}
		hostport = hostport[1 : len(hostport)-1]
	}
	return strings.ToLower(hostport), true
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
