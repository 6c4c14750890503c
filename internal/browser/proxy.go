package browser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var proxyPattern = regexp.MustCompile(`^(?:([\w.-]+):([\w.-]+)@)?([\w.-]+|\d{1,3}(?:\.\d{1,3}){3}):(\d{1,5})$`)

// Proxy is a parsed "user:pass@host:port" or "host:port" string.
type Proxy struct {
	Username string
	Password string
	Host     string
	Port     int
}

// ParseProxy validates raw. An empty string means no proxy and returns ok=false.
func ParseProxy(raw string) (Proxy, bool, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Proxy{}, false, nil
	}
	m := proxyPattern.FindStringSubmatch(v)
	if m == nil {
		return Proxy{}, false, fmt.Errorf("invalid proxy format %q (expected user:pass@host:port or host:port)", v)
	}
	port, err := strconv.Atoi(m[4])
	if err != nil || port < 1 || port > 65535 {
		return Proxy{}, false, fmt.Errorf("invalid proxy port %q", m[4])
	}
	return Proxy{Username: m[1], Password: m[2], Host: m[3], Port: port}, true, nil
}

func (p Proxy) HasAuth() bool {
	return p.Username != ""
}

// ServerURL is the value for Chrome's --proxy-server flag. Credentials are never included.
func (p Proxy) ServerURL() string {
	return fmt.Sprintf("http://%s:%d", p.Host, p.Port)
}

// Redacted is safe to log.
func (p Proxy) Redacted() string {
	if p.HasAuth() {
		return fmt.Sprintf("%s:***@%s:%d", p.Username, p.Host, p.Port)
	}
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
