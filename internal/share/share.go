// Package share works out where a shared server can be reached from other
// machines.
package share

import (
	"net"
	"strconv"
	"strings"

	"github.com/talkdb/talkdb/internal/config"
)

type AddrsFunc func() ([]net.Addr, error)

// LocalURL is the address to open on this machine.
func LocalURL(cfg config.HTTPConfig) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

// PublicURL returns the configured public URL, or one built from the first
// non-loopback IPv4 address. It returns "" when sharing is off or no such
// address exists.
func PublicURL(cfg config.HTTPConfig, addrs AddrsFunc) string {
	if !cfg.Share {
		return ""
	}
	if public := strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/"); public != "" {
		return public
	}
	if addrs == nil {
		addrs = net.InterfaceAddrs
	}
	list, err := addrs()
	if err != nil {
		return ""
	}
	for _, addr := range list {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return "http://" + net.JoinHostPort(ip4.String(), strconv.Itoa(cfg.Port))
		}
	}
	return ""
}
