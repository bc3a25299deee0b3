package share

import (
	"errors"
	"net"
	"testing"

	"github.com/talkdb/talkdb/internal/config"
)

func TestPublicURLDisabledWithoutShare(t *testing.T) {
	if got := PublicURL(config.HTTPConfig{Port: 7860, PublicURL: "https://x"}, nil); got != "" {
		t.Fatalf("PublicURL() = %q", got)
	}
}

func TestPublicURLPrefersConfiguredValue(t *testing.T) {
	got := PublicURL(config.HTTPConfig{Share: true, Port: 7860, PublicURL: "https://talk.example.com/"}, func() ([]net.Addr, error) {
		t.Fatal("interfaces must not be inspected")
		return nil, nil
	})
	if got != "https://talk.example.com" {
		t.Fatalf("PublicURL() = %q", got)
	}
}

func TestPublicURLUsesFirstNonLoopbackIPv4(t *testing.T) {
	addrs := func() ([]net.Addr, error) {
		return []net.Addr{
			&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
			&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
			&net.IPNet{IP: net.ParseIP("2001:db8::5"), Mask: net.CIDRMask(64, 128)},
			&net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)},
		}, nil
	}
	if got := PublicURL(config.HTTPConfig{Share: true, Port: 7860}, addrs); got != "http://192.168.1.20:7860" {
		t.Fatalf("PublicURL() = %q", got)
	}
}

func TestPublicURLHandlesInterfaceErrors(t *testing.T) {
	addrs := func() ([]net.Addr, error) { return nil, errors.New("no interfaces") }
	if got := PublicURL(config.HTTPConfig{Share: true, Port: 7860}, addrs); got != "" {
		t.Fatalf("PublicURL() = %q", got)
	}
}

func TestLocalURL(t *testing.T) {
	if got := LocalURL(config.HTTPConfig{Host: "0.0.0.0", Port: 7860}); got != "http://localhost:7860" {
		t.Fatalf("LocalURL() = %q", got)
	}
	if got := LocalURL(config.HTTPConfig{Host: "127.0.0.1", Port: 9000}); got != "http://127.0.0.1:9000" {
		t.Fatalf("LocalURL() = %q", got)
	}
}
