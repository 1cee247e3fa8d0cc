// Package transport opens the plain or TLS TCP socket a connection manager
// reads and writes IRC lines over.
package transport

import (
	"crypto/tls"
	"fmt"
	"net"

	denet "github.com/hlandau/degoutils/net"
	"github.com/hlandau/xlog"
)

var log, Log = xlog.New("tern.transport")

// IPFamily selects the address family used to dial, mirroring the
// server_ip_type config option.
type IPFamily int

const (
	// IPAny lets the dialer pick (Go's default happy-eyeballs behavior).
	IPAny IPFamily = iota
	IPv4
	IPv6
)

func (f IPFamily) network() string {
	switch f {
	case IPv4:
		return "tcp4"
	case IPv6:
		return "tcp6"
	default:
		return "tcp"
	}
}

// Config configures Dial.
type Config struct {
	Dialer    net.Dialer
	TLSConfig *tls.Config
	Family    IPFamily
	UseTLS    bool
}

func (cfg *Config) setDefaults() {
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{}
	}
	cfg.TLSConfig.NextProtos = []string{"irc"}
	if cfg.TLSConfig.MinVersion == 0 {
		cfg.TLSConfig.MinVersion = tls.VersionTLS12
	}
}

// Dial opens a socket to address ("host" or "host:port"), applying the
// default IRC ports (6667 plain, 6697 TLS) when no port is given.
func Dial(address string, cfg Config) (net.Conn, error) {
	cfg.setDefaults()
	network := cfg.Family.network()
	address = fixupAddress(network, cfg.UseTLS, address)

	log.Debugf("dialing %s over %s (tls=%v)", address, network, cfg.UseTLS)

	if cfg.UseTLS {
		conn, err := tls.DialWithDialer(&cfg.Dialer, network, address, cfg.TLSConfig)
		if err != nil {
			log.Errore(err, "tls dial failed")
			return nil, err
		}
		return conn, nil
	}

	conn, err := cfg.Dialer.Dial(network, address)
	if err != nil {
		log.Errore(err, "dial failed")
		return nil, err
	}
	return conn, nil
}

func fixupAddress(network string, useTLS bool, address string) string {
	host, port, err := denet.FuzzySplitHostPort(address)
	if err != nil {
		return address
	}

	if port == "" {
		if useTLS {
			port = "6697"
		} else {
			port = "6667"
		}
	}

	_ = network
	return net.JoinHostPort(host, port)
}

// Describe renders host and port as a "host:port" address string, suitable
// for passing to Dial.
func Describe(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
