// Package dialer establishes the single TCP or TLS connection a Client
// owns. It is a deliberately small relative of a connection-pooling
// transport: one Dial call, one net.Conn out, no idle pool, no reuse
// bookkeeping — an NNTP Client holds exactly one connection for its
// lifetime.
package dialer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sntran/go-nntp/pkg/errors"
	"github.com/sntran/go-nntp/pkg/timing"
	"github.com/sntran/go-nntp/pkg/tlsconfig"
	netproxy "golang.org/x/net/proxy"
)

// Proxy configures an upstream SOCKS5 proxy. It is the only proxy type
// wired in: NNTP has no equivalent of an HTTP CONNECT proxy negotiation,
// and SOCKS5 is the one proxy protocol that tunnels an arbitrary TCP
// stream transparently.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Config describes one dial.
type Config struct {
	Host string
	Port int

	// ConnectIP bypasses DNS resolution when set.
	ConnectIP string

	UseTLS             bool
	ServerName         string // SNI override; defaults to Host
	InsecureSkipVerify bool
	TLSConfig          *tls.Config // passthrough; cloned before use
	MinTLSVersion      uint16
	MaxTLSVersion      uint16
	CipherSuites       []uint16
	CustomCACerts      [][]byte

	ConnTimeout time.Duration
	DNSTimeout  time.Duration

	Proxy *Proxy
}

// Metadata describes the connection Dial produced.
type Metadata struct {
	ResolvedIP     string
	RemoteAddr     string
	TLSVersion     string
	TLSCipherSuite string
	TLSServerName  string
	ProxyUsed      bool
}

// Dial resolves cfg.Host (unless ConnectIP is set), opens a TCP
// connection directly or through cfg.Proxy, and upgrades it to TLS if
// cfg.UseTLS is set. timer records DNS/TCP/TLS timings as each phase
// happens; the greeting phase is the caller's responsibility since it
// requires reading off the wire.
func Dial(ctx context.Context, cfg Config, timer *timing.Timer) (net.Conn, Metadata, error) {
	var meta Metadata

	if cfg.Proxy != nil {
		conn, err := dialViaSOCKS5(ctx, cfg, timer)
		if err != nil {
			return nil, meta, err
		}
		meta.ProxyUsed = true
		meta.RemoteAddr = conn.RemoteAddr().String()
		if cfg.UseTLS {
			tlsConn, tlsErr := upgradeTLS(ctx, conn, cfg, &meta, timer)
			if tlsErr != nil {
				conn.Close()
				return nil, meta, tlsErr
			}
			return tlsConn, meta, nil
		}
		return conn, meta, nil
	}

	dialAddr, resolvedIP, err := resolveAddress(ctx, cfg, timer)
	if err != nil {
		return nil, meta, err
	}
	meta.ResolvedIP = resolvedIP

	conn, err := dialTCP(ctx, dialAddr, cfg.ConnTimeout, timer)
	if err != nil {
		return nil, meta, errors.NewConnectionError(cfg.Host, cfg.Port, err)
	}
	meta.RemoteAddr = conn.RemoteAddr().String()

	if cfg.UseTLS {
		tlsConn, tlsErr := upgradeTLS(ctx, conn, cfg, &meta, timer)
		if tlsErr != nil {
			conn.Close()
			return nil, meta, tlsErr
		}
		return tlsConn, meta, nil
	}
	return conn, meta, nil
}

func resolveAddress(ctx context.Context, cfg Config, timer *timing.Timer) (dialAddr, resolvedIP string, err error) {
	if cfg.ConnectIP != "" {
		return net.JoinHostPort(cfg.ConnectIP, strconv.Itoa(cfg.Port)), cfg.ConnectIP, nil
	}

	timer.StartDNS()
	defer timer.EndDNS()

	dnsTimeout := cfg.DNSTimeout
	if dnsTimeout <= 0 {
		dnsTimeout = 5 * time.Second
	}
	lookupCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, lookupErr := net.DefaultResolver.LookupIPAddr(lookupCtx, cfg.Host)
	if lookupErr != nil {
		return "", "", errors.NewDNSError(cfg.Host, lookupErr)
	}
	if len(addrs) == 0 {
		return "", "", errors.NewDNSError(cfg.Host, errors.NewValidationError("no IP addresses found"))
	}

	ip := addrs[0].IP.String()
	return net.JoinHostPort(ip, strconv.Itoa(cfg.Port)), ip, nil
}

func dialTCP(ctx context.Context, dialAddr string, timeout time.Duration, timer *timing.Timer) (net.Conn, error) {
	timer.StartTCP()
	defer timer.EndTCP()

	d := &net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", dialAddr)
}

func dialViaSOCKS5(ctx context.Context, cfg Config, timer *timing.Timer) (net.Conn, error) {
	timer.StartTCP()
	defer timer.EndTCP()

	proxyAddr := net.JoinHostPort(cfg.Proxy.Host, strconv.Itoa(cfg.Proxy.Port))

	var auth *netproxy.Auth
	if cfg.Proxy.Username != "" {
		auth = &netproxy.Auth{User: cfg.Proxy.Username, Password: cfg.Proxy.Password}
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d, err := netproxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, errors.NewConnectionError(cfg.Proxy.Host, cfg.Proxy.Port, fmt.Errorf("creating SOCKS5 dialer: %w", err))
	}

	targetAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := d.Dial("tcp", targetAddr)
	if err != nil {
		return nil, errors.NewConnectionError(cfg.Host, cfg.Port, fmt.Errorf("SOCKS5 connect: %w", err))
	}
	return conn, nil
}

func upgradeTLS(ctx context.Context, conn net.Conn, cfg Config, meta *Metadata, timer *timing.Timer) (net.Conn, error) {
	timer.StartTLS()
	defer timer.EndTLS()

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tlsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var tc *tls.Config
	if cfg.TLSConfig != nil {
		tc = cfg.TLSConfig.Clone()
	} else {
		tc = &tls.Config{MinVersion: tls.VersionTLS12}
		if len(cfg.CustomCACerts) > 0 {
			pool := x509.NewCertPool()
			for i, pem := range cfg.CustomCACerts {
				if !pool.AppendCertsFromPEM(pem) {
					return nil, errors.NewTLSError(cfg.Host, cfg.Port, fmt.Errorf("parsing CA certificate at index %d", i))
				}
			}
			tc.RootCAs = pool
		}
	}

	if cfg.InsecureSkipVerify {
		tc.InsecureSkipVerify = true
	}
	if cfg.ServerName != "" {
		tc.ServerName = cfg.ServerName
	} else if tc.ServerName == "" {
		tc.ServerName = cfg.Host
	}
	if cfg.MinTLSVersion > 0 {
		tc.MinVersion = cfg.MinTLSVersion
	}
	if cfg.MaxTLSVersion > 0 {
		tc.MaxVersion = cfg.MaxTLSVersion
	}
	if len(cfg.CipherSuites) > 0 {
		tc.CipherSuites = cfg.CipherSuites
	} else if tc.CipherSuites == nil {
		tlsconfig.ApplyCipherSuites(tc, tc.MinVersion)
	}

	meta.TLSServerName = tc.ServerName

	tlsConn := tls.Client(conn, tc)
	if err := tlsConn.HandshakeContext(tlsCtx); err != nil {
		return nil, errors.NewTLSError(cfg.Host, cfg.Port, err)
	}

	state := tlsConn.ConnectionState()
	meta.TLSVersion = tlsconfig.GetVersionName(state.Version)
	meta.TLSCipherSuite = tlsconfig.GetCipherSuiteName(state.CipherSuite)

	return tlsConn, nil
}
