package client

import (
	"crypto/tls"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sntran/go-nntp/pkg/dialer"
)

// ConnectOptions controls how a Client dials, negotiates TLS, logs, and
// authenticates.
type ConnectOptions struct {
	Host string
	Port int

	// ConnectIP bypasses DNS resolution when set.
	ConnectIP string

	UseTLS             bool
	ServerName         string
	InsecureSkipVerify bool
	TLSConfig          *tls.Config
	MinTLSVersion      uint16
	MaxTLSVersion      uint16
	CipherSuites       []uint16
	CustomCACerts      [][]byte

	ConnTimeout  time.Duration
	DNSTimeout   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Proxy *dialer.Proxy

	// Username and Password, if both set, drive an automatic AUTHINFO
	// USER/PASS exchange right after Connect reads the greeting.
	Username string
	Password string

	// LogLevel controls the logrus level used for connection lifecycle
	// and per-command logging. The zero value selects logrus.InfoLevel.
	LogLevel logrus.Level

	// Logger overrides the default logger. Mostly for tests that want to
	// capture output.
	Logger *logrus.Logger

	// TraceWire, when set, captures a copy of every byte sent and
	// received into a bounded, optionally disk-spilling buffer
	// retrievable via Client.WireTrace. Independent of LogLevel: tracing
	// is for post-hoc inspection, logging is for live operational
	// visibility.
	TraceWire bool

	// TraceMemLimit bounds the in-memory portion of the wire trace
	// before it spills to disk. Zero uses constants.DefaultTraceMemLimit.
	TraceMemLimit int64
}

func (o ConnectOptions) dialerConfig() dialer.Config {
	return dialer.Config{
		Host:               o.Host,
		Port:               o.Port,
		ConnectIP:          o.ConnectIP,
		UseTLS:             o.UseTLS,
		ServerName:         o.ServerName,
		InsecureSkipVerify: o.InsecureSkipVerify,
		TLSConfig:          o.TLSConfig,
		MinTLSVersion:      o.MinTLSVersion,
		MaxTLSVersion:      o.MaxTLSVersion,
		CipherSuites:       o.CipherSuites,
		CustomCACerts:      o.CustomCACerts,
		ConnTimeout:        o.ConnTimeout,
		DNSTimeout:         o.DNSTimeout,
		Proxy:              o.Proxy,
	}
}

func (o ConnectOptions) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	log := logrus.New()
	level := o.LogLevel
	if level == 0 {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
