// Package timing provides connection-latency measurement for the NNTP client.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the timing breakdown of establishing an NNTP session.
type Metrics struct {
	// DNSLookup is the time spent resolving the server hostname.
	DNSLookup time.Duration `json:"dns_lookup"`

	// TCPConnect is the time spent establishing the TCP connection.
	TCPConnect time.Duration `json:"tcp_connect"`

	// TLSHandshake is the time spent in the TLS handshake (zero for
	// plain-text connections).
	TLSHandshake time.Duration `json:"tls_handshake"`

	// Greeting is the time spent waiting for the server's greeting line
	// after the transport connection was established.
	Greeting time.Duration `json:"greeting"`

	// TotalTime is the total end-to-end time from dial start to greeting.
	TotalTime time.Duration `json:"total_time"`
}

// Timer helps measure the timings of establishing a session.
type Timer struct {
	start         time.Time
	dnsStart      time.Time
	dnsEnd        time.Time
	tcpStart      time.Time
	tcpEnd        time.Time
	tlsStart      time.Time
	tlsEnd        time.Time
	greetingStart time.Time
	greetingEnd   time.Time
}

// NewTimer creates a new timing measurement session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// StartDNS marks the beginning of DNS resolution.
func (t *Timer) StartDNS() { t.dnsStart = time.Now() }

// EndDNS marks the end of DNS resolution.
func (t *Timer) EndDNS() { t.dnsEnd = time.Now() }

// StartTCP marks the beginning of TCP connection.
func (t *Timer) StartTCP() { t.tcpStart = time.Now() }

// EndTCP marks the end of TCP connection.
func (t *Timer) EndTCP() { t.tcpEnd = time.Now() }

// StartTLS marks the beginning of TLS handshake.
func (t *Timer) StartTLS() { t.tlsStart = time.Now() }

// EndTLS marks the end of TLS handshake.
func (t *Timer) EndTLS() { t.tlsEnd = time.Now() }

// StartGreeting marks when we start waiting for the server's greeting.
func (t *Timer) StartGreeting() { t.greetingStart = time.Now() }

// EndGreeting marks when the greeting line has been read.
func (t *Timer) EndGreeting() { t.greetingEnd = time.Now() }

// GetMetrics returns the calculated timing metrics.
func (t *Timer) GetMetrics() Metrics {
	m := Metrics{TotalTime: time.Since(t.start)}

	if !t.dnsStart.IsZero() && !t.dnsEnd.IsZero() {
		m.DNSLookup = t.dnsEnd.Sub(t.dnsStart)
	}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.greetingStart.IsZero() && !t.greetingEnd.IsZero() {
		m.Greeting = t.greetingEnd.Sub(t.greetingStart)
	}

	return m
}

// GetConnectionTime returns the total connection establishment time
// (DNS + TCP + TLS), excluding the wait for the greeting.
func (m Metrics) GetConnectionTime() time.Duration {
	return m.DNSLookup + m.TCPConnect + m.TLSHandshake
}

// String provides a human-readable representation of the metrics.
func (m Metrics) String() string {
	return fmt.Sprintf("DNSLookup: %v, TCPConnect: %v, TLSHandshake: %v, Greeting: %v, TotalTime: %v",
		m.DNSLookup, m.TCPConnect, m.TLSHandshake, m.Greeting, m.TotalTime)
}
