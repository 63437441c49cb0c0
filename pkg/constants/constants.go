// Package constants defines magic numbers and default values used throughout go-nntp.
package constants

import "time"

// Connection timeouts
const (
	DefaultConnTimeout  = 10 * time.Second
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultDNSTimeout   = 5 * time.Second
)

// Ports
const (
	DefaultPort    = 119
	DefaultTLSPort = 563
)

// Wire-format limits (RFC 3977 section 3.1)
const (
	// MaxCommandLineBytes is the maximum size of a command line,
	// including the terminating CRLF.
	MaxCommandLineBytes = 512

	// MaxArgBytes is the maximum size of a single command argument.
	MaxArgBytes = 497

	// MaxHeaderRegionBytes bounds the 220/221 inline header region so a
	// misbehaving server can't make the framer buffer unbounded header
	// lines before reaching the blank-line/body separator.
	MaxHeaderRegionBytes = 64 * 1024
)

// Buffering
const (
	// DefaultLineReaderBufferSize is the Line Reader's initial buffer
	// size; it grows to accommodate longer lines without data loss.
	DefaultLineReaderBufferSize = 4 * 1024

	// DefaultTraceMemLimit bounds the in-memory portion of the optional
	// debug wire-trace capture before it spills to disk.
	DefaultTraceMemLimit = 1 * 1024 * 1024
)
