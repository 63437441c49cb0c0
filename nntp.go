// Package nntp implements an RFC 3977 / RFC 4643 NNTP client: dial a
// single connection, read the greeting, authenticate if configured, and
// issue the RFC command surface (GROUP, ARTICLE, OVER, POST, and the
// rest) through typed methods on Client.
package nntp

import (
	"context"

	"github.com/sntran/go-nntp/pkg/article"
	"github.com/sntran/go-nntp/pkg/client"
	"github.com/sntran/go-nntp/pkg/config"
	"github.com/sntran/go-nntp/pkg/dialer"
	"github.com/sntran/go-nntp/pkg/errors"
	"github.com/sntran/go-nntp/pkg/framer"
	"github.com/sntran/go-nntp/pkg/timing"
)

// Version is the current version of this library.
const Version = "1.0.0"

// Re-export key types for easier usage, so callers of this top-level
// package never need to import pkg/client, pkg/framer, etc. directly.
type (
	// Client owns a single NNTP connection and its command surface.
	Client = client.Client

	// Options controls how Connect dials, negotiates TLS, logs, and
	// authenticates.
	Options = client.ConnectOptions

	// Response is a parsed NNTP response: status line, headers (for
	// 220/221), and an optional multi-line Body Stream.
	Response = framer.Response

	// Headers is the ordered header multimap a 220/221 Response carries.
	Headers = framer.Headers

	// Group describes a newsgroup as reported by GROUP, LISTGROUP, LIST,
	// or NEWGROUPS.
	Group = client.Group

	// GroupListing is the result of LISTGROUP.
	GroupListing = client.GroupListing

	// Overview is one row of an OVER/XOVER response.
	Overview = client.Overview

	// Article is a fetched article: number, headers, and body.
	Article = client.Article

	// OutgoingArticle builds the wire form of an article for POST/IHAVE.
	OutgoingArticle = article.Article

	// Proxy configures an upstream SOCKS5 proxy.
	Proxy = dialer.Proxy

	// ConnectionMetadata describes the dialed connection: resolved IP,
	// remote address, and TLS details.
	ConnectionMetadata = dialer.Metadata

	// Metrics captures DNS/TCP/TLS/greeting timing for a connection.
	Metrics = timing.Metrics

	// Error is a structured error with a category (Type) and context.
	Error = errors.Error

	// ServerConfig is one named profile in a multi-server JSON config
	// file.
	ServerConfig = config.ServerConfig

	// Config is a named multi-profile JSON configuration file.
	Config = config.Config
)

// Re-export error type constants for convenience.
const (
	ErrorTypeDNS        = errors.ErrorTypeDNS
	ErrorTypeConnection = errors.ErrorTypeConnection
	ErrorTypeTLS        = errors.ErrorTypeTLS
	ErrorTypeTimeout    = errors.ErrorTypeTimeout
	ErrorTypeProtocol   = errors.ErrorTypeProtocol
	ErrorTypeIO         = errors.ErrorTypeIO
	ErrorTypeValidation = errors.ErrorTypeValidation
	ErrorTypeAuth       = errors.ErrorTypeAuth
)

// NewArticle builds an outgoing article from a fixed in-memory body, for
// Client.Post / Client.IHave.
func NewArticle(headers Headers, body []byte) *OutgoingArticle {
	return article.New(headers, body)
}

// Dial connects to an NNTP server and returns a ready-to-use Client. It
// is a convenience wrapper around client.New(opts).Connect(ctx); callers
// that want the greeting Response or finer control over lifecycle should
// use client.New directly.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	c := client.New(opts)
	if _, err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// DialProfile loads a named profile from a config file (path may be
// empty to use NNTP_CONFIG / the default search locations) and dials it.
func DialProfile(ctx context.Context, configPath, profile string) (*Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	srv := cfg.Server(profile)
	if srv == nil {
		return nil, errors.NewValidationError("no such server profile: " + profile)
	}
	return Dial(ctx, srv.ConnectOptions())
}
