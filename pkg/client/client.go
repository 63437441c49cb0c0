// Package client implements the NNTP Client: connection lifecycle,
// command dispatch, and the typed RFC 3977 / RFC 4643 command surface
// built on top of pkg/framer and pkg/article.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sntran/go-nntp/pkg/article"
	"github.com/sntran/go-nntp/pkg/buffer"
	"github.com/sntran/go-nntp/pkg/constants"
	"github.com/sntran/go-nntp/pkg/dialer"
	"github.com/sntran/go-nntp/pkg/errors"
	"github.com/sntran/go-nntp/pkg/framer"
	"github.com/sntran/go-nntp/pkg/lineio"
	"github.com/sntran/go-nntp/pkg/timing"
)

// Client owns a single NNTP connection. All commands are serialized
// through a single mutex: RFC 3977 does not allow pipelining, and a
// Client represents exactly one connection, never a pool.
type Client struct {
	opts ConnectOptions
	log  *logrus.Logger

	mu               sync.Mutex
	conn             net.Conn
	w                *bufio.Writer
	lr               *lineio.Reader
	pendingBody      *framer.BodyStream
	authenticated    bool
	lastAuthResponse framer.Response
	closed           bool

	timer   *timing.Timer
	metrics timing.Metrics
	meta    dialer.Metadata

	trace *buffer.Buffer
}

// New creates a Client that has not yet connected.
func New(opts ConnectOptions) *Client {
	return &Client{opts: opts, log: opts.logger()}
}

// Connect dials the server, reads its greeting, and, if credentials are
// set on ConnectOptions, authenticates. The greeting's status (200 =
// posting allowed, 201 = posting prohibited) is returned verbatim as the
// Response; callers that only care whether Connect succeeded can ignore
// it.
func (c *Client) Connect(ctx context.Context) (framer.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer = timing.NewTimer()
	conn, meta, err := dialer.Dial(ctx, c.opts.dialerConfig(), c.timer)
	if err != nil {
		c.log.WithError(err).WithField("addr", fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)).Error("connect failed")
		return framer.Response{}, err
	}
	c.conn = conn
	c.meta = meta
	c.w = bufio.NewWriter(c.traceWriter(conn))
	c.lr = lineio.New(c.traceReader(conn))
	c.authenticated = false
	c.lastAuthResponse = framer.Response{}
	c.pendingBody = nil
	c.closed = false

	c.log.WithFields(logrus.Fields{
		"addr": conn.RemoteAddr().String(),
		"tls":  c.opts.UseTLS,
	}).Debug("connected, waiting for greeting")

	c.timer.StartGreeting()
	resp, err := framer.ParseUnhinted(c.lr)
	c.timer.EndGreeting()
	if err != nil {
		conn.Close()
		return framer.Response{}, err
	}
	if resp.Status != 200 && resp.Status != 201 {
		conn.Close()
		return resp, errors.NewProtocolError(fmt.Sprintf("unexpected greeting status %d", resp.Status), nil)
	}
	c.metrics = c.timer.GetMetrics()

	c.log.WithFields(logrus.Fields{
		"status": resp.Status,
		"text":   resp.StatusText,
	}).Info("server greeting received")

	if c.opts.Username != "" && c.opts.Password != "" {
		if _, err := c.authInfoLocked(ctx, c.opts.Username, c.opts.Password); err != nil {
			conn.Close()
			return resp, err
		}
	}

	return resp, nil
}

// Metrics returns the DNS/TCP/TLS/greeting timing breakdown recorded
// during Connect.
func (c *Client) Metrics() timing.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// ConnectionMetadata returns address and TLS details about the current
// connection.
func (c *Client) ConnectionMetadata() dialer.Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

// Authenticated reports whether AUTHINFO has completed successfully on
// this connection. It is reset to false by Connect and never set back on
// its own; a fresh Connect always requires re-authentication.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// WireTrace returns a reader over the captured wire trace, if
// ConnectOptions.TraceWire was set. Returns an error if tracing was not
// enabled.
func (c *Client) WireTrace() (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trace == nil {
		return nil, errors.NewValidationError("wire tracing was not enabled on ConnectOptions")
	}
	return c.trace.Reader()
}

func (c *Client) traceWriter(w io.Writer) io.Writer {
	if !c.opts.TraceWire {
		return w
	}
	c.trace = buffer.New(c.traceLimit())
	return io.MultiWriter(w, traceSink{buf: c.trace})
}

func (c *Client) traceReader(r io.Reader) io.Reader {
	if !c.opts.TraceWire {
		return r
	}
	if c.trace == nil {
		c.trace = buffer.New(c.traceLimit())
	}
	return io.TeeReader(r, traceSink{buf: c.trace})
}

func (c *Client) traceLimit() int64 {
	if c.opts.TraceMemLimit > 0 {
		return c.opts.TraceMemLimit
	}
	return constants.DefaultTraceMemLimit
}

// traceSink adapts buffer.Buffer (whose Write can return an error on a
// closed buffer) to the best-effort semantics a trace sink needs: a
// trace write failure must never break the underlying connection I/O.
type traceSink struct {
	buf *buffer.Buffer
}

func (t traceSink) Write(p []byte) (int, error) {
	t.buf.Write(p)
	return len(p), nil
}

// Close closes the underlying connection without sending QUIT. Prefer
// Quit for a graceful shutdown.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.closed || c.conn == nil {
		c.closed = true
		return nil
	}
	c.closed = true
	if c.trace != nil {
		c.trace.Close()
	}
	return c.conn.Close()
}

// Quit sends QUIT, reads the server's 205 acknowledgement, and closes the
// connection regardless of whether the server responded.
func (c *Client) Quit(ctx context.Context) error {
	resp, reqErr := c.Request(ctx, "QUIT")
	closeErr := c.Close()
	if reqErr != nil {
		return reqErr
	}
	if resp.Status != 205 {
		return errors.NewProtocolError(fmt.Sprintf("unexpected QUIT response status %d", resp.Status), nil)
	}
	return closeErr
}

// Request sends cmd (optionally with args joined by spaces) and returns
// the parsed Response. It is the generic entry point typed wrappers
// build on; cmd is also passed to the framer to resolve the 211
// GROUP/LISTGROUP ambiguity.
func (c *Client) Request(ctx context.Context, cmd string, args ...string) (framer.Response, error) {
	for _, arg := range args {
		if len(arg) > constants.MaxArgBytes {
			return framer.Response{}, errors.NewCommandTooLongError(cmd + " " + arg)
		}
	}
	line := cmd
	if len(args) > 0 {
		line = cmd + " " + strings.Join(args, " ")
	}
	return c.SendRaw(ctx, cmd, line)
}

// SendRaw sends an already-formatted command line verbatim. cmdHint
// disambiguates 211 (pass "" to fall back to the statusText heuristic);
// it need not equal the line's first word, though it always does for
// every typed wrapper in this package.
func (c *Client) SendRaw(ctx context.Context, cmdHint, line string) (framer.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ctx, cmdHint, line)
}

func (c *Client) sendLocked(ctx context.Context, cmdHint, line string) (framer.Response, error) {
	if c.closed || c.conn == nil {
		return framer.Response{}, errors.NewConnectionError(c.opts.Host, c.opts.Port, fmt.Errorf("not connected"))
	}
	if c.pendingBody != nil && !c.pendingBody.Done() {
		return framer.Response{}, errors.NewBodyUndrainedError()
	}
	if len(line)+2 > constants.MaxCommandLineBytes {
		return framer.Response{}, errors.NewCommandTooLongError(line)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else if c.opts.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}

	c.log.WithField("cmd", cmdHint).Debug("> " + redactCommand(cmdHint, line))

	if _, err := c.w.WriteString(line + "\r\n"); err != nil {
		return framer.Response{}, errors.NewIOError("writing command", err)
	}
	if err := c.w.Flush(); err != nil {
		return framer.Response{}, errors.NewIOError("flushing command", err)
	}

	if c.opts.ReadTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}
	}

	resp, err := framer.Parse(c.lr, cmdHint)
	if err != nil {
		return framer.Response{}, err
	}
	c.pendingBody = resp.Body

	c.log.WithFields(logrus.Fields{
		"cmd":    cmdHint,
		"status": resp.Status,
	}).Debug("< " + resp.StatusText)

	return resp, nil
}

// redactCommand hides AUTHINFO PASS arguments from debug logs.
func redactCommand(cmdHint, line string) string {
	if strings.EqualFold(cmdHint, "AUTHINFO") && strings.Contains(strings.ToUpper(line), "PASS") {
		return "AUTHINFO PASS ****"
	}
	return line
}

// writeArticle sends an Article's wire form directly to the connection,
// bypassing the line-length and pending-body checks Request applies:
// POST/IHAVE bodies are arbitrarily long by design and are never
// buffered into a single command line.
func (c *Client) writeArticle(a *article.Article) error {
	if _, err := a.WriteTo(c.w); err != nil {
		return errors.NewIOError("writing article", err)
	}
	return c.w.Flush()
}
