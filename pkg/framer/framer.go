// Package framer turns a raw NNTP byte stream into typed responses. It
// implements the Response Framer and the Multi-line Body Stream: parsing
// the three-digit status line, resolving the 211 GROUP/LISTGROUP
// ambiguity, lifting inline headers out of 220/221 responses, and lazily
// undoing dot-stuffing on whatever multi-line body follows.
package framer

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/sntran/go-nntp/pkg/constants"
	"github.com/sntran/go-nntp/pkg/errors"
	"github.com/sntran/go-nntp/pkg/lineio"
)

var statusLineRE = regexp.MustCompile(`^([1-5][0-9][0-9])(?:\s+(.*?))?\r?\n$`)

var headerLineRE = regexp.MustCompile(`^([\x21-\x39\x3B-\x7E]+):\s(.*?)\r?\n$`)

// multilineStatus reports whether status, given the command that produced
// it (may be ""), introduces a Multi-line Body Stream.
//
// 211 is the one status code RFC 3977 overloads: GROUP returns a
// single-line 211, LISTGROUP returns a multi-line 211 with the same
// status text shape. The command that was sent disambiguates it
// definitively; ParseUnhinted falls back to sniffing the status text,
// which the RFC itself discourages.
func multilineStatus(status int, cmd string, statusText string) bool {
	switch status {
	case 100, 101, 215, 220, 221, 222, 224, 225, 230, 231:
		return true
	case 211:
		switch strings.ToUpper(strings.TrimSpace(cmd)) {
		case "LISTGROUP":
			return true
		case "GROUP":
			return false
		default:
			lower := strings.ToLower(statusText)
			return strings.Contains(lower, "list") || strings.Contains(lower, "follow")
		}
	default:
		return false
	}
}

// Response is one complete NNTP server reply: a status line, optional
// inline headers (220/221 only), and an optional Body Stream.
type Response struct {
	Status     int
	StatusText string
	Headers    Headers
	Body       *BodyStream
}

// Parse reads one response from r. cmd is the command that produced it
// (e.g. "GROUP", "LISTGROUP", "ARTICLE"); pass "" only when the command
// is genuinely unknown, which routes 211 through the discouraged
// statusText heuristic instead of the definitive command hint.
func Parse(r *lineio.Reader, cmd string) (Response, error) {
	line, err := r.ReadString()
	if err != nil {
		return Response{}, err
	}

	m := statusLineRE.FindStringSubmatch(line)
	if m == nil {
		return Response{}, errors.NewProtocolError(fmt.Sprintf("malformed status line %q", strings.TrimRight(line, "\r\n")), nil)
	}

	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return Response{}, errors.NewProtocolError(fmt.Sprintf("malformed status code %q", m[1]), convErr)
	}
	statusText := m[2]

	resp := Response{Status: status, StatusText: statusText}

	if status == 220 || status == 221 {
		headers, hdrErr := parseInlineHeaders(r)
		if hdrErr != nil {
			return Response{}, hdrErr
		}
		resp.Headers = headers
	}

	if multilineStatus(status, cmd, statusText) {
		resp.Body = newBodyStream(r)
	}

	return resp, nil
}

// ParseUnhinted parses a response without a known command, always
// resolving 211 via the statusText heuristic. Prefer Parse with an
// explicit command whenever the command is known.
func ParseUnhinted(r *lineio.Reader) (Response, error) {
	return Parse(r, "")
}

// parseInlineHeaders reads the header region of a 220/221 response: zero
// or more "Name: value" lines, stopped either by a blank CRLF line (body
// follows, already consumed) or by the terminator's leading dot (no
// headers or no body; left unconsumed for the Body Stream to find).
func parseInlineHeaders(r *lineio.Reader) (Headers, error) {
	var headers Headers
	var regionBytes int
	for {
		peek, err := r.Peek(2)
		if err != nil && len(peek) == 0 {
			return headers, errors.NewProtocolError("unexpected end of stream while reading header region", io.ErrUnexpectedEOF)
		}
		if len(peek) >= 2 && peek[0] == '\r' && peek[1] == '\n' {
			if err := r.Discard(2); err != nil {
				return headers, err
			}
			return headers, nil
		}
		if len(peek) >= 1 && peek[0] == '.' {
			return headers, nil
		}

		line, err := r.ReadString()
		if err != nil {
			return headers, err
		}
		regionBytes += len(line)
		if regionBytes > constants.MaxHeaderRegionBytes {
			return headers, errors.NewProtocolError("header region exceeds maximum size", nil)
		}
		hm := headerLineRE.FindStringSubmatch(line)
		if hm == nil {
			return headers, errors.NewProtocolError(fmt.Sprintf("malformed header line %q", strings.TrimRight(line, "\r\n")), nil)
		}
		headers.Add(hm[1], hm[2])
	}
}

// BodyStream is the lazy, pull-based reader for a multi-line response
// body. Each Read pulls at most one wire line through the Line Reader,
// undoes dot-stuffing, and stops exactly at the "." CRLF terminator
// without ever handing the terminator itself to the caller. Reading past
// the terminator always returns io.EOF; an underlying stream that ends
// before the terminator surfaces as io.ErrUnexpectedEOF.
type BodyStream struct {
	r    *lineio.Reader
	pend bytes.Buffer
	done bool
	err  error
}

func newBodyStream(r *lineio.Reader) *BodyStream {
	return &BodyStream{r: r}
}

// Read implements io.Reader.
func (b *BodyStream) Read(p []byte) (int, error) {
	if b.pend.Len() == 0 {
		if b.done {
			return 0, errAfterEnd(b.err)
		}
		if err := b.pull(); err != nil {
			return 0, err
		}
	}
	if b.pend.Len() == 0 {
		return 0, errAfterEnd(b.err)
	}
	return b.pend.Read(p)
}

func errAfterEnd(err error) error {
	if err != nil {
		return err
	}
	return io.EOF
}

// pull reads exactly one wire line and either terminates the stream or
// appends the unstuffed content to the pending buffer. Any error reading
// that line — clean EOF included — means the stream closed before the
// terminator arrived, which is always unexpected here.
func (b *BodyStream) pull() error {
	line, err := b.r.ReadLine()
	if err != nil {
		b.done = true
		if stderrors.Is(err, io.EOF) {
			b.err = io.ErrUnexpectedEOF
		} else {
			b.err = err
		}
		return b.err
	}

	if isTerminator(line) {
		b.done = true
		b.err = nil
		return nil
	}

	if len(line) > 0 && line[0] == '.' {
		b.pend.Write(line[1:])
	} else {
		b.pend.Write(line)
	}
	return nil
}

func isTerminator(line []byte) bool {
	return bytes.Equal(line, []byte(".\r\n")) || bytes.Equal(line, []byte(".\n"))
}

// Discard reads and drops the remainder of the body, leaving the
// underlying connection positioned at the next response. Callers that
// don't care about a response body must still call Discard before
// issuing the next command.
func (b *BodyStream) Discard() error {
	var buf [4096]byte
	for {
		_, err := b.Read(buf[:])
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Done reports whether the stream has ended and all of its content has
// been read: either the terminator was reached or reading the next line
// failed.
func (b *BodyStream) Done() bool {
	return b.done && b.pend.Len() == 0
}
