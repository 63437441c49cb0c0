// Package article builds the wire form of an NNTP article for POST and
// IHAVE: header lines, a blank separator, the body, and the "." CRLF
// terminator, with each body line dot-stuffed on the way out.
package article

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sntran/go-nntp/pkg/framer"
)

// Article is an NNTP article: an ordered header multimap and a body. Body
// may be nil (headers-only), a fixed []byte (via New), or a streamed
// io.Reader (via NewFromReader) — POST/IHAVE never need the whole body
// in memory at once.
type Article struct {
	Headers framer.Headers
	Body    io.Reader
}

// New builds an Article whose body is already fully in memory.
func New(headers framer.Headers, body []byte) *Article {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	return &Article{Headers: headers, Body: r}
}

// NewFromReader builds an Article whose body is streamed from r as it is
// encoded, never buffered whole.
func NewFromReader(headers framer.Headers, body io.Reader) *Article {
	return &Article{Headers: headers, Body: body}
}

// MessageID returns the article's Message-ID header, if set.
func (a *Article) MessageID() (string, bool) {
	return a.Headers.Get("Message-ID")
}

func (a *Article) String() string {
	if id, ok := a.MessageID(); ok {
		return fmt.Sprintf("[NNTP article %s]", id)
	}
	return "[NNTP article]"
}

// WriteTo writes the article's wire form to w: headers, a blank line
// separator, the dot-stuffed body, and the "." CRLF terminator. It
// satisfies io.WriterTo so it can be handed directly to io.Copy.
func (a *Article) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	for _, f := range a.Headers {
		if _, err := fmt.Fprintf(cw, "%s: %s\r\n", f.Name, f.Value); err != nil {
			return cw.n, err
		}
	}
	if len(a.Headers) > 0 {
		if _, err := io.WriteString(cw, "\r\n"); err != nil {
			return cw.n, err
		}
	}

	if a.Body != nil {
		if err := stuffBody(cw, a.Body); err != nil {
			return cw.n, err
		}
	}

	if _, err := io.WriteString(cw, ".\r\n"); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// stuffBody copies body to w one line at a time, doubling a leading "."
// on any line that has one and always terminating each emitted line with
// CRLF regardless of how the source line was terminated. This includes a
// final line left over at EOF with no trailing newline at all — it still
// gets dot-stuffed and CRLF-terminated like any other line, so the "."
// terminator written after it always starts its own line.
func stuffBody(w io.Writer, body io.Reader) error {
	br := bufio.NewReader(body)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF

		if eof && line == "" {
			return nil
		}

		line = strings.TrimRight(line, "\r\n")
		prefix := ""
		if strings.HasPrefix(line, ".") {
			prefix = "."
		}
		if _, werr := fmt.Fprintf(w, "%s%s\r\n", prefix, line); werr != nil {
			return werr
		}

		if eof {
			return nil
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
