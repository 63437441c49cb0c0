// Package lineio provides a buffered line reader for the NNTP wire
// protocol: read up to the next LF, peek ahead without consuming, and
// decode a line as a string. NNTP lines are typically short (status
// lines, header lines, one article line at a time) but the reader must
// not lose data if a line runs longer than its initial buffer.
package lineio

import (
	"bufio"
	"io"

	"github.com/sntran/go-nntp/pkg/constants"
	"github.com/sntran/go-nntp/pkg/errors"
)

// Reader wraps a byte stream with the three operations the Response
// Framer and Body Stream need: ReadLine, Peek, and ReadString.
type Reader struct {
	br *bufio.Reader
}

// New wraps r with the default buffer size.
func New(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, constants.DefaultLineReaderBufferSize)}
}

// NewSize wraps r with an explicit initial buffer size.
func NewSize(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = constants.DefaultLineReaderBufferSize
	}
	return &Reader{br: bufio.NewReaderSize(r, size)}
}

// ReadLine returns the bytes up to and including the next LF. Lines may
// be arbitrarily long; bufio.Reader.ReadBytes grows its buffer as
// needed, so no data is lost even when a line exceeds the initial
// buffer size. Returns a bare io.EOF if the stream ends before any byte
// of a new line is read, and the partial line with a wrapped io.EOF if
// the stream ends without a trailing LF.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		return line, errors.NewIOError("reading line", err)
	}
	return line, nil
}

// ReadString is ReadLine decoded as a string.
func (r *Reader) ReadString() (string, error) {
	line, err := r.ReadLine()
	if err != nil {
		return "", err
	}
	return string(line), nil
}

// Peek returns up to n upcoming bytes without consuming them. It is used
// to distinguish a header line from the blank CRLF that ends the header
// region, and from the terminator's leading dot, inside a 220/221
// response.
func (r *Reader) Peek(n int) ([]byte, error) {
	b, err := r.br.Peek(n)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return b, errors.NewIOError("peeking", err)
	}
	return b, err
}

// Discard skips n bytes, used after Peek has confirmed what they are.
func (r *Reader) Discard(n int) error {
	if n == 0 {
		return nil
	}
	discarded, err := r.br.Discard(n)
	if err != nil {
		return errors.NewIOError("discarding", err)
	}
	if discarded != n {
		return errors.NewIOError("discarding", io.ErrUnexpectedEOF)
	}
	return nil
}

// Buffered returns the number of bytes currently buffered, which may
// include data belonging to a response the framer has not started
// reading yet. Nothing in this module calls it.
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}
