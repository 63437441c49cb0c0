package client

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sntran/go-nntp/pkg/article"
	nntperrors "github.com/sntran/go-nntp/pkg/errors"
	"github.com/sntran/go-nntp/pkg/framer"
	"github.com/sntran/go-nntp/pkg/lineio"
)

// fakeConn is a duplex net.Conn stand-in: reads come from a scripted
// server transcript, writes land in an inspectable buffer. Modeled on
// the zeddD1abl0-nntp faker pattern, extended with the net.Conn methods
// Client's deadline handling needs.
type fakeConn struct {
	io.Reader
	out *bytes.Buffer
}

func (f fakeConn) Write(p []byte) (int, error)        { return f.out.Write(p) }
func (f fakeConn) Close() error                        { return nil }
func (f fakeConn) LocalAddr() net.Addr                 { return fakeAddr{} }
func (f fakeConn) RemoteAddr() net.Addr                { return fakeAddr{} }
func (f fakeConn) SetDeadline(time.Time) error         { return nil }
func (f fakeConn) SetReadDeadline(time.Time) error     { return nil }
func (f fakeConn) SetWriteDeadline(time.Time) error    { return nil }

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "fake:119" }

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// newFakeClient builds a Client wired directly to a scripted transcript,
// bypassing Connect/dialer entirely — these tests exercise command
// dispatch and response parsing, not dialing.
func newFakeClient(script string) (*Client, *bytes.Buffer) {
	out := &bytes.Buffer{}
	conn := fakeConn{Reader: strings.NewReader(crlf(script)), out: out}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Client{
		opts: ConnectOptions{Logger: log},
		log:  log,
		conn: conn,
		w:    bufio.NewWriter(conn),
		lr:   lineio.New(conn),
	}, out
}

func TestCapabilities(t *testing.T) {
	c, out := newFakeClient("101 Capability list:\nVERSION 2\nREADER\n.\n")
	caps, err := c.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if len(caps) != 2 || caps[0] != "VERSION 2" || caps[1] != "READER" {
		t.Fatalf("got %v", caps)
	}
	if out.String() != "CAPABILITIES\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestGroupSingleLine(t *testing.T) {
	c, out := newFakeClient("211 1000 500 1500 misc.test\n")
	g, err := c.Group(context.Background(), "misc.test")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if g.Count != 1000 || g.Low != 500 || g.High != 1500 || g.Name != "misc.test" {
		t.Fatalf("got %+v", g)
	}
	if out.String() != "GROUP misc.test\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestListGroupMultiline(t *testing.T) {
	c, _ := newFakeClient("211 3 500 1500 misc.test\n500\n501\n502\n.\n")
	gl, err := c.ListGroup(context.Background(), "misc.test", -1, -1)
	if err != nil {
		t.Fatalf("ListGroup: %v", err)
	}
	if len(gl.Articles) != 3 || gl.Articles[0] != 500 || gl.Articles[2] != 502 {
		t.Fatalf("got %+v", gl.Articles)
	}
}

func TestStat(t *testing.T) {
	c, out := newFakeClient("223 2501 <foo@bar>\n")
	n, id, err := c.Stat(context.Background(), "<foo@bar>")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if n != 2501 || id != "<foo@bar>" {
		t.Fatalf("got %d %q", n, id)
	}
	if out.String() != "STAT <foo@bar>\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestArticle(t *testing.T) {
	c, _ := newFakeClient("220 1 <id> article retrieved\nFrom: a@b\nSubject: hi\n\nline1\nline2\n.\n")
	a, err := c.Article(context.Background(), "<id>")
	if err != nil {
		t.Fatalf("Article: %v", err)
	}
	if a.Number != 1 {
		t.Fatalf("got number %d", a.Number)
	}
	if v, ok := a.Headers.Get("Subject"); !ok || v != "hi" {
		t.Fatalf("got headers %+v", a.Headers)
	}
	if string(a.Body) != "line1\r\nline2\r\n" {
		t.Fatalf("got body %q", a.Body)
	}
}

func TestHeadEmptyBody(t *testing.T) {
	c, _ := newFakeClient("221 1 <id> head\nFrom: a@b\n.\n")
	a, err := c.Head(context.Background(), "<id>")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if a.Number != 1 {
		t.Fatalf("got number %d", a.Number)
	}
	if v, ok := a.Headers.Get("From"); !ok || v != "a@b" {
		t.Fatalf("got headers %+v", a.Headers)
	}
	if len(a.Body) != 0 {
		t.Fatalf("expected no body, got %q", a.Body)
	}
}

func TestBody(t *testing.T) {
	c, _ := newFakeClient("222 1 <id> body\nline1\n.\n")
	b, err := c.Body(context.Background(), "<id>")
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if string(b) != "line1\r\n" {
		t.Fatalf("got %q", b)
	}
}

func TestDate(t *testing.T) {
	c, _ := newFakeClient("111 20200102030405\n")
	got, err := c.Date(context.Background())
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestHelp(t *testing.T) {
	c, _ := newFakeClient("100 Help text follows\nfoo\nbar\n.\n")
	lines, err := c.Help(context.Background())
	if err != nil {
		t.Fatalf("Help: %v", err)
	}
	if len(lines) != 2 || lines[0] != "foo" || lines[1] != "bar" {
		t.Fatalf("got %v", lines)
	}
}

func TestNewGroups(t *testing.T) {
	c, _ := newFakeClient("231 list follows\nmisc.test 1500 500 y\n.\n")
	groups, err := c.NewGroups(context.Background(), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewGroups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "misc.test" || groups[0].High != 1500 || groups[0].Low != 500 || groups[0].Status != "y" {
		t.Fatalf("got %+v", groups)
	}
}

func TestNewNewsDedupAndSort(t *testing.T) {
	c, _ := newFakeClient("230 list follows\n<b@x>\n<a@x>\n<b@x>\n.\n")
	ids, err := c.NewNews(context.Background(), "misc.test", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewNews: %v", err)
	}
	if len(ids) != 2 || ids[0] != "<a@x>" || ids[1] != "<b@x>" {
		t.Fatalf("got %v", ids)
	}
}

func TestListAndListActive(t *testing.T) {
	c, _ := newFakeClient("215 list follows\nmisc.test 1500 500 y\n.\n")
	groups, err := c.ListActive(context.Background(), "")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "misc.test" {
		t.Fatalf("got %+v", groups)
	}
}

func TestListExtensions(t *testing.T) {
	c, out := newFakeClient("215 extensions follow\nOVER\nHDR\n.\n")
	ext, err := c.ListExtensions(context.Background())
	if err != nil {
		t.Fatalf("ListExtensions: %v", err)
	}
	if len(ext) != 2 || ext[0] != "OVER" {
		t.Fatalf("got %v", ext)
	}
	if out.String() != "LIST EXTENSIONS\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestOverFallsBackToXOver(t *testing.T) {
	overviewLine := "500\tSubj\ta@b\tThu, 01 Jan 2020 00:00:00 +0000\t<id>\t<r1@x> <r2@x>\t1234\t20\n"
	c, out := newFakeClient("500 Command not recognized\n224 Overview information follows\n" + overviewLine + ".\n")
	rows, err := c.Over(context.Background(), "500-500")
	if err != nil {
		t.Fatalf("Over: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %+v", rows)
	}
	ov := rows[0]
	if ov.MessageNumber != 500 || ov.Subject != "Subj" || ov.From != "a@b" || ov.MessageID != "<id>" {
		t.Fatalf("got %+v", ov)
	}
	if len(ov.References) != 2 || ov.Bytes != 1234 || ov.Lines != 20 {
		t.Fatalf("got %+v", ov)
	}
	if out.String() != "OVER 500-500\r\nXOVER 500-500\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestOverNoFallbackNeeded(t *testing.T) {
	overviewLine := "1\tSubj\ta@b\tThu, 01 Jan 2020 00:00:00 +0000\t<id>\trefs\t10\t2\n"
	c, out := newFakeClient("224 Overview information follows\n" + overviewLine + ".\n")
	rows, err := c.Over(context.Background(), "1")
	if err != nil {
		t.Fatalf("Over: %v", err)
	}
	if len(rows) != 1 || rows[0].MessageNumber != 1 {
		t.Fatalf("got %+v", rows)
	}
	if out.String() != "OVER 1\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestHdr(t *testing.T) {
	c, _ := newFakeClient("225 Headers follow\n1 value1\n2 value2\n.\n")
	lines, err := c.Hdr(context.Background(), "Subject", "1-2")
	if err != nil {
		t.Fatalf("Hdr: %v", err)
	}
	if len(lines) != 2 || lines[0] != "1 value1" {
		t.Fatalf("got %v", lines)
	}
}

func TestPostSuccess(t *testing.T) {
	c, out := newFakeClient("340 Send article to be posted\n240 Article received OK\n")
	a := article.New(headersWith("Subject", "hello"), []byte("body line\n"))
	if err := c.Post(context.Background(), a); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !strings.HasPrefix(out.String(), "POST\r\n") {
		t.Fatalf("wire missing POST: %q", out.String())
	}
	if !strings.HasSuffix(out.String(), ".\r\n") {
		t.Fatalf("wire missing terminator: %q", out.String())
	}
}

func TestPostRejectedNeverSendsArticle(t *testing.T) {
	c, out := newFakeClient("440 Posting not permitted\n")
	a := article.New(headersWith("Subject", "hello"), []byte("body\n"))
	err := c.Post(context.Background(), a)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if out.String() != "POST\r\n" {
		t.Fatalf("article should not have been sent: %q", out.String())
	}
}

func TestIHaveAccepted(t *testing.T) {
	c, out := newFakeClient("335 Send article to be transferred\n235 Article transferred OK\n")
	a := article.New(headersWith("Subject", "hello"), []byte("body\n"))
	if err := c.IHave(context.Background(), "<id>", a); err != nil {
		t.Fatalf("IHave: %v", err)
	}
	if !strings.HasPrefix(out.String(), "IHAVE <id>\r\n") {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestIHaveNotWanted(t *testing.T) {
	c, _ := newFakeClient("435 Article not wanted\n")
	a := article.New(headersWith("Subject", "hello"), []byte("body\n"))
	if err := c.IHave(context.Background(), "<id>", a); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestAuthInfoImmediateAccept(t *testing.T) {
	c, out := newFakeClient("281 Authentication accepted\n")
	if _, err := c.AuthInfo(context.Background(), "alice", "s3cret"); err != nil {
		t.Fatalf("AuthInfo: %v", err)
	}
	if !c.Authenticated() {
		t.Fatalf("expected Authenticated() true")
	}
	if out.String() != "AUTHINFO USER alice\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestAuthInfoUserThenPass(t *testing.T) {
	c, out := newFakeClient("381 Password required\n281 Authentication accepted\n")
	if _, err := c.AuthInfo(context.Background(), "alice", "s3cret"); err != nil {
		t.Fatalf("AuthInfo: %v", err)
	}
	if out.String() != "AUTHINFO USER alice\r\nAUTHINFO PASS s3cret\r\n" {
		t.Fatalf("wire: %q", out.String())
	}
}

func TestAuthInfoFailure(t *testing.T) {
	c, _ := newFakeClient("481 Authentication failed\n")
	_, err := c.AuthInfo(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if nntperrors.GetErrorType(err) != nntperrors.ErrorTypeAuth {
		t.Fatalf("got error type %v", nntperrors.GetErrorType(err))
	}
	if c.Authenticated() {
		t.Fatalf("should not be authenticated")
	}
}

func TestAuthInfoSecondCallIsNoOp(t *testing.T) {
	c, out := newFakeClient("281 Authentication accepted\n")
	first, err := c.AuthInfo(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("AuthInfo: %v", err)
	}
	second, err := c.AuthInfo(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("second AuthInfo: %v", err)
	}
	if second.Status != first.Status || second.StatusText != first.StatusText {
		t.Fatalf("expected the second call to return the original response, got %+v want %+v", second, first)
	}
	if out.String() != "AUTHINFO USER alice\r\n" {
		t.Fatalf("second call should not touch the wire, got %q", out.String())
	}
}

func TestCommandTooLongRejectedPerArgument(t *testing.T) {
	c, out := newFakeClient("")
	longArg := strings.Repeat("x", 498)
	_, err := c.Request(context.Background(), "GROUP", longArg)
	if err == nil {
		t.Fatalf("expected a command-too-long error")
	}
	if nntperrors.GetErrorType(err) != nntperrors.ErrorTypeValidation {
		t.Fatalf("got error type %v", nntperrors.GetErrorType(err))
	}
	if out.Len() != 0 {
		t.Fatalf("oversized argument should never reach the wire, got %q", out.String())
	}
}

func TestBodyUndrainedRejectsNextCommand(t *testing.T) {
	c, _ := newFakeClient("220 1 <id> article retrieved\nFrom: a@b\n\nbody\n.\n")
	if _, err := c.Request(context.Background(), "ARTICLE", "<id>"); err != nil {
		t.Fatalf("ARTICLE: %v", err)
	}
	_, err := c.Request(context.Background(), "DATE")
	if err == nil {
		t.Fatalf("expected body-undrained error")
	}
	if nntperrors.GetErrorType(err) != nntperrors.ErrorTypeValidation {
		t.Fatalf("got error type %v", nntperrors.GetErrorType(err))
	}
}

func TestCommandTooLongRejected(t *testing.T) {
	c, out := newFakeClient("")
	longArg := strings.Repeat("x", 600)
	_, err := c.Request(context.Background(), "GROUP", longArg)
	if err == nil {
		t.Fatalf("expected a command-too-long error")
	}
	if nntperrors.GetErrorType(err) != nntperrors.ErrorTypeValidation {
		t.Fatalf("got error type %v", nntperrors.GetErrorType(err))
	}
	if out.Len() != 0 {
		t.Fatalf("oversized command should never reach the wire, got %q", out.String())
	}
}

func headersWith(pairs ...string) framer.Headers {
	var h framer.Headers
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Add(pairs[i], pairs[i+1])
	}
	return h
}
