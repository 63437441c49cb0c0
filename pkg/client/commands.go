package client

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sntran/go-nntp/pkg/article"
	"github.com/sntran/go-nntp/pkg/errors"
	"github.com/sntran/go-nntp/pkg/framer"
)

const timeFormatNewGroups = "20060102 150405"

func maybeID(cmd, id string) (string, []string) {
	if id == "" {
		return cmd, nil
	}
	return cmd, []string{id}
}

// Capabilities returns the server's advertised capability lines.
func (c *Client) Capabilities(ctx context.Context) ([]string, error) {
	resp, err := c.Request(ctx, "CAPABILITIES")
	if err != nil {
		return nil, err
	}
	if resp.Status != 101 {
		return nil, unexpectedStatus("CAPABILITIES", 101, resp)
	}
	return readBodyLines(resp.Body)
}

// ModeReader switches a feed-only server into reader mode.
func (c *Client) ModeReader(ctx context.Context) (framer.Response, error) {
	resp, err := c.Request(ctx, "MODE", "READER")
	if err != nil {
		return resp, err
	}
	if resp.Status != 200 && resp.Status != 201 {
		return resp, unexpectedStatus("MODE READER", 200, resp)
	}
	return resp, nil
}

// Group selects a newsgroup as the current group.
func (c *Client) Group(ctx context.Context, name string) (Group, error) {
	resp, err := c.Request(ctx, "GROUP", name)
	if err != nil {
		return Group{}, err
	}
	if resp.Status != 211 {
		return Group{}, unexpectedStatus("GROUP", 211, resp)
	}
	g, err := parseGroupStatus(resp.StatusText)
	if err != nil {
		return Group{}, err
	}
	g.Name = name
	return g, nil
}

func parseGroupStatus(statusText string) (Group, error) {
	fields := strings.SplitN(statusText, " ", 4)
	if len(fields) < 3 {
		return Group{}, errors.NewProtocolError(fmt.Sprintf("malformed GROUP status text %q", statusText), nil)
	}
	var n [3]int64
	for i := range n {
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return Group{}, errors.NewProtocolError(fmt.Sprintf("malformed GROUP status text %q", statusText), err)
		}
		n[i] = v
	}
	return Group{Count: n[0], Low: n[1], High: n[2]}, nil
}

// ListGroup selects a group (if name is non-empty) and returns the full
// set of article numbers in [from, to], or the whole group if from/to
// are both negative.
func (c *Client) ListGroup(ctx context.Context, name string, from, to int64) (GroupListing, error) {
	args := []string{}
	if name != "" {
		args = append(args, name)
	}
	if from >= 0 {
		rang := strconv.FormatInt(from, 10) + "-"
		if to >= 0 {
			rang += strconv.FormatInt(to, 10)
		}
		args = append(args, rang)
	}

	resp, err := c.Request(ctx, "LISTGROUP", args...)
	if err != nil {
		return GroupListing{}, err
	}
	if resp.Status != 211 {
		return GroupListing{}, unexpectedStatus("LISTGROUP", 211, resp)
	}

	listing := GroupListing{}
	if g, gerr := parseGroupStatus(resp.StatusText); gerr == nil {
		listing.Group = g
	}
	if name != "" {
		listing.Name = name
	}

	lines, err := readBodyLines(resp.Body)
	if err != nil {
		return GroupListing{}, err
	}
	for _, line := range lines {
		num, perr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if perr != nil {
			return GroupListing{}, errors.NewProtocolError(fmt.Sprintf("malformed article number %q in LISTGROUP body", line), perr)
		}
		listing.Articles = append(listing.Articles, num)
	}
	return listing, nil
}

func (c *Client) nextLastStat(ctx context.Context, cmd, id string) (number int64, msgID string, err error) {
	name, args := maybeID(cmd, id)
	resp, err := c.Request(ctx, name, args...)
	if err != nil {
		return 0, "", err
	}
	if resp.Status != 223 {
		return 0, "", unexpectedStatus(cmd, 223, resp)
	}
	fields := strings.SplitN(resp.StatusText, " ", 3)
	if len(fields) < 2 {
		return 0, "", errors.NewProtocolError(fmt.Sprintf("malformed %s status text %q", cmd, resp.StatusText), nil)
	}
	number, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", errors.NewProtocolError(fmt.Sprintf("malformed %s article number %q", cmd, fields[0]), err)
	}
	return number, fields[1], nil
}

// Stat looks up an article's number/Message-ID without retrieving it.
func (c *Client) Stat(ctx context.Context, id string) (int64, string, error) {
	return c.nextLastStat(ctx, "STAT", id)
}

// Last selects the previous article in the current group.
func (c *Client) Last(ctx context.Context) (int64, string, error) {
	return c.nextLastStat(ctx, "LAST", "")
}

// Next selects the next article in the current group.
func (c *Client) Next(ctx context.Context) (int64, string, error) {
	return c.nextLastStat(ctx, "NEXT", "")
}

// Article retrieves a full article (headers and body) by number or
// Message-ID ("" means the currently selected article).
func (c *Client) Article(ctx context.Context, id string) (Article, error) {
	name, args := maybeID("ARTICLE", id)
	resp, err := c.Request(ctx, name, args...)
	if err != nil {
		return Article{}, err
	}
	if resp.Status != 220 {
		return Article{}, unexpectedStatus("ARTICLE", 220, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Article{}, err
	}
	return Article{Number: statNumber(resp.StatusText), Headers: resp.Headers, Body: body}, nil
}

// Head retrieves only an article's headers.
func (c *Client) Head(ctx context.Context, id string) (Article, error) {
	name, args := maybeID("HEAD", id)
	resp, err := c.Request(ctx, name, args...)
	if err != nil {
		return Article{}, err
	}
	if resp.Status != 221 {
		return Article{}, unexpectedStatus("HEAD", 221, resp)
	}
	if resp.Body != nil {
		if err := resp.Body.Discard(); err != nil {
			return Article{}, err
		}
	}
	return Article{Number: statNumber(resp.StatusText), Headers: resp.Headers}, nil
}

// Body retrieves only an article's body as raw bytes.
func (c *Client) Body(ctx context.Context, id string) ([]byte, error) {
	name, args := maybeID("BODY", id)
	resp, err := c.Request(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	if resp.Status != 222 {
		return nil, unexpectedStatus("BODY", 222, resp)
	}
	return io.ReadAll(resp.Body)
}

func statNumber(statusText string) int64 {
	fields := strings.SplitN(statusText, " ", 2)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.ParseInt(fields[0], 10, 64)
	return n
}

// Date returns the server's current time, as reported by the DATE
// command.
func (c *Client) Date(ctx context.Context) (time.Time, error) {
	resp, err := c.Request(ctx, "DATE")
	if err != nil {
		return time.Time{}, err
	}
	if resp.Status != 111 {
		return time.Time{}, unexpectedStatus("DATE", 111, resp)
	}
	t, err := time.ParseInLocation("20060102150405", strings.TrimSpace(resp.StatusText), time.UTC)
	if err != nil {
		return time.Time{}, errors.NewProtocolError(fmt.Sprintf("malformed DATE response %q", resp.StatusText), err)
	}
	return t, nil
}

// Help returns the server's free-form help text, line by line.
func (c *Client) Help(ctx context.Context) ([]string, error) {
	resp, err := c.Request(ctx, "HELP")
	if err != nil {
		return nil, err
	}
	if resp.Status != 100 && resp.Status != 101 {
		return nil, unexpectedStatus("HELP", 100, resp)
	}
	return readBodyLines(resp.Body)
}

// NewGroups lists newsgroups created since the given time.
func (c *Client) NewGroups(ctx context.Context, since time.Time) ([]Group, error) {
	resp, err := c.Request(ctx, "NEWGROUPS", since.UTC().Format(timeFormatNewGroups), "GMT")
	if err != nil {
		return nil, err
	}
	if resp.Status != 231 {
		return nil, unexpectedStatus("NEWGROUPS", 231, resp)
	}
	lines, err := readBodyLines(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseGroupLines(lines)
}

func parseGroupLines(lines []string) ([]Group, error) {
	groups := make([]Group, 0, len(lines))
	for _, line := range lines {
		fields := strings.SplitN(strings.TrimSpace(line), " ", 4)
		if len(fields) < 4 {
			return nil, errors.NewProtocolError(fmt.Sprintf("malformed group line %q", line), nil)
		}
		high, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, errors.NewProtocolError(fmt.Sprintf("malformed group line %q", line), err)
		}
		low, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, errors.NewProtocolError(fmt.Sprintf("malformed group line %q", line), err)
		}
		groups = append(groups, Group{Name: fields[0], High: high, Low: low, Status: fields[3]})
	}
	return groups, nil
}

// NewNews lists the Message-IDs of articles posted to a group since the
// given time, deduplicated and sorted.
func (c *Client) NewNews(ctx context.Context, group string, since time.Time) ([]string, error) {
	resp, err := c.Request(ctx, "NEWNEWS", group, since.UTC().Format(timeFormatNewGroups), "GMT")
	if err != nil {
		return nil, err
	}
	if resp.Status != 230 {
		return nil, unexpectedStatus("NEWNEWS", 230, resp)
	}
	ids, err := readBodyLines(resp.Body)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	w := 0
	for r, id := range ids {
		if r == 0 || ids[r-1] != id {
			ids[w] = id
			w++
		}
	}
	return ids[:w], nil
}

// List issues LIST (or a LIST keyword variant, e.g. "ACTIVE",
// "NEWSGROUPS") and returns the raw body lines — the field layout varies
// by keyword, so callers that need structured ACTIVE-style rows should
// use ListActive.
func (c *Client) List(ctx context.Context, keyword string, args ...string) ([]string, error) {
	cmdArgs := args
	if keyword != "" {
		cmdArgs = append([]string{keyword}, args...)
	}
	resp, err := c.Request(ctx, "LIST", cmdArgs...)
	if err != nil {
		return nil, err
	}
	if resp.Status != 215 {
		return nil, unexpectedStatus("LIST", 215, resp)
	}
	return readBodyLines(resp.Body)
}

// ListActive is LIST (or LIST ACTIVE) parsed into Group rows.
func (c *Client) ListActive(ctx context.Context, pattern string) ([]Group, error) {
	keyword := ""
	var args []string
	if pattern != "" {
		keyword = "ACTIVE"
		args = []string{pattern}
	}
	lines, err := c.List(ctx, keyword, args...)
	if err != nil {
		return nil, err
	}
	return parseGroupLines(lines)
}

// ListExtensions is LIST EXTENSIONS, returning RFC 4643-style extension
// labels.
func (c *Client) ListExtensions(ctx context.Context) ([]string, error) {
	return c.List(ctx, "EXTENSIONS")
}

// Over returns overview rows for a range/number/Message-ID, trying OVER
// first and falling back to XOVER if the server doesn't recognize it.
func (c *Client) Over(ctx context.Context, rang string) ([]Overview, error) {
	var args []string
	if rang != "" {
		args = []string{rang}
	}

	resp, err := c.Request(ctx, "OVER", args...)
	if err != nil {
		return nil, err
	}
	if resp.Status == 500 || resp.Status == 501 {
		resp, err = c.Request(ctx, "XOVER", args...)
		if err != nil {
			return nil, err
		}
	}
	if resp.Status != 224 {
		return nil, unexpectedStatus("OVER", 224, resp)
	}
	lines, err := readBodyLines(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseOverviewLines(lines)
}

func parseOverviewLines(lines []string) ([]Overview, error) {
	result := make([]Overview, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 8 {
			return nil, errors.NewProtocolError(fmt.Sprintf("short overview line (%d fields): %q", len(fields), line), nil)
		}

		num, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, errors.NewProtocolError(fmt.Sprintf("malformed overview message number %q", fields[0]), err)
		}

		ov := Overview{MessageNumber: num, Subject: fields[1], From: fields[2], MessageID: fields[4]}
		if d, derr := parseOverviewDate(fields[3]); derr == nil {
			ov.Date = d
		}

		// A server in the wild emits tab-delimited References instead
		// of space-delimited, which shifts every field after it right by
		// one per extra tab. Detect this by checking whether the
		// would-be :bytes field parses as a number; if not, glue it back
		// onto the References field and retry.
		for len(fields) >= 8 {
			if _, berr := strconv.Atoi(fields[6]); berr == nil {
				break
			}
			fields[5] = fields[5] + fields[6]
			fields = append(fields[:6], fields[7:]...)
		}
		if len(fields) < 8 {
			return nil, errors.NewProtocolError(fmt.Sprintf("short overview line after References repair: %q", line), nil)
		}

		ov.References = strings.Fields(fields[5])
		if b, berr := strconv.Atoi(fields[6]); berr == nil {
			ov.Bytes = b
		}
		if fields[7] != "" {
			if l, lerr := strconv.Atoi(fields[7]); lerr == nil {
				ov.Lines = l
			}
		}
		if len(fields) > 8 {
			ov.Extra = append([]string{}, fields[8:]...)
		}
		result = append(result, ov)
	}
	return result, nil
}

func parseOverviewDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, "2 Jan 2006 15:04:05 -0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewValidationError("unparseable overview date: " + s)
}

// Hdr returns a single header field's value for each article in range,
// as raw "number value" lines (RFC 3977 §8.5 doesn't normalize further).
func (c *Client) Hdr(ctx context.Context, header, rang string) ([]string, error) {
	args := []string{header}
	if rang != "" {
		args = append(args, rang)
	}
	resp, err := c.Request(ctx, "HDR", args...)
	if err != nil {
		return nil, err
	}
	if resp.Status != 225 {
		return nil, unexpectedStatus("HDR", 225, resp)
	}
	return readBodyLines(resp.Body)
}

// Post submits an article in a single POST transaction: sends POST,
// waits for the 340 intermediate, streams the article, and returns the
// final status. A non-340 initial response (e.g. 440 posting not
// permitted) is returned as an error without attempting to send the
// article. The whole transaction holds the connection lock throughout,
// since an intervening command here would desynchronize the stream.
func (c *Client) Post(ctx context.Context, a *article.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.sendLocked(ctx, "POST", "POST")
	if err != nil {
		return err
	}
	if resp.Status != 340 {
		return unexpectedStatus("POST", 340, resp)
	}

	if err := c.writeArticle(a); err != nil {
		return err
	}

	final, err := framer.Parse(c.lr, "POST")
	if err != nil {
		return err
	}
	c.pendingBody = final.Body
	if final.Status != 240 {
		return unexpectedStatus("POST", 240, final)
	}
	return nil
}

// IHave offers an article by Message-ID and, if the server wants it,
// transfers it. A 435/436/437 response (not wanted / try later /
// rejected) is returned as an error without sending the article body.
func (c *Client) IHave(ctx context.Context, messageID string, a *article.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.sendLocked(ctx, "IHAVE", "IHAVE "+messageID)
	if err != nil {
		return err
	}
	if resp.Status != 335 {
		return unexpectedStatus("IHAVE", 335, resp)
	}

	if err := c.writeArticle(a); err != nil {
		return err
	}

	final, err := framer.Parse(c.lr, "IHAVE")
	if err != nil {
		return err
	}
	c.pendingBody = final.Body
	if final.Status != 235 {
		return unexpectedStatus("IHAVE", 235, final)
	}
	return nil
}

// AuthInfo performs the AUTHINFO USER/PASS exchange (RFC 4643 §2.3). Once
// a connection has authenticated successfully, further calls are no-ops
// that return the original success response without touching the wire —
// a connection authenticates once, not per-command.
func (c *Client) AuthInfo(ctx context.Context, username, password string) (framer.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authInfoLocked(ctx, username, password)
}

func (c *Client) authInfoLocked(ctx context.Context, username, password string) (framer.Response, error) {
	if c.authenticated {
		return c.lastAuthResponse, nil
	}

	resp, err := c.sendLocked(ctx, "AUTHINFO", "AUTHINFO USER "+username)
	if err != nil {
		return resp, err
	}
	switch resp.Status {
	case 281:
		c.authenticated = true
		c.lastAuthResponse = resp
		return resp, nil
	case 381:
		// continue below
	default:
		return resp, newAuthError(resp)
	}

	resp, err = c.sendLocked(ctx, "AUTHINFO", "AUTHINFO PASS "+password)
	if err != nil {
		return resp, err
	}
	if resp.Status != 281 {
		return resp, newAuthError(resp)
	}
	c.authenticated = true
	c.lastAuthResponse = resp
	return resp, nil
}

func newAuthError(resp framer.Response) error {
	e := errors.NewProtocolError(fmt.Sprintf("AUTHINFO failed: %d %s", resp.Status, resp.StatusText), nil)
	e.Type = errors.ErrorTypeAuth
	return e
}

func unexpectedStatus(op string, want int, resp framer.Response) error {
	return errors.NewProtocolError(fmt.Sprintf("%s: expected %d, got %d %s", op, want, resp.Status, resp.StatusText), nil)
}

func readBodyLines(body *framer.BodyStream) ([]string, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	text := string(raw)
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimRight(l, "\r"))
	}
	return out, nil
}
