package client

import (
	"time"

	"github.com/sntran/go-nntp/pkg/framer"
)

// Group describes a newsgroup as reported by GROUP, LISTGROUP, LIST, or
// NEWGROUPS.
type Group struct {
	Name string
	// Count is the server's estimate of the number of articles in the
	// group (GROUP/LISTGROUP only; zero from LIST/NEWGROUPS).
	Count int64
	// Low and High are the lowest and highest article numbers the server
	// currently holds.
	Low, High int64
	// Status is "y" (posting allowed), "n" (no posting), or "m"
	// (moderated). Empty when the source response doesn't carry it.
	Status string
}

// GroupListing is the result of LISTGROUP: the selected Group plus every
// article number in range, in the order the server sent them.
type GroupListing struct {
	Group
	Articles []int64
}

// Overview is one row of an OVER/XOVER response: RFC 3977 §8.3's seven
// mandatory fields plus whatever the server appended beyond them.
type Overview struct {
	MessageNumber int64
	Subject       string
	From          string
	Date          time.Time
	MessageID     string
	References    []string
	Bytes         int
	Lines         int
	Extra         []string
}

// Article is a fetched article: ordered headers plus its body. Distinct
// from pkg/article.Article, which is for outbound POST/IHAVE
// construction.
type Article struct {
	Number  int64
	Headers framer.Headers
	Body    []byte
}
