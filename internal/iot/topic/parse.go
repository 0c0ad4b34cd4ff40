package topic

import (
	"bytes"
	"math"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// Query delimiters.
const (
	querySeparator = '?'
	pairSeparator  = '&'
	keySeparator   = '='
	levelSeparator = '/'
)

// CutPrefix returns b without prefix and whether b started with it.
func CutPrefix(b []byte, prefix string) ([]byte, bool) {
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return b, false
	}
	return b[len(prefix):], true
}

// CutLevel splits b at the first '/' and returns the level before it and the
// remainder after it. found is false when b has no further level.
func CutLevel(b []byte) (level, rest []byte, found bool) {
	if i := bytes.IndexByte(b, levelSeparator); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, nil, false
}

// CutQuery returns the query string following a leading "?" in b.
func CutQuery(b []byte) ([]byte, bool) {
	if len(b) == 0 || b[0] != querySeparator {
		return nil, false
	}
	return b[1:], true
}

// ParseUint32 parses b as an unsigned decimal number. Signs, spaces, an
// empty input and values above math.MaxUint32 are rejected.
func ParseUint32(b []byte) (uint32, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
		if n > math.MaxUint32 {
			return 0, false
		}
	}
	return uint32(n), true
}

// ParseStatus parses a status level.
func ParseStatus(b []byte) (iot.Status, bool) {
	n, ok := ParseUint32(b)
	if !ok || n > math.MaxInt32 {
		return 0, false
	}
	return iot.Status(n), true
}

// Query scans "key=value&key=value" pairs without allocating.
//
//	q := topic.NewQuery(query)
//	for key, value, ok := q.Next(); ok; key, value, ok = q.Next() {
//	    ...
//	}
type Query struct {
	rest []byte
	done bool
}

// NewQuery returns a scanner over query, which must not include the leading
// "?".
func NewQuery(query []byte) Query {
	return Query{rest: query, done: len(query) == 0}
}

// Next returns the next pair. A pair without "=" yields an empty value.
func (q *Query) Next() (key, value []byte, ok bool) {
	if q.done {
		return nil, nil, false
	}
	pair := q.rest
	if i := bytes.IndexByte(q.rest, pairSeparator); i >= 0 {
		pair, q.rest = q.rest[:i], q.rest[i+1:]
	} else {
		q.rest, q.done = nil, true
	}
	if i := bytes.IndexByte(pair, keySeparator); i >= 0 {
		return pair[:i], pair[i+1:], true
	}
	return pair, nil, true
}

// QueryValue returns the value of the first pair named key.
func QueryValue(query []byte, key string) ([]byte, bool) {
	q := NewQuery(query)
	for k, v, ok := q.Next(); ok; k, v, ok = q.Next() {
		if string(k) == key {
			return v, true
		}
	}
	return nil, false
}

// Matcher is one production of an inbound grammar. Parse receives the topic
// with Prefix removed and reports false when the remainder does not fit the
// production.
type Matcher[T any] struct {
	Name   string
	Prefix string
	Parse  func(rest []byte) (T, bool)
}

// Match tries matchers in order and stores the first successful result in
// out. A production that fails half way leaves out untouched, and the next
// production starts from a zero value. Match returns iot.ErrTopicNoMatch when
// no production accepts the topic.
func Match[T any](matchers []Matcher[T], received []byte, out *T) error {
	for i := range matchers {
		m := &matchers[i]
		rest, ok := CutPrefix(received, m.Prefix)
		if !ok {
			continue
		}
		if v, ok := m.Parse(rest); ok {
			*out = v
			return nil
		}
	}
	return iot.ErrTopicNoMatch
}
