// Package wire implements the constrained HTTP/1.1 dialect used for every
// hop between devices: a start line, sorted headers, and an optional body.
package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrBadMessage is returned by ReadFrom when the start line cannot be
// read at all.
var ErrBadMessage = errors.New("wire: bad message")

// defaultContentType is attached to every Message produced by this
// package's constructors.
const defaultContentType = "text/json; charset=utf-8"

// Message is a start line, a case-sensitive header map, and an optional
// body.
type Message struct {
	StartLine string
	Headers   map[string]string
	Body      []byte

	hasBody bool
}

func newMessage(startLine string) *Message {
	return &Message{
		StartLine: startLine,
		Headers:   map[string]string{"Content-Type": defaultContentType},
	}
}

// NewRequest builds a request-line Message: "<method> <url> HTTP/1.1".
func NewRequest(method, url string) *Message {
	return newMessage(fmt.Sprintf("%s %s HTTP/1.1", method, url))
}

// GetRequest is a convenience constructor for a GET request.
func GetRequest(url string) *Message {
	return NewRequest("GET", url)
}

// PostRequest is a convenience constructor for a POST request.
func PostRequest(url string) *Message {
	return NewRequest("POST", url)
}

var reasonPhrases = map[int]string{
	200: "OK",
	400: "Bad Request",
	404: "Not Found",
	501: "Not Implemented",
}

// NewResponse builds a status-line Message for one of the recognised
// status codes {200, 400, 404, 501}. An unrecognised code is a programmer
// error and panics rather than failing silently.
func NewResponse(status int) *Message {
	reason, ok := reasonPhrases[status]
	if !ok {
		panic(fmt.Sprintf("wire: unsupported status code %d", status))
	}
	return newMessage(fmt.Sprintf("HTTP/1.1 %d %s", status, reason))
}

// WithHeaders merges h into the message's headers, overwriting existing
// keys, and returns the receiver for chaining.
func (m *Message) WithHeaders(h map[string]string) *Message {
	for k, v := range h {
		m.Headers[k] = v
	}
	return m
}

// WithBody attaches body, setting Content-Length accordingly, and returns
// the receiver for chaining.
func (m *Message) WithBody(body []byte) *Message {
	m.Body = body
	m.hasBody = true
	m.Headers["Content-Length"] = strconv.Itoa(len(body))
	return m
}

// HasBody reports whether a body was attached via WithBody or recovered
// by ReadFrom.
func (m *Message) HasBody() bool {
	return m.hasBody
}

// Header looks up a header by exact (case-sensitive) key.
func (m *Message) Header(key string) (string, bool) {
	v, ok := m.Headers[key]
	return v, ok
}

// WriteTo serialises m: the start line, headers sorted by key ascending,
// a blank line, and — if a body is attached — the body bytes followed by
// a trailing blank line.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(m.StartLine)
	buf.WriteString("\r\n")

	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(m.Headers[k])
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")

	if m.hasBody {
		buf.Write(m.Body)
		buf.WriteString("\r\n\r\n")
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom parses a Message from r: the first line is the start line,
// subsequent "key: value" lines are headers up to the first blank line,
// and a Content-Length header (if present and positive) determines the
// number of body bytes read. Malformed header lines are skipped silently.
func ReadFrom(r io.Reader) (*Message, error) {
	br := bufio.NewReader(r)

	startLine, err := br.ReadString('\n')
	startLine = strings.TrimRight(startLine, "\r\n")
	if startLine == "" || (err != nil && err != io.EOF) {
		return nil, ErrBadMessage
	}

	m := &Message{StartLine: startLine, Headers: map[string]string{}}

	for {
		line, lineErr := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed != "" {
			if idx := strings.Index(trimmed, ": "); idx >= 0 {
				m.Headers[trimmed[:idx]] = trimmed[idx+2:]
			}
		}
		if lineErr != nil || trimmed == "" {
			break
		}
	}

	if cl, ok := m.Headers["Content-Length"]; ok {
		n, convErr := strconv.Atoi(cl)
		if convErr == nil && n > 0 {
			body := make([]byte, n)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, fmt.Errorf("wire: read body: %w", err)
			}
			m.Body = body
			m.hasBody = true
		}
	}

	return m, nil
}
