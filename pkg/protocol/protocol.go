// Package protocol implements the line-oriented BBS wire protocol.
//
// Requests are single lines of UTF-8 text: a case-insensitive verb, an
// optional sub-verb, and a raw remainder whose internal structure (often
// pipe-delimited) is interpreted only by the target handler. Responses are
// zero or more body lines followed by exactly one terminal line beginning
// with "OK" or "ERR".
package protocol

import (
	"bufio"
	"strings"
)

// Greeting is sent by the server before the first request is read.
const Greeting = "OK BBS READY"

// Request is an ephemeral parsed command line.
type Request struct {
	Verb string // first token, upper-cased
	Sub  string // second token, verbatim (handlers canonicalize)
	Arg  string // remainder after the sub token, verbatim
}

// Parse splits a request line into verb, sub-verb, and raw argument.
// The remainder is never interpreted here; delimiters inside it belong to
// the target handler.
func Parse(line string) Request {
	verb, rest := cutToken(strings.TrimRight(line, "\r\n"))
	sub, arg := cutToken(rest)
	return Request{
		Verb: strings.ToUpper(verb),
		Sub:  sub,
		Arg:  arg,
	}
}

func cutToken(s string) (token, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " \t")
}

// Reply is a complete response: body lines plus one terminal status line.
type Reply struct {
	Body   []string
	Status string
}

// OK builds a success reply. An empty msg yields a bare "OK" terminal line.
func OK(msg string) *Reply {
	if msg == "" {
		return &Reply{Status: "OK"}
	}
	return &Reply{Status: "OK " + msg}
}

// Err builds an error reply.
func Err(msg string) *Reply {
	return &Reply{Status: "ERR " + msg}
}

// WithBody prepends body lines to the reply and returns it for chaining.
func (r *Reply) WithBody(lines ...string) *Reply {
	r.Body = append(r.Body, lines...)
	return r
}

// IsOK reports whether the terminal line signals success.
func (r *Reply) IsOK() bool {
	return strings.HasPrefix(r.Status, "OK")
}

// WriteTo writes the full reply and flushes it, so the entire response is
// on the wire before the next request line is read.
func (r *Reply) WriteTo(w *bufio.Writer) error {
	for _, line := range r.Body {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString(r.Status + "\n"); err != nil {
		return err
	}
	return w.Flush()
}
