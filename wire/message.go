// Package wire implements the IRC wire format: parsing a single
// CRLF-delimited protocol line into a structured Message, and serializing a
// Message back to wire form.
package wire

import (
	"fmt"
	"strings"

	"github.com/hlandau/xlog"
)

var log, Log = xlog.New("tern.wire")

// Prefix identifies the originator of a Message. For a bare server prefix
// (":irc.example COMMAND ...") only Nick is set. For a full user prefix
// (":nick!name@rdns COMMAND ...") all three fields are set.
type Prefix struct {
	Nick string
	Name string
	RDNS string
}

// IsServer reports whether the prefix looks like a bare server name rather
// than a full user prefix (no Name/RDNS captured).
func (p *Prefix) IsServer() bool {
	return p != nil && p.Name == "" && p.RDNS == ""
}

// Message is a parsed IRC protocol line.
type Message struct {
	Command  string
	Args     []string
	Trailing string
	User     *Prefix
}

// ParseError reports a malformed line. It is always recoverable: the caller
// should log it and discard the line, per the protocol's tolerance for
// dropping malformed input.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed irc line %q: %s", e.Line, e.Reason)
}

// Parse decodes one IRC protocol line. line may include the terminating
// CRLF; it is stripped, along with surrounding whitespace, before parsing.
//
// Grammar: [":" prefix SP] command SP params
// params is zero or more middle parameters separated by SP, optionally
// followed by " :trailing".
func Parse(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, &ParseError{Line: line, Reason: "empty line"}
	}

	var user *Prefix
	if line[0] == ':' {
		rest, body, ok := strings.Cut(line[1:], " ")
		if !ok {
			return nil, &ParseError{Line: line, Reason: "prefix with no command"}
		}
		user = parsePrefix(rest)
		line = strings.TrimLeft(body, " ")
	}

	if line == "" {
		return nil, &ParseError{Line: line, Reason: "empty command"}
	}

	var body, trailing string
	if left, right, ok := strings.Cut(line, " :"); ok {
		body, trailing = left, right
	} else {
		body = line
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, &ParseError{Line: line, Reason: "empty command"}
	}

	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}

	return &Message{
		Command:  fields[0],
		Args:     args,
		Trailing: trailing,
		User:     user,
	}, nil
}

// parsePrefix splits "nick!name@rdns" or a bare server/nick token.
func parsePrefix(raw string) *Prefix {
	nick, rest, hasBang := strings.Cut(raw, "!")
	if !hasBang {
		return &Prefix{Nick: raw}
	}
	name, rdns, _ := strings.Cut(rest, "@")
	return &Prefix{Nick: nick, Name: name, RDNS: rdns}
}

// Serialize renders m back to wire form, terminated with CRLF.
//
// A message with empty Trailing and non-empty Args ends with a space before
// CRLF rather than a bare ":" — this is the observed wire contract, not a
// bug: there is no way to distinguish "no trailing parameter" from "empty
// trailing parameter" on the wire, so an empty Trailing with Args present
// is serialized without the ':' marker at all.
func (m *Message) Serialize() string {
	var b strings.Builder
	b.WriteString(m.Command)
	for _, a := range m.Args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	switch {
	case m.Trailing != "":
		b.WriteString(" :")
		b.WriteString(m.Trailing)
	case len(m.Args) > 0:
		b.WriteByte(' ')
	}
	b.WriteString("\r\n")
	return b.String()
}
