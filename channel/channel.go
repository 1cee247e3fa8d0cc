// Package channel implements the per-joined-channel state actor: membership,
// modes, and a rolling buffer of recent PRIVMSGs, each serialized through a
// single goroutine per channel.
package channel

import (
	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("tern.channel")

// bufferCapacity is the rolling PRIVMSG buffer size (spec: K = 10,000).
const bufferCapacity = 10000

// MemberMode is a channel member's privilege level. Half-op, op, admin, and
// owner sigils (%, @, &, ~) all collapse to ModeOp; + is ModeVoice; no sigil
// is ModeNormal.
type MemberMode int

const (
	ModeNormal MemberMode = iota
	ModeVoice
	ModeOp
)

// Member is one nick's state within a Channel.
type Member struct {
	Nick string
	Mode MemberMode
}

// sigilMode maps a NAMES/MODE sigil character to a MemberMode.
func sigilMode(sigil byte) (MemberMode, bool) {
	switch sigil {
	case '+':
		return ModeVoice, true
	case '@', '%', '&', '~':
		return ModeOp, true
	default:
		return ModeNormal, false
	}
}

// SplitSigil strips a leading mode sigil from a NAMES-reply token, returning
// the bare nick and its mode.
func SplitSigil(token string) (nick string, mode MemberMode) {
	if token == "" {
		return token, ModeNormal
	}
	if m, ok := sigilMode(token[0]); ok {
		return token[1:], m
	}
	return token, ModeNormal
}

// Channel is the state of one joined channel: its members and a rolling
// buffer of recent PRIVMSGs (newest-first).
type Channel struct {
	Name    string
	members map[string]*Member
	buffer  []*wire.Message
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:    name,
		members: make(map[string]*Member),
	}
}

func (c *Channel) setUser(token string) {
	nick, mode := SplitSigil(token)
	if nick == "" {
		return
	}
	c.members[nick] = &Member{Nick: nick, Mode: mode}
}

func (c *Channel) getUser(nick string) (*Member, bool) {
	m, ok := c.members[nick]
	return m, ok
}

func (c *Channel) delUser(nick string) {
	delete(c.members, nick)
}

func (c *Channel) renameUser(oldNick, newNick string) {
	m, ok := c.members[oldNick]
	if !ok {
		return
	}
	delete(c.members, oldNick)
	m.Nick = newNick
	c.members[newNick] = m
}

func (c *Channel) logMessage(msg *wire.Message) {
	c.buffer = append([]*wire.Message{msg}, c.buffer...)
	if len(c.buffer) > bufferCapacity {
		c.buffer = c.buffer[:bufferCapacity]
	}
}

// snapshot returns a defensive copy of the buffer for GetBuffer callers.
func (c *Channel) snapshot() []*wire.Message {
	out := make([]*wire.Message, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// Members returns a defensive copy of the current membership, keyed by nick.
func (c *Channel) Members() map[string]Member {
	out := make(map[string]Member, len(c.members))
	for nick, m := range c.members {
		out[nick] = *m
	}
	return out
}
