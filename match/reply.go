package match

import "github.com/ternbot/tern/wire"

// Sender is the minimal outbound capability a ReplyContext needs; satisfied
// by conn.Manager.Send.
type Sender interface {
	Send(msg *wire.Message) error
}

// ReplyContext carries the reply primitives a handler body invokes, bound
// to the message that triggered it.
type ReplyContext struct {
	msg     *wire.Message
	botNick string
	sender  Sender
}

// NewReplyContext builds the reply context for msg, resolving its
// originating channel/nick per the recipient-resolution rule below.
func NewReplyContext(msg *wire.Message, botNick string, sender Sender) *ReplyContext {
	return &ReplyContext{msg: msg, botNick: botNick, sender: sender}
}

// target resolves (channel, nick) for msg: for PRIVMSG/NOTICE, if the first
// argument is the bot's own nick the message was sent privately and the
// originator is the prefix nick; otherwise the first argument is the
// channel. For JOIN, the channel is the trailing parameter.
func (rc *ReplyContext) target() (channel, nick string) {
	if rc.msg.User != nil {
		nick = rc.msg.User.Nick
	}
	switch rc.msg.Command {
	case "PRIVMSG", "NOTICE":
		if len(rc.msg.Args) == 0 {
			return "", nick
		}
		if rc.msg.Args[0] == rc.botNick {
			return "", nick
		}
		return rc.msg.Args[0], nick
	case "JOIN":
		return rc.msg.Trailing, nick
	default:
		return "", nick
	}
}

func (rc *ReplyContext) send(command, target, text string) {
	if target == "" {
		return
	}
	if err := rc.sender.Send(&wire.Message{Command: command, Args: []string{target}, Trailing: text}); err != nil {
		log.Errore(err, "reply send failed")
	}
}

// Reply sends to the originating channel if the triggering message was
// channel-addressed, otherwise back to the originating nick.
func (rc *ReplyContext) Reply(text string) {
	channel, nick := rc.target()
	if channel != "" {
		rc.send("PRIVMSG", channel, text)
		return
	}
	rc.send("PRIVMSG", nick, text)
}

// ReplyPriv sends directly to the originating nick regardless of
// addressing.
func (rc *ReplyContext) ReplyPriv(text string) {
	_, nick := rc.target()
	rc.send("PRIVMSG", nick, text)
}

// ReplyNotice is Reply, but via NOTICE.
func (rc *ReplyContext) ReplyNotice(text string) {
	channel, nick := rc.target()
	if channel != "" {
		rc.send("NOTICE", channel, text)
		return
	}
	rc.send("NOTICE", nick, text)
}

// ReplyPrivNotice is ReplyPriv, but via NOTICE.
func (rc *ReplyContext) ReplyPrivNotice(text string) {
	_, nick := rc.target()
	rc.send("NOTICE", nick, text)
}
