// Package builtin implements the system-provided handler unit every bot
// loads automatically: core protocol bookkeeping that has nothing to do
// with any particular bot's commands.
package builtin

import (
	"context"
	"strings"

	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/broker"
	"github.com/ternbot/tern/channel"
	"github.com/ternbot/tern/match"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("tern.builtin")

// UnitName is the registry key the builtin unit is always registered
// under.
const UnitName = "builtin"

// Deps wires the builtin unit to the rest of a running bot.
type Deps struct {
	Channels        *channel.Supervisor
	Broker          *broker.Broker
	Sender          match.Sender
	BotNick         string
	NickSuffix      string
	StartupChannels []string
}

// NewUnit builds the always-loaded protocol handler: PING/PONG, welcome-time
// auto-join, NAMES ingestion, nick-in-use retry, and channel membership
// bookkeeping for JOIN/PART/QUIT/NICK/MODE/PRIVMSG. It declares no help
// surface of its own (helpCmd "") — help is a property of user-declared
// units, not the system one.
func NewUnit(deps Deps) *match.Unit {
	u := match.NewUnit(UnitName, "")

	u.On("PING").Match(match.Any(), pingHandler(deps))
	u.On("001").Match(match.Any(), welcomeHandler(deps))
	u.On("353").Match(match.Any(), namesHandler(deps))
	u.On("433").Match(match.Any(), nickRetryHandler(deps))
	u.On("JOIN").Match(match.Any(), joinHandler(deps))
	u.On("PART").Match(match.Any(), partHandler(deps))
	u.On("QUIT").Match(match.Any(), quitHandler(deps))
	u.On("NICK").Match(match.Any(), nickHandler(deps))
	u.On("MODE").Match(match.Any(), modeHandler(deps))
	u.On("PRIVMSG").Match(match.Any(), privmsgHandler(deps))

	return u
}

// pingHandler answers every PING with an identical PONG (grounded on
// ircbase.pinger.ReadMsg's PING branch).
func pingHandler(deps Deps) match.HandlerFunc {
	return func(_ context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		pong := &wire.Message{Command: "PONG", Args: msg.Args, Trailing: msg.Trailing}
		if err := deps.Sender.Send(pong); err != nil {
			log.Errore(err, "failed to send PONG")
		}
	}
}

// welcomeHandler joins every configured startup channel, and every other
// channel that already has an actor, once the server confirms registration
// (grounded on ircbase.autojoin.ReadMsg's 001 branch). Because the server
// sends 001 again after each reconnect, this re-joins every known channel.
func welcomeHandler(deps Deps) match.HandlerFunc {
	return func(_ context.Context, _ *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		joined := make(map[string]bool)
		join := func(ch string) {
			joined[ch] = true
			if err := deps.Sender.Send(&wire.Message{Command: "JOIN", Args: []string{ch}}); err != nil {
				log.Errore(err, "failed to send JOIN")
			}
		}
		for _, ch := range deps.StartupChannels {
			deps.Channels.Get(ch)
			join(ch)
		}
		for _, ch := range deps.Channels.Names() {
			if !joined[ch] {
				join(ch)
			}
		}
	}
}

// namesHandler ingests a NAMES reply (353), upserting every listed member
// into the named channel's actor.
func namesHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if len(msg.Args) < 3 {
			return
		}
		chanName := msg.Args[2]
		actor := deps.Channels.Get(chanName)
		for _, tok := range strings.Fields(msg.Trailing) {
			actor.SetUser(ctx, tok)
		}
	}
}

// nickRetryHandler reissues NICK with the configured suffix appended to the
// offending nick (grounded on ircbase.Registerer.alternateNickName,
// simplified to a single fixed-suffix retry).
func nickRetryHandler(deps Deps) match.HandlerFunc {
	return func(_ context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if len(msg.Args) < 2 {
			return
		}
		offending := msg.Args[1]
		retry := offending + deps.NickSuffix
		if err := deps.Sender.Send(&wire.Message{Command: "NICK", Args: []string{retry}}); err != nil {
			log.Errore(err, "failed to reissue NICK")
		}
	}
}

func joinHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if msg.User == nil || msg.Trailing == "" {
			return
		}
		actor := deps.Channels.Get(msg.Trailing)
		actor.SetUser(ctx, msg.User.Nick)
	}
}

func partHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if msg.User == nil || len(msg.Args) == 0 {
			return
		}
		if actor, ok := deps.Channels.Lookup(msg.Args[0]); ok {
			actor.DelUser(ctx, msg.User.Nick)
		}
	}
}

func quitHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if msg.User == nil {
			return
		}
		for _, name := range deps.Channels.Names() {
			if actor, ok := deps.Channels.Lookup(name); ok {
				actor.DelUser(ctx, msg.User.Nick)
			}
		}
	}
}

func nickHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if msg.User == nil || msg.Trailing == "" {
			return
		}
		oldNick, newNick := msg.User.Nick, msg.Trailing
		for _, name := range deps.Channels.Names() {
			if actor, ok := deps.Channels.Lookup(name); ok {
				actor.RenameUser(ctx, oldNick, newNick)
			}
		}
	}
}

// modeHandler handles the only MODE shape this unit assigns meaning to: a
// single-target voice/halfop/op grant. Every other MODE string is ignored
// silently, forward-compatibly, rather than treated as an error.
func modeHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		if len(msg.Args) != 3 {
			return
		}
		chanName, modeStr, nick := msg.Args[0], msg.Args[1], msg.Args[2]
		sigil, ok := sigilForMode(modeStr)
		if !ok {
			return
		}
		actor := deps.Channels.Get(chanName)
		actor.SetUser(ctx, sigil+nick)
	}
}

func sigilForMode(modeStr string) (string, bool) {
	switch modeStr {
	case "+v":
		return "+", true
	case "+h":
		return "%", true
	case "+o":
		return "@", true
	default:
		return "", false
	}
}

// privmsgHandler first gives the Callback Broker a chance to resolve a
// pending await_resp, then logs the message to its originating channel's
// buffer if one is tracked.
func privmsgHandler(deps Deps) match.HandlerFunc {
	return func(ctx context.Context, msg *wire.Message, _ match.Captures, _ *match.ReplyContext) {
		deps.Broker.Deliver(msg)

		if len(msg.Args) == 0 {
			return
		}
		if actor, ok := deps.Channels.Lookup(msg.Args[0]); ok {
			actor.LogMessage(ctx, msg)
		}
	}
}
