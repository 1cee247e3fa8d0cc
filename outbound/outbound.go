// Package outbound provides convenience constructors for the commands a
// handler unit actively emits, plus a rate limiter wrapping the Connection
// Manager's send path.
package outbound

import "github.com/ternbot/tern/wire"

// Privmsg builds a PRIVMSG to target carrying text.
func Privmsg(target, text string) *wire.Message {
	return &wire.Message{Command: "PRIVMSG", Args: []string{target}, Trailing: text}
}

// Notice builds a NOTICE to target carrying text.
func Notice(target, text string) *wire.Message {
	return &wire.Message{Command: "NOTICE", Args: []string{target}, Trailing: text}
}

// Join builds a JOIN for channel, with an optional key.
func Join(channel string, key string) *wire.Message {
	if key == "" {
		return &wire.Message{Command: "JOIN", Args: []string{channel}}
	}
	return &wire.Message{Command: "JOIN", Args: []string{channel, key}}
}

// Part builds a PART for channel, with an optional reason.
func Part(channel, reason string) *wire.Message {
	return &wire.Message{Command: "PART", Args: []string{channel}, Trailing: reason}
}

// Nick builds a NICK change request.
func Nick(newNick string) *wire.Message {
	return &wire.Message{Command: "NICK", Args: []string{newNick}}
}

// Mode builds a MODE change on target (a channel or nick).
func Mode(target string, modeArgs ...string) *wire.Message {
	return &wire.Message{Command: "MODE", Args: append([]string{target}, modeArgs...)}
}

// Kick builds a KICK of nick from channel, with an optional reason.
func Kick(channel, nick, reason string) *wire.Message {
	return &wire.Message{Command: "KICK", Args: []string{channel, nick}, Trailing: reason}
}

// Whois builds a WHOIS query for nick.
func Whois(nick string) *wire.Message {
	return &wire.Message{Command: "WHOIS", Args: []string{nick}}
}

// Pong builds a PONG in reply to a PING carrying the same args/trailing.
func Pong(args []string, trailing string) *wire.Message {
	return &wire.Message{Command: "PONG", Args: args, Trailing: trailing}
}
