// Package broker implements the Callback Broker: the await_resp mechanism
// that lets an async handler body suspend until a future PRIVMSG satisfies
// a predicate, or a timeout expires.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/match"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("tern.broker")

// DefaultTimeout is used when Await is called with timeout <= 0.
const DefaultTimeout = 60 * time.Second

// Predicate reports whether msg satisfies a pending callback, returning the
// captures to resume with on success.
type Predicate func(msg *wire.Message) (match.Captures, bool)

// pending is one registered callback awaiting a matching message.
type pending struct {
	predicate Predicate
	result    chan result
}

type result struct {
	msg  *wire.Message
	caps match.Captures
}

// Broker holds the ordered list of pending callbacks, evaluated on every
// delivered PRIVMSG. Grounded on the same request/response-channel shape
// used throughout conn, applied here to one-shot predicate waiters instead
// of a persistent read queue.
type Broker struct {
	mu      sync.Mutex
	pending []*pending
}

// New returns an empty callback broker.
func New() *Broker {
	return &Broker{}
}

// Await registers pred and blocks until a delivered message satisfies it,
// ctx is cancelled, or timeout elapses. On timeout or cancellation it
// returns (nil, nil) after removing its own pending entry.
func (b *Broker) Await(ctx context.Context, pred Predicate, timeout time.Duration) (*wire.Message, match.Captures) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := &pending{predicate: pred, result: make(chan result, 1)}

	b.mu.Lock()
	b.pending = append(b.pending, p)
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-p.result:
		return r.msg, r.caps
	case <-timer.C:
		b.remove(p)
		return nil, nil
	case <-ctx.Done():
		b.remove(p)
		return nil, nil
	}
}

// Deliver evaluates every pending predicate against msg in registration
// order; the first match is removed and its awaiter resumed. A predicate
// that does not match stays pending for the next Deliver call.
func (b *Broker) Deliver(msg *wire.Message) {
	b.mu.Lock()
	var matched *pending
	var caps match.Captures
	idx := -1
	for i, p := range b.pending {
		if c, ok := p.predicate(msg); ok {
			matched, caps, idx = p, c, i
			break
		}
	}
	if matched != nil {
		b.pending = append(b.pending[:idx], b.pending[idx+1:]...)
	}
	b.mu.Unlock()

	if matched != nil {
		matched.result <- result{msg: msg, caps: caps}
	}
}

func (b *Broker) remove(target *pending) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.pending {
		if p == target {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// NamedPredicate builds the Predicate for await_resp(pattern, channel, nick,
// charclass): a bare literal pattern requires an exact trailing match,
// otherwise the pattern is compiled as in the match engine and matched as
// named captures. channel/nick of "" mean "any".
func NamedPredicate(pattern match.Pattern, channel, nick, matchGroup string) (Predicate, error) {
	compiled, err := match.CompilePublic(pattern, matchGroup)
	if err != nil {
		return nil, err
	}
	return func(msg *wire.Message) (match.Captures, bool) {
		if msg.Command != "PRIVMSG" {
			return nil, false
		}
		if channel != "" && (len(msg.Args) == 0 || msg.Args[0] != channel) {
			return nil, false
		}
		if nick != "" && (msg.User == nil || msg.User.Nick != nick) {
			return nil, false
		}
		return compiled(msg.Trailing)
	}, nil
}
