package outbound

import (
	"context"

	"github.com/ternbot/tern/wire"
	"golang.org/x/time/rate"
)

// Sender is the minimal outbound capability a Limiter wraps; satisfied by
// conn.Manager.
type Sender interface {
	Send(msg *wire.Message) error
}

// Limiter wraps a Sender to cap the outbound message rate, smoothing
// bursts (e.g. a handler replying to many NAMES entries at once) against
// server-side flood limits.
type Limiter struct {
	sender  Sender
	limiter *rate.Limiter
}

// NewLimiter wraps sender with a token-bucket limiter allowing eventsPerSec
// sustained, with burst headroom of burst messages.
func NewLimiter(sender Sender, eventsPerSec float64, burst int) *Limiter {
	return &Limiter{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSec), burst),
	}
}

// Send blocks until the rate limiter admits msg, then forwards it to the
// wrapped Sender. Implements match.Sender so a Limiter can stand in
// anywhere a bare Connection Manager send path is expected.
func (l *Limiter) Send(msg *wire.Message) error {
	if err := l.limiter.Wait(context.Background()); err != nil {
		return err
	}
	return l.sender.Send(msg)
}
