package channel

import (
	"context"
	"sync"

	"github.com/ternbot/tern/wire"
)

// opKind identifies which Channel method a request invokes.
type opKind int

const (
	opSetUser opKind = iota
	opGetUser
	opDelUser
	opRenameUser
	opLogMessage
	opGetBuffer
	opMembers
)

// request is sent to an Actor's inbox; reply carries the result back to the
// caller, mirroring ircbase's requestReadChan/requestWriteChan idiom — here
// repurposed from multiplexing a connection to serializing one channel's
// state across concurrent callers.
type request struct {
	kind    opKind
	nick    string
	newNick string
	msg     *wire.Message
	fn      func([]*wire.Message) interface{}
	reply   chan response
}

type response struct {
	member  *Member
	ok      bool
	buf     interface{}
	members map[string]Member
}

// Actor owns one Channel's mutable state behind a single goroutine; all
// access is funneled through its inbox, so no lock is needed inside Channel
// itself.
type Actor struct {
	channel *Channel
	inbox   chan request
	done    chan struct{}
}

func newActor(name string) *Actor {
	a := &Actor{
		channel: newChannel(name),
		inbox:   make(chan request),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	for {
		select {
		case req := <-a.inbox:
			a.handle(req)
		case <-a.done:
			return
		}
	}
}

func (a *Actor) handle(req request) {
	var resp response
	switch req.kind {
	case opSetUser:
		a.channel.setUser(req.nick)
	case opGetUser:
		resp.member, resp.ok = a.channel.getUser(req.nick)
	case opDelUser:
		a.channel.delUser(req.nick)
	case opRenameUser:
		a.channel.renameUser(req.nick, req.newNick)
	case opLogMessage:
		a.channel.logMessage(req.msg)
	case opGetBuffer:
		resp.buf = req.fn(a.channel.snapshot())
	case opMembers:
		resp.members = a.channel.Members()
	}
	req.reply <- resp
}

// send dispatches req and blocks for its reply, or returns the zero response
// if ctx is done first.
func (a *Actor) send(ctx context.Context, req request) response {
	req.reply = make(chan response, 1)
	select {
	case a.inbox <- req:
	case <-ctx.Done():
		return response{}
	}
	select {
	case resp := <-req.reply:
		return resp
	case <-ctx.Done():
		return response{}
	}
}

// Name returns the channel name this actor owns.
func (a *Actor) Name() string {
	return a.channel.Name
}

// SetUser upserts a member from a NAMES-reply or JOIN token, which may carry
// a leading mode sigil.
func (a *Actor) SetUser(ctx context.Context, nickWithSigil string) {
	a.send(ctx, request{kind: opSetUser, nick: nickWithSigil})
}

// GetUser looks up a member by bare nick.
func (a *Actor) GetUser(ctx context.Context, nick string) (*Member, bool) {
	resp := a.send(ctx, request{kind: opGetUser, nick: nick})
	return resp.member, resp.ok
}

// DelUser removes a member, e.g. on PART or QUIT.
func (a *Actor) DelUser(ctx context.Context, nick string) {
	a.send(ctx, request{kind: opDelUser, nick: nick})
}

// RenameUser moves a member's state to a new nick, e.g. on NICK. A no-op if
// oldNick is not currently a member.
func (a *Actor) RenameUser(ctx context.Context, oldNick, newNick string) {
	a.send(ctx, request{kind: opRenameUser, nick: oldNick, newNick: newNick})
}

// LogMessage records a PRIVMSG into the channel's rolling buffer.
func (a *Actor) LogMessage(ctx context.Context, msg *wire.Message) {
	a.send(ctx, request{kind: opLogMessage, msg: msg})
}

// GetBuffer applies fn to a snapshot of the buffer and returns its result.
func (a *Actor) GetBuffer(ctx context.Context, fn func([]*wire.Message) interface{}) interface{} {
	resp := a.send(ctx, request{kind: opGetBuffer, fn: fn})
	return resp.buf
}

// Members returns a snapshot of current membership, keyed by nick.
func (a *Actor) Members(ctx context.Context) map[string]Member {
	resp := a.send(ctx, request{kind: opMembers})
	return resp.members
}

// stop terminates the actor's goroutine. Channels are never parted on
// disconnect — the actor exists independently of reconnection — so stop is
// only used when a channel is permanently dropped from configuration.
func (a *Actor) stop() {
	close(a.done)
}

// Supervisor owns the process-wide table of joined channels, keyed by name.
// The first JOIN for a channel creates its Actor; all later lookups share
// it. Grounded on the design notes' "replace ETS tables with a map behind a
// mutex" guidance.
type Supervisor struct {
	mu       sync.RWMutex
	channels map[string]*Actor
}

// NewSupervisor returns an empty channel supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{channels: make(map[string]*Actor)}
}

// Get returns the actor for name, creating it if this is the first
// reference.
func (s *Supervisor) Get(name string) *Actor {
	s.mu.RLock()
	a, ok := s.channels[name]
	s.mu.RUnlock()
	if ok {
		return a
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.channels[name]; ok {
		return a
	}
	a = newActor(name)
	s.channels[name] = a
	log.Debugf("created channel actor for %s", name)
	return a
}

// Lookup returns the actor for name without creating it.
func (s *Supervisor) Lookup(name string) (*Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.channels[name]
	return a, ok
}

// Drop permanently removes and stops the actor for name.
func (s *Supervisor) Drop(name string) {
	s.mu.Lock()
	a, ok := s.channels[name]
	if ok {
		delete(s.channels, name)
	}
	s.mu.Unlock()
	if ok {
		a.stop()
	}
}

// Names returns the names of all currently tracked channels.
func (s *Supervisor) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	return out
}
