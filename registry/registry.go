// Package registry implements the Module Registry: the set of handler units
// a running bot broadcasts every inbound message to.
package registry

import (
	"context"
	"sync"

	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/match"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("tern.registry")

const inboxSize = 128

// Unit pairs a compiled match engine with the name it was registered under.
type Unit struct {
	Name   string
	Engine *match.Engine

	inbox chan job
}

type job struct {
	ctx context.Context
	msg *wire.Message
	rc  *match.ReplyContext
}

func newUnit(name string, engine *match.Engine) *Unit {
	u := &Unit{
		Name:   name,
		Engine: engine,
		inbox:  make(chan job, inboxSize),
	}
	go u.loop()
	return u
}

// loop drains this unit's inbox strictly in delivery order, giving each
// unit an independent FIFO without serializing dispatch across units —
// grounded on cl2.Cl2's txChan/rxChan per-connection queue, here one queue
// per registered unit instead of per socket.
func (u *Unit) loop() {
	for j := range u.inbox {
		u.dispatch(j)
	}
}

// dispatch recovers a panicking Dispatch call so one bad message can't take
// the unit's inbox-processing goroutine down with it; synchronous handler
// panics are already contained inside Dispatch, this is the outer backstop.
func (u *Unit) dispatch(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("unit %q: dispatch panicked: %v", u.Name, r)
		}
	}()
	u.Engine.Dispatch(j.ctx, j.msg, j.rc)
}

// Registry holds the broadcast set of registered units behind a read-write
// lock (design notes: replace process groups with a subscriber list under a
// lock).
type Registry struct {
	mu    sync.RWMutex
	units map[string]*Unit
	order []string
}

// New returns an empty module registry.
func New() *Registry {
	return &Registry{units: make(map[string]*Unit)}
}

// Register compiles unit and adds it to the broadcast set under name. It
// replaces any previously registered unit of the same name.
func (r *Registry) Register(name string, unit *match.Unit) (*Unit, error) {
	engine, err := unit.Compile()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.units[name]; ok {
		close(existing.inbox)
	} else {
		r.order = append(r.order, name)
	}

	u := newUnit(name, engine)
	r.units[name] = u
	log.Debugf("registered unit %q", name)
	return u, nil
}

// Unregister removes a unit from the broadcast set and stops its inbox.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[name]
	if !ok {
		return
	}
	delete(r.units, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	close(u.inbox)
}

// Broadcast hands msg to every registered unit's inbox in registration
// order. Each unit has its own buffered channel, so delivery only waits
// when a unit's inbox is full; that wait also delays delivery to the units
// after it in registration order.
func (r *Registry) Broadcast(ctx context.Context, msg *wire.Message, rc *match.ReplyContext) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		u := r.units[name]
		select {
		case u.inbox <- job{ctx: ctx, msg: msg, rc: rc}:
		case <-ctx.Done():
			return
		}
	}
}

// Lookup returns the registered unit by name, if any.
func (r *Registry) Lookup(name string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	return u, ok
}
