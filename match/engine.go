package match

import (
	"context"
	"sync"

	"github.com/ternbot/tern/wire"
)

// compiledSpec is one runtime-ready match specification: its alias patterns
// pre-compiled to matchers, plus the validators and options captured at
// declaration time.
type compiledSpec struct {
	primary    *compiledPattern
	aliases    []*compiledPattern
	handler    HandlerFunc
	validators []Validator
	opts       specOpts
}

func (s *compiledSpec) match(trailing string) (Captures, bool) {
	if caps, ok := s.primary.match(trailing); ok {
		return caps, true
	}
	for _, alt := range s.aliases {
		if caps, ok := alt.match(trailing); ok {
			return caps, true
		}
	}
	return nil, false
}

type compiledGroup struct {
	command string
	specs   []*compiledSpec
}

// Engine is the compiled, concurrency-safe runtime form of a Unit. Built
// once via Unit.Compile(); a Unit should not be mutated afterward.
type Engine struct {
	name    string
	groups  map[string]*compiledGroup
	helpCmd string
	docs    []helpDoc

	unique sync.Map // identity key -> *uniqueEntry
}

type uniqueEntry struct {
	cancel context.CancelFunc
}

// Compile reduces the builder-declared Unit to a runtime Engine: every
// pattern is compiled to a matcher (a regular expression for templates and
// Regex patterns) exactly once here, not on each inbound message.
func (u *Unit) Compile() (*Engine, error) {
	e := &Engine{
		name:    u.Name,
		groups:  make(map[string]*compiledGroup, len(u.groups)),
		helpCmd: u.HelpCmd,
	}

	for _, g := range u.groups {
		cg := &compiledGroup{command: g.command}
		for _, decl := range g.decls {
			cs, doc, err := compileDecl(decl)
			if err != nil {
				return nil, err
			}
			cg.specs = append(cg.specs, cs)
			if doc.primary != "" {
				e.docs = append(e.docs, doc)
			}
		}
		e.groups[g.command] = cg
	}

	if u.HelpCmd != "" {
		attachHelp(e)
	}

	return e, nil
}

func compileDecl(decl *patternDecl) (*compiledSpec, helpDoc, error) {
	if len(decl.patterns) == 0 {
		return nil, helpDoc{}, nil
	}
	primary, err := compile(decl.patterns[0], decl.opts.matchGroup)
	if err != nil {
		return nil, helpDoc{}, err
	}
	cs := &compiledSpec{
		primary:    primary,
		handler:    decl.handler,
		validators: decl.validators,
		opts:       decl.opts,
	}
	var aliasText []string
	for _, alt := range decl.patterns[1:] {
		cp, err := compile(alt, decl.opts.matchGroup)
		if err != nil {
			return nil, helpDoc{}, err
		}
		cs.aliases = append(cs.aliases, cp)
		aliasText = append(aliasText, cp.helpText)
	}
	doc := helpDoc{
		name:        decl.opts.name,
		primary:     primary.helpText,
		aliases:     aliasText,
		description: decl.opts.description,
	}
	return cs, doc, nil
}

// Dispatch evaluates msg against the compiled command group for
// msg.Command in declaration order, firing every spec whose validators
// and pattern both match. rc provides the reply primitives the handler
// body may invoke.
func (e *Engine) Dispatch(ctx context.Context, msg *wire.Message, rc *ReplyContext) {
	g, ok := e.groups[msg.Command]
	if !ok {
		return
	}

	for _, spec := range g.specs {
		if !validate(spec.validators, msg) {
			continue
		}
		caps, ok := spec.match(msg.Trailing)
		if !ok {
			continue
		}
		e.fire(ctx, spec, msg, caps, rc)
	}
}

func validate(validators []Validator, msg *wire.Message) bool {
	for _, v := range validators {
		if !v(msg) {
			return false
		}
	}
	return true
}

func (e *Engine) fire(ctx context.Context, spec *compiledSpec, msg *wire.Message, caps Captures, rc *ReplyContext) {
	if !spec.opts.unique {
		e.invoke(ctx, spec, msg, caps, rc)
		return
	}

	key := uniqueKey(spec.opts.name, spec.opts.uniqueScope, msg)

	if _, exists := e.unique.Load(key); exists {
		if spec.opts.overridePolicy == SkipNew {
			log.Debugf("skipping %s: existing task for key %q", spec.opts.name, key)
			return
		}
		if prev, loaded := e.unique.LoadAndDelete(key); loaded {
			prev.(*uniqueEntry).cancel()
		}
	}

	taskCtx, cancel := context.WithCancel(ctx)
	entry := &uniqueEntry{cancel: cancel}
	e.unique.Store(key, entry)

	run := func() {
		defer cancel()
		defer e.unique.CompareAndDelete(key, entry)
		callHandler(spec.opts.name, spec.handler, taskCtx, msg, caps, rc)
	}

	if spec.opts.async {
		go run()
	} else {
		run()
	}
}

func (e *Engine) invoke(ctx context.Context, spec *compiledSpec, msg *wire.Message, caps Captures, rc *ReplyContext) {
	if spec.opts.async {
		go callHandler(spec.opts.name, spec.handler, ctx, msg, caps, rc)
		return
	}
	callHandler(spec.opts.name, spec.handler, ctx, msg, caps, rc)
}

// callHandler invokes a handler body with a recover guard: a panicking
// handler is logged and contained to its own invocation rather than taking
// down the caller's goroutine and the unit's future message processing
// with it.
func callHandler(name string, h HandlerFunc, ctx context.Context, msg *wire.Message, caps Captures, rc *ReplyContext) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("handler %q panicked: %v", name, r)
		}
	}()
	h(ctx, msg, caps, rc)
}

func uniqueKey(handlerName string, scope UniqueScope, msg *wire.Message) string {
	channel := ""
	if len(msg.Args) > 0 {
		channel = msg.Args[0]
	}
	key := handlerName + "\x00" + channel
	if scope == PerChannelPerNick && msg.User != nil {
		key += "\x00" + msg.User.Nick
	}
	return key
}
