package match

import (
	"context"
	"fmt"

	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("tern.match")

// Validator is a named predicate over a message; a match only fires when
// every validator in its enclosing scope returns true.
type Validator func(*wire.Message) bool

// HandlerFunc is a match specification's handler body.
type HandlerFunc func(ctx context.Context, msg *wire.Message, caps Captures, rc *ReplyContext)

// UniqueScope selects the key granularity for uniqueness enforcement.
type UniqueScope int

const (
	PerChannel UniqueScope = iota
	PerChannelPerNick
)

// OverridePolicy selects what happens when a match with an existing live
// task fires again.
type OverridePolicy int

const (
	KillExisting OverridePolicy = iota
	SkipNew
)

type specOpts struct {
	async          bool
	unique         bool
	uniqueScope    UniqueScope
	overridePolicy OverridePolicy
	matchGroup     string
	name           string
	description    string
}

// Option configures a single Match declaration.
type Option func(*specOpts)

// Async marks the handler body to run on its own goroutine; evaluation of
// subsequent specs in the group proceeds immediately rather than waiting
// for this one to return.
func Async() Option {
	return func(o *specOpts) { o.async = true }
}

// Unique enforces at most one live task per identity key, per scope and
// override policy.
func Unique(scope UniqueScope, policy OverridePolicy) Option {
	return func(o *specOpts) {
		o.unique = true
		o.uniqueScope = scope
		o.overridePolicy = policy
	}
}

// MatchGroup overrides the regular expression a bare ":name" placeholder
// compiles to (default `[A-Za-z0-9]+`).
func MatchGroup(pattern string) Option {
	return func(o *specOpts) { o.matchGroup = pattern }
}

// Name sets the handler_name used in uniqueness keys and diagnostics.
// Defaults to "<unit>:<command>:<index>" if omitted.
func Name(name string) Option {
	return func(o *specOpts) { o.name = name }
}

// Describe attaches help documentation to the Match declaration it is
// passed to.
func Describe(text string) Option {
	return func(o *specOpts) { o.description = text }
}

// patternDecl is one source-declared match specification, possibly with
// pattern aliases.
type patternDecl struct {
	patterns   []Pattern
	helpNames  []string
	handler    HandlerFunc
	validators []Validator
	opts       specOpts
}

type group struct {
	command string
	decls   []*patternDecl
}

// Unit is the builder-time declaration of a handler unit's command→pattern
// tree. Compile() reduces it to a runtime Engine.
type Unit struct {
	Name    string
	HelpCmd string

	groups []*group
	byCmd  map[string]*group
}

// NewUnit declares a new handler unit. helpCmd, if non-empty, enables the
// synthesized help surface.
func NewUnit(name, helpCmd string) *Unit {
	return &Unit{
		Name:    name,
		HelpCmd: helpCmd,
		byCmd:   make(map[string]*group),
	}
}

// On declares (or resumes) the match group for command, returning a Scope
// to attach Match specifications to.
func (u *Unit) On(command string) *Scope {
	g, ok := u.byCmd[command]
	if !ok {
		g = &group{command: command}
		u.byCmd[command] = g
		u.groups = append(u.groups, g)
	}
	return &Scope{unit: u, group: g}
}

// Scope is a builder cursor within one command group, carrying the stack of
// validators pushed by enclosing Require() calls.
type Scope struct {
	unit       *Unit
	group      *group
	validators []Validator
}

// Require pushes a nested validator scope; every Match declared against the
// returned Scope (and anything built from it) additionally requires these
// predicates.
func (s *Scope) Require(preds ...Validator) *Scope {
	child := make([]Validator, 0, len(s.validators)+len(preds))
	child = append(child, s.validators...)
	child = append(child, preds...)
	return &Scope{unit: s.unit, group: s.group, validators: child}
}

// Match declares a match specification. pattern may be a Pattern (P/Regex/
// Any) or a []Pattern to declare aliases — the first element is primary.
func (s *Scope) Match(pattern interface{}, handler HandlerFunc, opts ...Option) *Scope {
	patterns := asPatterns(pattern)

	o := specOpts{uniqueScope: PerChannel, overridePolicy: KillExisting}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = fmt.Sprintf("%s:%s:%d", s.unit.Name, s.group.command, len(s.group.decls))
	}

	decl := &patternDecl{
		patterns:   patterns,
		handler:    handler,
		validators: append([]Validator(nil), s.validators...),
		opts:       o,
	}
	s.group.decls = append(s.group.decls, decl)
	return s
}

// Describe attaches documentation to the most recently declared Match in
// this group.
func (s *Scope) Describe(text string) *Scope {
	if n := len(s.group.decls); n > 0 {
		s.group.decls[n-1].opts.description = text
	}
	return s
}

func asPatterns(v interface{}) []Pattern {
	switch p := v.(type) {
	case string:
		return []Pattern{P(p)}
	case Pattern:
		return []Pattern{p}
	case []string:
		out := make([]Pattern, len(p))
		for i, s := range p {
			out[i] = P(s)
		}
		return out
	case []Pattern:
		return p
	default:
		panic(fmt.Sprintf("match: unsupported pattern argument %T", v))
	}
}
