package match

import (
	"context"
	"testing"

	"github.com/ternbot/tern/wire"
)

func TestRequireScopeShortCircuits(t *testing.T) {
	var fired bool
	isOp := func(m *wire.Message) bool { return m.User != nil && m.User.Nick == "alice" }

	u := NewUnit("test", "")
	u.On("PRIVMSG").Require(isOp).Match("!kick :who", func(_ context.Context, _ *wire.Message, _ Captures, _ *ReplyContext) {
		fired = true
	})

	engine, err := u.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	sender := &recordingSender{}

	msg := privmsg("#c", "bob", "!kick carol")
	engine.Dispatch(context.Background(), msg, NewReplyContext(msg, "bot", sender))
	if fired {
		t.Fatal("handler fired despite failing validator")
	}

	msg2 := privmsg("#c", "alice", "!kick carol")
	engine.Dispatch(context.Background(), msg2, NewReplyContext(msg2, "bot", sender))
	if !fired {
		t.Fatal("handler did not fire despite passing validator")
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	u := NewUnit("test", "")
	u.On("PRIVMSG").Match("!ping", func(context.Context, *wire.Message, Captures, *ReplyContext) {
		t.Fatal("handler should not run for a different command")
	})
	engine, err := u.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	msg := &wire.Message{Command: "NOTICE", Trailing: "!ping"}
	engine.Dispatch(context.Background(), msg, NewReplyContext(msg, "bot", &recordingSender{}))
}

func TestMatchContinuesAfterHit(t *testing.T) {
	var order []string
	u := NewUnit("test", "")
	u.On("PRIVMSG").
		Match("!go", func(context.Context, *wire.Message, Captures, *ReplyContext) {
			order = append(order, "first")
		}).
		Match(Any(), func(context.Context, *wire.Message, Captures, *ReplyContext) {
			order = append(order, "catchall")
		})

	engine, err := u.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	msg := privmsg("#c", "alice", "!go")
	engine.Dispatch(context.Background(), msg, NewReplyContext(msg, "bot", &recordingSender{}))

	if len(order) != 2 || order[0] != "first" || order[1] != "catchall" {
		t.Fatalf("evaluation order = %v, want [first catchall]", order)
	}
}
