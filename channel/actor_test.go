package channel

import (
	"context"
	"testing"

	"github.com/ternbot/tern/wire"
)

func TestMembershipScenario(t *testing.T) {
	ctx := context.Background()
	sup := NewSupervisor()
	actor := sup.Get("#c")

	for _, token := range []string{"@alice", "+bob", "carol"} {
		actor.SetUser(ctx, token)
	}

	actor.DelUser(ctx, "alice")
	actor.RenameUser(ctx, "bob", "robert")

	got := actor.Members(ctx)
	want := map[string]Member{
		"carol":  {Nick: "carol", Mode: ModeNormal},
		"robert": {Nick: "robert", Mode: ModeVoice},
	}

	if len(got) != len(want) {
		t.Fatalf("Members() = %+v, want %+v", got, want)
	}
	for nick, wantMember := range want {
		gotMember, ok := got[nick]
		if !ok {
			t.Fatalf("missing member %q in %+v", nick, got)
		}
		if gotMember != wantMember {
			t.Errorf("member %q = %+v, want %+v", nick, gotMember, wantMember)
		}
	}
}

func TestSplitSigil(t *testing.T) {
	cases := []struct {
		token    string
		wantNick string
		wantMode MemberMode
	}{
		{"@alice", "alice", ModeOp},
		{"%alice", "alice", ModeOp},
		{"&alice", "alice", ModeOp},
		{"~alice", "alice", ModeOp},
		{"+bob", "bob", ModeVoice},
		{"carol", "carol", ModeNormal},
		{"", "", ModeNormal},
	}
	for _, c := range cases {
		nick, mode := SplitSigil(c.token)
		if nick != c.wantNick || mode != c.wantMode {
			t.Errorf("SplitSigil(%q) = (%q, %v), want (%q, %v)", c.token, nick, mode, c.wantNick, c.wantMode)
		}
	}
}

func TestSupervisorGetIsIdempotent(t *testing.T) {
	sup := NewSupervisor()
	a1 := sup.Get("#x")
	a2 := sup.Get("#x")
	if a1 != a2 {
		t.Error("Get(#x) returned different actors for the same channel")
	}
	if _, ok := sup.Lookup("#y"); ok {
		t.Error("Lookup(#y) found an actor that was never created")
	}
}

func TestActorLogMessageOverflow(t *testing.T) {
	ctx := context.Background()
	sup := NewSupervisor()
	actor := sup.Get("#overflow")

	for i := 0; i < bufferCapacity+10; i++ {
		actor.LogMessage(ctx, &wire.Message{Command: "PRIVMSG"})
	}

	got := actor.GetBuffer(ctx, func(buf []*wire.Message) interface{} {
		return len(buf)
	})
	if got.(int) != bufferCapacity {
		t.Errorf("buffer length = %v, want %d", got, bufferCapacity)
	}
}
