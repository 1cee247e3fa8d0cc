package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternbot/tern/match"
	"github.com/ternbot/tern/wire"
)

func TestBroadcastReachesAllUnits(t *testing.T) {
	r := New()
	var mu sync.Mutex
	seen := make(map[string]int)

	for _, name := range []string{"a", "b", "c"} {
		name := name
		u := match.NewUnit(name, "")
		u.On("PRIVMSG").Match(match.Any(), func(context.Context, *wire.Message, match.Captures, *match.ReplyContext) {
			mu.Lock()
			seen[name]++
			mu.Unlock()
		})
		if _, err := r.Register(name, u); err != nil {
			t.Fatalf("Register(%s) error: %v", name, err)
		}
	}

	msg := &wire.Message{Command: "PRIVMSG", Args: []string{"#c"}, Trailing: "hi"}
	rc := match.NewReplyContext(msg, "bot", nil)
	r.Broadcast(context.Background(), msg, rc)

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d/3 units received the broadcast: %+v", n, seen)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r := New()
	var count int
	var mu sync.Mutex

	u := match.NewUnit("only", "")
	u.On("PRIVMSG").Match(match.Any(), func(context.Context, *wire.Message, match.Captures, *match.ReplyContext) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if _, err := r.Register("only", u); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	r.Unregister("only")

	if _, ok := r.Lookup("only"); ok {
		t.Fatal("expected unit to be gone after Unregister")
	}

	msg := &wire.Message{Command: "PRIVMSG", Args: []string{"#c"}, Trailing: "hi"}
	r.Broadcast(context.Background(), msg, match.NewReplyContext(msg, "bot", nil))

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("handler ran %d times after Unregister", count)
	}
}
