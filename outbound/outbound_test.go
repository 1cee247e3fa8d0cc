package outbound

import (
	"testing"
	"time"

	"github.com/ternbot/tern/wire"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		name string
		got  *wire.Message
		want *wire.Message
	}{
		{"Privmsg", Privmsg("#c", "hi"), &wire.Message{Command: "PRIVMSG", Args: []string{"#c"}, Trailing: "hi"}},
		{"Notice", Notice("alice", "hi"), &wire.Message{Command: "NOTICE", Args: []string{"alice"}, Trailing: "hi"}},
		{"JoinNoKey", Join("#c", ""), &wire.Message{Command: "JOIN", Args: []string{"#c"}}},
		{"JoinWithKey", Join("#c", "secret"), &wire.Message{Command: "JOIN", Args: []string{"#c", "secret"}}},
		{"Part", Part("#c", "bye"), &wire.Message{Command: "PART", Args: []string{"#c"}, Trailing: "bye"}},
		{"Nick", Nick("newnick"), &wire.Message{Command: "NICK", Args: []string{"newnick"}}},
		{"Kick", Kick("#c", "alice", "spam"), &wire.Message{Command: "KICK", Args: []string{"#c", "alice"}, Trailing: "spam"}},
		{"Whois", Whois("alice"), &wire.Message{Command: "WHOIS", Args: []string{"alice"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.got.Command != c.want.Command || c.got.Trailing != c.want.Trailing || len(c.got.Args) != len(c.want.Args) {
				t.Fatalf("%s = %+v, want %+v", c.name, c.got, c.want)
			}
			for i := range c.got.Args {
				if c.got.Args[i] != c.want.Args[i] {
					t.Fatalf("%s args = %+v, want %+v", c.name, c.got.Args, c.want.Args)
				}
			}
		})
	}
}

type countingSender struct {
	count int
}

func (s *countingSender) Send(msg *wire.Message) error {
	s.count++
	return nil
}

func TestLimiterForwardsAndCaps(t *testing.T) {
	inner := &countingSender{}
	lim := NewLimiter(inner, 1000, 5)

	for i := 0; i < 5; i++ {
		if err := lim.Send(Privmsg("#c", "hi")); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}
	if inner.count != 5 {
		t.Fatalf("inner.count = %d, want 5", inner.count)
	}

	start := time.Now()
	if err := lim.Send(Privmsg("#c", "hi")); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("limiter blocked far longer than expected for a high-rate config")
	}
}
