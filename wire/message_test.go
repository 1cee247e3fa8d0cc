package wire

import (
	"reflect"
	"testing"
)

type fixture struct {
	name    string
	raw     string
	want    *Message
	wantErr bool
}

var fixtures = []fixture{
	{
		name: "full user prefix privmsg",
		raw:  ":nick!user@host PRIVMSG #chan :hello world\r\n",
		want: &Message{
			Command:  "PRIVMSG",
			Args:     []string{"#chan"},
			Trailing: "hello world",
			User:     &Prefix{Nick: "nick", Name: "user", RDNS: "host"},
		},
	},
	{
		name: "server-originated ping, no prefix",
		raw:  "PING :server.example\r\n",
		want: &Message{
			Command:  "PING",
			Args:     nil,
			Trailing: "server.example",
			User:     nil,
		},
	},
	{
		name: "353 names reply",
		raw:  ":irc.example 353 bot = #chan :@alice +bob carol\r\n",
		want: &Message{
			Command:  "353",
			Args:     []string{"bot", "=", "#chan"},
			Trailing: "@alice +bob carol",
			User:     &Prefix{Nick: "irc.example"},
		},
	},
	{
		name: "bare server prefix no bang",
		raw:  ":irc.example NOTICE * :*** Looking up your hostname\r\n",
		want: &Message{
			Command:  "NOTICE",
			Args:     []string{"*"},
			Trailing: "*** Looking up your hostname",
			User:     &Prefix{Nick: "irc.example"},
		},
	},
	{
		name:    "empty line",
		raw:     "\r\n",
		wantErr: true,
	},
	{
		name:    "prefix with no command",
		raw:     ":nick!user@host\r\n",
		wantErr: true,
	},
}

func TestParse(t *testing.T) {
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			got, err := Parse(f.raw)
			if f.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, f.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", f.raw, got, f.want)
				if got.User != nil && f.want.User != nil {
					t.Errorf("  user got=%+v want=%+v", got.User, f.want.User)
				}
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, f := range fixtures {
		if f.wantErr {
			continue
		}
		t.Run(f.name, func(t *testing.T) {
			out := f.want.Serialize()
			reparsed, err := Parse(out)
			if err != nil {
				t.Fatalf("re-parse of serialized message failed: %v", err)
			}
			if reparsed.Command != f.want.Command ||
				reparsed.Trailing != f.want.Trailing ||
				!reflect.DeepEqual(reparsed.Args, f.want.Args) {
				t.Errorf("round trip mismatch: got %+v, want %+v", reparsed, f.want)
			}
		})
	}
}

func TestSerializeEmptyTrailingWithArgs(t *testing.T) {
	m := &Message{Command: "MODE", Args: []string{"#chan", "+o", "alice"}}
	got := m.Serialize()
	want := "MODE #chan +o alice \r\n"
	if got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestSerializeNoArgsNoTrailing(t *testing.T) {
	m := &Message{Command: "PING"}
	got := m.Serialize()
	want := "PING\r\n"
	if got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}
