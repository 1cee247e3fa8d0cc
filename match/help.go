package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternbot/tern/wire"
)

// helpDoc is one handler's documentation entry, gathered at Compile() time.
type helpDoc struct {
	name        string
	primary     string
	aliases     []string
	description string
}

func (d helpDoc) canonical() string {
	if d.description == "" {
		return d.primary
	}
	return fmt.Sprintf("%s — %s", d.primary, d.description)
}

// attachHelp synthesizes the bare help-command and help-plus-search-term
// specs into the engine's PRIVMSG group. It runs after every other group
// has been compiled, so it sees the full doc list.
func attachHelp(e *Engine) {
	docs := append([]helpDoc(nil), e.docs...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].primary < docs[j].primary })

	listing := func() string {
		names := make([]string, len(docs))
		for i, d := range docs {
			names[i] = firstToken(d.primary)
		}
		return strings.Join(names, ", ")
	}

	helpGroup := e.groups["PRIVMSG"]
	if helpGroup == nil {
		helpGroup = &compiledGroup{command: "PRIVMSG"}
		e.groups["PRIVMSG"] = helpGroup
	}

	helpCmd := e.helpCmd
	searchPrefix := helpCmd + " "

	helpGroup.specs = append(helpGroup.specs,
		&compiledSpec{
			primary: &compiledPattern{
				helpText: helpCmd,
				match: func(trailing string) (Captures, bool) {
					if trailing == helpCmd {
						return Captures{}, true
					}
					return nil, false
				},
			},
			opts:    specOpts{name: e.name + ":help"},
			handler: helpListHandler(listing),
		},
		&compiledSpec{
			primary: &compiledPattern{
				helpText: searchPrefix + "<term>",
				match: func(trailing string) (Captures, bool) {
					if !strings.HasPrefix(trailing, searchPrefix) {
						return nil, false
					}
					term := strings.TrimPrefix(trailing, searchPrefix)
					for _, d := range docs {
						if firstToken(d.primary) == term {
							return Captures{"term": term}, true
						}
					}
					return nil, false
				},
			},
			opts:    specOpts{name: e.name + ":help-search"},
			handler: helpSearchHandler(docs),
		},
	)
}

func helpListHandler(listing func() string) HandlerFunc {
	return func(_ context.Context, _ *wire.Message, _ Captures, rc *ReplyContext) {
		rc.Reply(listing())
	}
}

func helpSearchHandler(docs []helpDoc) HandlerFunc {
	return func(_ context.Context, _ *wire.Message, caps Captures, rc *ReplyContext) {
		term := caps["term"]
		for _, d := range docs {
			if firstToken(d.primary) == term {
				rc.Reply(d.canonical())
				return
			}
		}
	}
}
