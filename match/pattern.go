package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is something a match specification can be declared against: a
// plain string (auto-classified as literal or template), or one of
// Regex/Any for the remaining two cases.
type Pattern interface {
	isPattern()
}

type stringPattern string

func (stringPattern) isPattern() {}

type regexPattern string

func (regexPattern) isPattern() {}

type anyPattern struct{}

func (anyPattern) isPattern() {}

// P wraps a plain string pattern: literal if it has no ":name"/"~name"
// tokens, a parameterized template otherwise.
func P(s string) Pattern { return stringPattern(s) }

// Regex declares a pattern matched against trailing as a Go regular
// expression. Named capture groups ("(?P<name>...)") are extracted the
// same way as template placeholders; a pattern with none is a boolean test.
func Regex(expr string) Pattern { return regexPattern(expr) }

// Any declares a match-all pattern: it unconditionally fires.
func Any() Pattern { return anyPattern{} }

// Captures holds the named values extracted by a matched pattern.
type Captures map[string]string

// compiledPattern is a pattern reduced to a single matcher function, built
// once at Unit.Compile() time.
type compiledPattern struct {
	helpText string
	match    func(trailing string) (Captures, bool)
}

const defaultCaptureClass = `[A-Za-z0-9]+`

func compile(p Pattern, captureClass string) (*compiledPattern, error) {
	if captureClass == "" {
		captureClass = defaultCaptureClass
	}
	switch v := p.(type) {
	case anyPattern:
		return &compiledPattern{
			helpText: "*",
			match: func(string) (Captures, bool) {
				return Captures{}, true
			},
		}, nil
	case regexPattern:
		re, err := regexp.Compile(string(v))
		if err != nil {
			return nil, fmt.Errorf("match: invalid regex pattern %q: %w", v, err)
		}
		names := re.SubexpNames()
		return &compiledPattern{
			helpText: string(v),
			match:    regexMatcher(re, names),
		}, nil
	case stringPattern:
		return compileStringPattern(string(v), captureClass)
	default:
		return nil, fmt.Errorf("match: unknown pattern type %T", p)
	}
}

func compileStringPattern(s string, captureClass string) (*compiledPattern, error) {
	tokens := strings.Fields(s)
	if !hasPlaceholder(tokens) {
		literal := s
		return &compiledPattern{
			helpText: literal,
			match: func(trailing string) (Captures, bool) {
				if trailing == literal {
					return Captures{}, true
				}
				return nil, false
			},
		}, nil
	}

	var parts []string
	var help []string
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, ":"):
			name := tok[1:]
			if i := strings.IndexByte(name, '('); i >= 0 && strings.HasSuffix(name, ")") {
				inline := name[i+1 : len(name)-1]
				name = name[:i]
				parts = append(parts, fmt.Sprintf("(?P<%s>%s)", name, inline))
			} else {
				parts = append(parts, fmt.Sprintf("(?P<%s>%s)", name, captureClass))
			}
			help = append(help, "<"+name+">")
		case strings.HasPrefix(tok, "~"):
			name := tok[1:]
			parts = append(parts, fmt.Sprintf("(?P<%s>.+)", name))
			help = append(help, "<"+name+"...>")
		default:
			parts = append(parts, regexp.QuoteMeta(tok))
			help = append(help, tok)
		}
	}

	expr := "^" + strings.Join(parts, " ") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("match: failed to compile template %q: %w", s, err)
	}
	names := re.SubexpNames()
	return &compiledPattern{
		helpText: strings.Join(help, " "),
		match:    regexMatcher(re, names),
	}, nil
}

func hasPlaceholder(tokens []string) bool {
	for _, tok := range tokens {
		if strings.HasPrefix(tok, ":") || strings.HasPrefix(tok, "~") {
			return true
		}
	}
	return false
}

func regexMatcher(re *regexp.Regexp, names []string) func(string) (Captures, bool) {
	hasNames := false
	for _, n := range names {
		if n != "" {
			hasNames = true
			break
		}
	}
	return func(trailing string) (Captures, bool) {
		m := re.FindStringSubmatch(trailing)
		if m == nil {
			return nil, false
		}
		if !hasNames {
			return Captures{}, true
		}
		caps := make(Captures, len(names))
		for i, name := range names {
			if name == "" || i >= len(m) {
				continue
			}
			caps[name] = m[i]
		}
		return caps, true
	}
}

// CompilePublic compiles a Pattern into a standalone matcher function,
// exported for consumers outside the match engine's own dispatch loop —
// namely broker.NamedPredicate's suspended-matcher pattern compilation,
// which reuses the exact same grammar as the match engine.
func CompilePublic(p Pattern, captureClass string) (func(trailing string) (Captures, bool), error) {
	cp, err := compile(p, captureClass)
	if err != nil {
		return nil, err
	}
	return cp.match, nil
}

// firstToken returns the first whitespace-delimited token of a pattern's
// help text — used as the exact-match search key for the help surface.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
