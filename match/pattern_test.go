package match

import "testing"

func TestCompileLiteral(t *testing.T) {
	cp, err := compile(P("!ping"), "")
	if err != nil {
		t.Fatalf("compile() error: %v", err)
	}
	if _, ok := cp.match("!ping"); !ok {
		t.Error("expected literal match")
	}
	if _, ok := cp.match("!pingx"); ok {
		t.Error("expected literal mismatch")
	}
}

func TestCompileTemplateWithInlineRegex(t *testing.T) {
	cp, err := compile(P("!set :key(\\w+) ~value"), "")
	if err != nil {
		t.Fatalf("compile() error: %v", err)
	}
	caps, ok := cp.match("!set volume loud and clear")
	if !ok {
		t.Fatalf("expected match")
	}
	if caps["key"] != "volume" || caps["value"] != "loud and clear" {
		t.Errorf("captures = %+v", caps)
	}
}

func TestCompileRegexBooleanTest(t *testing.T) {
	cp, err := compile(Regex(`^\d+$`), "")
	if err != nil {
		t.Fatalf("compile() error: %v", err)
	}
	if _, ok := cp.match("12345"); !ok {
		t.Error("expected digits to match")
	}
	if _, ok := cp.match("abc"); ok {
		t.Error("expected non-digits to not match")
	}
}

func TestCompileAny(t *testing.T) {
	cp, err := compile(Any(), "")
	if err != nil {
		t.Fatalf("compile() error: %v", err)
	}
	if _, ok := cp.match("literally anything"); !ok {
		t.Error("Any() must always match")
	}
}
