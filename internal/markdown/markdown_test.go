package markdown_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"tubesum/internal/markdown"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a.b", `a\.b`},
		{"(x) [y] {z}", `\(x\) \[y\] \{z\}`},
		{`back\slash`, `back\\slash`},
		{"héllo - wörld!", `héllo \- wörld\!`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := markdown.EscapeV2(tt.in); got != tt.want {
			t.Errorf("EscapeV2(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitKeepsShortText(t *testing.T) {
	got := markdown.Split("short", 10)
	if len(got) != 1 || got[0] != "short" {
		t.Fatalf("Split = %q, want [short]", got)
	}

	if got := markdown.Split("", 10); len(got) != 0 {
		t.Fatalf("expected no chunks for empty text, got %q", got)
	}
}

func TestSplitPrefersParagraphs(t *testing.T) {
	got := markdown.Split("first para\n\nsecond para", 15)

	want := []string{"first para", "second para"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Split = %q, want %q", got, want)
	}
}

func TestSplitRespectsLimit(t *testing.T) {
	text := markdown.EscapeV2(strings.Repeat("ünïcode. words! ", 700))

	chunks := markdown.Split(text, markdown.MaxMessageLen)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if len(c) > markdown.MaxMessageLen {
			t.Fatalf("chunk %d is %d bytes", i, len(c))
		}
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
	}
}

func TestSplitDoesNotBreakEscapes(t *testing.T) {
	text := strings.Repeat(`\.`, 10)

	for _, c := range markdown.Split(text, 5) {
		if strings.HasSuffix(c, `\`) && !strings.HasSuffix(c, `\\`) {
			t.Fatalf("chunk %q ends with a dangling backslash", c)
		}
		if strings.HasPrefix(c, ".") {
			t.Fatalf("chunk %q starts with an unescaped dot", c)
		}
	}
}

func TestSplitDoesNotBreakRunes(t *testing.T) {
	for _, c := range markdown.Split(strings.Repeat("ж", 10), 5) {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %q is not valid UTF-8", c)
		}
	}
}
