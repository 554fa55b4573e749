package consistency

import "testing"

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		response string
		context  string
		want     bool
	}{
		{"all lines present", "foo\nbar", "xx foo yy bar zz", false},
		{"one line missing", "foo\nbaz", "xx foo yy bar zz", true},
		{"empty response", "", "anything", false},
		{"only newlines", "\n\n\n", "", false},
		{"blank lines skipped", "foo\n\nbar\n", "foo bar", false},
		{"whitespace line not in context", "foo\n  \nbar", "foo bar", true},
		{"whitespace line in context", "foo\n \nbar", "foo bar", false},
		{"paraphrase trips", "Run the reset command", "run `reset`", true},
		{"substring of a longer line", "reset", "please reset now", false},
		{"empty context", "anything", "", true},
		{"exact line from context", "The limit is 5.", "The limit is 5.\nApply twice.", false},
		{"altered number", "The limit is 50.", "The limit is 5.\nApply twice.", true},
	}

	c := NewChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Check(tt.response, tt.context); got != tt.want {
				t.Errorf("Check(%q, %q) = %v, want %v", tt.response, tt.context, got, tt.want)
			}
		})
	}
}

func TestFirstUnsupportedLine(t *testing.T) {
	line, suspect := FirstUnsupportedLine("foo\nnope\nalso nope", "foo")
	if !suspect {
		t.Fatal("expected suspect")
	}
	if line != "nope" {
		t.Errorf("expected first unsupported line %q, got %q", "nope", line)
	}

	line, suspect = FirstUnsupportedLine("foo", "foo")
	if suspect || line != "" {
		t.Errorf("expected no unsupported line, got %q, %v", line, suspect)
	}
}
