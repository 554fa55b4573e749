package filter

import (
	"strings"
	"testing"
)

func mustMatch(t *testing.T, key, value string) Condition {
	t.Helper()
	c, err := NewMatch(key, value)
	if err != nil {
		t.Fatalf("NewMatch(%q, %q): %v", key, value, err)
	}
	return c
}

func TestNewMatch_Validation(t *testing.T) {
	if _, err := NewMatch("", "x"); err == nil || !strings.Contains(err.Error(), "key is required") {
		t.Errorf("expected key error, got %v", err)
	}
	if _, err := NewMatch("role", ""); err == nil || !strings.Contains(err.Error(), "match value") {
		t.Errorf("expected value error, got %v", err)
	}

	c, err := NewMatch("role", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != "role" || c.Match() != "admin" {
		t.Errorf("unexpected condition: %+v", c)
	}
}

func TestNewExpression_TooManyConditions(t *testing.T) {
	many := make([]Condition, MaxConditionsPerGroup+1)
	for i := range many {
		many[i] = Condition{key: "k", match: "v"}
	}

	if _, err := NewExpression(many, nil, nil); err == nil {
		t.Error("expected error for too many must")
	}
	if _, err := NewExpression(nil, many, nil); err == nil {
		t.Error("expected error for too many should")
	}
	if _, err := NewExpression(nil, nil, many); err == nil {
		t.Error("expected error for too many must_not")
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	if !(Expression{}).IsEmpty() {
		t.Error("zero expression should be empty")
	}
	expr, _ := NewExpression([]Condition{mustMatch(t, "a", "b")}, nil, nil)
	if expr.IsEmpty() {
		t.Error("expression with must should not be empty")
	}
}

func TestExpression_Matches(t *testing.T) {
	role := mustMatch(t, "role", "admin")
	account := mustMatch(t, "account", "acme")

	or, _ := NewExpression(nil, []Condition{role, account}, nil)
	and, _ := NewExpression([]Condition{role, account}, nil, nil)
	not, _ := NewExpression(nil, nil, []Condition{role})

	tests := []struct {
		name string
		expr Expression
		meta map[string]string
		want bool
	}{
		{"empty matches anything", Expression{}, nil, true},
		{"or role only", or, map[string]string{"role": "admin", "account": "other"}, true},
		{"or account only", or, map[string]string{"role": "viewer", "account": "acme"}, true},
		{"or neither", or, map[string]string{"role": "viewer", "account": "other"}, false},
		{"or missing keys", or, map[string]string{"id": "doc1"}, false},
		{"or nil metadata", or, nil, false},
		{"and both", and, map[string]string{"role": "admin", "account": "acme"}, true},
		{"and one", and, map[string]string{"role": "admin"}, false},
		{"not excluded", not, map[string]string{"role": "admin"}, false},
		{"not passes", not, map[string]string{"role": "viewer"}, true},
		{"case sensitive", or, map[string]string{"role": "Admin", "account": "ACME"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.Matches(tt.meta); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.meta, got, tt.want)
			}
		})
	}
}
