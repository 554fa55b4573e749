package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr string
	}{
		{
			name: "question first",
			args: []string{"How do I undo a commit?", "--role", "admin", "--user", "alice", "--account", "acme"},
			want: options{question: "How do I undo a commit?", role: "admin", user: "alice", account: "acme"},
		},
		{
			name: "question last",
			args: []string{"--role=admin", "--user=alice", "--account=acme", "-verbose", "q"},
			want: options{question: "q", role: "admin", user: "alice", account: "acme", verbose: true},
		},
		{
			name: "question in the middle",
			args: []string{"--role", "admin", "q", "--user", "alice", "--account", "acme", "--config", "c.yaml"},
			want: options{question: "q", role: "admin", user: "alice", account: "acme", configPath: "c.yaml"},
		},
		{
			name: "terminator keeps dashes in the question",
			args: []string{"--role", "admin", "--user", "alice", "--account", "acme", "--", "--role"},
			want: options{question: "--role", role: "admin", user: "alice", account: "acme"},
		},
		{
			name: "terminator after the question",
			args: []string{"q", "--role=admin", "--user=alice", "--account=acme", "--"},
			want: options{question: "q", role: "admin", user: "alice", account: "acme"},
		},
		{
			name: "double dash as a flag value",
			args: []string{"q", "--role", "--", "--user", "alice", "--account", "acme"},
			want: options{question: "q", role: "--", user: "alice", account: "acme"},
		},
		{
			name:    "terminator alone",
			args:    []string{"--"},
			wantErr: "expected exactly one question, got 0",
		},
		{
			name:    "missing flags",
			args:    []string{"q", "--role", "admin"},
			wantErr: "missing required flags: --account, --user",
		},
		{
			name:    "no question",
			args:    []string{"--role", "admin", "--user", "alice", "--account", "acme"},
			wantErr: "expected exactly one question, got 0",
		},
		{
			name:    "two questions",
			args:    []string{"a", "b", "--role", "admin", "--user", "alice", "--account", "acme"},
			wantErr: "expected exactly one question, got 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, io.Discard)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseArgs([]string{"-h"}, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(stderr.String(), "usage: contextq-cli") {
		t.Errorf("usage not printed: %q", stderr.String())
	}
}

func TestRun_BadUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"q"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should reach stdout: %q", stdout.String())
	}
}

func TestRun_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"q", "--role", "r", "--user", "u", "--account", "a", "--config", path}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "http.port") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
