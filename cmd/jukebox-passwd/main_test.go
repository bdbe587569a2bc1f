package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jukebox/internal/htpasswd"
)

// scriptedPrompt returns the given answers in order.
func scriptedPrompt(answers ...string) promptFunc {
	return func(string) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	if !strings.Contains(buf.String(), "Usage: jukebox-passwd <htpasswd-file> <username>") {
		t.Errorf("usage = %q", buf.String())
	}
}

func TestRunArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, 1},
		{"one argument", []string{"file"}, 1},
		{"too many", []string{"a", "b", "c"}, 1},
		{"help", []string{"--help"}, 0},
		{"colon in user", []string{filepath.Join(t.TempDir(), "htpasswd"), "bad:user"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr, scriptedPrompt()); got != tt.want {
				t.Errorf("run(%v) = %d, want %d (stderr %q)", tt.args, got, tt.want, stderr.String())
			}
		})
	}
}

func TestRunAddsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "htpasswd")
	var stdout, stderr bytes.Buffer

	if code := run([]string{path, "alice"}, &stdout, &stderr, scriptedPrompt("first-pass", "first-pass")); code != 0 {
		t.Fatalf("add: exit %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Added alice") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{path, "alice"}, &stdout, &stderr, scriptedPrompt("second-pass", "second-pass")); code != 0 {
		t.Fatalf("replace: exit %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Updated password for alice") {
		t.Errorf("stdout = %q", stdout.String())
	}

	f, err := htpasswd.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
	if !f.Verify("alice", "second-pass") || f.Verify("alice", "first-pass") {
		t.Error("expected only the second password to verify")
	}
}

func TestRunPasswordValidation(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		wantErr string
	}{
		{"mismatch", []string{"abcdefg", "abcdefh"}, "do not match"},
		{"too short", []string{"abc", "abc"}, "at least 6"},
		{"read error", nil, "Error reading password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "htpasswd")
			var stdout, stderr bytes.Buffer

			if code := run([]string{path, "bob"}, &stdout, &stderr, scriptedPrompt(tt.answers...)); code != 1 {
				t.Fatalf("exit %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantErr)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Error("file should not be created when validation fails")
			}
		})
	}
}

func TestSanitizeArg(t *testing.T) {
	tests := map[string]string{
		"alice":           "alice",
		"a.b@example.com": "a.b@example.com",
		"bad:user":        "bad_user",
		"line\nbreak":     "line_break",
		"":                "",
	}
	for in, want := range tests {
		if got := sanitizeArg(in); got != want {
			t.Errorf("sanitizeArg(%q) = %q, want %q", in, got, want)
		}
	}
}
