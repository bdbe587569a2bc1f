package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"jukebox/internal/htpasswd"
)

// minPasswordLength is enforced for new passwords.
const minPasswordLength = 6

// promptFunc reads a password after printing label. It must not echo.
type promptFunc func(label string) ([]byte, error)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, terminalPrompt))
}

func terminalPrompt(label string) ([]byte, error) {
	fmt.Print(label)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return password, err
}

func run(args []string, stdout, stderr io.Writer, prompt promptFunc) int {
	if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
		printUsage(stdout)
		return 0
	}
	if len(args) != 2 {
		printUsage(stderr)
		return 1
	}
	path, user := args[0], args[1]

	if err := htpasswd.ValidateUsername(user); err != nil {
		fmt.Fprintf(stderr, "Error: invalid username %s\n", sanitizeArg(user))
		return 1
	}

	exists := false
	if f, err := htpasswd.Load(path); err == nil {
		exists = f.Has(user)
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	password, ok := readNewPassword(stderr, prompt)
	if !ok {
		return 1
	}

	if err := htpasswd.SetPassword(path, user, string(password)); err != nil {
		fmt.Fprintf(stderr, "Error: failed to update %s: %v\n", path, err)
		return 1
	}

	if exists {
		fmt.Fprintf(stdout, "Updated password for %s in %s\n", user, path)
	} else {
		fmt.Fprintf(stdout, "Added %s to %s\n", user, path)
	}
	return 0
}

func readNewPassword(stderr io.Writer, prompt promptFunc) ([]byte, bool) {
	password, err := prompt("New Password: ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password: %v\n", err)
		return nil, false
	}

	confirm, err := prompt("Confirm Password: ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password: %v\n", err)
		return nil, false
	}

	if !bytes.Equal(password, confirm) {
		fmt.Fprintln(stderr, "Error: Passwords do not match")
		return nil, false
	}

	if len(password) < minPasswordLength {
		fmt.Fprintf(stderr, "Error: Password must be at least %d characters\n", minPasswordLength)
		return nil, false
	}

	return password, true
}

// sanitizeArg returns a printable form of a command line argument,
// replacing anything outside [a-zA-Z0-9._@-] with '_'.
func sanitizeArg(arg string) string {
	var b strings.Builder
	b.Grow(len(arg))
	for _, r := range arg {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == '@' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Jukebox Password Management")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: jukebox-passwd <htpasswd-file> <username>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Prompts twice for a password and adds the user to the file, or")
	fmt.Fprintln(w, "replaces the existing entry. The file is created if missing.")
	fmt.Fprintln(w, "Pass the file to jukebox with --basic_auth_file.")
}
