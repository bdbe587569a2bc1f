package htpasswd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"jukebox/internal/logging"
)

// DefaultCost is the bcrypt cost used for new hashes.
const DefaultCost = bcrypt.DefaultCost

var (
	// ErrInvalidUsername is returned for names that cannot be stored in an
	// htpasswd file.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrEmptyPassword is returned when setting an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
)

// dummyHash is compared against when the user is unknown so that lookups
// take the same time either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("jukebox-dummy-password"), bcrypt.MinCost)

// File is a parsed htpasswd file. Only bcrypt entries are kept.
type File struct {
	users map[string][]byte
}

// Load reads and parses the htpasswd file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open htpasswd file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads htpasswd lines of the form "user:hash". Blank lines and
// lines starting with '#' are ignored. Entries with a non-bcrypt hash are
// skipped with a warning.
func Parse(r io.Reader) (*File, error) {
	file := &File{users: make(map[string][]byte)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		user, hash, ok := strings.Cut(line, ":")
		if !ok || user == "" {
			logging.Warn("htpasswd line %d: malformed entry, skipping", lineNo)
			continue
		}
		if !IsBcrypt(hash) {
			logging.Warn("htpasswd line %d: unsupported hash for user %q (only bcrypt is supported), skipping", lineNo, user)
			continue
		}
		file.users[user] = []byte(hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read htpasswd file: %w", err)
	}

	return file, nil
}

// IsBcrypt reports whether hash is in a bcrypt format this package verifies.
func IsBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// Verify reports whether password is correct for user.
func (f *File) Verify(user, password string) bool {
	hash, ok := f.users[user]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// Has reports whether user has a usable entry.
func (f *File) Has(user string) bool {
	_, ok := f.users[user]
	return ok
}

// Len returns the number of usable entries.
func (f *File) Len() int {
	return len(f.users)
}

// Hash returns a bcrypt hash of password at DefaultCost.
func Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// ValidateUsername checks that user can be written as an htpasswd entry.
func ValidateUsername(user string) error {
	if user == "" || strings.ContainsAny(user, ":\r\n") || strings.TrimSpace(user) != user {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, user)
	}
	return nil
}

// SetPassword adds user to the file at path or replaces its hash. Other
// lines, comments included, are preserved. The file is created with mode
// 0600 if missing and replaced atomically.
func SetPassword(path, user, password string) error {
	if err := ValidateUsername(user); err != nil {
		return err
	}
	hash, err := Hash(password)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var out bytes.Buffer
	replaced := false
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		line := scanner.Text()
		if name, _, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(name) == user && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			if replaced {
				continue
			}
			line = user + ":" + hash
			replaced = true
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !replaced {
		out.WriteString(user + ":" + hash + "\n")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".htpasswd-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
