package startup

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	// Verify that runtime values are correct
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
			setEnv:       false,
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
		{
			name:         "Returns empty string when env var is empty",
			key:          "TEST_EMPTY_VAR",
			defaultValue: "default",
			envValue:     "",
			want:         "",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				// Ensure the variable is not set
				os.Unsetenv(tt.key)
				t.Cleanup(func() {
					os.Unsetenv(tt.key)
				})
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

// clearEnv unsets every variable LoadConfig reads for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BACKEND", "MUSIC_PATH", "BITRATE", "BIND_ADDRESS", "PORT", "BASIC_AUTH_FILE",
		"RHYTHMBOX_DB", "CACHE_DB", "ENCODER_PATH", "METRICS_PORT", "METRICS_ENABLED",
		"LOG_LEVEL", "LOG_STATIC_FILES", "LOG_HEALTH_CHECKS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig([]string{"--path", dir})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Backend != "dir" {
		t.Errorf("Backend = %q, want dir", cfg.Backend)
	}
	if cfg.Bitrate != 64 {
		t.Errorf("Bitrate = %d, want 64", cfg.Bitrate)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", cfg.Addr())
	}
	if !cfg.CacheEnabled {
		t.Error("expected scan cache to be enabled for the dir backend")
	}
	if want := filepath.Join(dir, "jukebox.db"); cfg.CacheDB != want {
		t.Errorf("CacheDB = %q, want %q", cfg.CacheDB, want)
	}
	if !cfg.MetricsEnabled || cfg.MetricsPort != "9090" {
		t.Errorf("metrics = %v on %q, want enabled on 9090", cfg.MetricsEnabled, cfg.MetricsPort)
	}
	if cfg.LogStaticFiles || !cfg.LogHealthChecks {
		t.Errorf("LogStaticFiles=%v LogHealthChecks=%v", cfg.LogStaticFiles, cfg.LogHealthChecks)
	}
}

func TestLoadConfigDefaultsToWorkingDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig([]string{"--no_cache"})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(cfg.Path)
	if got != want {
		t.Errorf("Path = %q, want %q", cfg.Path, dir)
	}
	if cfg.CacheEnabled {
		t.Error("--no_cache should disable the scan cache")
	}
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("MUSIC_PATH", dir)
	t.Setenv("BITRATE", "128")
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_STATIC_FILES", "true")

	cfg, err := LoadConfig([]string{"-b", "96", "--bind_address", "127.0.0.1"})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Bitrate != 96 {
		t.Errorf("Bitrate = %d, want 96 from the flag", cfg.Bitrate)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000 from the environment", cfg.Port)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if !cfg.LogStaticFiles {
		t.Error("LOG_STATIC_FILES=true was ignored")
	}
}

func TestLoadConfigBackends(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	playlist := filepath.Join(dir, "mix.m3u")
	if err := os.WriteFile(playlist, []byte("a.flac\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig([]string{"--backend", "playlist", "--path", playlist})
	if err != nil {
		t.Fatalf("playlist backend: %v", err)
	}
	if cfg.Path != playlist || cfg.CacheEnabled {
		t.Errorf("playlist backend: Path=%q CacheEnabled=%v", cfg.Path, cfg.CacheEnabled)
	}

	cfg, err = LoadConfig([]string{"--backend", "rhythmbox", "--path", dir, "--rhythmbox_db", "/tmp/rhythmdb.xml"})
	if err != nil {
		t.Fatalf("rhythmbox backend: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("rhythmbox backend should ignore --path, got %q", cfg.Path)
	}
	if cfg.RhythmboxDB != "/tmp/rhythmdb.xml" {
		t.Errorf("RhythmboxDB = %q", cfg.RhythmboxDB)
	}
}

func TestLoadConfigUnwritableCache(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig([]string{"--path", dir, "--cache_db", filepath.Join(dir, "missing", "cache.db")})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.CacheEnabled {
		t.Error("expected scan cache to be disabled when its directory is not writable")
	}
}

func TestLoadConfigHelp(t *testing.T) {
	clearEnv(t)
	for _, arg := range []string{"-h", "--help"} {
		if _, err := LoadConfig([]string{arg}); !errors.Is(err, ErrHelp) {
			t.Errorf("LoadConfig(%q) error = %v, want ErrHelp", arg, err)
		}
	}
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown backend", []string{"--backend", "itunes", "--path", dir}},
		{"zero bitrate", []string{"--path", dir, "--bitrate", "0"}},
		{"negative bitrate", []string{"--path", dir, "--bitrate", "-5"}},
		{"non-numeric bitrate", []string{"--path", dir, "--bitrate", "fast"}},
		{"port too large", []string{"--path", dir, "--port", "70000"}},
		{"port zero", []string{"--path", dir, "--port", "0"}},
		{"playlist without path", []string{"--backend", "playlist"}},
		{"missing auth file", []string{"--path", dir, "--basic_auth_file", filepath.Join(dir, "nope")}},
		{"path is a file", []string{"--path", file}},
		{"missing directory", []string{"--path", filepath.Join(dir, "nope")}},
		{"unknown flag", []string{"--shuffle"}},
		{"positional argument", []string{"--path", dir, "extra"}},
		{"bad log level", []string{"--path", dir, "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			var argsErr *ArgsError
			if !errors.As(err, &argsErr) {
				t.Fatalf("LoadConfig(%v) error = %v, want *ArgsError", tt.args, err)
			}
			if !strings.HasPrefix(err.Error(), "invalid arguments: ") {
				t.Errorf("error text = %q", err.Error())
			}
		})
	}
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	Usage(&buf)

	out := buf.String()
	for _, want := range []string{"--backend", "--path", "--bitrate", "--port", "--basic_auth_file", "BITRATE"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage is missing %q", want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	router := mux.NewRouter()
	router.HandleFunc("/getlibrary", noop).Methods(http.MethodGet).Name("library")
	router.HandleFunc("/healthz", noop).Methods(http.MethodGet, http.MethodHead)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("got %d routes, want 3: %+v", len(routes), routes)
	}
	if routes[0].Path != "/getlibrary" || routes[0].Method != http.MethodGet || routes[0].Name != "library" {
		t.Errorf("routes[0] = %+v", routes[0])
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/getlibrary": "catalog",
		"/getcontent": "catalog",
		"/healthz":    "health",
		"/version":    "health",
		"/":           "static",
		"/static/":    "static",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSplitAddr(t *testing.T) {
	tests := []struct {
		addr, host, port string
	}{
		{":8080", "0.0.0.0", "8080"},
		{"127.0.0.1:80", "127.0.0.1", "80"},
		{"[::1]:8080", "[::1]", "8080"},
	}
	for _, tt := range tests {
		host, port := splitAddr(tt.addr)
		if host != tt.host || port != tt.port {
			t.Errorf("splitAddr(%q) = %q, %q; want %q, %q", tt.addr, host, port, tt.host, tt.port)
		}
	}
}
