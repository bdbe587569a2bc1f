package startup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"

	"jukebox/internal/library"
	"jukebox/internal/logging"
	"jukebox/internal/transcoder"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// ErrHelp is returned by LoadConfig when -h or --help was given.
var ErrHelp = errors.New("help requested")

// ArgsError reports an invalid command line or environment setting.
type ArgsError struct {
	Msg string
}

func (e *ArgsError) Error() string {
	return "invalid arguments: " + e.Msg
}

func argsErrorf(format string, args ...any) error {
	return &ArgsError{Msg: fmt.Sprintf(format, args...)}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Backend     string
	Path        string
	RhythmboxDB string
	Bitrate     int
	BindAddress string
	Port        int
	EncoderPath string

	BasicAuthFile string

	CacheDB      string
	CacheEnabled bool

	MetricsPort     string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool
	LogLevel        string
}

// Addr returns the listen address for the application server.
func (c *Config) Addr() string {
	return c.BindAddress + ":" + strconv.Itoa(c.Port)
}

const (
	defaultPort    = 8080
	defaultBitrate = 64
	cacheFileName  = "jukebox.db"
)

// newFlagSet binds flags to cfg. Defaults come from the environment so
// that a flag overrides its variable.
func newFlagSet(cfg *Config, help *bool, noCache *bool) *pflag.FlagSet {
	fs := pflag.NewFlagSet("jukebox", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)

	fs.BoolVarP(help, "help", "h", false, "display this help message")
	fs.StringVar(&cfg.Backend, "backend", getEnv("BACKEND", library.BackendDirectory),
		"library backend: dir, playlist or rhythmbox")
	fs.StringVar(&cfg.Path, "path", getEnv("MUSIC_PATH", ""),
		"directory (dir backend, default: current directory) or playlist file (playlist backend)")
	fs.IntVarP(&cfg.Bitrate, "bitrate", "b", getEnvInt("BITRATE", defaultBitrate),
		"output stream bitrate in kbit/s")
	fs.StringVar(&cfg.BindAddress, "bind_address", getEnv("BIND_ADDRESS", ""),
		"IPv4 or IPv6 address to listen on (default: all)")
	fs.IntVarP(&cfg.Port, "port", "p", getEnvInt("PORT", defaultPort),
		"port to listen on")
	fs.StringVar(&cfg.BasicAuthFile, "basic_auth_file", getEnv("BASIC_AUTH_FILE", ""),
		"htpasswd file with bcrypt hashes; enables HTTP basic authentication")
	fs.StringVar(&cfg.RhythmboxDB, "rhythmbox_db", getEnv("RHYTHMBOX_DB", library.DefaultRhythmboxDB),
		"Rhythmbox database (rhythmbox backend)")
	fs.StringVar(&cfg.CacheDB, "cache_db", getEnv("CACHE_DB", ""),
		"scan cache database (default: <path>/"+cacheFileName+")")
	fs.BoolVar(noCache, "no_cache", false, "disable the scan cache")
	fs.StringVar(&cfg.EncoderPath, "encoder", getEnv("ENCODER_PATH", transcoder.DefaultEncoderPath),
		"Ogg Vorbis encoder binary")
	fs.StringVar(&cfg.MetricsPort, "metrics_port", getEnv("METRICS_PORT", "9090"),
		"Prometheus metrics port")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", ""),
		"debug, info, warn or error")

	return fs
}

// Usage writes the command line help to w.
func Usage(w io.Writer) {
	var cfg Config
	var help, noCache bool
	fs := newFlagSet(&cfg, &help, &noCache)

	fmt.Fprintf(w, "Usage: %s [OPTIONS]\n\nOptions:\n", filepath.Base(os.Args[0]))
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprint(w, `
Environment:
  BACKEND, MUSIC_PATH, BITRATE, BIND_ADDRESS, PORT, BASIC_AUTH_FILE,
  RHYTHMBOX_DB, CACHE_DB, ENCODER_PATH, METRICS_PORT, METRICS_ENABLED,
  LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
  Flags override the environment.
`)
}

// LoadConfig parses args (without the program name) on top of the
// environment, validates the result and logs it.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	var help, noCache bool

	fs := newFlagSet(cfg, &help, &noCache)
	if err := fs.Parse(args); err != nil {
		return nil, argsErrorf("%v", err)
	}
	if help {
		return nil, ErrHelp
	}
	if fs.NArg() > 0 {
		return nil, argsErrorf("unexpected argument %q", fs.Arg(0))
	}

	if cfg.LogLevel != "" {
		level, ok := logging.ParseLevel(cfg.LogLevel)
		if !ok {
			return nil, argsErrorf("unknown log level %q", cfg.LogLevel)
		}
		logging.SetLevel(level)
	}
	cfg.LogLevel = logging.GetLevel().String()

	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.LogStaticFiles = getEnvBool("LOG_STATIC_FILES", false)
	cfg.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", true)

	if err := cfg.validate(fs.Changed("path") || os.Getenv("MUSIC_PATH") != ""); err != nil {
		return nil, err
	}

	cfg.CacheEnabled = cfg.Backend == library.BackendDirectory && !noCache
	if cfg.CacheEnabled {
		if cfg.CacheDB == "" {
			cfg.CacheDB = filepath.Join(cfg.Path, cacheFileName)
		}
		if err := testWriteAccess(filepath.Dir(cfg.CacheDB)); err != nil {
			logging.Warn("Scan cache disabled, %s is not writable: %v", filepath.Dir(cfg.CacheDB), err)
			cfg.CacheEnabled = false
		}
	}

	printBanner()
	logSystemInfo()
	cfg.log()

	return cfg, nil
}

func (c *Config) validate(pathSet bool) error {
	switch c.Backend {
	case library.BackendDirectory, library.BackendPlaylist, library.BackendRhythmbox:
	default:
		return argsErrorf("unsupported backend type %q", c.Backend)
	}

	if c.Bitrate <= 0 {
		return argsErrorf("invalid bitrate setting %d", c.Bitrate)
	}
	if c.Port < 1 || c.Port > 65535 {
		return argsErrorf("invalid port setting %d", c.Port)
	}

	if c.BasicAuthFile != "" {
		f, err := os.Open(c.BasicAuthFile)
		if err != nil {
			return argsErrorf("could not read auth file %s", c.BasicAuthFile)
		}
		f.Close()
	}

	switch c.Backend {
	case library.BackendRhythmbox:
		if pathSet {
			logging.Warn("--path was set but is ignored for --backend=%s", c.Backend)
		}
		c.Path = ""
		c.RhythmboxDB = library.ExpandHome(c.RhythmboxDB)
	case library.BackendPlaylist:
		if c.Path == "" {
			return argsErrorf("specify --path for playlist backend")
		}
	case library.BackendDirectory:
		if c.Path == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to determine working directory: %w", err)
			}
			c.Path = wd
		}
		if err := ensureDirectory(c.Path); err != nil {
			return argsErrorf("music directory %s: %v", c.Path, err)
		}
	}

	if c.Path != "" {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", c.Path, err)
		}
		c.Path = abs
	}
	return nil
}

func (c *Config) log() {
	section("CONFIGURATION")
	setting("BACKEND", c.Backend)
	if c.Path != "" {
		setting("MUSIC_PATH", c.Path)
	}
	if c.Backend == library.BackendRhythmbox {
		setting("RHYTHMBOX_DB", c.RhythmboxDB)
	}
	setting("BITRATE", fmt.Sprintf("%d kbit/s", c.Bitrate))
	setting("LISTEN", c.Addr())
	setting("ENCODER_PATH", c.EncoderPath)
	setting("CACHE_DB", orDefault(c.CacheEnabled, c.CacheDB, "DISABLED"))
	setting("BASIC_AUTH_FILE", orDefault(c.BasicAuthFile != "", c.BasicAuthFile, "none (authentication disabled)"))
	setting("METRICS", orDefault(c.MetricsEnabled, "port "+c.MetricsPort, "DISABLED"))
	setting("LOG_STATIC_FILES", strconv.FormatBool(c.LogStaticFiles))
	setting("LOG_HEALTH_CHECKS", strconv.FormatBool(c.LogHealthChecks))
	setting("LOG_LEVEL", c.LogLevel)
}

func setting(name, value string) {
	logging.Info("  %-20s %s", name+":", value)
}

func orDefault(cond bool, value, otherwise string) string {
	if cond {
		return value
	}
	return otherwise
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func section(title string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

// LogCacheInit logs scan cache initialization
func LogCacheInit(path string, duration time.Duration, lastScan time.Time) {
	section("SCAN CACHE INITIALIZATION")
	logging.Info("  [OK] %s opened in %v", path, duration)
	if !lastScan.IsZero() {
		logging.Info("  Last scan: %s", lastScan.Format(time.RFC1123))
	}
}

// LogTranscoderInit reports the encoder and every registered decoder.
func LogTranscoderInit(t *transcoder.Transcoder) {
	section("TRANSCODER INITIALIZATION")

	if t.EncoderAvailable() {
		logging.Info("  [OK] Encoder: %s", t.EncoderPath())
	} else {
		logging.Warn("  Encoder not found at %s (install \"vorbis-tools\")", t.EncoderPath())
		logging.Warn("  No track can be streamed until it is installed")
	}

	exts := t.Decoders().Extensions()
	slices.Sort(exts)
	for _, ext := range exts {
		spec, _ := t.Decoders().Lookup(ext)
		if _, err := os.Stat(spec.Path); err == nil {
			logging.Info("  [OK] .%-5s %s", ext, spec.Path)
		} else {
			logging.Warn("  .%-5s %s missing (install %q)", ext, spec.Path, spec.Package)
		}
	}
}

// LogLibraryInit logs the start of the library load
func LogLibraryInit(backend, path string) {
	section("LIBRARY INITIALIZATION")
	if path != "" {
		logging.Info("  Loading %s backend from %s...", backend, path)
	} else {
		logging.Info("  Loading %s backend...", backend)
	}
}

// LogLibraryLoaded logs a successful library load
func LogLibraryLoaded(tracks, playlists int, duration time.Duration) {
	logging.Info("  [OK] %d tracks, %d playlists in %v", tracks, playlists, duration)
}

// LogAuthInit logs basic authentication setup
func LogAuthInit(file string, users int) {
	section("AUTHENTICATION")
	if file == "" {
		logging.Info("  Basic authentication: %s", enabledString(false))
		return
	}
	logging.Info("  Basic authentication: %s (%d users from %s)", enabledString(true), users, file)
	if users == 0 {
		logging.Warn("  %s has no usable bcrypt entries; every request will be rejected", file)
	}
}

// LogMemoryConfig logs how the Go memory limit was configured
func LogMemoryConfig(source string, limit int64) {
	if source == "" || source == "none" {
		logging.Debug("  Memory limit: not configured")
		return
	}
	logging.Info("  Memory limit: %d bytes (from %s)", limit, source)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return err
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes lists the registered routes at debug level, grouped by
// getRouteGroup, and reports which requests reach the access log.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		slices.SortStableFunc(routes, func(a, b RouteInfo) int {
			return strings.Compare(getRouteGroup(a.Path), getRouteGroup(b.Path))
		})

		logging.Debug("  Registered routes (%d total):", len(routes))
		group := ""
		for _, route := range routes {
			if g := getRouteGroup(route.Path); g != group {
				group = g
				logging.Debug("  [%s]", group)
			}
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  Access log: static files %s (LOG_STATIC_FILES), health checks %s (LOG_HEALTH_CHECKS)",
		onOff(logStaticFiles), onOff(logHealthChecks))
}

func onOff(b bool) string {
	return orDefault(b, "on", "off")
}

// getRouteGroup names the group a route is listed under
func getRouteGroup(path string) string {
	switch {
	case strings.HasPrefix(path, "/get"):
		return "catalog"
	case path == "/healthz" || path == "/livez" || path == "/readyz" || path == "/version":
		return "health"
	default:
		return "static"
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Addr            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted prints where the server can be reached.
func LogServerStarted(config ServerConfig) {
	host, port := splitAddr(config.Addr)
	metricsURL := "DISABLED"
	if config.MetricsEnabled {
		metricsURL = fmt.Sprintf("http://%s:%s/metrics", host, config.MetricsPort)
	}

	section("SERVER STARTED")
	logging.Info("  Ready in %v", config.StartupDuration)
	logging.Info("  Web client: http://%s:%s", host, port)
	logging.Info("  Metrics:    %s", metricsURL)
	logging.Info("  Press Ctrl+C to stop")
}

func splitAddr(addr string) (host, port string) {
	idx := strings.LastIndex(addr, ":")
	if idx == -1 {
		return addr, ""
	}
	host, port = addr[:idx], addr[idx+1:]
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	fmt.Println(`
       _       _        _
      (_)_   _| | _____| |__   _____  __
      | | | | | |/ / _ \ '_ \ / _ \ \/ /
      | | |_| |   <  __/ |_) | (_) >  <
     _/ |\__,_|_|\_\___|_.__/ \___/_/\_\
    |__/`)
	logging.Info("jukebox %s (commit %s, built %s)", Version, Commit, BuildTime)
}

func logSystemInfo() {
	section("SYSTEM")
	setting("GO", fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH))
	setting("CPUS", fmt.Sprintf("%d (GOMAXPROCS %d)", runtime.NumCPU(), runtime.GOMAXPROCS(0)))
	if wd, err := os.Getwd(); err == nil {
		logging.Debug("  Working dir: %s", wd)
	}
	if hostname, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname:    %s", hostname)
	}
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
