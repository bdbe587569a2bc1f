package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"jukebox/internal/library"
)

const (
	defaultPlayer = "/usr/bin/ogg123"

	// libraryAttempts bounds how long the client waits for a server that is
	// still loading its library (503 with Retry-After).
	libraryAttempts = 10
	maxRetryAfter   = 5 * time.Second
	requestTimeout  = 30 * time.Second
)

// playFunc plays one stream and returns when playback ends.
type playFunc func(player, streamURL string) error

// console is the client's view of the terminal.
type console struct {
	in       io.Reader
	out, err io.Writer
	play     playFunc
	password func(label string) (string, error)
}

func main() {
	os.Exit(run(os.Args[1:], console{
		in:       os.Stdin,
		out:      os.Stdout,
		err:      os.Stderr,
		play:     playExternal,
		password: terminalPassword,
	}))
}

// playExternal runs "<player> -q <url>" in the foreground. Ctrl-C reaches
// the player through the terminal and ends the current song only.
func playExternal(player, streamURL string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := exec.CommandContext(ctx, player, "-q", streamURL)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func terminalPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	return string(password), err
}

func run(args []string, c console) int {
	flags := pflag.NewFlagSet("jukebox-client", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	help := flags.BoolP("help", "h", false, "show this help")
	player := flags.String("player", defaultPlayer, "Ogg Vorbis player invoked as <player> -q <url>")
	user := flags.StringP("user", "u", "", "user name for servers started with --basic_auth_file")
	buffered := flags.Bool("buffered", false, "request buffered streams with a Content-Length")

	if err := flags.Parse(args); err != nil {
		fmt.Fprintf(c.err, "Error: %v\n", err)
		printUsage(c.err, flags)
		return 1
	}
	if *help {
		printUsage(c.out, flags)
		return 0
	}
	if flags.NArg() != 1 {
		printUsage(c.err, flags)
		return 1
	}

	server, err := parseServer(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(c.err, "Error: %v\n", err)
		return 1
	}
	if *user != "" {
		password, ok := os.LookupEnv("JUKEBOX_PASSWORD")
		if !ok {
			if password, err = c.password("Password: "); err != nil {
				fmt.Fprintf(c.err, "Error reading password: %v\n", err)
				return 1
			}
		}
		server.User = url.UserPassword(*user, password)
	}

	tracks, err := fetchLibrary(server)
	if err != nil {
		fmt.Fprintf(c.err, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(c.out, "Loaded %d songs from library.\n", len(tracks))
	fmt.Fprintln(c.out, `You can issue queries like: "Beatles" or "help, the beatles"`)

	input := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "Query? ")
		if !input.Scan() || input.Text() == "" {
			fmt.Fprintln(c.out)
			return 0
		}
		query := input.Text()

		for _, track := range tracks {
			if !songMatches(query, track) {
				continue
			}
			fmt.Fprintf(c.out, "%s - %s\n", track.Title, track.Artist)
			if err := c.play(*player, contentURL(server, track.Key, *buffered)); err != nil {
				if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
					fmt.Fprintf(c.err, "Error: player %s not found (install \"vorbis-tools\" or pass --player)\n", *player)
					return 1
				}
				fmt.Fprintf(c.err, "Warning: %s: %v\n", *player, err)
			}
		}
	}
}

// songMatches reports whether every comma-separated part of query appears,
// case-insensitively, in the track's album, title or artist.
func songMatches(query string, track library.Track) bool {
	album := strings.ToLower(track.Album)
	title := strings.ToLower(track.Title)
	artist := strings.ToLower(track.Artist)

	for _, part := range strings.Split(strings.ToLower(query), ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(album, part) && !strings.Contains(title, part) && !strings.Contains(artist, part) {
			return false
		}
	}
	return true
}

func parseServer(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: want http://host:port", raw)
	}
	return u, nil
}

func contentURL(server *url.URL, key int, buffered bool) string {
	u := *server
	u.Path += "/getcontent"
	q := url.Values{"key": {strconv.Itoa(key)}}
	if buffered {
		q.Set("buffered", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// fetchLibrary downloads /getlibrary, waiting while the server reports that
// the library is still loading.
func fetchLibrary(server *url.URL) ([]library.Track, error) {
	u := *server
	u.Path += "/getlibrary"
	u.User = nil

	client := &http.Client{Timeout: requestTimeout}
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequest(http.MethodGet, u.String(), http.NoBody)
		if err != nil {
			return nil, err
		}
		if server.User != nil {
			password, _ := server.User.Password()
			req.SetBasicAuth(server.User.Username(), password)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch library: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var tracks []library.Track
			err := json.NewDecoder(resp.Body).Decode(&tracks)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to decode library: %w", err)
			}
			return tracks, nil
		case resp.StatusCode == http.StatusServiceUnavailable && attempt < libraryAttempts:
			resp.Body.Close()
			time.Sleep(retryAfter(resp.Header.Get("Retry-After")))
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch library: %s", resp.Status)
		}
	}
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return time.Second
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "Jukebox Console Client")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: jukebox-client [options] http://server:8080")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Loads the library, then plays every song matching each query.")
	fmt.Fprintln(w, "An empty query exits.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprint(w, flags.FlagUsages())
}
