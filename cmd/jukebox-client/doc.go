// Command jukebox-client is a console front end for a jukebox server.
//
// Usage:
//
//	jukebox-client [--player=/usr/bin/ogg123] [--user=name] http://server:8080
//
// The library is loaded once. Each query is split on commas and a song
// matches when every part appears, ignoring case, in its album, title or
// artist. Matching songs are played one after another by running
// "<player> -q <url>"; Ctrl-C skips the current song and an empty query
// exits.
//
// With --user the password is taken from JUKEBOX_PASSWORD or read from the
// terminal without echo.
package main
