// Command jukebox-passwd manages the htpasswd file used for HTTP basic
// authentication.
//
// Usage:
//
//	jukebox-passwd <htpasswd-file> <username>
//
// The password is read twice from the terminal without echo and stored as
// a bcrypt hash. Other entries and comments in the file are kept; an
// existing entry for the user is replaced. A new file is created with mode
// 0600.
//
// Start the server with the file to require credentials:
//
//	jukebox --basic_auth_file=/etc/jukebox/htpasswd
package main
