// Package htpasswd reads and writes Apache-style htpasswd files holding
// bcrypt password hashes.
//
// Entries are "user:hash" lines; '#' starts a comment. Hashes with the
// $2a$, $2b$ and $2y$ prefixes are verified with golang.org/x/crypto/bcrypt.
// Other schemes (MD5, SHA1, crypt) are skipped with a warning so one stale
// entry does not lock every user out.
package htpasswd
