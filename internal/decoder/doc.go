// Package decoder maps audio file extensions to the external programs that
// decode them to raw PCM on standard output.
//
// The table is static: each registered extension has a fixed argument
// vector, and the file to decode is always appended as the final argument.
// Commands are run without a shell, so filenames are never interpreted.
//
// A Selector also answers whether the decoder binary for a file is actually
// installed. The first time a binary turns out to be missing for an
// extension, a single warning is logged; later lookups for that extension
// stay quiet for the life of the process.
package decoder
