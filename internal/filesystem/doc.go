/*
Package filesystem wraps os.Stat and os.Open with retries for NFS stale
file handle errors (ESTALE).

Music libraries often live on network mounts. A file handle can go stale
when the server re-exports or the file is replaced while a scan or a
stream is running; retrying with a short exponential backoff usually
succeeds. Every other error is returned immediately.

	info, err := filesystem.Stat(path)
	f, err := filesystem.OpenWithRetry(path, filesystem.RetryConfig{
	    MaxRetries:     5,
	    InitialBackoff: 20 * time.Millisecond,
	    MaxBackoff:     time.Second,
	})

Retries are counted in jukebox_filesystem_stale_errors_total and
jukebox_filesystem_retries_total.
*/
package filesystem
