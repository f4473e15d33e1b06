/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Image output directories are frequently network mounts. The index stats every
file it is told about and the metadata extractor opens PNGs on demand, so a
transient ESTALE must not be reported as "file vanished".

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer file.Close()

# Retry Behavior

  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms, doubling up to MaxBackoff (500ms)

Only ESTALE triggers retries. All other errors fail immediately, which keeps
the single event consumer from stalling on files that were simply deleted.

# Metrics

Operations are reported through the Observer interface. The metrics package
provides the Prometheus implementation; main wires it with SetObserver.
Volume labels come from a VolumeResolver set with SetDefaultVolumeResolver.
*/
package filesystem
