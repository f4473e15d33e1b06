/*
Package workers sizes worker pools in containerized environments.

It uses runtime.GOMAXPROCS(0), which Go sets from the container CPU quota,
instead of runtime.NumCPU(), which reports host CPUs.

The initial image scan is I/O bound (stat plus a short signature read per
file), so the indexer sizes its pool with ForIO. Setting SCAN_WORKERS pins
the count, which is useful on NFS mounts where high parallelism hurts.

	n := workers.ForIO(16)
*/
package workers
