// Package memory keeps the process inside its container memory budget.
//
// ApplyLimitFromEnv translates a container limit (MEMORY_LIMIT, usually
// injected through the Kubernetes Downward API) into a Go soft memory limit.
// Monitor samples heap usage against that limit; the directory scan calls
// Wait between files so a very large tree cannot push the process into an
// OOM kill while records are being built.
//
//	limit := memory.ApplyLimitFromEnv()
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	go mon.Run(ctx)
//
//	for job := range jobs {
//	    if err := mon.Wait(ctx); err != nil {
//	        return err
//	    }
//	    // ...
//	}
package memory
