package app

import (
	"fmt"
	"io"

	config "slimsweep/internal/config"
	ilogger "slimsweep/internal/logger"
)

const skipStartupCleanupEnv = "SLIMSWEEP_SKIP_STARTUP_CLEANUP"

var cleanupOldLogsFn = ilogger.CleanupOldLogs

// scheduleStartupCleanup starts removing stale logs and returns a function
// that blocks until that is done.
func scheduleStartupCleanup() (wait func()) {
	if config.EnvFlagEnabled(skipStartupCleanupEnv) {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		stats, err := cleanupOldLogsFn()
		if err != nil {
			logWarn(fmt.Sprintf("startup log cleanup: %v", err))
		}
		if stats.Deleted > 0 {
			logInfo(fmt.Sprintf("removed %d stale log file(s)", stats.Deleted))
		}
	}()
	return func() { <-done }
}

func runCleanupMode(out, errOut io.Writer) int {
	stats, err := cleanupOldLogsFn()
	if err != nil {
		fmt.Fprintf(errOut, "Cleanup failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "Cleanup completed")
	fmt.Fprintf(out, "Files scanned: %d\n", stats.Scanned)
	fmt.Fprintf(out, "Files deleted: %d\n", stats.Deleted)
	for _, f := range stats.DeletedFiles {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	fmt.Fprintf(out, "Files kept: %d\n", stats.Kept)
	for _, f := range stats.KeptFiles {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	if stats.Errors > 0 {
		fmt.Fprintf(out, "Deletion errors: %d\n", stats.Errors)
	}
	return 0
}
