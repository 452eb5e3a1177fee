package app

import ilogger "slimsweep/internal/logger"

// CleanupStats is what a log cleanup pass reports.
type CleanupStats = ilogger.CleanupStats

var (
	logDebug = ilogger.LogDebug
	logInfo  = ilogger.LogInfo
	logWarn  = ilogger.LogWarn
	logError = ilogger.LogError
)
