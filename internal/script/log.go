package script

import ilogger "slimsweep/internal/logger"

func logInfo(msg string) { ilogger.LogInfo(msg) }
